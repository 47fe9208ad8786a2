package player

import (
	"path/filepath"
	"strings"

	id3v2 "github.com/bogem/id3v2/v2"
)

// Metadata holds track information for display.
type Metadata struct {
	Title  string
	Artist string
	Album  string
}

// ReadMetadata reads ID3v2 tags, falling back to the filename for the
// title. Non-MP3 files simply take the fallback path.
func ReadMetadata(path string) Metadata {
	meta := Metadata{
		Title: strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
	}

	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return meta
	}
	defer tag.Close()

	if title := strings.TrimSpace(tag.Title()); title != "" {
		meta.Title = title
	}
	meta.Artist = strings.TrimSpace(tag.Artist())
	meta.Album = strings.TrimSpace(tag.Album())
	return meta
}
