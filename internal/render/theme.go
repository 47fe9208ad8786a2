package render

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// Style is the immutable visual configuration of one surface. It is
// fixed at configuration time; the drawer only reads it.
type Style struct {
	Wave       color.RGBA
	Background color.RGBA
	Cursor     color.RGBA
	Progress   color.RGBA
	Grid       color.RGBA
	Ruler      color.RGBA

	ShowCursor   bool
	ShowProgress bool
	ShowGrid     bool
	ShowRuler    bool
	RulerAtTop   bool

	// Padding insets the waveform bars from the top and bottom of the
	// wave area, in logical px.
	Padding int
}

// DefaultStyle returns the stock dark theme.
func DefaultStyle() Style {
	return Style{
		Wave:         mustHex("#33ccff"),
		Background:   mustHex("#10131a"),
		Cursor:       mustHex("#ff3333"),
		Progress:     mustHex("#1c2a38"),
		Grid:         mustHex("#1f2733"),
		Ruler:        mustHex("#8a93a6"),
		ShowCursor:   true,
		ShowProgress: true,
		ShowGrid:     true,
		ShowRuler:    true,
		RulerAtTop:   true,
		Padding:      4,
	}
}

// ParseHexColor parses #rgb or #rrggbb into an opaque RGBA.
func ParseHexColor(s string) (color.RGBA, error) {
	raw := strings.TrimSpace(s)
	if !strings.HasPrefix(raw, "#") {
		return color.RGBA{}, fmt.Errorf("color %q must start with '#'", s)
	}
	hex := raw[1:]

	var r, g, b uint64
	var err error
	switch len(hex) {
	case 3:
		if r, err = strconv.ParseUint(strings.Repeat(hex[0:1], 2), 16, 8); err != nil {
			break
		}
		if g, err = strconv.ParseUint(strings.Repeat(hex[1:2], 2), 16, 8); err != nil {
			break
		}
		b, err = strconv.ParseUint(strings.Repeat(hex[2:3], 2), 16, 8)
	case 6:
		if r, err = strconv.ParseUint(hex[0:2], 16, 8); err != nil {
			break
		}
		if g, err = strconv.ParseUint(hex[2:4], 16, 8); err != nil {
			break
		}
		b, err = strconv.ParseUint(hex[4:6], 16, 8)
	default:
		return color.RGBA{}, fmt.Errorf("color %q must be #rgb or #rrggbb", s)
	}
	if err != nil {
		return color.RGBA{}, fmt.Errorf("color %q has invalid hex digits", s)
	}
	return color.RGBA{R: uint8(r), G: uint8(g), B: uint8(b), A: 0xFF}, nil
}

func mustHex(s string) color.RGBA {
	c, err := ParseHexColor(s)
	if err != nil {
		panic(err)
	}
	return c
}
