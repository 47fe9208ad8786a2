package peaks

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/go-audio/wav"
	mp3 "github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	"github.com/mewkiz/flac"
)

// Format identifies a recognized container/codec.
type Format string

const (
	FormatWAV  Format = "wav"
	FormatMP3  Format = "mp3"
	FormatFLAC Format = "flac"
	FormatOGG  Format = "ogg"
)

// Source yields interleaved samples in [-1, 1] decoded from one media
// stream. Implementations read from an in-memory byte buffer, so a
// partially received stream simply ends early.
type Source interface {
	SampleRate() int
	ChannelCount() int
	// TotalFrames returns the number of sample frames the stream header
	// declares, or -1 when the header carries no total.
	TotalFrames() int64
	// ReadSamples fills p with interleaved samples and returns the count
	// read. It returns io.EOF once the stream is exhausted.
	ReadSamples(p []float64) (int, error)
}

// Sniff identifies the media format from leading magic bytes. Streamed
// buffers have no filename, so extension-based detection is not an option.
func Sniff(b []byte) (Format, bool) {
	switch {
	case len(b) >= 12 && bytes.Equal(b[0:4], []byte("RIFF")) && bytes.Equal(b[8:12], []byte("WAVE")):
		return FormatWAV, true
	case bytes.HasPrefix(b, []byte("fLaC")):
		return FormatFLAC, true
	case bytes.HasPrefix(b, []byte("OggS")):
		return FormatOGG, true
	case bytes.HasPrefix(b, []byte("ID3")):
		return FormatMP3, true
	case len(b) >= 2 && b[0] == 0xFF && b[1]&0xE0 == 0xE0:
		return FormatMP3, true
	default:
		return "", false
	}
}

// NewSource sniffs the buffer and returns a sample source for it.
func NewSource(b []byte) (Source, error) {
	format, ok := Sniff(b)
	if !ok {
		return nil, fmt.Errorf("unrecognized media format")
	}
	switch format {
	case FormatWAV:
		return newWAVSource(b)
	case FormatMP3:
		return newMP3Source(b)
	case FormatFLAC:
		return newFLACSource(b)
	case FormatOGG:
		return newOGGSource(b)
	default:
		return nil, fmt.Errorf("unrecognized media format %q", format)
	}
}

// --- WAV ---

type wavSource struct {
	r          *bytes.Reader
	sampleRate int
	channels   int
	bitDepth   int
	remaining  int64 // source PCM bytes left to read
	frames     int64
}

func newWAVSource(b []byte) (*wavSource, error) {
	r := bytes.NewReader(b)
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("invalid WAV header")
	}
	if err := dec.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("locating WAV PCM data: %w", err)
	}

	channels := int(dec.NumChans)
	bitDepth := int(dec.BitDepth)
	if channels < 1 {
		return nil, fmt.Errorf("WAV reports %d channels", channels)
	}
	switch bitDepth {
	case 8, 16, 24, 32:
	default:
		return nil, fmt.Errorf("unsupported WAV bit depth %d", bitDepth)
	}

	pcmLen := dec.PCMLen()
	frameSize := int64(channels) * int64(bitDepth) / 8
	return &wavSource{
		r:          r,
		sampleRate: int(dec.SampleRate),
		channels:   channels,
		bitDepth:   bitDepth,
		remaining:  pcmLen,
		frames:     pcmLen / frameSize,
	}, nil
}

func (s *wavSource) SampleRate() int    { return s.sampleRate }
func (s *wavSource) ChannelCount() int  { return s.channels }
func (s *wavSource) TotalFrames() int64 { return s.frames }

func (s *wavSource) ReadSamples(p []float64) (int, error) {
	if s.remaining <= 0 {
		return 0, io.EOF
	}
	bytesPerSample := s.bitDepth / 8
	want := int64(len(p)) * int64(bytesPerSample)
	if want > s.remaining {
		want = s.remaining
	}
	raw := make([]byte, want)
	n, err := io.ReadFull(s.r, raw)
	s.remaining -= int64(n)
	count := n / bytesPerSample
	if count == 0 {
		if err == nil || err == io.ErrUnexpectedEOF {
			err = io.EOF
		}
		return 0, err
	}

	for i := 0; i < count; i++ {
		off := i * bytesPerSample
		var v float64
		switch s.bitDepth {
		case 8:
			// 8-bit WAV is unsigned
			v = float64(int(raw[off])-128) / 128.0
		case 16:
			v = float64(int16(binary.LittleEndian.Uint16(raw[off:]))) / 32768.0
		case 24:
			u := int32(raw[off]) | int32(raw[off+1])<<8 | int32(raw[off+2])<<16
			if u&0x800000 != 0 {
				u |= ^0xFFFFFF // sign extend
			}
			v = float64(u) / 8388608.0
		case 32:
			v = float64(int32(binary.LittleEndian.Uint32(raw[off:]))) / 2147483648.0
		}
		p[i] = v
	}
	if err == io.ErrUnexpectedEOF {
		err = nil
	}
	return count, err
}

// --- MP3 ---

type mp3Source struct {
	dec *mp3.Decoder
}

func newMP3Source(b []byte) (*mp3Source, error) {
	dec, err := mp3.NewDecoder(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("decoding MP3: %w", err)
	}
	return &mp3Source{dec: dec}, nil
}

func (s *mp3Source) SampleRate() int { return s.dec.SampleRate() }

// go-mp3 always emits stereo s16le.
func (s *mp3Source) ChannelCount() int { return 2 }

func (s *mp3Source) TotalFrames() int64 {
	if n := s.dec.Length(); n > 0 {
		return n / 4
	}
	return -1
}

func (s *mp3Source) ReadSamples(p []float64) (int, error) {
	raw := make([]byte, len(p)*2)
	n, err := s.dec.Read(raw)
	count := n / 2
	if count == 0 {
		if err == nil {
			err = io.EOF
		}
		return 0, err
	}
	for i := 0; i < count; i++ {
		p[i] = float64(int16(binary.LittleEndian.Uint16(raw[i*2:]))) / 32768.0
	}
	return count, nil
}

// --- FLAC ---

type flacSource struct {
	stream  *flac.Stream
	pending []float64
	bps     int
	frames  int64
}

func newFLACSource(b []byte) (*flacSource, error) {
	stream, err := flac.New(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("decoding FLAC: %w", err)
	}
	info := stream.Info
	if info.NChannels < 1 {
		return nil, fmt.Errorf("FLAC reports %d channels", info.NChannels)
	}
	frames := int64(-1)
	if info.NSamples > 0 {
		frames = int64(info.NSamples)
	}
	return &flacSource{
		stream: stream,
		bps:    int(info.BitsPerSample),
		frames: frames,
	}, nil
}

func (s *flacSource) SampleRate() int    { return int(s.stream.Info.SampleRate) }
func (s *flacSource) ChannelCount() int  { return int(s.stream.Info.NChannels) }
func (s *flacSource) TotalFrames() int64 { return s.frames }

func (s *flacSource) ReadSamples(p []float64) (int, error) {
	if len(s.pending) > 0 {
		n := copy(p, s.pending)
		s.pending = s.pending[n:]
		return n, nil
	}

	frame, err := s.stream.ParseNext()
	if err != nil {
		return 0, err
	}

	channels := int(s.stream.Info.NChannels)
	nSamples := frame.Subframes[0].NSamples
	scale := float64(int64(1) << (s.bps - 1))
	raw := make([]float64, nSamples*channels)
	for i := 0; i < nSamples; i++ {
		for ch := 0; ch < channels; ch++ {
			raw[i*channels+ch] = float64(frame.Subframes[ch].Samples[i]) / scale
		}
	}

	n := copy(p, raw)
	if n < len(raw) {
		s.pending = raw[n:]
	}
	return n, nil
}

// --- Ogg Vorbis ---

type oggSource struct {
	reader *oggvorbis.Reader
}

func newOGGSource(b []byte) (*oggSource, error) {
	reader, err := oggvorbis.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("decoding Ogg Vorbis: %w", err)
	}
	return &oggSource{reader: reader}, nil
}

func (s *oggSource) SampleRate() int   { return s.reader.SampleRate() }
func (s *oggSource) ChannelCount() int { return s.reader.Channels() }

func (s *oggSource) TotalFrames() int64 {
	if n := s.reader.Length(); n > 0 {
		return n
	}
	return -1
}

func (s *oggSource) ReadSamples(p []float64) (int, error) {
	buf := make([]float32, len(p))
	n, err := s.reader.Read(buf)
	if n == 0 {
		if err == nil {
			err = io.EOF
		}
		return 0, err
	}
	for i := 0; i < n; i++ {
		p[i] = float64(buf[i])
	}
	return n, nil
}
