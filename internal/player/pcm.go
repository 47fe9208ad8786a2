package player

import (
	"encoding/binary"
	"io"
	"sync/atomic"

	"github.com/olivier-w/waveview/internal/peaks"
)

const (
	outRate        = 44100
	outChannels    = 2
	outFrameSize   = outChannels * 2 // s16le
	srcChunkFrames = 2048
)

// pcmStream adapts a peaks.Source to the fixed 44.1 kHz stereo s16le
// stream the audio output consumes. Mono sources are duplicated to both
// channels; sources with more channels keep their first two. Sample
// rates are converted by linear interpolation.
type pcmStream struct {
	src     peaks.Source
	srcRate int
	srcCh   int

	window  []float64 // whole interleaved source frames
	carry   []float64 // partial frame between reads
	base    int64     // absolute frame index of window[0]
	srcEOF  bool
	chunk   []float64

	outFrame int64
	played   atomic.Int64
	finished atomic.Bool
}

func newPCMStream(src peaks.Source) *pcmStream {
	ch := src.ChannelCount()
	return &pcmStream{
		src:     src,
		srcRate: src.SampleRate(),
		srcCh:   ch,
		chunk:   make([]float64, srcChunkFrames*ch),
	}
}

// setPosition fast-forwards the logical output position. Source frames
// up to the mapped position are decoded and discarded on the next Read.
func (s *pcmStream) setPosition(outFrame int64) {
	if outFrame < 0 {
		outFrame = 0
	}
	s.outFrame = outFrame
	s.played.Store(outFrame)
}

// Position returns the output frames delivered so far.
func (s *pcmStream) Position() int64 { return s.played.Load() }

// Finished reports that the source is fully consumed.
func (s *pcmStream) Finished() bool { return s.finished.Load() }

func (s *pcmStream) Read(p []byte) (int, error) {
	nFrames := len(p) / outFrameSize
	if nFrames == 0 {
		return 0, nil
	}

	wrote := 0
	for wrote < nFrames {
		f := s.outFrame * int64(s.srcRate) / outRate
		s.compact(f)
		if !s.fill(f) {
			s.finished.Store(true)
			break
		}

		l0, r0 := s.frameAt(f)
		l1, r1 := l0, r0
		if s.fill(f + 1) {
			l1, r1 = s.frameAt(f + 1)
		}

		frac := float64(s.outFrame*int64(s.srcRate)%outRate) / outRate
		off := wrote * outFrameSize
		binary.LittleEndian.PutUint16(p[off:], uint16(sampleToInt16(l0+(l1-l0)*frac)))
		binary.LittleEndian.PutUint16(p[off+2:], uint16(sampleToInt16(r0+(r1-r0)*frac)))

		s.outFrame++
		wrote++
	}

	if wrote == 0 {
		return 0, io.EOF
	}
	s.played.Add(int64(wrote))
	return wrote * outFrameSize, nil
}

// compact drops window frames below keepFrom.
func (s *pcmStream) compact(keepFrom int64) {
	if keepFrom <= s.base {
		return
	}
	frames := int64(len(s.window)) / int64(s.srcCh)
	drop := keepFrom - s.base
	if drop >= frames {
		s.base += frames
		s.window = s.window[:0]
		return
	}
	n := int(drop) * s.srcCh
	s.window = append(s.window[:0], s.window[n:]...)
	s.base += drop
}

// fill reads source frames until target is buffered. It reports whether
// target exists in the stream.
func (s *pcmStream) fill(target int64) bool {
	for target >= s.base+int64(len(s.window))/int64(s.srcCh) {
		if s.srcEOF {
			return false
		}
		n, err := s.src.ReadSamples(s.chunk)
		if n > 0 {
			s.carry = append(s.carry, s.chunk[:n]...)
			whole := len(s.carry) / s.srcCh * s.srcCh
			s.window = append(s.window, s.carry[:whole]...)
			s.carry = append(s.carry[:0], s.carry[whole:]...)
		}
		if err != nil {
			s.srcEOF = true
		}
	}
	return true
}

func (s *pcmStream) frameAt(f int64) (left, right float64) {
	off := int(f-s.base) * s.srcCh
	left = s.window[off]
	if s.srcCh > 1 {
		right = s.window[off+1]
	} else {
		right = left
	}
	return left, right
}

func sampleToInt16(v float64) int16 {
	if v > 1 {
		v = 1
	}
	if v < -1 {
		v = -1
	}
	return int16(v * 32767)
}
