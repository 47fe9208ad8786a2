// Package peaks reduces raw media bytes to per-channel min/max amplitude
// buckets suitable for waveform rendering. Decoding the same bytes at the
// same bucket width always produces identical data, so callers may cache
// and re-render without re-decoding.
package peaks

import (
	"fmt"
	"time"
)

const readChunkFrames = 4096

// Decode reduces the available bytes of one media stream to bucketed
// min/max peaks. The buffer may be a prefix of a longer stream: decoding
// stops at the first truncated or damaged frame and returns what was
// accumulated up to it. Only a stream yielding no samples at all is an
// error.
func Decode(b []byte, bucketSeconds int) (*Data, error) {
	if bucketSeconds < 1 {
		return nil, fmt.Errorf("bucket width %d is below one second", bucketSeconds)
	}

	src, err := NewSource(b)
	if err != nil {
		return nil, err
	}

	sampleRate := src.SampleRate()
	channels := src.ChannelCount()
	if sampleRate <= 0 {
		return nil, fmt.Errorf("source reports sample rate %d", sampleRate)
	}
	if channels <= 0 {
		return nil, fmt.Errorf("source reports %d channels", channels)
	}

	acc := newAccumulator(channels, sampleRate*bucketSeconds)
	buf := make([]float64, readChunkFrames*channels)
	for {
		n, err := src.ReadSamples(buf)
		acc.push(buf[:n])
		if err != nil {
			// io.EOF is the normal end; any other failure mid-stream is
			// treated as the end of usable data. The next refinement pass
			// re-decodes the full buffer anyway.
			break
		}
	}

	if acc.frames == 0 {
		return nil, fmt.Errorf("no decodable audio frames")
	}
	return acc.finish(sampleRate, bucketSeconds), nil
}

// accumulator folds interleaved samples into per-channel buckets.
type accumulator struct {
	channels     int
	perBucket    int // sample frames per bucket
	frames       int64
	bucketFill   int
	currentMin   []float64
	currentMax   []float64
	done         []Frame
	leftover     []float64 // partial interleaved frame carried between pushes
}

func newAccumulator(channels, perBucket int) *accumulator {
	a := &accumulator{
		channels:   channels,
		perBucket:  perBucket,
		currentMin: make([]float64, channels),
		currentMax: make([]float64, channels),
		done:       make([]Frame, channels),
	}
	a.resetBucket()
	return a
}

func (a *accumulator) resetBucket() {
	a.bucketFill = 0
	for ch := 0; ch < a.channels; ch++ {
		a.currentMin[ch] = 0
		a.currentMax[ch] = 0
	}
}

func (a *accumulator) push(samples []float64) {
	if len(a.leftover) > 0 {
		samples = append(a.leftover, samples...)
		a.leftover = nil
	}

	whole := len(samples) / a.channels * a.channels
	if whole < len(samples) {
		a.leftover = append(a.leftover, samples[whole:]...)
		samples = samples[:whole]
	}

	for off := 0; off < len(samples); off += a.channels {
		for ch := 0; ch < a.channels; ch++ {
			v := clampUnit(samples[off+ch])
			if a.bucketFill == 0 {
				a.currentMin[ch] = v
				a.currentMax[ch] = v
				continue
			}
			if v < a.currentMin[ch] {
				a.currentMin[ch] = v
			}
			if v > a.currentMax[ch] {
				a.currentMax[ch] = v
			}
		}
		a.bucketFill++
		a.frames++
		if a.bucketFill == a.perBucket {
			a.flushBucket()
		}
	}
}

func (a *accumulator) flushBucket() {
	for ch := 0; ch < a.channels; ch++ {
		a.done[ch] = append(a.done[ch], Peak{Min: a.currentMin[ch], Max: a.currentMax[ch]})
	}
	a.resetBucket()
}

// finish flushes the trailing partial bucket, so bucket count equals
// ceil(duration / bucketSeconds).
func (a *accumulator) finish(sampleRate, bucketSeconds int) *Data {
	if a.bucketFill > 0 {
		a.flushBucket()
	}
	return &Data{
		Channels:      a.done,
		SampleRate:    sampleRate,
		BucketSeconds: bucketSeconds,
		Duration:      time.Duration(a.frames) * time.Second / time.Duration(sampleRate),
	}
}

func clampUnit(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
