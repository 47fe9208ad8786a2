package peaks

import "time"

// Peak is the amplitude extrema of one fixed-duration bucket,
// normalized to [-1, 1].
type Peak struct {
	Min float64
	Max float64
}

// Frame is the ordered bucket sequence for one channel.
type Frame []Peak

// Data is one complete decoded snapshot. A refinement pass builds a new
// Data and swaps the reference; an existing Data is never mutated, so
// holders may read it without locking.
type Data struct {
	Channels      []Frame
	SampleRate    int
	BucketSeconds int
	Duration      time.Duration
}

// Frame returns the peak frame for the given channel index. An index past
// the last decoded channel falls back to the last channel rather than
// failing: sources frequently carry fewer channels than the caller
// configured for, and a silent waveform would hide that.
func (d *Data) Frame(ch int) Frame {
	if d == nil || len(d.Channels) == 0 {
		return nil
	}
	if ch < 0 {
		ch = 0
	}
	if ch >= len(d.Channels) {
		ch = len(d.Channels) - 1
	}
	return d.Channels[ch]
}

// Buckets returns the bucket count per channel.
func (d *Data) Buckets() int {
	if d == nil || len(d.Channels) == 0 {
		return 0
	}
	return len(d.Channels[0])
}
