// Package player plays local media files through the system audio
// output. A Player satisfies the waveview bound-player contract, so a
// waveform instance can read position truth from it and pull its media
// bytes for decoding.
package player

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/olivier-w/waveview/internal/peaks"
)

var (
	globalOtoCtx *oto.Context
	otoOnce      sync.Once
	otoInitErr   error
)

func initOto() (*oto.Context, error) {
	otoOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   outRate,
			ChannelCount: outChannels,
			Format:       oto.FormatSignedInt16LE,
		}
		var ready chan struct{}
		globalOtoCtx, ready, otoInitErr = oto.NewContext(op)
		if otoInitErr == nil {
			<-ready
		}
	})
	return globalOtoCtx, otoInitErr
}

// Player manages playback of one media file.
type Player struct {
	data      []byte
	meta      Metadata
	otoCtx    *oto.Context
	otoPlayer *oto.Player
	stream    *pcmStream
	duration  time.Duration
	volume    float64
	paused    bool
	done      chan struct{}
	stopMon   chan struct{}
	mu        sync.Mutex
	closed    bool
}

// New loads path fully into memory, starts playback and returns the
// player. The in-memory copy backs OpenMedia so a waveform instance can
// decode the same bytes without re-reading the file.
func New(path string) (*Player, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	src, err := peaks.NewSource(data)
	if err != nil {
		return nil, fmt.Errorf("opening media: %w", err)
	}

	ctx, err := initOto()
	if err != nil {
		return nil, fmt.Errorf("initializing audio output: %w", err)
	}

	var duration time.Duration
	if frames := src.TotalFrames(); frames > 0 {
		duration = time.Duration(frames) * time.Second / time.Duration(src.SampleRate())
	}

	p := &Player{
		data:     data,
		meta:     ReadMetadata(path),
		otoCtx:   ctx,
		stream:   newPCMStream(src),
		duration: duration,
		volume:   0.8,
		done:     make(chan struct{}),
		stopMon:  make(chan struct{}),
	}

	p.otoPlayer = ctx.NewPlayer(p.stream)
	p.otoPlayer.SetVolume(p.volume)
	p.otoPlayer.Play()
	go p.monitor()

	return p, nil
}

// monitor closes done once the stream runs out.
func (p *Player) monitor() {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-p.stopMon:
			return
		case <-ticker.C:
			p.mu.Lock()
			finished := p.stream.Finished() && !p.otoPlayer.IsPlaying()
			p.mu.Unlock()
			if finished {
				close(p.done)
				return
			}
		}
	}
}

// Done returns a channel that closes when playback finishes.
func (p *Player) Done() <-chan struct{} { return p.done }

// Metadata returns the tags read at open time.
func (p *Player) Metadata() Metadata { return p.meta }

// OpenMedia exposes the loaded media bytes, letting a bound waveform
// instance pull them for peak decoding.
func (p *Player) OpenMedia() (io.ReadCloser, int64, error) {
	return io.NopCloser(bytes.NewReader(p.data)), int64(len(p.data)), nil
}

// TogglePause toggles between play and pause.
func (p *Player) TogglePause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	if p.paused {
		p.otoPlayer.Play()
	} else {
		p.otoPlayer.Pause()
	}
	p.paused = !p.paused
}

// Paused returns whether playback is paused.
func (p *Player) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

// Playing reports whether audio is actively advancing.
func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.closed && !p.paused && !p.stream.Finished()
}

// Position returns the current playback position.
func (p *Player) Position() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return time.Duration(p.stream.Position()) * time.Second / outRate
}

// Duration returns the total duration of the track, or zero when the
// stream header does not declare one.
func (p *Player) Duration() time.Duration { return p.duration }

// SeekTo moves playback to an absolute position, clamped to the track.
func (p *Player) SeekTo(t time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return fmt.Errorf("player is closed")
	}

	if t < 0 {
		t = 0
	}
	if p.duration > 0 && t > p.duration {
		t = p.duration
	}

	// The decode window cannot rewind, so seeking restarts the source
	// and fast-forwards to the target frame.
	src, err := peaks.NewSource(p.data)
	if err != nil {
		return fmt.Errorf("reopening media: %w", err)
	}
	stream := newPCMStream(src)
	stream.setPosition(int64(t.Seconds() * outRate))

	// Recreate the output player to flush buffered samples.
	wasPaused := p.paused
	p.otoPlayer.Pause()
	p.stream = stream
	p.otoPlayer = p.otoCtx.NewPlayer(p.stream)
	p.otoPlayer.SetVolume(p.volume)
	if !wasPaused {
		p.otoPlayer.Play()
	}
	return nil
}

// SeekBy moves playback by a delta from the current position.
func (p *Player) SeekBy(delta time.Duration) error {
	return p.SeekTo(p.Position() + delta)
}

// Volume returns current volume in [0, 1].
func (p *Player) Volume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

// SetVolume sets volume, clamped to [0, 1].
func (p *Player) SetVolume(v float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	p.volume = v
	if !p.closed {
		p.otoPlayer.SetVolume(v)
	}
}

// AdjustVolume adjusts volume by delta.
func (p *Player) AdjustVolume(delta float64) {
	p.SetVolume(p.Volume() + delta)
}

// Close stops playback and releases the output. Safe to call twice.
func (p *Player) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	close(p.stopMon)
	p.otoPlayer.Pause()
}
