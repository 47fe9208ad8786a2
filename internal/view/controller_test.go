package view

import (
	"errors"
	"testing"
	"time"
)

type stubPlayer struct {
	pos     time.Duration
	dur     time.Duration
	playing bool
}

func (p *stubPlayer) Position() time.Duration { return p.pos }
func (p *stubPlayer) Duration() time.Duration { return p.dur }
func (p *stubPlayer) Playing() bool           { return p.playing }

func TestSetZoomClampsToRange(t *testing.T) {
	c := New(nil, 800, 200, 1, nil)

	if err := c.SetZoom(1); err != nil {
		t.Fatalf("SetZoom(1) returned error: %v", err)
	}
	if err := c.SetZoom(20); err != nil {
		t.Fatalf("SetZoom(20) returned error: %v", err)
	}
	if got := c.Zoom(); got != MaxZoom {
		t.Fatalf("zoom after SetZoom(20) = %d, want %d", got, MaxZoom)
	}
}

func TestSetZoomRejectsNonPositive(t *testing.T) {
	c := New(nil, 800, 200, 1, nil)
	for _, level := range []int{0, -3} {
		if err := c.SetZoom(level); !errors.Is(err, ErrZoomNotPositive) {
			t.Fatalf("SetZoom(%d) error = %v, want ErrZoomNotPositive", level, err)
		}
	}
	if got := c.Zoom(); got != MinZoom {
		t.Fatalf("zoom changed by rejected call, got %d", got)
	}
}

func TestSeekClampsToDuration(t *testing.T) {
	c := New(nil, 800, 200, 1, nil)
	c.SetDuration(30 * time.Second)

	cases := []struct {
		seek time.Duration
		want time.Duration
	}{
		{seek: 15 * time.Second, want: 15 * time.Second},
		{seek: -5 * time.Second, want: 0},
		{seek: 90 * time.Second, want: 30 * time.Second},
	}
	for _, tc := range cases {
		if err := c.Seek(tc.seek); err != nil {
			t.Fatalf("Seek(%v) returned error: %v", tc.seek, err)
		}
		if got := c.CurrentTime(); got != tc.want {
			t.Fatalf("Seek(%v): current = %v, want %v", tc.seek, got, tc.want)
		}
	}
}

func TestSeekBeforeDurationKnown(t *testing.T) {
	c := New(nil, 800, 200, 1, nil)
	if got := c.Duration(); got != Unbounded {
		t.Fatalf("initial duration = %v, want the unbounded sentinel", got)
	}

	// Only the lower bound applies while duration is unknown.
	if err := c.Seek(5 * time.Minute); err != nil {
		t.Fatalf("Seek returned error: %v", err)
	}
	if got := c.CurrentTime(); got != 5*time.Minute {
		t.Fatalf("current = %v, want 5m", got)
	}

	// A later real duration re-clamps the tracked position.
	c.SetDuration(30 * time.Second)
	if got := c.CurrentTime(); got != 30*time.Second {
		t.Fatalf("current after duration report = %v, want 30s", got)
	}
}

func TestBoundSeekFailsAndLeavesTimeUnchanged(t *testing.T) {
	p := &stubPlayer{pos: 12 * time.Second, dur: time.Minute, playing: true}
	c := New(p, 800, 200, 1, nil)

	if err := c.Seek(3 * time.Second); !errors.Is(err, ErrSeekBound) {
		t.Fatalf("Seek error = %v, want ErrSeekBound", err)
	}
	if got := c.CurrentTime(); got != 12*time.Second {
		t.Fatalf("current after rejected seek = %v, want 12s", got)
	}
}

func TestBoundModeReadsThroughPlayer(t *testing.T) {
	p := &stubPlayer{pos: 3 * time.Second, dur: 90 * time.Second}
	c := New(p, 800, 200, 1, nil)

	p.pos = 42 * time.Second
	p.playing = true
	if got := c.CurrentTime(); got != 42*time.Second {
		t.Fatalf("current = %v, want the player's 42s", got)
	}
	if got := c.Duration(); got != 90*time.Second {
		t.Fatalf("duration = %v, want the player's 90s", got)
	}
	if !c.Playing() {
		t.Fatal("expected playing flag read through from the player")
	}

	// Decoder-reported duration must not override the player.
	c.SetDuration(5 * time.Second)
	if got := c.Duration(); got != 90*time.Second {
		t.Fatalf("duration after SetDuration = %v, want the player's 90s", got)
	}
}

func TestOneRedrawPerExternalCall(t *testing.T) {
	redraws := 0
	c := New(nil, 800, 200, 1, func() { redraws++ })

	// SetDuration writes duration and re-clamps current: two internal
	// writes, one redraw.
	c.Seek(time.Hour)
	c.SetDuration(10 * time.Second)
	if redraws != 2 {
		t.Fatalf("redraw count = %d, want 2", redraws)
	}

	c.SetZoom(4)
	if redraws != 3 {
		t.Fatalf("redraw count = %d, want 3", redraws)
	}

	// A mutation that changes nothing must not repaint.
	c.SetZoom(4)
	c.Resize(800, 200)
	if redraws != 3 {
		t.Fatalf("no-op mutations repainted, count = %d", redraws)
	}

	c.Resize(400, 100)
	c.SetDensity(2)
	c.Refresh()
	if redraws != 6 {
		t.Fatalf("redraw count = %d, want 6", redraws)
	}
}

func TestSnapshot(t *testing.T) {
	c := New(nil, 640, 128, 2, nil)
	c.SetDuration(20 * time.Second)
	c.Seek(5 * time.Second)
	c.SetZoom(3)

	st := c.Snapshot()
	want := State{
		Zoom:     3,
		Current:  5 * time.Second,
		Duration: 20 * time.Second,
		Width:    640,
		Height:   128,
		Density:  2,
	}
	if st != want {
		t.Fatalf("snapshot = %+v, want %+v", st, want)
	}
}
