// Package view owns the mutable view state of one waveform instance:
// zoom level, current time, duration and surface geometry.
package view

import (
	"errors"
	"math"
	"time"
)

// Zoom bounds. Levels outside the range are clamped, not rejected.
const (
	MinZoom = 1
	MaxZoom = 10
)

// Unbounded is the duration sentinel used in unbound mode until the
// decoder reports a real value.
const Unbounded = time.Duration(math.MaxInt64)

var (
	// ErrSeekBound is returned when Seek is called while a bound player
	// owns position truth.
	ErrSeekBound = errors.New("seek is driven by the bound player")
	// ErrZoomNotPositive is returned for zoom levels below one.
	ErrZoomNotPositive = errors.New("zoom level must be a positive integer")
)

// Player is the external position source of bound mode. All three values
// are read through on every query; the controller never caches them.
type Player interface {
	Position() time.Duration
	Duration() time.Duration
	Playing() bool
}

// State is an immutable snapshot of the view, handed to the drawer.
type State struct {
	Zoom     int
	Current  time.Duration
	Duration time.Duration
	Width    int // logical px
	Height   int // logical px
	Density  int
	Playing  bool
}

// Controller tracks view state in one of two modes, fixed at
// construction: bound (a player owns time) or unbound (time is tracked
// internally and moved only by Seek).
type Controller struct {
	player   Player // nil in unbound mode
	zoom     int
	current  time.Duration
	duration time.Duration
	width    int
	height   int
	density  int

	redraw func()
	depth  int
	dirty  bool
}

// New creates a controller. player may be nil for unbound mode. redraw
// is invoked at most once per external mutation.
func New(player Player, width, height, density int, redraw func()) *Controller {
	return &Controller{
		player:   player,
		zoom:     MinZoom,
		duration: Unbounded,
		width:    width,
		height:   height,
		density:  density,
		redraw:   redraw,
	}
}

// Bound reports whether a player owns position truth.
func (c *Controller) Bound() bool { return c.player != nil }

// apply runs one external mutation. Internal field writes mark the view
// dirty; the redraw callback fires exactly once per outermost call no
// matter how many fields changed.
func (c *Controller) apply(mutate func()) {
	c.depth++
	mutate()
	c.depth--
	if c.depth == 0 && c.dirty {
		c.dirty = false
		if c.redraw != nil {
			c.redraw()
		}
	}
}

func (c *Controller) invalidate() { c.dirty = true }

// Batch groups several mutations into one external call, so the redraw
// callback fires at most once for the whole group.
func (c *Controller) Batch(fn func()) {
	c.apply(fn)
}

// SetZoom clamps level into [MinZoom, MaxZoom]. Levels below one are a
// caller error, not a clamp.
func (c *Controller) SetZoom(level int) error {
	if level < 1 {
		return ErrZoomNotPositive
	}
	if level > MaxZoom {
		level = MaxZoom
	}
	c.apply(func() {
		if c.zoom != level {
			c.zoom = level
			c.invalidate()
		}
	})
	return nil
}

// Zoom returns the effective zoom level.
func (c *Controller) Zoom() int { return c.zoom }

// Seek moves the internally tracked position, clamped to [0, duration].
// In bound mode it fails: the player owns position truth.
func (c *Controller) Seek(t time.Duration) error {
	if c.Bound() {
		return ErrSeekBound
	}
	c.apply(func() {
		t = c.clampTime(t)
		if c.current != t {
			c.current = t
			c.invalidate()
		}
	})
	return nil
}

// SetDuration records the decoder-reported duration and re-clamps the
// tracked position. Bound mode ignores it; the player's value wins.
func (c *Controller) SetDuration(d time.Duration) {
	if c.Bound() || d < 0 {
		return
	}
	c.apply(func() {
		if c.duration != d {
			c.duration = d
			c.invalidate()
		}
		if clamped := c.clampTime(c.current); clamped != c.current {
			c.current = clamped
			c.invalidate()
		}
	})
}

// Resize updates the logical surface size.
func (c *Controller) Resize(width, height int) {
	if width < 1 || height < 1 {
		return
	}
	c.apply(func() {
		if c.width != width || c.height != height {
			c.width = width
			c.height = height
			c.invalidate()
		}
	})
}

// SetDensity updates the device pixel density.
func (c *Controller) SetDensity(density int) {
	if density < 1 {
		return
	}
	c.apply(func() {
		if c.density != density {
			c.density = density
			c.invalidate()
		}
	})
}

// Refresh marks the view changed for reasons outside the controller,
// such as newly decoded peak data, and triggers the single redraw.
func (c *Controller) Refresh() {
	c.apply(func() { c.invalidate() })
}

// CurrentTime reads the playback position: through the player when
// bound, from internal tracking otherwise.
func (c *Controller) CurrentTime() time.Duration {
	if c.Bound() {
		return c.player.Position()
	}
	return c.current
}

// Duration reads the media duration. Unbound mode reports the sentinel
// until the decoder delivers a real value.
func (c *Controller) Duration() time.Duration {
	if c.Bound() {
		return c.player.Duration()
	}
	return c.duration
}

// Playing reads the playing flag; always false in unbound mode.
func (c *Controller) Playing() bool {
	return c.Bound() && c.player.Playing()
}

// Snapshot captures the full view state for one paint.
func (c *Controller) Snapshot() State {
	return State{
		Zoom:     c.zoom,
		Current:  c.CurrentTime(),
		Duration: c.Duration(),
		Width:    c.width,
		Height:   c.height,
		Density:  c.density,
		Playing:  c.Playing(),
	}
}

func (c *Controller) clampTime(t time.Duration) time.Duration {
	if t < 0 {
		return 0
	}
	if c.duration != Unbounded && t > c.duration {
		return c.duration
	}
	return t
}
