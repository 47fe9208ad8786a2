package waveview

import (
	"fmt"
	"io"
	"time"

	"github.com/olivier-w/waveview/internal/render"
)

// Player is the external playback engine of a bound instance. While a
// player is attached it owns position truth: CurrentTime, Duration and
// Playing read through to it on every query, and Seek is rejected.
type Player interface {
	Position() time.Duration
	Duration() time.Duration
	Playing() bool
}

// MediaOpener is implemented by players that can hand their media bytes
// to the instance. Load("") pulls from it instead of fetching.
type MediaOpener interface {
	OpenMedia() (io.ReadCloser, int64, error)
}

// Options is the full configuration of an instance. Construct from
// DefaultOptions and override fields; New validates everything and
// rejects the whole set on any violation.
type Options struct {
	// Surface geometry in logical px; the raster is scaled by
	// PixelDensity.
	Width        int
	Height       int
	PixelDensity int

	// Channel selects which audio channel is rendered. Streams with
	// fewer channels fall back to their last one.
	Channel int

	// BucketSeconds is the peak bucket width. Widening it lowers
	// resolution and memory proportionally.
	BucketSeconds int

	// Padding insets the waveform bars from the wave area edges,
	// in logical px.
	Padding int

	Cursor     bool
	Progress   bool
	Grid       bool
	Ruler      bool
	RulerAtTop bool

	// Colors as #rgb or #rrggbb.
	WaveColor       string
	BackgroundColor string
	CursorColor     string
	ProgressColor   string
	GridColor       string
	RulerColor      string

	// Network options for URL loads.
	IncludeCredentials bool
	CrossOrigin        bool
	Origin             string
	Headers            map[string]string

	// Player binds the instance to an external playback engine. The
	// binding is fixed for the instance's lifetime and cannot be
	// changed by SetOptions.
	Player Player
}

// DefaultOptions returns the stock configuration: unbound, dark theme,
// one-second buckets.
func DefaultOptions() Options {
	return Options{
		Width:           800,
		Height:          240,
		PixelDensity:    1,
		Channel:         0,
		BucketSeconds:   1,
		Padding:         4,
		Cursor:          true,
		Progress:        true,
		Grid:            true,
		Ruler:           true,
		RulerAtTop:      true,
		WaveColor:       "#33ccff",
		BackgroundColor: "#10131a",
		CursorColor:     "#ff3333",
		ProgressColor:   "#1c2a38",
		GridColor:       "#1f2733",
		RulerColor:      "#8a93a6",
	}
}

// validate checks every field and collects all violations.
func (o *Options) validate() error {
	var violations []FieldError
	add := func(field, format string, args ...any) {
		violations = append(violations, FieldError{Field: field, Reason: fmt.Sprintf(format, args...)})
	}

	if o.Width < 1 {
		add("Width", "must be at least 1, got %d", o.Width)
	}
	if o.Height < 1 {
		add("Height", "must be at least 1, got %d", o.Height)
	}
	if o.PixelDensity < 1 {
		add("PixelDensity", "must be at least 1, got %d", o.PixelDensity)
	}
	if o.Channel < 0 {
		add("Channel", "must not be negative, got %d", o.Channel)
	}
	if o.BucketSeconds < 1 {
		add("BucketSeconds", "must be at least 1, got %d", o.BucketSeconds)
	}
	if o.Padding < 0 {
		add("Padding", "must not be negative, got %d", o.Padding)
	}

	colors := []struct {
		field string
		value string
	}{
		{"WaveColor", o.WaveColor},
		{"BackgroundColor", o.BackgroundColor},
		{"CursorColor", o.CursorColor},
		{"ProgressColor", o.ProgressColor},
		{"GridColor", o.GridColor},
		{"RulerColor", o.RulerColor},
	}
	for _, c := range colors {
		if _, err := render.ParseHexColor(c.value); err != nil {
			add(c.field, "%v", err)
		}
	}

	if len(violations) > 0 {
		return &ConfigError{Violations: violations}
	}
	return nil
}

// style converts validated options into the drawer style.
func (o *Options) style() render.Style {
	st := render.Style{
		ShowCursor:   o.Cursor,
		ShowProgress: o.Progress,
		ShowGrid:     o.Grid,
		ShowRuler:    o.Ruler,
		RulerAtTop:   o.RulerAtTop,
		Padding:      o.Padding,
	}
	st.Wave, _ = render.ParseHexColor(o.WaveColor)
	st.Background, _ = render.ParseHexColor(o.BackgroundColor)
	st.Cursor, _ = render.ParseHexColor(o.CursorColor)
	st.Progress, _ = render.ParseHexColor(o.ProgressColor)
	st.Grid, _ = render.ParseHexColor(o.GridColor)
	st.Ruler, _ = render.ParseHexColor(o.RulerColor)
	return st
}

// clone deep-copies the options so a committed set cannot be mutated
// through a retained Headers map.
func (o Options) clone() Options {
	if o.Headers != nil {
		h := make(map[string]string, len(o.Headers))
		for k, v := range o.Headers {
			h[k] = v
		}
		o.Headers = h
	}
	return o
}

// OptionsPatch is a partial update for SetOptions. Nil fields keep
// their current value; a non-nil Headers map replaces the old one
// wholesale. The player binding is deliberately absent.
type OptionsPatch struct {
	Width        *int
	Height       *int
	PixelDensity *int
	Channel      *int

	BucketSeconds *int
	Padding       *int

	Cursor     *bool
	Progress   *bool
	Grid       *bool
	Ruler      *bool
	RulerAtTop *bool

	WaveColor       *string
	BackgroundColor *string
	CursorColor     *string
	ProgressColor   *string
	GridColor       *string
	RulerColor      *string

	IncludeCredentials *bool
	CrossOrigin        *bool
	Origin             *string
	Headers            map[string]string
}

func (p *OptionsPatch) apply(o *Options) {
	setInt := func(dst *int, src *int) {
		if src != nil {
			*dst = *src
		}
	}
	setBool := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}
	setStr := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}

	setInt(&o.Width, p.Width)
	setInt(&o.Height, p.Height)
	setInt(&o.PixelDensity, p.PixelDensity)
	setInt(&o.Channel, p.Channel)
	setInt(&o.BucketSeconds, p.BucketSeconds)
	setInt(&o.Padding, p.Padding)

	setBool(&o.Cursor, p.Cursor)
	setBool(&o.Progress, p.Progress)
	setBool(&o.Grid, p.Grid)
	setBool(&o.Ruler, p.Ruler)
	setBool(&o.RulerAtTop, p.RulerAtTop)

	setStr(&o.WaveColor, p.WaveColor)
	setStr(&o.BackgroundColor, p.BackgroundColor)
	setStr(&o.CursorColor, p.CursorColor)
	setStr(&o.ProgressColor, p.ProgressColor)
	setStr(&o.GridColor, p.GridColor)
	setStr(&o.RulerColor, p.RulerColor)

	setBool(&o.IncludeCredentials, p.IncludeCredentials)
	setBool(&o.CrossOrigin, p.CrossOrigin)
	setStr(&o.Origin, p.Origin)
	if p.Headers != nil {
		o.Headers = p.Headers
	}
}
