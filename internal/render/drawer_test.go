package render

import (
	"bytes"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/olivier-w/waveview/internal/peaks"
	"github.com/olivier-w/waveview/internal/view"
)

func flatData(buckets int, min, max float64) *peaks.Data {
	frame := make(peaks.Frame, buckets)
	for i := range frame {
		frame[i] = peaks.Peak{Min: min, Max: max}
	}
	return &peaks.Data{
		Channels:      []peaks.Frame{frame},
		SampleRate:    8000,
		BucketSeconds: 1,
		Duration:      time.Duration(buckets) * time.Second,
	}
}

func TestVisibleDurationStrictlyDecreasesWithZoom(t *testing.T) {
	prev := time.Duration(0)
	for zoom := view.MinZoom; zoom <= view.MaxZoom; zoom++ {
		st := view.State{Zoom: zoom, Width: 800, Height: 200, Density: 1, Duration: time.Hour}
		_, visible := VisibleWindow(st)
		if zoom > view.MinZoom && visible >= prev {
			t.Fatalf("visible window did not shrink from zoom %d to %d: %v -> %v",
				zoom-1, zoom, prev, visible)
		}
		prev = visible
	}
}

func TestVisibleWindowCentersAndClamps(t *testing.T) {
	base := view.State{Zoom: 10, Width: 200, Height: 100, Density: 1, Duration: 30 * time.Second}
	// 200 px / 40 px-per-s = 5 s window.

	st := base
	st.Current = 15 * time.Second
	start, visible := VisibleWindow(st)
	if visible != 5*time.Second {
		t.Fatalf("visible = %v, want 5s", visible)
	}
	if start != 12500*time.Millisecond {
		t.Fatalf("start = %v, want 12.5s (cursor centered)", start)
	}

	st.Current = 1 * time.Second
	if start, _ = VisibleWindow(st); start != 0 {
		t.Fatalf("start near the left edge = %v, want 0", start)
	}

	st.Current = 29 * time.Second
	if start, _ = VisibleWindow(st); start != 25*time.Second {
		t.Fatalf("start near the right edge = %v, want 25s", start)
	}
}

func TestVisibleWindowUnknownDuration(t *testing.T) {
	st := view.State{Zoom: 1, Width: 400, Height: 100, Density: 1,
		Duration: view.Unbounded, Current: 3 * time.Second}
	start, _ := VisibleWindow(st)
	if start != 0 {
		t.Fatalf("start = %v, want 0 (only the left edge pins)", start)
	}
}

func TestUpdateAllocatesDensityScaledSurface(t *testing.T) {
	d := New(DefaultStyle())
	d.Update(view.State{Zoom: 1, Width: 100, Height: 50, Density: 2, Duration: time.Minute}, nil, 0)

	b := d.Image().Bounds()
	if b.Dx() != 200 || b.Dy() != 100 {
		t.Fatalf("surface = %dx%d device px, want 200x100", b.Dx(), b.Dy())
	}
}

func TestCursorColumnMatchesCurrentTime(t *testing.T) {
	style := DefaultStyle()
	style.ShowRuler = false
	style.ShowGrid = false
	d := New(style)

	st := view.State{
		Zoom: 10, Width: 200, Height: 100, Density: 1,
		Duration: 30 * time.Second, Current: 15 * time.Second,
	}
	d.Update(st, flatData(30, -0.2, 0.2), 0)

	img := d.Image()
	cursorX := -1
	for x := 0; x < 200; x++ {
		if img.RGBAAt(x, 1) == style.Cursor {
			cursorX = x
			break
		}
	}
	// Window is [12.5s, 17.5s] at 40 px/s, so 15 s maps to column 100.
	if cursorX < 99 || cursorX > 101 {
		t.Fatalf("cursor column = %d, want 100 within one column", cursorX)
	}
}

func TestProgressFillsOnlyBeforeCursor(t *testing.T) {
	style := DefaultStyle()
	style.ShowRuler = false
	style.ShowGrid = false
	style.ShowCursor = false
	d := New(style)

	st := view.State{
		Zoom: 10, Width: 200, Height: 100, Density: 1,
		Duration: 30 * time.Second, Current: 15 * time.Second,
	}
	d.Update(st, nil, 0)

	img := d.Image()
	if got := img.RGBAAt(50, 50); got != style.Progress {
		t.Fatalf("pixel left of cursor = %v, want progress fill %v", got, style.Progress)
	}
	if got := img.RGBAAt(150, 50); got != style.Background {
		t.Fatalf("pixel right of cursor = %v, want background %v", got, style.Background)
	}
}

func TestWaveBarsRespectPadding(t *testing.T) {
	style := DefaultStyle()
	style.ShowRuler = false
	style.ShowGrid = false
	style.ShowCursor = false
	style.ShowProgress = false
	style.Padding = 10
	d := New(style)

	st := view.State{
		Zoom: 1, Width: 100, Height: 100, Density: 1,
		Duration: 25 * time.Second, Current: 0,
	}
	d.Update(st, flatData(25, -1, 1), 0)

	img := d.Image()
	// Full-scale bars span [padding, height-padding) around the center.
	if got := img.RGBAAt(4, 10); got != style.Wave {
		t.Fatalf("pixel at padding edge = %v, want wave color", got)
	}
	if got := img.RGBAAt(4, 5); got == style.Wave {
		t.Fatal("bar bled into the padding inset")
	}
}

func TestExportPNG(t *testing.T) {
	d := New(DefaultStyle())
	if _, err := d.ExportPNG(); err == nil {
		t.Fatal("expected an error exporting an unpainted surface")
	}

	d.Update(view.State{Zoom: 1, Width: 64, Height: 32, Density: 2, Duration: time.Minute}, nil, 0)
	raw, err := d.ExportPNG()
	if err != nil {
		t.Fatalf("ExportPNG returned error: %v", err)
	}

	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("decoding exported PNG: %v", err)
	}
	b := img.Bounds()
	if b.Dx() != 128 || b.Dy() != 64 {
		t.Fatalf("exported image = %dx%d, want 128x64", b.Dx(), b.Dy())
	}
}

func TestParseHexColor(t *testing.T) {
	cases := []struct {
		in      string
		want    color.RGBA
		wantErr bool
	}{
		{in: "#33ccff", want: color.RGBA{R: 0x33, G: 0xCC, B: 0xFF, A: 0xFF}},
		{in: "#fff", want: color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}},
		{in: " #102030 ", want: color.RGBA{R: 0x10, G: 0x20, B: 0x30, A: 0xFF}},
		{in: "33ccff", wantErr: true},
		{in: "#33cc", wantErr: true},
		{in: "#zzzzzz", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tc := range cases {
		got, err := ParseHexColor(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("ParseHexColor(%q) expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseHexColor(%q) returned error: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseHexColor(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
