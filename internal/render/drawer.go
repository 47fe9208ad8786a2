// Package render rasterizes peak data and view state onto an RGBA
// surface. All geometry is computed in logical pixels and scaled by the
// device pixel density at paint time so strokes stay crisp on
// high-density surfaces.
package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/olivier-w/waveview/internal/peaks"
	"github.com/olivier-w/waveview/internal/util"
	"github.com/olivier-w/waveview/internal/view"
)

// BasePixelsPerSecond is the horizontal scale at zoom level 1. Doubling
// the zoom level doubles pixels per second, halving the visible window.
const BasePixelsPerSecond = 4

// rulerHeight is the label band height in logical px.
const rulerHeight = 16

// rulerSteps are the candidate label intervals, in seconds.
var rulerSteps = []int{1, 2, 5, 10, 15, 30, 60, 120, 300, 600, 1800, 3600}

// VisibleWindow computes the time span mapped onto the surface: the
// window keeps the cursor centered, except near the ends where it pins
// to the media bounds. An unknown duration only pins the left edge.
func VisibleWindow(st view.State) (start, visible time.Duration) {
	zoom := st.Zoom
	if zoom < view.MinZoom {
		zoom = view.MinZoom
	}
	pps := float64(BasePixelsPerSecond * zoom)
	visible = time.Duration(float64(st.Width) / pps * float64(time.Second))

	start = st.Current - visible/2
	if st.Duration != view.Unbounded {
		if max := st.Duration - visible; start > max {
			start = max
		}
	}
	if start < 0 {
		start = 0
	}
	return start, visible
}

// Drawer paints one surface. It is not safe for concurrent use; the
// owning instance serializes every call.
type Drawer struct {
	style   Style
	img     *image.RGBA
	width   int
	height  int
	density int
}

// New creates a drawer with the given style. The surface is allocated on
// the first Update.
func New(style Style) *Drawer {
	return &Drawer{style: style}
}

// SetStyle replaces the visual style. The next Update paints with it.
func (d *Drawer) SetStyle(style Style) { d.style = style }

// Update repaints the surface from the given view state and peak data.
// data may be nil (no waveform yet); overlays still paint.
func (d *Drawer) Update(st view.State, data *peaks.Data, channel int) {
	if st.Width < 1 || st.Height < 1 || st.Density < 1 {
		return
	}
	d.ensureSurface(st.Width, st.Height, st.Density)

	s := d.style
	draw.Draw(d.img, d.img.Bounds(), image.NewUniform(s.Background), image.Point{}, draw.Src)

	start, visible := VisibleWindow(st)
	pps := float64(BasePixelsPerSecond * st.Zoom)

	waveTop, waveHeight := 0, st.Height
	if s.ShowRuler {
		waveHeight -= rulerHeight
		if waveHeight < 1 {
			waveHeight = 1
		}
		if s.RulerAtTop {
			waveTop = st.Height - waveHeight
		}
	}

	step := labelStep(visible, st.Width)
	if s.ShowGrid {
		d.paintGrid(st, start, visible, pps, step)
	}

	cursorX := int(st.Current.Seconds()*pps - start.Seconds()*pps)
	if s.ShowProgress && cursorX > 0 {
		right := cursorX
		if right > st.Width {
			right = st.Width
		}
		d.fillRect(0, waveTop, right, waveTop+waveHeight, s.Progress)
	}

	if data != nil {
		d.paintWave(st, data.Frame(channel), data.BucketSeconds, start, pps, waveTop, waveHeight)
	}

	if s.ShowRuler {
		rulerTop := 0
		if !s.RulerAtTop {
			rulerTop = st.Height - rulerHeight
		}
		d.paintRuler(st, start, visible, pps, step, rulerTop)
	}

	if s.ShowCursor && cursorX >= 0 && cursorX < st.Width {
		d.fillRect(cursorX, 0, cursorX+1, st.Height, s.Cursor)
	}
}

// Image returns the current painted surface. Callers must not mutate it.
func (d *Drawer) Image() *image.RGBA { return d.img }

// ExportPNG encodes exactly the current painted contents. It never
// triggers a repaint: the snapshot reflects the last Update.
func (d *Drawer) ExportPNG() ([]byte, error) {
	if d.img == nil {
		return nil, fmt.Errorf("surface has not been painted yet")
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, d.img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}

func (d *Drawer) ensureSurface(width, height, density int) {
	dw, dh := width*density, height*density
	if d.img == nil || d.img.Bounds().Dx() != dw || d.img.Bounds().Dy() != dh {
		d.img = image.NewRGBA(image.Rect(0, 0, dw, dh))
	}
	d.width, d.height, d.density = width, height, density
}

// fillRect fills a logical-pixel rect, scaling to device pixels.
func (d *Drawer) fillRect(x0, y0, x1, y1 int, c color.RGBA) {
	if x0 < 0 {
		x0 = 0
	}
	if y0 < 0 {
		y0 = 0
	}
	if x1 > d.width {
		x1 = d.width
	}
	if y1 > d.height {
		y1 = d.height
	}
	if x0 >= x1 || y0 >= y1 {
		return
	}
	r := image.Rect(x0*d.density, y0*d.density, x1*d.density, y1*d.density)
	draw.Draw(d.img, r, image.NewUniform(c), image.Point{}, draw.Src)
}

func (d *Drawer) paintWave(st view.State, frame peaks.Frame, bucketSeconds int, start time.Duration, pps float64, waveTop, waveHeight int) {
	if len(frame) == 0 || bucketSeconds < 1 {
		return
	}

	halfSpan := float64(waveHeight)/2 - float64(d.style.Padding)
	if halfSpan < 1 {
		halfSpan = 1
	}
	center := float64(waveTop) + float64(waveHeight)/2
	colSeconds := 1 / pps
	startSec := start.Seconds()

	for x := 0; x < st.Width; x++ {
		t0 := startSec + float64(x)*colSeconds
		t1 := t0 + colSeconds
		b0 := int(t0) / bucketSeconds
		b1 := int(t1) / bucketSeconds
		if b0 >= len(frame) || b0 < 0 {
			continue
		}
		if b1 >= len(frame) {
			b1 = len(frame) - 1
		}

		// Zoomed out, several buckets collapse into one column by
		// min/max union; zoomed in, one bucket spans several columns.
		p := frame[b0]
		for b := b0 + 1; b <= b1; b++ {
			if frame[b].Min < p.Min {
				p.Min = frame[b].Min
			}
			if frame[b].Max > p.Max {
				p.Max = frame[b].Max
			}
		}

		yTop := int(center - p.Max*halfSpan)
		yBottom := int(center - p.Min*halfSpan)
		if yBottom <= yTop {
			yBottom = yTop + 1
		}
		d.fillRect(x, yTop, x+1, yBottom, d.style.Wave)
	}
}

func (d *Drawer) paintGrid(st view.State, start, visible time.Duration, pps float64, step int) {
	// Vertical lines at label ticks, quarter-height horizontals.
	for _, t := range tickTimes(start, visible, step) {
		x := int((t - start).Seconds() * pps)
		d.fillRect(x, 0, x+1, st.Height, d.style.Grid)
	}
	for i := 1; i < 4; i++ {
		y := st.Height * i / 4
		d.fillRect(0, y, st.Width, y+1, d.style.Grid)
	}
}

func (d *Drawer) paintRuler(st view.State, start, visible time.Duration, pps float64, step int, rulerTop int) {
	tickBase := rulerTop + rulerHeight - 4
	for _, t := range tickTimes(start, visible, step) {
		x := int((t - start).Seconds() * pps)
		d.fillRect(x, tickBase, x+1, tickBase+4, d.style.Ruler)
		d.drawLabel(x+3, rulerTop+1, util.FormatDuration(t), d.style.Ruler)
	}
}

// labelStep picks the smallest interval keeping labels at least ~56
// logical px apart.
func labelStep(visible time.Duration, width int) int {
	if width < 1 {
		return rulerSteps[len(rulerSteps)-1]
	}
	minSeconds := visible.Seconds() * 56 / float64(width)
	for _, s := range rulerSteps {
		if float64(s) >= minSeconds {
			return s
		}
	}
	return rulerSteps[len(rulerSteps)-1]
}

func tickTimes(start, visible time.Duration, step int) []time.Duration {
	stepDur := time.Duration(step) * time.Second
	first := (start + stepDur - 1) / stepDur * stepDur
	var ticks []time.Duration
	for t := first; t <= start+visible; t += stepDur {
		ticks = append(ticks, t)
	}
	return ticks
}

// drawLabel renders text at a logical position, scaled up by the pixel
// density with nearest-neighbor so labels match the stroke scale.
func (d *Drawer) drawLabel(x, y int, s string, c color.RGBA) {
	face := basicfont.Face7x13
	w := face.Advance * len(s)
	h := face.Height

	tmp := image.NewRGBA(image.Rect(0, 0, w, h))
	fd := &font.Drawer{
		Dst:  tmp,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(0, face.Ascent),
	}
	fd.DrawString(s)

	for ty := 0; ty < h; ty++ {
		dy := y + ty
		if dy < 0 || dy >= d.height {
			continue
		}
		for tx := 0; tx < w; tx++ {
			dx := x + tx
			if dx < 0 || dx >= d.width {
				continue
			}
			if _, _, _, a := tmp.At(tx, ty).RGBA(); a == 0 {
				continue
			}
			r := image.Rect(dx*d.density, dy*d.density, (dx+1)*d.density, (dy+1)*d.density)
			draw.Draw(d.img, r, image.NewUniform(c), image.Point{}, draw.Src)
		}
	}
}
