// Package term rasterizes a waveform surface into terminal cells. It
// supports two modes:
//   - Color (half-block): "▀" with fg/bg colors packs 2 pixel rows per
//     terminal row.
//   - ASCII (no color): maps each pixel to a brightness character.
package term

import (
	"image"
	"strings"
)

// Renderer converts an RGBA surface into a terminal string.
type Renderer struct {
	mode ColorMode
	sb   strings.Builder // reusable builder to reduce allocations
}

// NewRenderer creates a renderer using the current terminal's color
// capabilities.
func NewRenderer() *Renderer {
	return &Renderer{mode: DetectColorMode()}
}

// NewRendererMode creates a renderer with a fixed color mode.
func NewRendererMode(mode ColorMode) *Renderer {
	return &Renderer{mode: mode}
}

// Render scales img to outW x outH terminal cells by nearest-neighbor
// sampling. In color mode each terminal row covers two pixel rows; in
// ASCII mode one.
func (r *Renderer) Render(img *image.RGBA, outW, outH int) string {
	if img == nil || outW <= 0 || outH <= 0 {
		return ""
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return ""
	}

	r.sb.Reset()
	// Worst case ~20 bytes per cell for color escapes, plus newlines.
	r.sb.Grow(outW * outH * 24)

	if r.mode == ColorOff {
		r.renderASCII(img, outW, outH)
	} else {
		r.renderHalfBlock(img, outW, outH)
	}
	return r.sb.String()
}

func (r *Renderer) renderHalfBlock(img *image.RGBA, outW, outH int) {
	b := img.Bounds()
	pixelRows := outH * 2

	var lastFg, lastBg string
	for row := 0; row < outH; row++ {
		topPixRow := row * 2
		botPixRow := row*2 + 1

		for col := 0; col < outW; col++ {
			srcX := b.Min.X + col*b.Dx()/outW
			srcY := b.Min.Y + topPixRow*b.Dy()/pixelRows
			tr, tg, tb := samplePixel(img, srcX, srcY)

			var br, bgr, bb uint8
			if botPixRow < pixelRows {
				botSrcY := b.Min.Y + botPixRow*b.Dy()/pixelRows
				br, bgr, bb = samplePixel(img, srcX, botSrcY)
			}

			fg := fgColorSeq(r.mode, tr, tg, tb)
			bgc := bgColorSeq(r.mode, br, bgr, bb)
			if fg != lastFg {
				r.sb.WriteString(fg)
				lastFg = fg
			}
			if bgc != lastBg {
				r.sb.WriteString(bgc)
				lastBg = bgc
			}
			r.sb.WriteString("▀")
		}

		r.sb.WriteString(ansiReset)
		lastFg = ""
		lastBg = ""
		if row < outH-1 {
			r.sb.WriteByte('\n')
		}
	}
}

func (r *Renderer) renderASCII(img *image.RGBA, outW, outH int) {
	b := img.Bounds()
	for row := 0; row < outH; row++ {
		for col := 0; col < outW; col++ {
			srcX := b.Min.X + col*b.Dx()/outW
			srcY := b.Min.Y + row*b.Dy()/outH
			pr, pg, pb := samplePixel(img, srcX, srcY)
			r.sb.WriteByte(brightnessChar(luminance(pr, pg, pb)))
		}
		if row < outH-1 {
			r.sb.WriteByte('\n')
		}
	}
}

func samplePixel(img *image.RGBA, x, y int) (uint8, uint8, uint8) {
	off := img.PixOffset(x, y)
	if off < 0 || off+3 >= len(img.Pix) {
		return 0, 0, 0
	}
	return img.Pix[off], img.Pix[off+1], img.Pix[off+2]
}
