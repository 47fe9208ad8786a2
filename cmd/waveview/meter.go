package main

import (
	"math"
	"strings"

	"github.com/charmbracelet/harmonica"
)

// levelMeter animates a horizontal amplitude bar toward the peak under
// the cursor with a critically damped spring, so the bar glides instead
// of jumping between buckets.
type levelMeter struct {
	spring harmonica.Spring
	pos    float64
	vel    float64
}

func newLevelMeter(fps int) levelMeter {
	return levelMeter{spring: harmonica.NewSpring(harmonica.FPS(fps), 6.0, 1.0)}
}

// step advances the spring toward target in [0, 1] and returns the
// smoothed level.
func (m *levelMeter) step(target float64) float64 {
	if target < 0 {
		target = 0
	}
	if target > 1 {
		target = 1
	}
	m.pos, m.vel = m.spring.Update(m.pos, m.vel, target)
	return m.pos
}

// render draws the bar at the current spring position.
func (m *levelMeter) render(width int) string {
	if width < 10 {
		width = 10
	}
	level := m.pos
	if level < 0 {
		level = 0
	}
	if level > 1 {
		level = 1
	}
	filled := int(math.Round(level * float64(width)))
	if filled > width {
		filled = width
	}
	return strings.Repeat("█", filled) + strings.Repeat("─", width-filled)
}
