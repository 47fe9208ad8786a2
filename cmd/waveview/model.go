package main

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/olivier-w/waveview"
	"github.com/olivier-w/waveview/internal/player"
	"github.com/olivier-w/waveview/internal/term"
	"github.com/olivier-w/waveview/internal/util"
)

const (
	seekStep   = 5 * time.Second
	meterFPS   = 10
	exportPath = "waveform.png"
)

type model struct {
	in     *waveview.Instance
	player *player.Player // nil for URL targets
	target string
	meta   player.Metadata

	renderer *term.Renderer
	events   chan waveview.Event
	unsub    func()

	loadBar     progress.Model
	loadPercent float64
	loading     bool
	ready       bool
	errMsg      string
	exportMsg   string

	meter levelMeter

	width    int
	height   int
	waveW    int // terminal cells
	waveRows int // terminal rows, 2 pixel rows each
	quitting bool
}

func newModel(in *waveview.Instance, p *player.Player, target string) model {
	events := make(chan waveview.Event, 64)
	unsub := in.Subscribe(func(ev waveview.Event) {
		select {
		case events <- ev:
		default:
		}
	})

	var meta player.Metadata
	if p != nil {
		meta = p.Metadata()
	}

	bar := progress.New(
		progress.WithScaledGradient("#33ccff", "#1c8ccc"),
		progress.WithoutPercentage(),
	)

	return model{
		in:       in,
		player:   p,
		target:   target,
		meta:     meta,
		renderer: term.NewRenderer(),
		events:   events,
		unsub:    unsub,
		loadBar:  bar,
		meter:    newLevelMeter(meterFPS),
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		waitForEvent(m.events),
		m.startLoad(),
		tea.SetWindowTitle(m.title()+" — waveview"),
	)
}

func (m model) title() string {
	if m.meta.Title != "" {
		return m.meta.Title
	}
	return m.target
}

func (m model) startLoad() tea.Cmd {
	return func() tea.Msg {
		target := m.target
		if m.player != nil {
			// Bound mode pulls the media bytes from the player.
			target = ""
		}
		if err := m.in.Load(target); err != nil {
			return instanceEventMsg(waveview.Event{Kind: waveview.EventError, Err: err})
		}
		return nil
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tickMsg:
		target := 0.0
		if _, max, ok := m.in.PeakAt(m.in.CurrentTime()); ok {
			target = max
		}
		m.meter.step(target)
		return m, tickCmd()

	case instanceEventMsg:
		m.applyEvent(waveview.Event(msg))
		return m, waitForEvent(m.events)

	case exportDoneMsg:
		if msg.err != nil {
			m.exportMsg = fmt.Sprintf("Export failed: %v", msg.err)
		} else {
			m.exportMsg = "Exported to " + msg.path
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.waveW = msg.Width - 4
		if m.waveW < 20 {
			m.waveW = 20
		}
		m.waveRows = msg.Height - 11
		if m.waveRows < 4 {
			m.waveRows = 4
		}
		w, h := m.waveW, m.waveRows*2
		if err := m.in.SetOptions(waveview.OptionsPatch{Width: &w, Height: &h}); err != nil {
			m.errMsg = err.Error()
		}
		m.loadBar.Width = m.waveW
		return m, nil
	}

	return m, nil
}

func (m *model) applyEvent(ev waveview.Event) {
	switch ev.Kind {
	case waveview.EventLoadStarted:
		m.loading = true
		m.loadPercent = 0
		m.errMsg = ""
	case waveview.EventDecodeProgress:
		if ev.Total > 0 {
			m.loadPercent = float64(ev.Bytes) / float64(ev.Total)
		}
		if ev.Total > 0 && ev.Bytes >= ev.Total {
			m.loading = false
		}
	case waveview.EventWaveformReady:
		m.ready = true
	case waveview.EventError:
		m.loading = false
		m.errMsg = ev.Err.Error()
	}
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc", "ctrl+c":
		m.quitting = true
		m.unsub()
		if m.player != nil {
			m.player.Close()
		}
		return m, tea.Sequence(tea.SetWindowTitle(""), tea.Quit)

	case " ":
		if m.player != nil {
			m.player.TogglePause()
		}
		return m, nil

	case "left", "h":
		m.seekBy(-seekStep)
		return m, nil
	case "right", "l":
		m.seekBy(seekStep)
		return m, nil

	case "+", "=":
		if err := m.in.Zoom(m.in.ZoomLevel() + 1); err != nil {
			m.errMsg = err.Error()
		}
		return m, nil
	case "-", "_":
		if level := m.in.ZoomLevel() - 1; level >= 1 {
			if err := m.in.Zoom(level); err != nil {
				m.errMsg = err.Error()
			}
		}
		return m, nil

	case "up", "k":
		if m.player != nil {
			m.player.AdjustVolume(0.05)
		}
		return m, nil
	case "down", "j":
		if m.player != nil {
			m.player.AdjustVolume(-0.05)
		}
		return m, nil

	case "e":
		in := m.in
		return m, func() tea.Msg {
			data, err := in.ExportPNG()
			if err == nil {
				err = os.WriteFile(exportPath, data, 0o644)
			}
			return exportDoneMsg{path: exportPath, err: err}
		}
	}
	return m, nil
}

func (m *model) seekBy(delta time.Duration) {
	if m.player != nil {
		if err := m.player.SeekBy(delta); err != nil {
			m.errMsg = err.Error()
		}
		return
	}
	if err := m.in.Seek(m.in.CurrentTime() + delta); err != nil {
		m.errMsg = err.Error()
	}
}

func (m model) View() string {
	if m.quitting {
		return ""
	}

	header := headerStyle.Render("waveview")
	title := titleStyle.Render(m.title())
	subtitle := ""
	if m.meta.Artist != "" {
		subtitle = artistStyle.Render(m.meta.Artist)
		if m.meta.Album != "" {
			subtitle = artistStyle.Render(m.meta.Artist + " - " + m.meta.Album)
		}
	}

	lines := "\n  " + header + "\n\n  " + title + "\n"
	if subtitle != "" {
		lines += "  " + subtitle + "\n"
	}
	lines += "\n"

	if m.waveW > 0 {
		wave := m.renderer.Render(m.in.Surface(), m.waveW, m.waveRows)
		for _, row := range splitLines(wave) {
			lines += "  " + row + "\n"
		}
	}

	elapsed := util.FormatDuration(m.in.CurrentTime())
	total := util.FormatDuration(m.in.Duration())
	status := "stopped"
	switch {
	case m.in.Playing():
		status = "playing"
	case m.player != nil && m.player.Paused():
		status = "paused"
	case m.ready:
		status = "ready"
	case m.loading:
		status = "loading"
	}
	lines += "\n  " + timeStyle.Render(elapsed+" / "+total) +
		statusStyle.Render(fmt.Sprintf("   %s   zoom %dx", status, m.in.ZoomLevel())) + "\n"

	if m.loading {
		lines += "  " + m.loadBar.ViewAs(m.loadPercent) + "\n"
	} else {
		lines += "  " + m.meter.render(m.waveW) + "\n"
	}

	if m.errMsg != "" {
		lines += "  " + errorStyle.Render(m.errMsg) + "\n"
	}
	if m.exportMsg != "" {
		lines += "  " + helpStyle.Render(m.exportMsg) + "\n"
	}

	lines += "\n  " + helpStyle.Render(helpText(m.player != nil)) + "\n"
	return lines
}

func helpText(bound bool) string {
	s := "←/→ seek  +/- zoom  e export"
	if bound {
		s = "space pause  " + s + "  ↑/↓ volume"
	}
	return s + "  q quit"
}

func splitLines(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	return append(out, s[start:])
}
