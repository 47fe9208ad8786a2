package main

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/olivier-w/waveview"
)

type tickMsg time.Time

type instanceEventMsg waveview.Event

type exportDoneMsg struct {
	path string
	err  error
}

func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// waitForEvent pulls the next instance notification off the channel the
// subscription feeds.
func waitForEvent(ch chan waveview.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return instanceEventMsg(ev)
	}
}
