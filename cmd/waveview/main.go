package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/olivier-w/waveview"
	"github.com/olivier-w/waveview/internal/loader"
	"github.com/olivier-w/waveview/internal/player"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: waveview <media file or URL>")
		os.Exit(1)
	}
	target := os.Args[1]

	opts := waveview.DefaultOptions()

	// Local files play through the system output; the waveform binds to
	// the player and pulls its media bytes. URLs render unbound.
	var p *player.Player
	if !loader.IsURL(target) {
		info, err := os.Stat(target)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if info.IsDir() {
			fmt.Fprintf(os.Stderr, "Error: %s is a directory\n", target)
			os.Exit(1)
		}
		p, err = player.New(target)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating player: %v\n", err)
			os.Exit(1)
		}
		defer p.Close()
		opts.Player = p
	}

	in, err := waveview.New(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer in.Destroy()

	model := newModel(in, p, target)
	program := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
