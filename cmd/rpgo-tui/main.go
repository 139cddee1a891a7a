package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mdlacasse/owlgo/internal/tui"
)

func main() {
	mode := flag.String("mode", "solve", "solve or sweep")
	sweepMode := flag.String("sweep-mode", "historical", "historical or montecarlo (sweep mode only)")
	from := flag.Int("from", 1950, "first historical starting year (historical sweep)")
	to := flag.Int("to", 1990, "last historical starting year (historical sweep)")
	count := flag.Int("count", 1000, "number of draws (montecarlo sweep)")
	seed := flag.Int64("seed", 1, "base random seed (montecarlo sweep)")
	historical := flag.String("historical-data", "", "historical rate-of-return CSV (historical sweep)")
	regulatory := flag.String("regulatory-config", "", "regulatory.yaml tax/Medicare schedule")
	flag.Parse()

	args := flag.Args()
	if len(args) != 1 {
		fmt.Println("Usage: rpgo-tui [flags] <plan-file>")
		os.Exit(1)
	}
	configPath := args[0]

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		fmt.Printf("Error: plan file not found: %s\n", configPath)
		os.Exit(1)
	}

	model := tui.NewModel(configPath, tui.Options{
		Mode:       *mode,
		SweepMode:  *sweepMode,
		From:       *from,
		To:         *to,
		Count:      *count,
		Seed:       *seed,
		Historical: *historical,
		Regulatory: *regulatory,
	})

	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Printf("Error running TUI: %v\n", err)
		os.Exit(1)
	}
}
