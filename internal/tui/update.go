package tui

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.done {
				return m, tea.Quit
			}
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case logMsg:
		m.logs = append(m.logs, string(msg))
		if len(m.logs) > 12 {
			m.logs = m.logs[len(m.logs)-12:]
		}
		return m, waitForEvent(m.events)

	case progressMsg:
		m.bar.Total = msg.total
		m.bar.Update(msg.done)
		return m, waitForEvent(m.events)

	case solveDoneMsg:
		m.done = true
		m.err = msg.err
		m.resultText = msg.summary
		return m, nil

	case sweepDoneMsg:
		m.done = true
		m.err = msg.err
		m.resultText = msg.summary
		return m, nil

	case nil:
		return m, nil
	}
	return m, nil
}
