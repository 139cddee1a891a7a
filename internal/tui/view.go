package tui

import (
	"fmt"
	"strings"
)

func (m Model) View() string {
	var b strings.Builder

	title := "Solving plan"
	if m.opts.Mode == "sweep" {
		title = "Running sweep"
	}
	b.WriteString(TitleStyle.Render(title))
	b.WriteString("\n")
	b.WriteString(SubtitleStyle.Render(m.configPath))
	b.WriteString("\n\n")

	if !m.done {
		b.WriteString(m.spinner.View())
		b.WriteString(" working...\n\n")
	}

	if m.opts.Mode == "sweep" {
		b.WriteString(m.bar.Render())
		b.WriteString("\n\n")
	}

	if len(m.logs) > 0 {
		var logBody strings.Builder
		for _, line := range m.logs {
			logBody.WriteString(LogLineStyle.Render(line))
			logBody.WriteString("\n")
		}
		b.WriteString(BorderStyle.Render(strings.TrimRight(logBody.String(), "\n")))
		b.WriteString("\n\n")
	}

	if m.done {
		if m.err != nil {
			b.WriteString(ErrorStyle.Render(fmt.Sprintf("error: %v", m.err)))
		} else {
			b.WriteString(SuccessStyle.Render(m.resultText))
		}
		b.WriteString("\n\n")
		b.WriteString(SubtitleStyle.Render("press q to quit"))
	}

	return b.String()
}
