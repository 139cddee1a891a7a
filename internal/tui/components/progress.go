// Package components holds small, stateless renderers shared by the
// progress view.
package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ProgressBar is a minimal percent-complete bar over a known total.
type ProgressBar struct {
	Current int
	Total   int
	Width   int
	Label   string
}

// NewProgressBar builds a bar starting at 0/total.
func NewProgressBar(total int) *ProgressBar {
	return &ProgressBar{Total: total, Width: 40}
}

// WithLabel sets the caption shown above the bar.
func (p *ProgressBar) WithLabel(label string) *ProgressBar {
	p.Label = label
	return p
}

// Update advances the bar to current/total.
func (p *ProgressBar) Update(current int) {
	p.Current = current
}

// Percentage returns completion in [0,100].
func (p *ProgressBar) Percentage() float64 {
	if p.Total == 0 {
		return 0
	}
	return float64(p.Current) / float64(p.Total) * 100
}

// Render draws the bar plus a percent/count readout.
func (p *ProgressBar) Render() string {
	var b strings.Builder
	if p.Label != "" {
		b.WriteString(lipgloss.NewStyle().Bold(true).Render(p.Label))
		b.WriteString("\n")
	}

	pct := p.Percentage()
	filled := int(float64(p.Width) * pct / 100)
	if filled > p.Width {
		filled = p.Width
	}
	empty := p.Width - filled

	barStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	emptyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#414868"))

	b.WriteString("[")
	if filled > 0 {
		b.WriteString(barStyle.Render(strings.Repeat("█", filled)))
	}
	if empty > 0 {
		b.WriteString(emptyStyle.Render(strings.Repeat("░", empty)))
	}
	b.WriteString("]")
	b.WriteString(fmt.Sprintf(" %.1f%% (%d/%d)", pct, p.Current, p.Total))
	return b.String()
}
