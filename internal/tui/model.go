// Package tui renders the plan-solve and sweep-progress views: a much
// smaller surface than a full scenario browser, since a MILP solve has
// exactly one long-running operation to watch rather than a library of
// scenarios to page through.
package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mdlacasse/owlgo/internal/calculation"
	"github.com/mdlacasse/owlgo/internal/config"
	"github.com/mdlacasse/owlgo/internal/domain"
	"github.com/mdlacasse/owlgo/internal/solver"
	"github.com/mdlacasse/owlgo/internal/tui/components"
)

// Options selects what NewModel's single run does.
type Options struct {
	Mode       string // "solve" or "sweep"
	SweepMode  string // "historical" or "montecarlo", when Mode=="sweep"
	From, To   int
	Count      int
	Seed       int64
	Historical string // historical rate-of-return CSV path, sweep mode "historical"
	Regulatory string // optional regulatory.yaml path
}

// Model is the Bubble Tea application model for one solve or sweep run.
type Model struct {
	configPath string
	opts       Options

	width, height int

	spinner spinner.Model
	bar     *components.ProgressBar
	logs    []string

	done       bool
	err        error
	resultText string

	events chan tea.Msg
}

// NewModel constructs the model and its event channel; runEngine wires
// the calculation engine's logger into the TUI's activity log when the
// run starts.
func NewModel(configPath string, opts Options) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(ColorPrimary)

	total := opts.Count
	if opts.Mode == "sweep" && opts.SweepMode != "montecarlo" {
		total = opts.To - opts.From + 1
	}

	return Model{
		configPath: configPath,
		opts:       opts,
		spinner:    s,
		bar:        components.NewProgressBar(total).WithLabel("progress"),
		events:     make(chan tea.Msg, 64),
	}
}

// engineLogger forwards the calculation engine's log lines into the
// TUI's event channel as logMsg values.
type engineLogger struct{ events chan tea.Msg }

func (l engineLogger) Debugf(format string, args ...any) { l.send("DEBUG", format, args...) }
func (l engineLogger) Infof(format string, args ...any)  { l.send("INFO", format, args...) }
func (l engineLogger) Warnf(format string, args ...any)  { l.send("WARN", format, args...) }
func (l engineLogger) Errorf(format string, args ...any) { l.send("ERROR", format, args...) }

func (l engineLogger) send(level, format string, args ...any) {
	l.events <- logMsg(fmt.Sprintf("%s: %s", level, fmt.Sprintf(format, args...)))
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForEvent(m.events), runEngine(m))
}

// waitForEvent drains the next event off the channel, or returns nil once
// the engine goroutine closes it.
func waitForEvent(events chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-events
		if !ok {
			return nil
		}
		return msg
	}
}

// runEngine runs the requested solve or sweep in the background and
// reports progress/completion through m.events.
func runEngine(m Model) tea.Cmd {
	return func() tea.Msg {
		go func() {
			calculation.SetLogger(engineLogger{events: m.events})
			defer close(m.events)

			parser := config.NewInputParser()
			var plan *domain.Plan
			var err error
			if m.opts.Regulatory != "" {
				plan, err = parser.LoadFromFileWithRegulatory(m.configPath, m.opts.Regulatory)
			} else {
				plan, err = parser.LoadFromFile(m.configPath)
			}
			if err != nil {
				m.events <- solveDoneMsg{err: err}
				return
			}

			var hist *domain.HistoricalSeries
			switch plan.RateParams.Method {
			case domain.RateHistorical, domain.RateHistoricalAverage, domain.RateHistochastic:
				if m.opts.Historical == "" {
					m.events <- solveDoneMsg{err: fmt.Errorf("this rate method requires a historical data file")}
					return
				}
				hist, err = parser.LoadHistoricalSeries(m.opts.Historical)
				if err != nil {
					m.events <- solveDoneMsg{err: err}
					return
				}
			}

			rm, err := calculation.NewRateModel(plan.RateParams, hist)
			if err != nil {
				m.events <- solveDoneMsg{err: err}
				return
			}
			nn := plan.Horizon()
			inflation, err := rm.GenSeries(nn)
			if err != nil {
				m.events <- solveDoneMsg{err: err}
				return
			}
			gamma := calculation.InflationMultiplier(inflation[domain.AssetCashInfl])
			adapter := solver.NewBranchAndBoundSolver()

			if m.opts.Mode == "sweep" {
				runSweep(m, plan, rm, adapter)
				return
			}

			sc, err := calculation.RunOuterLoop(context.Background(), plan, rm, adapter, gamma)
			if err != nil {
				m.events <- solveDoneMsg{err: err}
				return
			}
			status := domain.CaseSuccessful
			if sc.Solved.Status != solver.StatusOptimal {
				status = domain.CaseUnsuccessful
			} else if sc.TimedOut || sc.Cancelled {
				status = domain.CaseTimedOut
			} else if !sc.Converged {
				status = domain.CasePartial
			}
			agg := calculation.ResultAggregator{}
			sp := agg.Aggregate(sc, status, "", m.configPath)
			m.events <- solveDoneMsg{summary: fmt.Sprintf(
				"status=%s iterations=%d objective=%s",
				sp.Status, sp.Provenance.Iterations, sp.ObjectiveValue.StringFixed(2))}
		}()
		return nil
	}
}

func runSweep(m Model, plan *domain.Plan, rm *calculation.RateModel, adapter solver.Adapter) {
	progress := func(done, total int) { m.events <- progressMsg{done: done, total: total} }

	var summary domain.SweepSummary
	var err error
	switch m.opts.SweepMode {
	case "montecarlo":
		var hist *domain.HistoricalSeries
		if m.opts.Historical != "" {
			hist, err = config.NewInputParser().LoadHistoricalSeries(m.opts.Historical)
		}
		if err == nil {
			summary, err = calculation.MCSweep(context.Background(), plan, hist, adapter, m.opts.Count, m.opts.Seed, progress)
		}
	default:
		var hist *domain.HistoricalSeries
		if m.opts.Historical != "" {
			hist, err = config.NewInputParser().LoadHistoricalSeries(m.opts.Historical)
		}
		if err == nil {
			summary, err = calculation.HistoricalSweep(context.Background(), plan, hist, adapter, m.opts.From, m.opts.To, progress)
		}
	}
	if err != nil {
		m.events <- sweepDoneMsg{err: err}
		return
	}
	m.events <- sweepDoneMsg{summary: fmt.Sprintf(
		"requested=%d infeasible=%d successRate=%s mean=%s",
		summary.NumRequested, summary.NumInfeasible,
		summary.SuccessRate.StringFixed(3), summary.MeanObjective.StringFixed(2))}
}
