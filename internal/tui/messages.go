package tui

// logMsg appends one line to the scrolling activity log, sourced from
// the calculation engine's Logger (see engineLogger in model.go).
type logMsg string

// progressMsg reports a sweep's scenario count, from ProgressFunc.
type progressMsg struct {
	done, total int
}

// solveDoneMsg carries a completed single-plan solve.
type solveDoneMsg struct {
	summary string
	err     error
}

// sweepDoneMsg carries a completed sweep's summary line.
type sweepDoneMsg struct {
	summary string
	err     error
}
