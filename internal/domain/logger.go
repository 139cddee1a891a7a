package domain

// Logger is the narrow logging interface the calculation engine writes
// through. Callers (CLI, TUI, tests) supply their own implementation;
// NopLogger is used when none is configured.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// NopLogger discards everything. It is the zero-value default so callers
// never need a nil check before logging.
type NopLogger struct{}

func (NopLogger) Debugf(format string, args ...any) {}
func (NopLogger) Infof(format string, args ...any)  {}
func (NopLogger) Warnf(format string, args ...any)  {}
func (NopLogger) Errorf(format string, args ...any) {}
