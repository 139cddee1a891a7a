package domain

import "fmt"

// ConfigError is a fatal configuration-time error: bad input types,
// disallowed negative amounts, an unsupported spousal age gap, an unknown
// option key, or a malformed correlation matrix.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func NewConfigError(field, format string, args ...any) *ConfigError {
	return &ConfigError{Field: field, Message: fmt.Sprintf(format, args...)}
}
