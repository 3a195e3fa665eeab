package source

import (
	"errors"
	"fmt"
)

var (
	// ErrNoEndpoints indicates the provider returned no endpoints for a source.
	ErrNoEndpoints = errors.New("source: no endpoints available")
	ErrClosed      = errors.New("source: closed")
)

// Error describes a failed request to a source. StatusCode is zero when no
// HTTP response was received.
type Error struct {
	Source     string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("source %s: status %d: %v", e.Source, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("source %s: %v", e.Source, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
