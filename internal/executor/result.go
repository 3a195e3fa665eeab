package executor

import (
	"encoding/json"

	"github.com/hanpama/fedgraph/internal/language"
)

type Path []PathElement

type PathElement any

type Location struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// GraphQLError represents an error that occurred during execution
type GraphQLError struct {
	Message    string         `json:"message"`
	Locations  []Location     `json:"locations,omitempty"`
	Path       Path           `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`

	cause error
}

func (e GraphQLError) Error() string {
	return e.Message
}

// Unwrap returns the Go error the GraphQL error was made from, if any.
func (e GraphQLError) Unwrap() error {
	return e.cause
}

// ExecutionResult represents the result of executing a GraphQL query. Data is
// the merged data object, or nil when the request failed.
type ExecutionResult struct {
	Data   json.RawMessage `json:"data"`
	Errors []GraphQLError  `json:"errors,omitempty"`
}

func fromLanguageErrors(list language.ErrorList) []GraphQLError {
	out := make([]GraphQLError, len(list))
	for i, err := range list {
		ge := GraphQLError{Message: err.Message, Extensions: err.Extensions, cause: err}
		for _, loc := range err.Locations {
			ge.Locations = append(ge.Locations, Location{Line: loc.Line, Column: loc.Column})
		}
		for _, p := range err.Path {
			switch p := p.(type) {
			case language.PathName:
				ge.Path = append(ge.Path, string(p))
			case language.PathIndex:
				ge.Path = append(ge.Path, int(p))
			}
		}
		out[i] = ge
	}
	return out
}

func failed(err error, extensions map[string]any) *ExecutionResult {
	return &ExecutionResult{Errors: []GraphQLError{{Message: err.Error(), Extensions: extensions, cause: err}}}
}

// ErrorResult returns a result without data that reports list.
func ErrorResult(list ...*language.Error) *ExecutionResult {
	return &ExecutionResult{Errors: fromLanguageErrors(list)}
}
