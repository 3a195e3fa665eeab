// Package events defines the payloads published on the event bus while a
// request moves through the gateway.
package events

import (
	"net/http"
	"time"
)

// HTTPStart is emitted when an HTTP request is received. The publishing
// context carries the request id.
type HTTPStart struct {
	Request *http.Request
}

// HTTPFinish is emitted after the handler completes. Batch is the number of
// operations in the request body.
type HTTPFinish struct {
	Request  *http.Request
	Status   int
	Batch    int
	Duration time.Duration
}

// GraphQLStart is emitted once an operation is parsed, before it is split.
type GraphQLStart struct {
	Query         string
	OperationName string
	OperationType string
}

// GraphQLFinish is emitted after an operation has been answered. Errors
// holds every error reported to the client, including those forwarded from
// sources. Partial is set when the answer carries data next to errors.
type GraphQLFinish struct {
	Query         string
	OperationName string
	OperationType string
	Errors        []error
	Partial       bool
	Duration      time.Duration
}
