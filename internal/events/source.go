package events

import "time"

// SourceFetchStart is emitted before a local query is sent to a source.
type SourceFetchStart struct {
	Source string
	Query  string
}

// SourceFetchFinish is emitted once a source has answered or failed.
type SourceFetchFinish struct {
	Source   string
	Bytes    int
	Err      error
	Duration time.Duration
}

// Split is emitted after a query has been split into local queries.
type Split struct {
	Sources []string
	Err     error
}

// MergeFinish is emitted after the responses of a request were merged.
type MergeFinish struct {
	Sources  int
	Bytes    int
	Err      error
	Duration time.Duration
}
