package source

import (
	"context"
	"sync"
)

// EndpointProvider provides the URLs a source can be reached at.
// Implementations should be safe for concurrent use.
type EndpointProvider interface {
	Endpoints(ctx context.Context, source string) ([]string, error)
}

// StaticEndpoints is a provider backed by an in-memory map from source name
// to URLs.
type StaticEndpoints struct {
	mu   sync.RWMutex
	data map[string][]string
}

func NewStaticEndpoints(m map[string][]string) *StaticEndpoints {
	cp := make(map[string][]string, len(m))
	for k, v := range m {
		cp[k] = append([]string(nil), v...)
	}
	return &StaticEndpoints{data: cp}
}

// Set replaces the URLs of a source.
func (s *StaticEndpoints) Set(source string, urls ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[source] = append([]string(nil), urls...)
}

func (s *StaticEndpoints) Endpoints(_ context.Context, source string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	arr := s.data[source]
	if len(arr) == 0 {
		return nil, ErrNoEndpoints
	}
	return append([]string(nil), arr...), nil
}

type singleEndpoint string

func (u singleEndpoint) Endpoints(context.Context, string) ([]string, error) {
	if u == "" {
		return nil, ErrNoEndpoints
	}
	return []string{string(u)}, nil
}
