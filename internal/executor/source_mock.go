package executor

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/hanpama/fedgraph/internal/querytree"
)

// MockHandler answers one local query for a MockSource.
type MockHandler func(ctx context.Context, query string) (string, error)

// NewMockResponse returns a MockHandler that always answers body.
func NewMockResponse(body string) MockHandler {
	return func(context.Context, string) (string, error) { return body, nil }
}

// NewMockError returns a MockHandler that always fails with err.
func NewMockError(err error) MockHandler {
	return func(context.Context, string) (string, error) { return "", err }
}

// MockSource implements Source for tests. It records the text of every query
// it receives.
type MockSource struct {
	name    string
	handler MockHandler

	mu    sync.Mutex
	calls []string
}

func NewMockSource(name string, handler MockHandler) *MockSource {
	return &MockSource{name: name, handler: handler}
}

func (m *MockSource) Name() string { return m.name }

func (m *MockSource) ResolveAsStream(ctx context.Context, query *querytree.Tree) (io.ReadCloser, error) {
	text := querytree.Text(query)
	m.mu.Lock()
	m.calls = append(m.calls, text)
	m.mu.Unlock()

	body, err := m.handler(ctx, text)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

// GetCalls returns the queries received so far.
func (m *MockSource) GetCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}
