package source

import (
	"bytes"
	"context"
	"io"

	"github.com/hanpama/fedgraph/internal/querytree"
)

// Static answers every query with the same response body. It backs dry runs
// and tests.
type Static struct {
	name string
	body []byte
}

func NewStatic(name string, body []byte) *Static {
	return &Static{name: name, body: body}
}

func (s *Static) Name() string { return s.name }

func (s *Static) ResolveAsStream(ctx context.Context, _ *querytree.Tree) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, &Error{Source: s.name, Err: err}
	}
	return io.NopCloser(bytes.NewReader(s.body)), nil
}
