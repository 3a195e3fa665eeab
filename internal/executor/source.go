package executor

import (
	"context"
	"io"

	"github.com/hanpama/fedgraph/internal/querytree"
)

// Source executes local queries against one backend.
//
// ResolveAsStream sends the query and returns the backend's GraphQL response
// body, {"data": ...} with an optional errors member. Implementations must
// honour ctx cancellation and be safe for concurrent use.
type Source interface {
	Name() string
	ResolveAsStream(ctx context.Context, query *querytree.Tree) (io.ReadCloser, error)
}
