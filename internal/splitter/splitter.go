// Package splitter projects a global query tree onto every registered source
// and checks that the sources together serve the whole query.
package splitter

import (
	"fmt"
	"strings"

	"github.com/hanpama/fedgraph/internal/federation"
	"github.com/hanpama/fedgraph/internal/querytree"
)

// Local is the part of a query one source answers.
type Local struct {
	Source    string
	Embedding *federation.Embedding
	Tree      *querytree.Tree

	images []querytree.NodeID
}

// Image returns the node of the local tree cloned from the global node id.
func (l *Local) Image(id querytree.NodeID) (querytree.NodeID, bool) {
	if int(id) >= len(l.images) || l.images[id] == querytree.NoNode {
		return querytree.NoNode, false
	}
	return l.images[id], true
}

// Error reports a part of the query that no source can serve.
type Error struct {
	Path    []string
	Message string
}

func (e *Error) Error() string {
	if len(e.Path) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (at %s)", e.Message, strings.Join(e.Path, "."))
}

// Split localizes t for every source of m, in registration order. Sources
// left with an empty tree are omitted. Every field of t must be served by at
// least one source; otherwise Split returns an *Error for the first uncovered
// node in selection order.
func Split(t *querytree.Tree, m *federation.Map) ([]Local, error) {
	if len(m.Sources()) == 0 {
		return nil, federation.ErrNoSources
	}
	covered := make([]bool, t.Len())
	var locals []Local
	for _, e := range m.Sources() {
		local := querytree.Localize(t, e)
		if local.Empty() {
			continue
		}
		images := make([]querytree.NodeID, t.Len())
		for i := range images {
			images[i] = querytree.NoNode
		}
		local.Walk(func(id querytree.NodeID) bool {
			if origin := local.Node(id).Origin; origin != querytree.NoNode {
				covered[origin] = true
				images[origin] = id
			}
			return true
		})
		locals = append(locals, Local{Source: e.Name, Embedding: e, Tree: local, images: images})
	}

	var uncovered *Error
	t.Walk(func(id querytree.NodeID) bool {
		if uncovered != nil {
			return false
		}
		n := t.Node(id)
		// __typename is cloned under every kept parent, and at the root the
		// gateway answers it.
		if covered[id] || n.IsTypename() {
			return true
		}
		uncovered = &Error{
			Path:    t.Path(id),
			Message: fmt.Sprintf("No source serves field %q on type %q.", n.Field, n.Edge.Owner),
		}
		return false
	})
	if uncovered != nil {
		return nil, uncovered
	}
	return locals, nil
}
