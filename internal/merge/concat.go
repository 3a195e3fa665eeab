package merge

import "github.com/hanpama/fedgraph/internal/querytree"

// ConcatCursor unions the rows of several sources for a node whose type has
// no identity key. Object lists are concatenated in source registration
// order. Leaves, including lists of leaves, are atomic: the first source
// holding a non-null value wins.
type ConcatCursor struct {
	Node    querytree.NodeID
	list    bool
	complex bool
	// Sources holds one cursor per contributing source, in registration order.
	Sources []*LocalCursor
}

func (c *ConcatCursor) addResult(parent object) {
	for _, s := range c.Sources {
		s.addResult(parent)
	}
}

func (c *ConcatCursor) processOne(w *writer) {
	if c.list && c.complex {
		w.beginArray()
		for _, s := range c.Sources {
			s.processElements(w)
		}
		w.endArray()
		return
	}
	written := false
	for _, s := range c.Sources {
		if !written && s.peekPresent() {
			s.processOne(w)
			written = true
			continue
		}
		s.moveOn()
	}
	switch {
	case written:
	case c.list:
		w.emptyList()
	default:
		w.null()
	}
}

func (c *ConcatCursor) moveOn() {
	for _, s := range c.Sources {
		s.moveOn()
	}
}

func (c *ConcatCursor) pending() int {
	n := 0
	for _, s := range c.Sources {
		n += s.pending()
	}
	return n
}
