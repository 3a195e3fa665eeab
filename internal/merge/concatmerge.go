package merge

import (
	"github.com/buger/jsonparser"
	"github.com/jensneuse/abstractlogger"

	"github.com/hanpama/fedgraph/internal/federation"
	"github.com/hanpama/fedgraph/internal/querytree"
)

// ConcatMergeCursor merges the rows several sources return for a node into
// groups of rows describing the same entity. Rows sharing the value of any
// declared key are merged, transitively; rows without an evaluable key stay
// alone. A single-valued node always merges everything into one group.
//
// Each group is handed to the child cursors as one fragment per source, with
// rows of the same source combined by combine. A list element that is not an
// object cannot be merged; it is emitted in place as null.
type ConcatMergeCursor struct {
	Node    querytree.NodeID
	Sources []int
	label   string
	list    bool
	keys    []*federation.Key
	names   []string
	fields  []field
	logger  abstractlogger.Logger

	batches []batch
	head    int
}

// batch holds one flag per emitted element of a row: true for a merged
// object, false for null.
type batch []bool

func (c *ConcatMergeCursor) addResult(parent object) {
	var rows []part
	for _, s := range c.Sources {
		raw, ok := parent.get(s)
		if !ok {
			continue
		}
		v := lookup(raw, c.label)
		if v.missing() {
			continue
		}
		for _, el := range v.elements() {
			switch {
			case el.typ == jsonparser.Object:
				rows = append(rows, part{source: s, raw: el.raw})
			case c.list:
				if el.typ != jsonparser.Null {
					c.logger.Debug("merge: non-object list element",
						abstractlogger.String("source", c.names[s]),
						abstractlogger.String("field", c.label),
					)
				}
				rows = append(rows, part{source: s})
			}
		}
	}

	var groups [][]int
	switch {
	case len(rows) == 0:
	case c.list:
		g := NewGroups()
		for _, row := range rows {
			g.Add(c.identities(row)...)
		}
		groups = g.Partition()
	default:
		all := make([]int, len(rows))
		for i := range all {
			all[i] = i
		}
		groups = [][]int{all}
	}

	b := make(batch, len(groups))
	for i, members := range groups {
		if rows[members[0]].raw == nil {
			continue
		}
		addFields(c.fields, synthesize(rows, members))
		b[i] = true
	}
	c.batches = append(c.batches, b)
}

func (c *ConcatMergeCursor) identities(row part) []federation.Identity {
	if row.raw == nil {
		return nil
	}
	var ids []federation.Identity
	for _, k := range c.keys {
		id, err := k.Evaluate(c.names[row.source], row.raw)
		if err != nil {
			c.logger.Debug("merge: row without key",
				abstractlogger.String("source", c.names[row.source]),
				abstractlogger.String("key", k.Name),
				abstractlogger.Error(err),
			)
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// synthesize builds the object of one group. Rows are ordered by source, so
// rows of one source are adjacent.
func synthesize(rows []part, members []int) object {
	var obj object
	for i := 0; i < len(members); {
		source := rows[members[i]].source
		var raws [][]byte
		for ; i < len(members) && rows[members[i]].source == source; i++ {
			raws = append(raws, rows[members[i]].raw)
		}
		obj = append(obj, part{source: source, raw: combine(raws)})
	}
	return obj
}

func (c *ConcatMergeCursor) pop() batch {
	b := c.batches[c.head]
	c.batches[c.head] = nil
	c.head++
	return b
}

func (c *ConcatMergeCursor) processOne(w *writer) {
	b := c.pop()
	if !c.list {
		if len(b) == 0 {
			w.null()
			return
		}
		writeObject(w, c.fields)
		return
	}
	w.beginArray()
	for _, obj := range b {
		if obj {
			writeObject(w, c.fields)
		} else {
			w.null()
		}
	}
	w.endArray()
}

func (c *ConcatMergeCursor) moveOn() {
	for _, obj := range c.pop() {
		if obj {
			skipObject(c.fields)
		}
	}
}

func (c *ConcatMergeCursor) pending() int {
	return len(c.batches) - c.head + pendingFields(c.fields)
}
