package merge

import (
	"github.com/buger/jsonparser"

	"github.com/hanpama/fedgraph/internal/querytree"
)

// LocalCursor reads one node from a single source. Everything below a
// LocalCursor is read from the same source.
type LocalCursor struct {
	Node    querytree.NodeID
	Source  int
	label   string
	list    bool
	complex bool
	fields  []field

	rows []localRow
	head int
}

type localRow struct {
	present bool
	values  []value
}

func (c *LocalCursor) addResult(parent object) {
	var row localRow
	if raw, ok := parent.get(c.Source); ok {
		if v := lookup(raw, c.label); !v.missing() {
			row.present = true
			row.values = v.elements()
			if !c.list && len(row.values) > 1 {
				row.values = row.values[:1]
			}
		}
	}
	if c.complex {
		for _, el := range row.values {
			if el.typ == jsonparser.Object {
				addFields(c.fields, object{{source: c.Source, raw: el.raw}})
			}
		}
	}
	c.rows = append(c.rows, row)
}

func (c *LocalCursor) pop() localRow {
	row := c.rows[c.head]
	c.rows[c.head] = localRow{}
	c.head++
	return row
}

// peekPresent reports whether the next buffered row holds a value.
func (c *LocalCursor) peekPresent() bool {
	return c.head < len(c.rows) && c.rows[c.head].present
}

func (c *LocalCursor) processOne(w *writer) {
	row := c.pop()
	switch {
	case !row.present && c.list:
		w.emptyList()
	case !row.present:
		w.null()
	case c.list:
		w.beginArray()
		c.writeValues(w, row)
		w.endArray()
	default:
		c.writeValues(w, row)
	}
}

// processElements emits the next row's values as members of an array the
// caller has opened.
func (c *LocalCursor) processElements(w *writer) {
	c.writeValues(w, c.pop())
}

// writeValues emits the values of row. Under an object node any value that
// is not an object, such as a null item or a nested array, is written as null.
func (c *LocalCursor) writeValues(w *writer, row localRow) {
	for _, el := range row.values {
		switch {
		case !c.complex:
			w.value(el)
		case el.typ == jsonparser.Object:
			writeObject(w, c.fields)
		default:
			w.null()
		}
	}
}

func (c *LocalCursor) moveOn() {
	row := c.pop()
	if !c.complex {
		return
	}
	for _, el := range row.values {
		if el.typ == jsonparser.Object {
			skipObject(c.fields)
		}
	}
}

func (c *LocalCursor) pending() int {
	return len(c.rows) - c.head + pendingFields(c.fields)
}
