package merge

import "fmt"

// Kind tells which of the three cursor variants a Cursor holds.
type Kind uint8

const (
	// KindLocal reads one node from exactly one source.
	KindLocal Kind = iota + 1
	// KindConcat unions the rows of several sources without merging them.
	KindConcat
	// KindConcatMerge merges rows of several sources that share an identity.
	KindConcatMerge
)

func (k Kind) String() string {
	switch k {
	case KindLocal:
		return "Local"
	case KindConcat:
		return "Concat"
	case KindConcatMerge:
		return "ConcatMerge"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Cursor walks one node of the global query over the rows the sources
// returned for it. Exactly one of the variant pointers is set, as named by
// Kind.
//
// A cursor buffers one row per addResult call. Every buffered row is later
// consumed exactly once, either by processOne, which emits it, or by moveOn,
// which drops it along with the rows it buffered in descendant cursors.
type Cursor struct {
	Kind        Kind
	Local       *LocalCursor
	Concat      *ConcatCursor
	ConcatMerge *ConcatMergeCursor
}

func (c *Cursor) addResult(parent object) {
	switch c.Kind {
	case KindLocal:
		c.Local.addResult(parent)
	case KindConcat:
		c.Concat.addResult(parent)
	case KindConcatMerge:
		c.ConcatMerge.addResult(parent)
	default:
		panic(fmt.Sprintf("merge: unknown cursor %v", c.Kind))
	}
}

func (c *Cursor) processOne(w *writer) {
	switch c.Kind {
	case KindLocal:
		c.Local.processOne(w)
	case KindConcat:
		c.Concat.processOne(w)
	case KindConcatMerge:
		c.ConcatMerge.processOne(w)
	default:
		panic(fmt.Sprintf("merge: unknown cursor %v", c.Kind))
	}
}

func (c *Cursor) moveOn() {
	switch c.Kind {
	case KindLocal:
		c.Local.moveOn()
	case KindConcat:
		c.Concat.moveOn()
	case KindConcatMerge:
		c.ConcatMerge.moveOn()
	default:
		panic(fmt.Sprintf("merge: unknown cursor %v", c.Kind))
	}
}

// pending returns the number of buffered rows not yet consumed in c and its
// descendants.
func (c *Cursor) pending() int {
	switch c.Kind {
	case KindLocal:
		return c.Local.pending()
	case KindConcat:
		return c.Concat.pending()
	case KindConcatMerge:
		return c.ConcatMerge.pending()
	default:
		panic(fmt.Sprintf("merge: unknown cursor %v", c.Kind))
	}
}

// field is one member of an emitted object. A member is either the
// __typename meta field, a cursor, or a filler for a field none of the
// object's sources serve.
type field struct {
	label    string
	typename string
	raw      []byte
	list     bool
	cursor   *Cursor
}

func addFields(fields []field, obj object) {
	for _, f := range fields {
		if f.cursor != nil {
			f.cursor.addResult(obj)
		}
	}
}

func writeObject(w *writer, fields []field) {
	w.beginObject()
	for _, f := range fields {
		w.key(f.label)
		switch {
		case f.typename != "":
			w.name(f.typename)
		case f.raw != nil:
			w.raw(f.raw)
		case f.cursor != nil:
			f.cursor.processOne(w)
		case f.list:
			w.emptyList()
		default:
			w.null()
		}
	}
	w.endObject()
}

func skipObject(fields []field) {
	for _, f := range fields {
		if f.cursor != nil {
			f.cursor.moveOn()
		}
	}
}

func pendingFields(fields []field) int {
	n := 0
	for _, f := range fields {
		if f.cursor != nil {
			n += f.cursor.pending()
		}
	}
	return n
}
