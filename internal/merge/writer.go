package merge

import "bytes"

// writer emits JSON, inserting separators between members of the innermost
// open object or array.
type writer struct {
	buf      bytes.Buffer
	first    []bool
	afterKey bool
}

func (w *writer) sep() {
	if w.afterKey {
		w.afterKey = false
		return
	}
	if n := len(w.first); n > 0 {
		if w.first[n-1] {
			w.first[n-1] = false
		} else {
			w.buf.WriteByte(',')
		}
	}
}

func (w *writer) beginObject() {
	w.sep()
	w.buf.WriteByte('{')
	w.first = append(w.first, true)
}

func (w *writer) endObject() {
	w.first = w.first[:len(w.first)-1]
	w.buf.WriteByte('}')
}

func (w *writer) beginArray() {
	w.sep()
	w.buf.WriteByte('[')
	w.first = append(w.first, true)
}

func (w *writer) endArray() {
	w.first = w.first[:len(w.first)-1]
	w.buf.WriteByte(']')
}

// key writes an object member name. GraphQL names never need escaping.
func (w *writer) key(k string) {
	w.sep()
	w.buf.WriteByte('"')
	w.buf.WriteString(k)
	w.buf.WriteString(`":`)
	w.afterKey = true
}

func (w *writer) value(v value) {
	w.sep()
	w.buf.Write(v.encode())
}

func (w *writer) raw(b []byte) {
	w.sep()
	w.buf.Write(b)
}

func (w *writer) name(s string) {
	w.sep()
	w.buf.WriteByte('"')
	w.buf.WriteString(s)
	w.buf.WriteByte('"')
}

func (w *writer) null() {
	w.sep()
	w.buf.WriteString("null")
}

func (w *writer) emptyList() {
	w.beginArray()
	w.endArray()
}
