package merge

import (
	"bytes"

	"github.com/buger/jsonparser"
)

// value is a raw JSON value as returned by jsonparser. String values carry
// their escaped contents without the surrounding quotes.
type value struct {
	raw []byte
	typ jsonparser.ValueType
}

var absent = value{typ: jsonparser.NotExist}

func lookup(obj []byte, label string) value {
	raw, typ, _, err := jsonparser.Get(obj, label)
	if err != nil {
		return absent
	}
	return value{raw: raw, typ: typ}
}

// missing reports whether the value is absent or null.
func (v value) missing() bool {
	return v.typ == jsonparser.NotExist || v.typ == jsonparser.Null
}

// elements returns the items of an array, or v itself.
func (v value) elements() []value {
	if v.typ != jsonparser.Array {
		return []value{v}
	}
	var out []value
	_, _ = jsonparser.ArrayEach(v.raw, func(raw []byte, typ jsonparser.ValueType, _ int, err error) {
		if err == nil {
			out = append(out, value{raw: raw, typ: typ})
		}
	})
	return out
}

// encode returns the value as JSON text.
func (v value) encode() []byte {
	switch v.typ {
	case jsonparser.String:
		out := make([]byte, 0, len(v.raw)+2)
		out = append(out, '"')
		out = append(out, v.raw...)
		return append(out, '"')
	case jsonparser.NotExist, jsonparser.Null, jsonparser.Unknown:
		return []byte("null")
	}
	return v.raw
}

// object is one emitted global object as seen by the sources that
// contributed to it, ordered by source and with at most one fragment per
// source.
type object []part

type part struct {
	source int
	raw    []byte
}

func (o object) get(source int) ([]byte, bool) {
	for _, p := range o {
		if p.source == source {
			return p.raw, true
		}
	}
	return nil, false
}

// innerArray returns the items of a raw JSON array without brackets.
func innerArray(raw []byte) []byte {
	raw = bytes.TrimSpace(raw)
	if len(raw) < 2 {
		return nil
	}
	return bytes.TrimSpace(raw[1 : len(raw)-1])
}
