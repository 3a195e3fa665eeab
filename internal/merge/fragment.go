package merge

import (
	"bytes"

	"github.com/buger/jsonparser"
	"github.com/tidwall/sjson"
)

// combine re-synthesizes several rows of one source into a single row: array
// members are concatenated, any other member takes its first non-null value.
func combine(rows [][]byte) []byte {
	if len(rows) == 1 {
		return rows[0]
	}
	var order []string
	members := make(map[string][]value)
	for _, row := range rows {
		_ = jsonparser.ObjectEach(row, func(k, raw []byte, typ jsonparser.ValueType, _ int) error {
			key := string(k)
			if _, seen := members[key]; !seen {
				order = append(order, key)
			}
			members[key] = append(members[key], value{raw: raw, typ: typ})
			return nil
		})
	}
	out := []byte("{}")
	for _, key := range order {
		out, _ = sjson.SetRawBytes(out, key, resolve(members[key]))
	}
	return out
}

func resolve(vals []value) []byte {
	for i, v := range vals {
		if v.missing() {
			continue
		}
		if v.typ != jsonparser.Array {
			return v.encode()
		}
		var items [][]byte
		for _, a := range vals[i:] {
			if a.typ != jsonparser.Array {
				continue
			}
			if inner := innerArray(a.raw); len(inner) > 0 {
				items = append(items, inner)
			}
		}
		var buf bytes.Buffer
		buf.WriteByte('[')
		buf.Write(bytes.Join(items, []byte{','}))
		buf.WriteByte(']')
		return buf.Bytes()
	}
	return []byte("null")
}
