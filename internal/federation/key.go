package federation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/hanpama/fedgraph/internal/querytree"
)

// ErrNotEvaluable reports that a row lacks what a key rule needs. The row then
// contributes no identity and merges as its own group.
var ErrNotEvaluable = errors.New("federation: key not evaluable")

// Identity is the comparable value of one key for one row. Identities of
// different keys never compare equal.
type Identity string

// Rule extracts a key value from one source's rows by joining the values of
// local fields with Separator.
type Rule struct {
	Fields    []string
	Separator string
}

// Key is a named identity of a global type. Each source that exposes the type
// contributes its own extraction rule.
type Key struct {
	Name  string
	Type  string
	rules map[string]Rule
}

func NewKey(typeName, name string) *Key {
	return &Key{Name: name, Type: typeName, rules: make(map[string]Rule)}
}

// WithRule sets the extraction rule used for rows of the named source.
func (k *Key) WithRule(source string, fields []string, separator string) *Key {
	k.rules[source] = Rule{Fields: append([]string(nil), fields...), Separator: separator}
	return k
}

// Rule returns the extraction rule for source.
func (k *Key) Rule(source string) (Rule, bool) {
	r, ok := k.rules[source]
	return r, ok
}

// Evaluate computes the key of a raw JSON row returned by source. Fields are
// read from their hidden key selections first, then from plain selections.
func (k *Key) Evaluate(source string, row []byte) (Identity, error) {
	rule, ok := k.rules[source]
	if !ok {
		return "", fmt.Errorf("%w: key %s has no rule for source %s", ErrNotEvaluable, k.Name, source)
	}
	parts := make([]string, 0, len(rule.Fields))
	for _, f := range rule.Fields {
		r := gjson.GetBytes(row, querytree.KeyPrefix+f)
		if !r.Exists() {
			r = gjson.GetBytes(row, f)
		}
		if !r.Exists() || r.Type == gjson.Null {
			return "", fmt.Errorf("%w: key %s misses field %s", ErrNotEvaluable, k.Name, f)
		}
		if r.IsObject() || r.IsArray() {
			parts = append(parts, r.Raw)
			continue
		}
		parts = append(parts, r.String())
	}
	return Identity(k.Name + "\x00" + strings.Join(parts, rule.Separator)), nil
}
