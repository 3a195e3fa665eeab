package querytree

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"

	"github.com/hanpama/fedgraph/internal/language"
)

// Print renders t as a query document with one operation per kind: query
// roots first, then mutation roots. A document holding both kinds names its
// operations Query and Mutation, since anonymous operations must stand alone.
// Variables are already inlined, so the document declares none. Aliases are
// written only where a node's label differs from its field name.
func Print(t *Tree) *language.QueryDocument {
	doc := &language.QueryDocument{}
	var query, mutation language.SelectionSet
	for _, r := range t.Roots {
		sel := t.selection(r.Node)
		if r.IsMutation {
			mutation = append(mutation, sel)
		} else {
			query = append(query, sel)
		}
	}
	if len(query) > 0 {
		doc.Operations = append(doc.Operations, &language.OperationDefinition{Operation: language.Query, SelectionSet: query})
	}
	if len(mutation) > 0 {
		doc.Operations = append(doc.Operations, &language.OperationDefinition{Operation: language.Mutation, SelectionSet: mutation})
	}
	if len(doc.Operations) > 1 {
		doc.Operations[0].Name = "Query"
		doc.Operations[1].Name = "Mutation"
	}
	return doc
}

// Text renders t as GraphQL text.
func Text(t *Tree) string {
	return language.FormatQuery(Print(t))
}

func (t *Tree) selection(id NodeID) *language.Field {
	n := t.Node(id)
	f := &language.Field{Name: n.Field}
	if n.Label != n.Field {
		f.Alias = n.Label
	}
	for _, a := range n.Arguments {
		f.Arguments = append(f.Arguments, &language.Argument{Name: a.Name, Value: literal(a.Value)})
	}
	for _, c := range n.Children {
		f.SelectionSet = append(f.SelectionSet, t.selection(c))
	}
	return f
}

// literal converts a coerced Go value back into an AST value.
func literal(v any) *language.Value {
	switch v := v.(type) {
	case nil:
		return &language.Value{Kind: language.NullValue, Raw: "null"}
	case Enum:
		return &language.Value{Kind: language.EnumValue, Raw: string(v)}
	case string:
		return &language.Value{Kind: language.StringValue, Raw: v}
	case bool:
		return &language.Value{Kind: language.BooleanValue, Raw: strconv.FormatBool(v)}
	case int:
		return &language.Value{Kind: language.IntValue, Raw: strconv.Itoa(v)}
	case int64:
		return &language.Value{Kind: language.IntValue, Raw: strconv.FormatInt(v, 10)}
	case float64:
		return &language.Value{Kind: language.FloatValue, Raw: strconv.FormatFloat(v, 'g', -1, 64)}
	case []any:
		out := &language.Value{Kind: language.ListValue}
		for _, item := range v {
			out.Children = append(out.Children, &language.ChildValue{Value: literal(item)})
		}
		return out
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := &language.Value{Kind: language.ObjectValue}
		for _, k := range keys {
			out.Children = append(out.Children, &language.ChildValue{Name: k, Value: literal(v[k])})
		}
		return out
	default:
		return &language.Value{Kind: language.StringValue, Raw: fmt.Sprint(v)}
	}
}

// Equal reports whether a and b are structurally equal: same roots, labels,
// fields, typings, argument values and children, in the same order.
func Equal(a, b *Tree) bool {
	if len(a.Roots) != len(b.Roots) {
		return false
	}
	for i := range a.Roots {
		ra, rb := a.Roots[i], b.Roots[i]
		if ra.IsMutation != rb.IsMutation || ra.Returns != rb.Returns {
			return false
		}
		if !equalNode(a, ra.Node, b, rb.Node) {
			return false
		}
	}
	return true
}

func equalNode(a *Tree, ia NodeID, b *Tree, ib NodeID) bool {
	na, nb := a.Node(ia), b.Node(ib)
	if na.Label != nb.Label || na.Field != nb.Field || na.Hidden != nb.Hidden || na.Origin != nb.Origin {
		return false
	}
	if na.Edge.Owner != nb.Edge.Owner || na.Edge.Typing != nb.Edge.Typing ||
		na.Edge.IsComplex != nb.Edge.IsComplex || na.Edge.IsListValued != nb.Edge.IsListValued {
		return false
	}
	if len(na.Arguments) != len(nb.Arguments) || len(na.Children) != len(nb.Children) {
		return false
	}
	for i := range na.Arguments {
		x, y := na.Arguments[i], nb.Arguments[i]
		if x.Name != y.Name || x.Typing != y.Typing || x.Index != y.Index || !reflect.DeepEqual(x.Value, y.Value) {
			return false
		}
	}
	for i := range na.Children {
		if !equalNode(a, na.Children[i], b, nb.Children[i]) {
			return false
		}
	}
	return true
}
