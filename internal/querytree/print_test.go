package querytree

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hanpama/fedgraph/internal/language"
)

func TestPrintRoundTrip(t *testing.T) {
	s := mustSchema(t, globalSDL)
	queries := []string{
		`{ partners(first: 2, order: DESC) { name purchases { item amount } } version }`,
		`{ all: partners { n: name __typename } }`,
		`query ($n: String!) { partner(name: $n) { name } }`,
		`mutation { rename(from: "a", to: "b") { name } }`,
	}
	for _, q := range queries {
		original := mustBuild(t, s, q, map[string]any{"n": "Ferrell \"FL\" Leethem"})
		text := Text(original)
		reparsed := mustBuild(t, s, text, nil)
		require.True(t, Equal(original, reparsed), "round trip of %s produced\n%s", q, text)
	}
}

func TestPrintLocalTree(t *testing.T) {
	s := mustSchema(t, globalSDL)
	local := Localize(mustBuild(t, s, `{ partners { worksAt } }`, nil), employees(t))
	text := Text(local)

	for _, want := range []string{"partners: employees", "worksAt: company", "_key_firstname: firstname"} {
		require.True(t, strings.Contains(text, want), "missing %q in\n%s", want, text)
	}

	doc, err := language.ParseQuery(text)
	require.NoError(t, err)
	_, errs := Build(employees(t).local, doc, "", nil)
	require.Empty(t, errs)
}

func TestPrintSplitsOperationKinds(t *testing.T) {
	tree := &Tree{}
	q := tree.add(Node{Label: "version", Field: "version", Edge: SelectionSet{Parent: NoNode}})
	m := tree.add(Node{Label: "rename", Field: "rename", Edge: SelectionSet{Parent: NoNode}})
	tree.Roots = []Root{{Node: m, IsMutation: true}, {Node: q}}

	doc := Print(tree)
	require.Len(t, doc.Operations, 2)
	require.Equal(t, language.Query, doc.Operations[0].Operation)
	require.Equal(t, language.Mutation, doc.Operations[1].Operation)
	require.Equal(t, "Query", doc.Operations[0].Name)
	require.Equal(t, "Mutation", doc.Operations[1].Name)

	single := &Tree{nodes: tree.nodes, Roots: tree.Roots[1:]}
	require.Empty(t, Print(single).Operations[0].Name)
}

func TestPrintMixedKindsIsExecutable(t *testing.T) {
	s := mustSchema(t, globalSDL)
	query := mustBuild(t, s, `{ version }`, nil)
	mutation := mustBuild(t, s, `mutation { rename(from: "a", to: "b") { name } }`, nil)

	mixed := &Tree{nodes: append([]Node{}, query.nodes...)}
	mixed.Roots = append(mixed.Roots, query.Roots...)
	offset := NodeID(len(mixed.nodes))
	for _, n := range mutation.nodes {
		if n.Edge.Parent != NoNode {
			n.Edge.Parent += offset
		}
		children := make([]NodeID, len(n.Children))
		for i, c := range n.Children {
			children[i] = c + offset
		}
		n.Children = children
		mixed.nodes = append(mixed.nodes, n)
	}
	for _, r := range mutation.Roots {
		r.Node += offset
		mixed.Roots = append(mixed.Roots, r)
	}

	doc, err := language.ParseQuery(Text(mixed))
	require.NoError(t, err)
	for name, want := range map[string]*Tree{"Query": query, "Mutation": mutation} {
		got, errs := Build(s, doc, name, nil)
		require.Empty(t, errs, name)
		require.True(t, Equal(want, got), name)
	}
}

func TestLiteral(t *testing.T) {
	v := literal(map[string]any{
		"b": []any{Enum("ASC"), nil, 1.5},
		"a": true,
	})
	require.Equal(t, language.ObjectValue, v.Kind)
	require.Equal(t, "a", v.Children[0].Name)
	require.Equal(t, language.BooleanValue, v.Children[0].Value.Kind)

	list := v.Children[1].Value
	require.Equal(t, language.ListValue, list.Kind)
	require.Equal(t, language.EnumValue, list.Children[0].Value.Kind)
	require.Equal(t, language.NullValue, list.Children[1].Value.Kind)
	require.Equal(t, "1.5", list.Children[2].Value.Raw)
}
