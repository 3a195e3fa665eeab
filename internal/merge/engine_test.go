package merge

import (
	"bytes"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"

	"github.com/hanpama/fedgraph/internal/federation"
	"github.com/hanpama/fedgraph/internal/language"
	"github.com/hanpama/fedgraph/internal/querytree"
	"github.com/hanpama/fedgraph/internal/splitter"
)

func loadMap(t *testing.T, path string) *federation.Map {
	t.Helper()
	_, m, err := federation.Load(path)
	require.NoError(t, err)
	return m
}

func newEngine(t *testing.T, m *federation.Map, query string) *Engine {
	t.Helper()
	doc, err := language.ParseQuery(query)
	require.NoError(t, err)
	tree, errs := querytree.Build(m.Global, doc, "", nil)
	require.Empty(t, errs)
	locals, err := splitter.Split(tree, m)
	require.NoError(t, err)
	return NewEngine(tree, m, locals)
}

func merge(t *testing.T, e *Engine, responses map[string]string) string {
	t.Helper()
	for source, body := range responses {
		require.NoError(t, e.Feed(source, []byte(body)))
	}
	var buf bytes.Buffer
	require.NoError(t, e.Write(&buf))
	return buf.String()
}

func TestConcatScenario(t *testing.T) {
	m := loadMap(t, "../federation/testdata/concat.yaml")
	e := newEngine(t, m, `{ r { a { x y } b { z } } }`)

	for path, want := range map[string]Kind{"r": KindConcat, "r.a": KindLocal, "r.a.x": KindLocal} {
		got, ok := e.Kind(strings.Split(path, ".")...)
		require.True(t, ok, path)
		require.Equal(t, want, got, path)
	}

	got := merge(t, e, map[string]string{
		"one":   `{"data":{"r":[{"a":[{"x":1}]},{"a":[]}]}}`,
		"two":   `{"data":{"r":[{"a":[{"y":2}],"b":[{"z":3}]}]}}`,
		"three": `{"data":{"r":[{"b":[{"z":4}]},{"b":[{"z":5},{"z":6}]}]}}`,
	})
	want := `{"data":{"r":[` +
		`{"a":[{"x":1,"y":null}],"b":[]},` +
		`{"a":[],"b":[]},` +
		`{"a":[{"x":null,"y":2}],"b":[{"z":3}]},` +
		`{"a":[],"b":[{"z":4}]},` +
		`{"a":[],"b":[{"z":5},{"z":6}]}` +
		`]}}`
	require.Equal(t, want, got)
}

func TestConcatIsMultisetUnion(t *testing.T) {
	m := loadMap(t, "../federation/testdata/concat.yaml")
	e := newEngine(t, m, `{ r { b { z } } }`)
	got := merge(t, e, map[string]string{
		"two":   `{"data":{"r":[{"b":[{"z":1}]},{"b":[{"z":2}]}]}}`,
		"three": `{"data":{"r":[{"b":[{"z":3}]}]}}`,
	})
	require.JSONEq(t, `{"data":{"r":[{"b":[{"z":1}]},{"b":[{"z":2}]},{"b":[{"z":3}]}]}}`, got)
}

func TestKeyMergeScenario(t *testing.T) {
	m := loadMap(t, "../federation/testdata/partners.yaml")
	e := newEngine(t, m, `{ partners { name worksAt purchases { item } invoices { number } } }`)

	for path, want := range map[string]Kind{
		"partners":           KindConcatMerge,
		"partners.name":      KindConcat,
		"partners.worksAt":   KindLocal,
		"partners.purchases": KindLocal,
	} {
		got, ok := e.Kind(strings.Split(path, ".")...)
		require.True(t, ok, path)
		require.Equal(t, want, got, path)
	}

	got := merge(t, e, map[string]string{
		"customers": `{"data":{"partners":[
			{"name":"Ferrell Leethem","purchases":[{"item":"lamp"}],"_key_name":"Ferrell Leethem"},
			{"name":"Ada Park","purchases":[],"_key_name":"Ada Park"}]}}`,
		"clients": `{"data":{"partners":[
			{"name":"Ferrell Leethem","invoices":[{"number":"INV-1"},{"number":"INV-2"}],"_key_fullName":"Ferrell Leethem"}]}}`,
		"employees": `{"data":{"partners":[
			{"worksAt":"Initech","_key_firstname":"Ferrell","_key_lastname":"Leethem"},
			{"worksAt":"Hooli","_key_firstname":"Bo","_key_lastname":"Chen"}]}}`,
	})
	want := `{"data":{"partners":[` +
		`{"name":"Ferrell Leethem","worksAt":"Initech","purchases":[{"item":"lamp"}],"invoices":[{"number":"INV-1"},{"number":"INV-2"}]},` +
		`{"name":"Ada Park","worksAt":null,"purchases":[],"invoices":[]},` +
		`{"name":null,"worksAt":"Hooli","purchases":[],"invoices":[]}` +
		`]}}`
	require.Equal(t, want, got)
}

func TestKeyMergeCombinesRowsOfOneSource(t *testing.T) {
	m := loadMap(t, "../federation/testdata/partners.yaml")
	e := newEngine(t, m, `{ partners { name purchases { item } worksAt } }`)
	got := merge(t, e, map[string]string{
		"customers": `{"data":{"partners":[
			{"name":"Ferrell Leethem","purchases":[{"item":"lamp"}],"_key_name":"Ferrell Leethem"},
			{"name":"Ferrell Leethem","purchases":[{"item":"desk"}],"_key_name":"Ferrell Leethem"}]}}`,
		"employees": `{"data":{"partners":[
			{"worksAt":"Initech","_key_firstname":"Ferrell","_key_lastname":"Leethem"},
			{"worksAt":null,"_key_firstname":"Ferrell"}]}}`,
	})
	require.JSONEq(t, `{"data":{"partners":[
		{"name":"Ferrell Leethem","purchases":[{"item":"lamp"},{"item":"desk"}],"worksAt":"Initech"},
		{"name":null,"purchases":[],"worksAt":null}
	]}}`, got)
}

func TestKeyMergeRowCount(t *testing.T) {
	m := loadMap(t, "../federation/testdata/partners.yaml")
	responses := map[string]string{
		"customers": `{"data":{"partners":[{"name":"A","_key_name":"A"},{"name":"B","_key_name":"B"},{"name":"A","_key_name":"A"}]}}`,
		"clients":   `{"data":{"partners":[{"name":"B","_key_fullName":"B"},{"name":"C","_key_fullName":"C"}]}}`,
	}
	got := merge(t, newEngine(t, m, `{ partners { name } }`), responses)
	require.Equal(t, `{"data":{"partners":[{"name":"A"},{"name":"B"},{"name":"C"}]}}`, got)
}

func TestTypename(t *testing.T) {
	m := loadMap(t, "../federation/testdata/partners.yaml")
	e := newEngine(t, m, `{ __typename partners { kind: __typename worksAt } }`)
	require.Equal(t, []string{"employees"}, e.names)
	got := merge(t, e, map[string]string{
		"employees": `{"data":{"partners":[{"kind":"Employee","worksAt":"Initech","_key_firstname":"A","_key_lastname":"B"}]}}`,
	})
	require.Equal(t, `{"data":{"__typename":"Query","partners":[{"kind":"Partner","worksAt":"Initech"}]}}`, got)
}

func TestTypenameAddsNoRows(t *testing.T) {
	m := loadMap(t, "../federation/testdata/concat.yaml")
	responses := map[string]string{
		"one": `{"data":{"r":[{"a":[{"x":1}]}]}}`,
	}
	for _, tt := range []struct {
		query string
		want  string
	}{
		{`{ r { a { x } } }`, `{"data":{"r":[{"a":[{"x":1}]}]}}`},
		{`{ r { __typename a { x } } }`, `{"data":{"r":[{"__typename":"R","a":[{"x":1}]}]}}`},
		{`{ __typename r { a { x } } }`, `{"data":{"__typename":"Query","r":[{"a":[{"x":1}]}]}}`},
	} {
		t.Run(tt.query, func(t *testing.T) {
			e := newEngine(t, m, tt.query)
			require.Equal(t, []string{"one"}, e.names)
			require.Equal(t, tt.want, merge(t, e, responses))
		})
	}
}

func TestRootTypenameOnly(t *testing.T) {
	m := loadMap(t, "../federation/testdata/partners.yaml")
	e := newEngine(t, m, `{ __typename }`)
	require.Empty(t, e.locals)
	require.Equal(t, `{"data":{"__typename":"Query"}}`, merge(t, e, nil))
}

func TestLeafFields(t *testing.T) {
	fsys := fstest.MapFS{
		"global.graphql": {Data: []byte(`type Query { version: String tags: [String!]! }`)},
		"s.graphql":      {Data: []byte(`type Query { version: String tags: [String!]! }`)},
	}
	cfg, err := federation.ParseConfig([]byte(`
schema: global.graphql
sources:
  - {name: first, schema: s.graphql}
  - {name: second, schema: s.graphql}
  - {name: third, schema: s.graphql}
`))
	require.NoError(t, err)
	m, err := federation.Build(cfg, fsys)
	require.NoError(t, err)

	e := newEngine(t, m, `{ version tags }`)
	got := merge(t, e, map[string]string{
		"first":  `{"data":{"version":null,"tags":["a"]}}`,
		"second": `{"data":{"version":"say \"2.0\"","tags":["b","c"]}}`,
		"third":  `{"data":{"version":"3.0","tags":[]}}`,
	})
	require.Equal(t, `{"data":{"version":"say \"2.0\"","tags":["a"]}}`, got)

	// A list of leaves is one value: a null list defers to the next source.
	e = newEngine(t, m, `{ tags }`)
	got = merge(t, e, map[string]string{
		"first":  `{"data":{"tags":null}}`,
		"second": `{"data":{"tags":["b","c"]}}`,
		"third":  `{"data":{"tags":["d"]}}`,
	})
	require.Equal(t, `{"data":{"tags":["b","c"]}}`, got)
}

func TestNonObjectListElements(t *testing.T) {
	m := loadMap(t, "../federation/testdata/partners.yaml")

	t.Run("one source", func(t *testing.T) {
		e := newEngine(t, m, `{ partners { purchases { item } } }`)
		kind, _ := e.Kind("partners")
		require.Equal(t, KindLocal, kind)
		got := merge(t, e, map[string]string{
			"customers": `{"data":{"partners":[
				{"purchases":[{"item":"lamp"},null,[{"item":"desk"}]],"_key_name":"A"},
				[{"purchases":[{"item":"chair"}],"_key_name":"B"}]]}}`,
		})
		require.Equal(t, `{"data":{"partners":[{"purchases":[{"item":"lamp"},null,null]},null]}}`, got)
	})

	t.Run("keyed merge", func(t *testing.T) {
		e := newEngine(t, m, `{ partners { name } }`)
		kind, _ := e.Kind("partners")
		require.Equal(t, KindConcatMerge, kind)
		got := merge(t, e, map[string]string{
			"customers": `{"data":{"partners":[{"name":"A","_key_name":"A"},null,[{"name":"X","_key_name":"X"}]]}}`,
			"clients":   `{"data":{"partners":[{"name":"A","_key_fullName":"A"},null]}}`,
		})
		require.Equal(t, `{"data":{"partners":[{"name":"A"},null,null,null]}}`, got)
	})
}

func TestAbsentResponses(t *testing.T) {
	m := loadMap(t, "../federation/testdata/partners.yaml")
	e := newEngine(t, m, `{ partners { name } partner(name: "x") { name } }`)
	got := merge(t, e, map[string]string{
		"customers": `{"data":null}`,
		"clients":   `{"data":{"partners":[]}}`,
	})
	require.Equal(t, `{"data":{"partners":[],"partner":null}}`, got)
}

func TestFeedAndDrain(t *testing.T) {
	m := loadMap(t, "../federation/testdata/partners.yaml")
	e := newEngine(t, m, `{ partners { name } }`)

	require.ErrorContains(t, e.Feed("suppliers", []byte(`{"data":{}}`)), `unexpected response from source "suppliers"`)
	require.ErrorContains(t, e.Feed("customers", []byte(`{"data":[1]}`)), "not an object")
	require.NoError(t, e.FeedReader("customers", bytes.NewReader([]byte(`{"data":{"partners":[{"name":"A"}]}}`))))

	data, err := e.Data()
	require.NoError(t, err)
	require.Equal(t, `{"partners":[{"name":"A"}]}`, string(data))
	_, err = e.Data()
	require.ErrorIs(t, err, ErrDrained)
	require.ErrorIs(t, e.Write(&bytes.Buffer{}), ErrDrained)
}

func TestResolvedRoots(t *testing.T) {
	m := loadMap(t, "../federation/testdata/partners.yaml")
	doc, err := language.ParseQuery(`{ a: partners { name } b: partners { name } }`)
	require.NoError(t, err)
	tree, errs := querytree.Build(m.Global, doc, "", nil)
	require.Empty(t, errs)
	b := tree.Roots[1].Node
	locals, err := splitter.Split(tree.Select(func(r querytree.Root) bool { return r.Node != b }), m)
	require.NoError(t, err)

	e := NewEngine(tree, m, locals, WithResolved(map[querytree.NodeID][]byte{b: []byte(`[{"name":"Z"}]`)}))
	got := merge(t, e, map[string]string{
		"customers": `{"data":{"a":[{"name":"A","_key_name":"A"}]}}`,
	})
	require.Equal(t, `{"data":{"a":[{"name":"A"}],"b":[{"name":"Z"}]}}`, got)
}
