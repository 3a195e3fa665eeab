package querytree

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestLocalize(t *testing.T) {
	s := mustSchema(t, globalSDL)

	tests := []struct {
		name  string
		query string
		want  string
	}{
		{
			name:  "renames fields and injects keys",
			query: `{ partners { name worksAt purchases { item } } }`,
			want:  `partners:employees{worksAt:company _key_firstname:firstname _key_lastname:lastname}`,
		},
		{
			name:  "drops roots without image",
			query: `{ version partners { worksAt } }`,
			want:  `partners:employees{worksAt:company _key_firstname:firstname _key_lastname:lastname}`,
		},
		{
			name:  "drops arguments without image",
			query: `{ partners(first: 3) { worksAt } partner(name: "x") { worksAt } }`,
			want:  `partners:employees{worksAt:company _key_firstname:firstname _key_lastname:lastname} partner:employee(name:x){worksAt:company _key_firstname:firstname _key_lastname:lastname}`,
		},
		{
			name:  "keeps typename",
			query: `{ partners { __typename } }`,
			want:  `partners:employees{__typename _key_firstname:firstname _key_lastname:lastname}`,
		},
		{
			name:  "typename does not keep a parent alive",
			query: `{ partners { __typename name purchases { item } } }`,
			want:  ``,
		},
		{
			name:  "typename follows a kept parent",
			query: `{ partners { __typename name worksAt } }`,
			want:  `partners:employees{__typename worksAt:company _key_firstname:firstname _key_lastname:lastname}`,
		},
		{
			name:  "root typename is not localized",
			query: `{ __typename partners { worksAt } }`,
			want:  `partners:employees{worksAt:company _key_firstname:firstname _key_lastname:lastname}`,
		},
		{
			name:  "drops subtrees left empty",
			query: `{ partners { name purchases { item } } }`,
			want:  ``,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			global := mustBuild(t, s, tt.query, nil)
			before := shape(global)

			local := Localize(global, employees(t))
			if diff := cmp.Diff(tt.want, shape(local)); diff != "" {
				t.Fatalf("localized tree mismatch (-want +got):\n%s", diff)
			}
			require.Equal(t, before, shape(global), "localization must not modify its input")
		})
	}
}

func TestLocalizeEmptyTree(t *testing.T) {
	s := mustSchema(t, globalSDL)
	local := Localize(mustBuild(t, s, `{ version }`, nil), employees(t))
	require.True(t, local.Empty())
	require.Equal(t, 0, local.Len())
}

func TestLocalizeOrigins(t *testing.T) {
	s := mustSchema(t, globalSDL)
	global := mustBuild(t, s, `{ partners { name worksAt } }`, nil)
	local := Localize(global, employees(t))

	require.Len(t, local.Roots, 1)
	require.Equal(t, "Query", local.Roots[0].Returns)

	root := local.Node(local.Roots[0].Node)
	require.Equal(t, "Employee", root.NamedType())
	require.Equal(t, "partners", global.Node(root.Origin).Label)

	children := root.Children
	require.Len(t, children, 3)
	worksAt := local.Node(children[0])
	require.Equal(t, "worksAt", global.Node(worksAt.Origin).Label)
	require.Equal(t, "Employee", worksAt.Edge.Owner)
	require.False(t, worksAt.Hidden)

	for _, id := range children[1:] {
		key := local.Node(id)
		require.True(t, key.Hidden)
		require.Equal(t, NoNode, key.Origin)
	}
	require.Equal(t, children[:1], local.Visible(local.Roots[0].Node))
}

func TestLocalizeIsDeterministic(t *testing.T) {
	s := mustSchema(t, globalSDL)
	global := mustBuild(t, s, `{ partners(order: ASC) { worksAt __typename } partner(name: "a") { worksAt } }`, nil)
	e := employees(t)

	first := Localize(global, e)
	for i := 0; i < 10; i++ {
		require.True(t, Equal(first, Localize(global, e)))
	}
	require.False(t, Equal(first, global))
}
