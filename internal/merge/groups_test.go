package merge

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/hanpama/fedgraph/internal/federation"
)

func TestGroups(t *testing.T) {
	tests := []struct {
		name string
		rows [][]federation.Identity
		want [][]int
	}{
		{
			name: "singletons",
			rows: [][]federation.Identity{{"k\x00a"}, {"k\x00b"}, nil},
			want: [][]int{{0}, {1}, {2}},
		},
		{
			name: "shared identity",
			rows: [][]federation.Identity{{"k\x00a"}, {"k\x00b"}, {"k\x00a"}},
			want: [][]int{{0, 2}, {1}},
		},
		{
			name: "transitive through a bridge row",
			rows: [][]federation.Identity{{"k1\x00x"}, {"k2\x00y"}, {"k1\x00x", "k2\x00y"}},
			want: [][]int{{0, 1, 2}},
		},
		{
			name: "bridge joins groups discovered later",
			rows: [][]federation.Identity{{"k\x00a"}, {"k\x00b"}, {"k\x00c"}, {"k\x00c", "k\x00b"}, {"k\x00a"}},
			want: [][]int{{0, 4}, {1, 2, 3}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGroups()
			for _, ids := range tt.rows {
				g.Add(ids...)
			}
			if diff := cmp.Diff(tt.want, g.Partition()); diff != "" {
				t.Fatalf("partition mismatch (-want +got):\n%s", diff)
			}
			require.Equal(t, len(tt.want), g.Len())
			require.Equal(t, len(tt.rows), g.Rows())
		})
	}
}

func TestGroupsIdempotent(t *testing.T) {
	rows := [][]federation.Identity{{"a\x001"}, {"b\x002"}, {"a\x001", "b\x002"}, {"c\x003"}}
	partition := func() [][]int {
		g := NewGroups()
		for _, ids := range rows {
			g.Add(ids...)
		}
		for i := 0; i < g.Rows(); i++ {
			g.Union(i, i)
		}
		return g.Partition()
	}
	first := partition()
	require.Equal(t, [][]int{{0, 1, 2}, {3}}, first)
	for i := 0; i < 3; i++ {
		require.Equal(t, first, partition())
	}
}

func TestCombine(t *testing.T) {
	got := combine([][]byte{
		[]byte(`{"name":"A","tags":["x"],"age":null,"nested":{"a":1}}`),
		[]byte(`{"name":"B","tags":["y","z"],"age":3,"extra":"e"}`),
		[]byte(`{"tags":[],"age":4}`),
	})
	require.JSONEq(t, `{"name":"A","tags":["x","y","z"],"age":3,"nested":{"a":1},"extra":"e"}`, string(got))
}
