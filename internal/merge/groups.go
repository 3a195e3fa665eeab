package merge

import "github.com/hanpama/fedgraph/internal/federation"

// Groups partitions rows into merge groups. Rows sharing any identity end up
// in the same group, transitively. The root of a group is always its earliest
// row, so groups enumerate in discovery order.
type Groups struct {
	parent []int
	owner  map[federation.Identity]int
}

func NewGroups() *Groups {
	return &Groups{owner: make(map[federation.Identity]int)}
}

// Add registers a new row carrying ids and unions it with every row already
// holding one of them. It returns the row's index.
func (g *Groups) Add(ids ...federation.Identity) int {
	row := len(g.parent)
	g.parent = append(g.parent, row)
	for _, id := range ids {
		if other, ok := g.owner[id]; ok {
			g.Union(row, other)
		} else {
			g.owner[id] = row
		}
	}
	return row
}

// Find returns the root row of i's group.
func (g *Groups) Find(i int) int {
	for g.parent[i] != i {
		g.parent[i] = g.parent[g.parent[i]]
		i = g.parent[i]
	}
	return i
}

// Union merges the groups of a and b.
func (g *Groups) Union(a, b int) {
	ra, rb := g.Find(a), g.Find(b)
	switch {
	case ra == rb:
	case ra < rb:
		g.parent[rb] = ra
	default:
		g.parent[ra] = rb
	}
}

// Rows returns the number of rows added.
func (g *Groups) Rows() int { return len(g.parent) }

// Len returns the number of groups.
func (g *Groups) Len() int {
	n := 0
	for i := range g.parent {
		if g.Find(i) == i {
			n++
		}
	}
	return n
}

// Partition returns the rows of every group, groups in discovery order and
// rows in insertion order.
func (g *Groups) Partition() [][]int {
	index := make(map[int]int)
	var out [][]int
	for i := range g.parent {
		r := g.Find(i)
		gi, ok := index[r]
		if !ok {
			gi = len(out)
			index[r] = gi
			out = append(out, nil)
		}
		out[gi] = append(out[gi], i)
	}
	return out
}
