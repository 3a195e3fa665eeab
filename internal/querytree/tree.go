// Package querytree models a parsed, schema-typed GraphQL query as an arena of
// nodes. Nodes are addressed by NodeID handles and point to their parent through
// an explicit SelectionSet edge record, so a tree holds no reference cycles and
// can be cloned or projected without touching the original.
//
// A Tree is immutable once built. Localize derives a new tree for one backend
// source; Print renders any tree back to GraphQL text.
package querytree

import (
	"github.com/hanpama/fedgraph/internal/language"
	"github.com/hanpama/fedgraph/internal/schema"
)

// NodeID is a handle to a node inside one Tree.
type NodeID int32

// NoNode marks the absence of a node (parent of a root, origin of a global node).
const NoNode NodeID = -1

// TypenameField is the meta field answered by the gateway itself.
const TypenameField = "__typename"

// SelectionSet is the edge from a parent node to one of its children.
type SelectionSet struct {
	Parent NodeID
	// Owner is the name of the type that declares the field.
	Owner string
	// Typing is the schema field behind this edge; nil for __typename.
	Typing       *schema.Field
	IsComplex    bool
	IsListValued bool
}

// Argument is an input edge of a node. Values are literals or collections with
// variables already substituted.
type Argument struct {
	Name   string
	Typing *schema.InputValue
	Value  any
	// Index is the position inside a list-valued argument this edge addresses,
	// or -1 when the edge carries the whole value.
	Index int
}

// Enum is an enum literal. It prints without quotes.
type Enum string

type Node struct {
	// Label is the response key (alias or field name).
	Label string
	// Field is the schema field name.
	Field     string
	Type      *schema.TypeRef
	Edge      SelectionSet
	Children  []NodeID
	Arguments []Argument
	// Origin is the global node a localized node was cloned from.
	Origin NodeID
	// Hidden nodes are selected from a source but never emitted.
	Hidden   bool
	Position *language.Position
}

// IsTypename reports whether n is the __typename meta field.
func (n *Node) IsTypename() bool { return n.Field == TypenameField }

// NamedType returns the innermost type name of the node's field.
func (n *Node) NamedType() string {
	if n.Type == nil {
		return ""
	}
	return n.Type.GetNamedType()
}

// Root is a top-level field of an operation.
type Root struct {
	Node       NodeID
	IsMutation bool
	// Returns is the root operation type declaring the field (e.g. "Query").
	Returns string
}

// Tree is an arena of nodes plus the ordered list of roots.
type Tree struct {
	nodes []Node
	Roots []Root
}

// Node returns the node with the given id.
func (t *Tree) Node(id NodeID) *Node { return &t.nodes[id] }

// Len returns the number of nodes in the arena.
func (t *Tree) Len() int { return len(t.nodes) }

// Empty reports whether the tree has no roots.
func (t *Tree) Empty() bool { return t == nil || len(t.Roots) == 0 }

func (t *Tree) add(n Node) NodeID {
	t.nodes = append(t.nodes, n)
	return NodeID(len(t.nodes) - 1)
}

// Visible returns the children of id that are emitted in responses.
func (t *Tree) Visible(id NodeID) []NodeID {
	children := t.nodes[id].Children
	out := make([]NodeID, 0, len(children))
	for _, c := range children {
		if !t.nodes[c].Hidden {
			out = append(out, c)
		}
	}
	return out
}

// Path returns the response path from the root down to id.
func (t *Tree) Path(id NodeID) []string {
	var rev []string
	for id != NoNode {
		n := &t.nodes[id]
		rev = append(rev, n.Label)
		id = n.Edge.Parent
	}
	out := make([]string, len(rev))
	for i := range rev {
		out[i] = rev[len(rev)-1-i]
	}
	return out
}

// Walk visits every node reachable from the roots in depth-first selection
// order. Returning false from fn skips the node's children.
func (t *Tree) Walk(fn func(id NodeID) bool) {
	var visit func(id NodeID)
	visit = func(id NodeID) {
		if !fn(id) {
			return
		}
		for _, c := range t.nodes[id].Children {
			visit(c)
		}
	}
	for _, r := range t.Roots {
		visit(r.Node)
	}
}

// Select returns a tree over the same nodes that keeps only the roots for
// which keep reports true.
func (t *Tree) Select(keep func(r Root) bool) *Tree {
	out := &Tree{nodes: t.nodes}
	for _, r := range t.Roots {
		if keep(r) {
			out.Roots = append(out.Roots, r)
		}
	}
	return out
}
