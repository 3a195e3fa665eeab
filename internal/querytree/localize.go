package querytree

import "github.com/hanpama/fedgraph/internal/schema"

// KeyPrefix prefixes the response keys of hidden selections injected for
// identity keys.
const KeyPrefix = "_key_"

// Embedding is a structure-preserving partial mapping from the global schema
// into one source's local schema.
type Embedding interface {
	// FieldImage returns the local counterpart of owner.field and the name of
	// the local type declaring it.
	FieldImage(owner, field string) (*schema.Field, string, bool)
	// ArgumentImage returns the local counterpart of an argument of owner.field.
	ArgumentImage(owner, field, arg string) (*schema.InputValue, bool)
	// KeyFields returns the local fields a source must select on values of the
	// global type so that the type's identity keys can be evaluated.
	KeyFields(globalType string) []*schema.Field
}

// Localize projects t onto one source. Every edge whose typing has an image
// under e is cloned with the image typing substituted; edges without an image
// are dropped, and so are complex nodes left without children. __typename
// selections are cloned under every kept parent but do not keep a parent
// alive unless the parent selects nothing else. A root is kept only when its
// own field has an image; root __typename is answered by the gateway and never
// localized. The returned tree shares no mutable
// state with t; argument values and schema typings are shared as immutable
// parts. Each localized node records its global counterpart in Origin.
func Localize(t *Tree, e Embedding) *Tree {
	out := &Tree{}
	for _, r := range t.Roots {
		if t.Node(r.Node).IsTypename() {
			continue
		}
		id, ok := out.localize(t, r.Node, NoNode, e)
		if !ok {
			continue
		}
		out.Roots = append(out.Roots, Root{
			Node:       id,
			IsMutation: r.IsMutation,
			Returns:    out.nodes[id].Edge.Owner,
		})
	}
	return out
}

func (out *Tree) localize(src *Tree, id NodeID, parent NodeID, e Embedding) (NodeID, bool) {
	n := src.Node(id)
	if n.IsTypename() {
		clone := *n
		clone.Edge.Parent = parent
		clone.Origin = id
		clone.Children = nil
		return out.add(clone), true
	}

	local, localOwner, ok := e.FieldImage(n.Edge.Owner, n.Field)
	if !ok {
		return NoNode, false
	}

	var args []Argument
	for _, a := range n.Arguments {
		image, ok := e.ArgumentImage(n.Edge.Owner, n.Field, a.Name)
		if !ok {
			continue
		}
		args = append(args, Argument{Name: image.Name, Typing: image, Value: a.Value, Index: a.Index})
	}

	cid := out.add(Node{
		Label: n.Label,
		Field: local.Name,
		Type:  local.Type,
		Edge: SelectionSet{
			Parent:       parent,
			Owner:        localOwner,
			Typing:       local,
			IsComplex:    n.Edge.IsComplex,
			IsListValued: local.Type.IsList(),
		},
		Arguments: args,
		Origin:    id,
		Hidden:    n.Hidden,
		Position:  n.Position,
	})
	if !n.Edge.IsComplex {
		return cid, true
	}

	var children []NodeID
	visible, typenames := 0, 0
	for _, c := range n.Children {
		lc, ok := out.localize(src, c, cid, e)
		if !ok {
			continue
		}
		children = append(children, lc)
		switch {
		case out.nodes[lc].IsTypename():
			typenames++
		case !out.nodes[lc].Hidden:
			visible++
		}
	}
	if visible == 0 && (typenames == 0 || src.selectsFields(id)) {
		out.truncate(cid)
		return NoNode, false
	}

	localType := local.Type.GetNamedType()
	for _, kf := range e.KeyFields(n.NamedType()) {
		children = append(children, out.add(Node{
			Label: KeyPrefix + kf.Name,
			Field: kf.Name,
			Type:  kf.Type,
			Edge: SelectionSet{
				Parent:       cid,
				Owner:        localType,
				Typing:       kf,
				IsListValued: kf.Type.IsList(),
			},
			Origin: NoNode,
			Hidden: true,
		}))
	}
	out.nodes[cid].Children = children
	return cid, true
}

// selectsFields reports whether id has a selection other than __typename.
func (t *Tree) selectsFields(id NodeID) bool {
	for _, c := range t.Node(id).Children {
		if n := t.Node(c); !n.IsTypename() && !n.Hidden {
			return true
		}
	}
	return false
}

// truncate drops id and every node added after it. Nodes are appended in
// depth-first order, so a dropped subtree always occupies the arena's tail.
func (out *Tree) truncate(id NodeID) {
	out.nodes = out.nodes[:id]
}
