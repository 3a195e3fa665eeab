package querytree

import (
	"github.com/hanpama/fedgraph/internal/language"
	"github.com/hanpama/fedgraph/internal/schema"
)

type builder struct {
	schema    *schema.Schema
	doc       *language.QueryDocument
	variables map[string]any
	tree      *Tree
	errs      language.ErrorList
}

// Build resolves the chosen operation of doc against s and returns its query
// tree. Problems are collected rather than reported one at a time; when the
// returned list is non-empty the tree must not be executed.
func Build(s *schema.Schema, doc *language.QueryDocument, operationName string, variables map[string]any) (*Tree, language.ErrorList) {
	b := &builder{schema: s, doc: doc, variables: variables, tree: &Tree{}}

	op := b.operation(operationName)
	if op == nil {
		return nil, b.errs
	}
	if op.Operation == language.Subscription {
		b.errorf(op.Position, nil, "Subscriptions are not supported.")
		return nil, b.errs
	}
	rootName := s.RootType(string(op.Operation))
	rootType := s.Types[rootName]
	if rootType == nil {
		b.errorf(op.Position, nil, "Schema does not support %s operations.", op.Operation)
		return nil, b.errs
	}

	b.variables = b.coerceVariableValues(op)
	if len(b.errs) > 0 {
		return nil, b.errs
	}

	isMutation := op.Operation == language.Mutation
	for _, id := range b.selections(rootType, op.SelectionSet, NoNode, nil) {
		b.tree.Roots = append(b.tree.Roots, Root{Node: id, IsMutation: isMutation, Returns: rootName})
	}
	if len(b.errs) > 0 {
		return nil, b.errs
	}
	return b.tree, nil
}

func (b *builder) operation(name string) *language.OperationDefinition {
	ops := b.doc.Operations
	if name == "" {
		switch len(ops) {
		case 0:
			b.errorf(nil, nil, "Document contains no operations.")
			return nil
		case 1:
			return ops[0]
		default:
			b.errorf(nil, nil, "Must provide operation name if query contains multiple operations.")
			return nil
		}
	}
	if op := ops.ForName(name); op != nil {
		return op
	}
	b.errorf(nil, nil, "Unknown operation named %q.", name)
	return nil
}

// selections builds the child nodes of parent for one selection set on
// parentType and returns them in response order.
func (b *builder) selections(parentType *schema.Type, set language.SelectionSet, parent NodeID, path []string) []NodeID {
	grouped := b.collectFields(parentType, set, path)
	ids := make([]NodeID, 0, len(grouped.fields))
	for _, cf := range grouped.fields {
		if id := b.field(parentType, parent, cf, append(path[:len(path):len(path)], cf.ResponseName)); id != NoNode {
			ids = append(ids, id)
		}
	}
	return ids
}

func (b *builder) field(parentType *schema.Type, parent NodeID, cf collectedField, path []string) NodeID {
	first := cf.Fields[0]
	for _, other := range cf.Fields[1:] {
		if other.Name != first.Name {
			b.errorf(other.Position, path, "Fields %q conflict because %s and %s are different fields.", cf.ResponseName, first.Name, other.Name)
			return NoNode
		}
	}

	if first.Name == TypenameField {
		return b.tree.add(Node{
			Label:    cf.ResponseName,
			Field:    TypenameField,
			Type:     schema.NonNullType(schema.NamedType("String")),
			Edge:     SelectionSet{Parent: parent, Owner: parentType.Name},
			Origin:   NoNode,
			Position: first.Position,
		})
	}

	def := parentType.Field(first.Name)
	if def == nil {
		b.errorf(first.Position, path, "Cannot query field %q on type %q.", first.Name, parentType.Name)
		return NoNode
	}
	namedType := def.Type.GetNamedType()
	complex := b.schema.IsComposite(namedType)

	args, ok := b.coerceArguments(def, first, path)
	if !ok {
		return NoNode
	}

	id := b.tree.add(Node{
		Label: cf.ResponseName,
		Field: def.Name,
		Type:  def.Type,
		Edge: SelectionSet{
			Parent:       parent,
			Owner:        parentType.Name,
			Typing:       def,
			IsComplex:    complex,
			IsListValued: def.Type.IsList(),
		},
		Arguments: args,
		Origin:    NoNode,
		Position:  first.Position,
	})

	var merged language.SelectionSet
	for _, f := range cf.Fields {
		merged = append(merged, f.SelectionSet...)
	}
	switch {
	case complex && len(merged) == 0:
		b.errorf(first.Position, path, "Field %q of type %q must have a selection of subfields.", first.Name, def.Type.GetNamedType())
	case !complex && len(merged) > 0:
		b.errorf(first.Position, path, "Field %q must not have a selection since type %q has no subfields.", first.Name, namedType)
	case complex:
		children := b.selections(b.schema.Types[namedType], merged, id, path)
		b.tree.nodes[id].Children = children
	}
	return id
}

func (b *builder) errorf(pos *language.Position, path []string, format string, args ...any) {
	var err *language.Error
	if pos != nil && pos.Src != nil {
		err = language.ErrorPosf(pos, format, args...)
	} else {
		err = language.Errorf(format, args...)
	}
	for _, p := range path {
		err.Path = append(err.Path, language.PathName(p))
	}
	b.errs = append(b.errs, err)
}
