package querytree

import (
	"github.com/hanpama/fedgraph/internal/language"
	"github.com/hanpama/fedgraph/internal/schema"
)

// collectedFieldMap preserves field order from the original query
type collectedFieldMap struct {
	fields []collectedField
	index  map[string]int
}

type collectedField struct {
	ResponseName string
	Fields       []*language.Field
}

func newCollectedFieldMap() *collectedFieldMap {
	return &collectedFieldMap{index: make(map[string]int)}
}

func (cfm *collectedFieldMap) add(responseName string, field *language.Field) {
	if idx, exists := cfm.index[responseName]; exists {
		cfm.fields[idx].Fields = append(cfm.fields[idx].Fields, field)
		return
	}
	cfm.index[responseName] = len(cfm.fields)
	cfm.fields = append(cfm.fields, collectedField{
		ResponseName: responseName,
		Fields:       []*language.Field{field},
	})
}

// collectFields flattens fragments that apply to objectType and groups the
// selected fields by response name.
func (b *builder) collectFields(objectType *schema.Type, selectionSet language.SelectionSet, path []string) *collectedFieldMap {
	grouped := newCollectedFieldMap()
	b.collectFieldsImpl(objectType, selectionSet, grouped, map[string]bool{}, path)
	return grouped
}

func (b *builder) collectFieldsImpl(objectType *schema.Type, selectionSet language.SelectionSet, grouped *collectedFieldMap, visited map[string]bool, path []string) {
	for _, selection := range selectionSet {
		switch sel := selection.(type) {
		case *language.Field:
			if !b.shouldInclude(sel.Directives) {
				continue
			}
			responseName := sel.Alias
			if responseName == "" {
				responseName = sel.Name
			}
			grouped.add(responseName, sel)

		case *language.InlineFragment:
			if !b.shouldInclude(sel.Directives) {
				continue
			}
			if !b.fragmentApplies(sel.TypeCondition, objectType, sel.Position, path) {
				continue
			}
			b.collectFieldsImpl(objectType, sel.SelectionSet, grouped, visited, path)

		case *language.FragmentSpread:
			if !b.shouldInclude(sel.Directives) {
				continue
			}
			if visited[sel.Name] {
				continue
			}
			visited[sel.Name] = true
			def := b.doc.Fragments.ForName(sel.Name)
			if def == nil {
				b.errorf(sel.Position, path, "Unknown fragment %q.", sel.Name)
				continue
			}
			if !b.fragmentApplies(def.TypeCondition, objectType, sel.Position, path) {
				continue
			}
			if !b.shouldInclude(def.Directives) {
				continue
			}
			b.collectFieldsImpl(objectType, def.SelectionSet, grouped, visited, path)
		}
	}
}

// fragmentApplies reports whether a fragment with the given type condition
// selects fields on every value of objectType. Fragments narrowing an abstract
// type to one of its members cannot be expressed in a query tree and are
// reported as errors.
func (b *builder) fragmentApplies(cond string, objectType *schema.Type, pos *language.Position, path []string) bool {
	if cond == "" || cond == objectType.Name {
		return true
	}
	condType := b.schema.Types[cond]
	if condType == nil {
		b.errorf(pos, path, "Unknown type %q.", cond)
		return false
	}
	if contains(objectType.Interfaces, cond) || contains(condType.PossibleTypes, objectType.Name) {
		return true
	}
	if objectType.Kind == schema.TypeKindInterface || objectType.Kind == schema.TypeKindUnion {
		if contains(objectType.PossibleTypes, cond) || contains(condType.Interfaces, objectType.Name) {
			b.errorf(pos, path, "Fragments narrowing %s to %s are not supported.", objectType.Name, cond)
		}
	}
	return false
}

// shouldInclude evaluates @skip and @include.
func (b *builder) shouldInclude(directives language.DirectiveList) bool {
	if skip := directives.ForName("skip"); skip != nil {
		if v, ok := b.directiveArgument(skip, "if").(bool); ok && v {
			return false
		}
	}
	if include := directives.ForName("include"); include != nil {
		if v, ok := b.directiveArgument(include, "if").(bool); ok && !v {
			return false
		}
	}
	return true
}

func (b *builder) directiveArgument(directive *language.Directive, name string) any {
	arg := directive.Arguments.ForName(name)
	if arg == nil {
		return nil
	}
	return language.ValueToGo(arg.Value, b.variables)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
