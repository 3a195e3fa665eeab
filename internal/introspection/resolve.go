package introspection

import (
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
	"sort"
	"strings"

	"github.com/tidwall/sjson"

	"github.com/hanpama/fedgraph/internal/querytree"
	"github.com/hanpama/fedgraph/internal/schema"
)

// Resolve answers the introspection field at node id of t and returns its
// JSON value. s must be a schema returned by Extend.
func Resolve(s *schema.Schema, t *querytree.Tree, id querytree.NodeID) ([]byte, error) {
	r := &resolver{schema: s, tree: t}
	n := t.Node(id)
	switch n.Field {
	case schemaField.Name:
		return r.value(id, s)
	case typeField.Name:
		name, _ := arguments(n)["name"].(string)
		return r.value(id, s.Types[name])
	}
	return nil, fmt.Errorf("introspection: %s is not an introspection field", n.Field)
}

type resolver struct {
	schema *schema.Schema
	tree   *querytree.Tree
}

func (r *resolver) value(id querytree.NodeID, v any) ([]byte, error) {
	n := r.tree.Node(id)
	rv := reflect.ValueOf(v)
	switch {
	case v == nil:
		return []byte("null"), nil
	case (rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Slice) && rv.IsNil():
		return []byte("null"), nil
	case !n.Edge.IsComplex:
		return json.Marshal(v)
	case rv.Kind() == reflect.Slice:
		out := []byte("[]")
		for i := 0; i < rv.Len(); i++ {
			item, err := r.object(id, rv.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			if out, err = sjson.SetRawBytes(out, "-1", item); err != nil {
				return nil, err
			}
		}
		return out, nil
	default:
		return r.object(id, v)
	}
}

func (r *resolver) object(id querytree.NodeID, v any) ([]byte, error) {
	out := []byte("{}")
	for _, c := range r.tree.Visible(id) {
		n := r.tree.Node(c)
		var raw []byte
		var err error
		if n.IsTypename() {
			raw, err = json.Marshal(n.Edge.Owner)
		} else {
			var fv any
			if fv, err = r.field(v, n.Field, arguments(n)); err == nil {
				raw, err = r.value(c, fv)
			}
		}
		if err != nil {
			return nil, err
		}
		if out, err = sjson.SetRawBytes(out, n.Label, raw); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *resolver) field(v any, name string, args map[string]any) (any, error) {
	var (
		out any
		ok  bool
	)
	switch src := v.(type) {
	case *schema.Schema:
		out, ok = schemaFieldValue(src, name)
	case *schema.Type:
		out, ok = r.typeFieldValue(src, name, args)
	case *schema.TypeRef:
		out, ok = r.typeRefFieldValue(src, name, args)
	case *schema.Field:
		out, ok = fieldFieldValue(src, name, args)
	case *schema.InputValue:
		out, ok = r.inputValueFieldValue(src, name)
	case *schema.EnumValue:
		out, ok = enumValueFieldValue(src, name)
	case *schema.Directive:
		out, ok = directiveFieldValue(src, name, args)
	}
	if !ok {
		return nil, fmt.Errorf("introspection: cannot resolve %s on %T", name, v)
	}
	return out, nil
}

func schemaFieldValue(s *schema.Schema, field string) (any, bool) {
	switch field {
	case "description":
		return optional(s.Description), true
	case "types":
		out := make([]*schema.Type, 0, len(s.Types))
		for _, t := range s.Types {
			out = append(out, t)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
		return out, true
	case "queryType":
		return s.GetQueryType(), true
	case "mutationType":
		return s.GetMutationType(), true
	case "subscriptionType":
		return s.GetSubscriptionType(), true
	case "directives":
		out := make([]*schema.Directive, 0, len(s.Directives))
		for _, d := range s.Directives {
			out = append(out, d)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
		return out, true
	}
	return nil, false
}

func (r *resolver) typeFieldValue(t *schema.Type, field string, args map[string]any) (any, bool) {
	switch field {
	case "kind":
		return string(t.Kind), true
	case "name":
		return t.Name, true
	case "description":
		return optional(t.Description), true
	case "specifiedByURL":
		return t.SpecifiedByURL, true
	case "fields":
		if t.Kind != schema.TypeKindObject && t.Kind != schema.TypeKindInterface {
			return nil, true
		}
		out := []*schema.Field{}
		for _, f := range t.Fields {
			if strings.HasPrefix(f.Name, "__") || (f.IsDeprecated && !includeDeprecated(args)) {
				continue
			}
			out = append(out, f)
		}
		return out, true
	case "interfaces":
		if t.Kind != schema.TypeKindObject && t.Kind != schema.TypeKindInterface {
			return nil, true
		}
		return r.types(t.Interfaces), true
	case "possibleTypes":
		switch t.Kind {
		case schema.TypeKindUnion:
			return r.types(t.PossibleTypes), true
		case schema.TypeKindInterface:
			return r.implementations(t.Name), true
		}
		return nil, true
	case "enumValues":
		if t.Kind != schema.TypeKindEnum {
			return nil, true
		}
		out := []*schema.EnumValue{}
		for _, ev := range t.EnumValues {
			if !ev.IsDeprecated || includeDeprecated(args) {
				out = append(out, ev)
			}
		}
		return out, true
	case "inputFields":
		if t.Kind != schema.TypeKindInputObject {
			return nil, true
		}
		return inputValues(t.InputFields, args), true
	case "ofType":
		return nil, true
	case "isOneOf":
		if t.Kind != schema.TypeKindInputObject {
			return nil, true
		}
		return t.OneOf, true
	}
	return nil, false
}

// typeRefFieldValue answers for a field type. Named references stand for
// the type itself; list and non-null wrappers only have kind and ofType.
func (r *resolver) typeRefFieldValue(tr *schema.TypeRef, field string, args map[string]any) (any, bool) {
	if tr.Kind == schema.TypeRefKindNamed {
		def := r.schema.Types[tr.Named]
		if def == nil {
			return nil, true
		}
		return r.typeFieldValue(def, field, args)
	}
	switch field {
	case "kind":
		return string(tr.Kind), true
	case "ofType":
		return tr.OfType, true
	case "name", "description", "specifiedByURL", "fields", "interfaces",
		"possibleTypes", "enumValues", "inputFields", "isOneOf":
		return nil, true
	}
	return nil, false
}

func fieldFieldValue(f *schema.Field, field string, args map[string]any) (any, bool) {
	switch field {
	case "name":
		return f.Name, true
	case "description":
		return optional(f.Description), true
	case "args":
		return inputValues(f.Arguments, args), true
	case "type":
		return f.Type, true
	case "isDeprecated":
		return f.IsDeprecated, true
	case "deprecationReason":
		return deprecationReason(f.IsDeprecated, f.DeprecationReason), true
	}
	return nil, false
}

func (r *resolver) inputValueFieldValue(in *schema.InputValue, field string) (any, bool) {
	switch field {
	case "name":
		return in.Name, true
	case "description":
		return optional(in.Description), true
	case "type":
		return in.Type, true
	case "defaultValue":
		return r.schema.DefaultLiteral(in), true
	case "isDeprecated":
		return in.IsDeprecated, true
	case "deprecationReason":
		return deprecationReason(in.IsDeprecated, in.DeprecationReason), true
	}
	return nil, false
}

func enumValueFieldValue(ev *schema.EnumValue, field string) (any, bool) {
	switch field {
	case "name":
		return ev.Name, true
	case "description":
		return optional(ev.Description), true
	case "isDeprecated":
		return ev.IsDeprecated, true
	case "deprecationReason":
		return deprecationReason(ev.IsDeprecated, ev.DeprecationReason), true
	}
	return nil, false
}

func directiveFieldValue(d *schema.Directive, field string, args map[string]any) (any, bool) {
	switch field {
	case "name":
		return d.Name, true
	case "description":
		return optional(d.Description), true
	case "isRepeatable":
		return d.IsRepeatable, true
	case "locations":
		return append([]string{}, d.Locations...), true
	case "args":
		return inputValues(d.Arguments, args), true
	}
	return nil, false
}

func (r *resolver) types(names []string) []*schema.Type {
	out := []*schema.Type{}
	for _, name := range names {
		if def := r.schema.Types[name]; def != nil {
			out = append(out, def)
		}
	}
	return out
}

// implementations returns the object types implementing the interface name,
// sorted by name.
func (r *resolver) implementations(name string) []*schema.Type {
	out := []*schema.Type{}
	for _, t := range r.schema.Types {
		if t.Kind == schema.TypeKindObject && slices.Contains(t.Interfaces, name) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func inputValues(list []*schema.InputValue, args map[string]any) []*schema.InputValue {
	out := []*schema.InputValue{}
	for _, in := range list {
		if !in.IsDeprecated || includeDeprecated(args) {
			out = append(out, in)
		}
	}
	return out
}

func deprecationReason(deprecated bool, reason string) *string {
	if !deprecated {
		return nil
	}
	return &reason
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func includeDeprecated(args map[string]any) bool {
	b, _ := args["includeDeprecated"].(bool)
	return b
}

func arguments(n *querytree.Node) map[string]any {
	out := make(map[string]any, len(n.Arguments))
	for _, a := range n.Arguments {
		if a.Index < 0 {
			out[a.Name] = a.Value
		}
	}
	return out
}
