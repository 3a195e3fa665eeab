package schema

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/vektah/gqlparser/v2/ast"

	"github.com/hanpama/fedgraph/internal/language"
)

// Render produces SDL from the Schema. Types and directives are sorted by
// name; built-in scalars and directives are left out. A schema definition is
// written only when a root type does not have its conventional name.
func Render(s *Schema) string {
	if s == nil {
		return ""
	}
	return language.FormatSchema(Document(s))
}

// Document converts s into an SDL document.
func Document(s *Schema) *ast.SchemaDocument {
	doc := &ast.SchemaDocument{}

	if s.QueryType != "Query" || (s.MutationType != "" && s.MutationType != "Mutation") ||
		(s.SubscriptionType != "" && s.SubscriptionType != "Subscription") {
		sd := &ast.SchemaDefinition{}
		for _, root := range []struct {
			op   ast.Operation
			name string
		}{{ast.Query, s.QueryType}, {ast.Mutation, s.MutationType}, {ast.Subscription, s.SubscriptionType}} {
			if root.name != "" {
				sd.OperationTypes = append(sd.OperationTypes, &ast.OperationTypeDefinition{Operation: root.op, Type: root.name})
			}
		}
		doc.Schema = append(doc.Schema, sd)
	}

	names := make([]string, 0, len(s.Types))
	for name := range s.Types {
		if !isBuiltin(name) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		doc.Definitions = append(doc.Definitions, s.definition(s.Types[name]))
	}

	names = names[:0]
	for name := range s.Directives {
		if !isBuiltinDirective(name) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		d := s.Directives[name]
		dd := &ast.DirectiveDefinition{Name: d.Name, Description: d.Description, IsRepeatable: d.IsRepeatable}
		for _, a := range d.Arguments {
			dd.Arguments = append(dd.Arguments, s.argument(a))
		}
		for _, loc := range d.Locations {
			dd.Locations = append(dd.Locations, ast.DirectiveLocation(loc))
		}
		doc.Directives = append(doc.Directives, dd)
	}
	return doc
}

func (s *Schema) definition(t *Type) *ast.Definition {
	def := &ast.Definition{
		Name:        t.Name,
		Description: t.Description,
		Interfaces:  t.Interfaces,
	}
	switch t.Kind {
	case TypeKindObject:
		def.Kind = ast.Object
	case TypeKindInterface:
		def.Kind = ast.Interface
	case TypeKindUnion:
		def.Kind = ast.Union
		def.Types = t.PossibleTypes
	case TypeKindEnum:
		def.Kind = ast.Enum
		for _, v := range t.EnumValues {
			def.EnumValues = append(def.EnumValues, &ast.EnumValueDefinition{
				Name:        v.Name,
				Description: v.Description,
				Directives:  deprecated(v.IsDeprecated, v.DeprecationReason),
			})
		}
	case TypeKindInputObject:
		def.Kind = ast.InputObject
		if t.OneOf {
			def.Directives = append(def.Directives, &ast.Directive{Name: "oneOf"})
		}
		for _, in := range t.InputFields {
			a := s.argument(in)
			def.Fields = append(def.Fields, &ast.FieldDefinition{
				Name:         a.Name,
				Description:  a.Description,
				Type:         a.Type,
				DefaultValue: a.DefaultValue,
				Directives:   a.Directives,
			})
		}
	default:
		def.Kind = ast.Scalar
		if t.SpecifiedByURL != nil {
			def.Directives = append(def.Directives, &ast.Directive{
				Name:      "specifiedBy",
				Arguments: ast.ArgumentList{{Name: "url", Value: &ast.Value{Kind: ast.StringValue, Raw: *t.SpecifiedByURL}}},
			})
		}
	}
	if t.Kind == TypeKindObject || t.Kind == TypeKindInterface {
		for _, f := range t.Fields {
			fd := &ast.FieldDefinition{
				Name:        f.Name,
				Description: f.Description,
				Type:        astType(f.Type),
				Directives:  deprecated(f.IsDeprecated, f.DeprecationReason),
			}
			for _, a := range f.Arguments {
				fd.Arguments = append(fd.Arguments, s.argument(a))
			}
			def.Fields = append(def.Fields, fd)
		}
	}
	return def
}

func (s *Schema) argument(in *InputValue) *ast.ArgumentDefinition {
	a := &ast.ArgumentDefinition{
		Name:        in.Name,
		Description: in.Description,
		Type:        astType(in.Type),
		Directives:  deprecated(in.IsDeprecated, in.DeprecationReason),
	}
	if in.DefaultValue != nil {
		a.DefaultValue = s.value(in.DefaultValue, in.Type)
	}
	return a
}

func deprecated(is bool, reason string) ast.DirectiveList {
	if !is {
		return nil
	}
	return ast.DirectiveList{{
		Name:      "deprecated",
		Arguments: ast.ArgumentList{{Name: "reason", Value: &ast.Value{Kind: ast.StringValue, Raw: reason}}},
	}}
}

func astType(t *TypeRef) *ast.Type {
	switch t.Kind {
	case TypeRefKindNonNull:
		inner := astType(t.OfType)
		inner.NonNull = true
		return inner
	case TypeRefKindList:
		return &ast.Type{Elem: astType(t.OfType)}
	default:
		return &ast.Type{NamedType: t.Named}
	}
}

// value converts a default value back to a literal. typ decides whether a
// string is an enum value and which fields an object value has.
func (s *Schema) value(v any, typ *TypeRef) *ast.Value {
	named := s.Types[typ.GetNamedType()]
	switch v := v.(type) {
	case nil:
		return &ast.Value{Kind: ast.NullValue, Raw: "null"}
	case string:
		if named != nil && named.Kind == TypeKindEnum {
			return &ast.Value{Kind: ast.EnumValue, Raw: v}
		}
		return &ast.Value{Kind: ast.StringValue, Raw: v}
	case bool:
		return &ast.Value{Kind: ast.BooleanValue, Raw: strconv.FormatBool(v)}
	case int:
		return &ast.Value{Kind: ast.IntValue, Raw: strconv.Itoa(v)}
	case float64:
		return &ast.Value{Kind: ast.FloatValue, Raw: strconv.FormatFloat(v, 'g', -1, 64)}
	case []any:
		elem := typ
		for elem.Kind == TypeRefKindNonNull {
			elem = elem.OfType
		}
		if elem.Kind == TypeRefKindList {
			elem = elem.OfType
		}
		out := &ast.Value{Kind: ast.ListValue}
		for _, item := range v {
			out.Children = append(out.Children, &ast.ChildValue{Value: s.value(item, elem)})
		}
		return out
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := &ast.Value{Kind: ast.ObjectValue}
		for _, k := range keys {
			fieldType := NamedType("String")
			if named != nil {
				if in := named.InputField(k); in != nil {
					fieldType = in.Type
				}
			}
			out.Children = append(out.Children, &ast.ChildValue{Name: k, Value: s.value(v[k], fieldType)})
		}
		return out
	default:
		return &ast.Value{Kind: ast.StringValue, Raw: fmt.Sprint(v)}
	}
}

// DefaultLiteral returns the default value of in as GraphQL literal text, or
// nil when in has no default.
func (s *Schema) DefaultLiteral(in *InputValue) *string {
	if in.DefaultValue == nil {
		return nil
	}
	text := s.value(in.DefaultValue, in.Type).String()
	return &text
}
