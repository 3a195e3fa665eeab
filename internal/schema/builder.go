package schema

import (
	"fmt"

	"github.com/hanpama/fedgraph/internal/language"
)

func NewSchema(description string) *Schema {
	return &Schema{
		Types:       make(map[string]*Type),
		Directives:  make(map[string]*Directive),
		Description: description,
	}
}

func (s *Schema) SetQueryType(name string) *Schema        { s.QueryType = name; return s }
func (s *Schema) SetMutationType(name string) *Schema     { s.MutationType = name; return s }
func (s *Schema) SetSubscriptionType(name string) *Schema { s.SubscriptionType = name; return s }

func (s *Schema) AddType(t *Type) *Schema {
	s.Types[t.Name] = t
	return s
}

func (s *Schema) AddDirective(d *Directive) *Schema {
	s.Directives[d.Name] = d
	return s
}

func NewType(name string, kind TypeKind, description string) *Type {
	return &Type{Name: name, Kind: kind, Description: description}
}

func (t *Type) AddField(f *Field) *Type        { t.Fields = append(t.Fields, f); return t }
func (t *Type) AddInterface(name string) *Type { t.Interfaces = append(t.Interfaces, name); return t }
func (t *Type) AddPossibleType(name string) *Type {
	t.PossibleTypes = append(t.PossibleTypes, name)
	return t
}
func (t *Type) AddEnumValue(v *EnumValue) *Type    { t.EnumValues = append(t.EnumValues, v); return t }
func (t *Type) AddInputField(v *InputValue) *Type  { t.InputFields = append(t.InputFields, v); return t }
func (t *Type) SetOneOf(oneOf bool) *Type          { t.OneOf = oneOf; return t }
func (t *Type) SetSpecifiedByURL(url string) *Type { t.SpecifiedByURL = &url; return t }

func NewField(name, description string, typ *TypeRef) *Field {
	return &Field{Name: name, Description: description, Type: typ}
}

func (f *Field) AddArgument(v *InputValue) *Field { f.Arguments = append(f.Arguments, v); return f }
func (f *Field) Deprecate(reason string) *Field {
	f.IsDeprecated = true
	f.DeprecationReason = reason
	return f
}

func NewInputValue(name, description string, typ *TypeRef) *InputValue {
	return &InputValue{Name: name, Description: description, Type: typ}
}

func (v *InputValue) SetDefault(val any) *InputValue { v.DefaultValue = val; return v }
func (v *InputValue) Deprecate(reason string) *InputValue {
	v.IsDeprecated = true
	v.DeprecationReason = reason
	return v
}

func NewEnumValue(name, description string) *EnumValue {
	return &EnumValue{Name: name, Description: description}
}

func (e *EnumValue) Deprecate(reason string) *EnumValue {
	e.IsDeprecated = true
	e.DeprecationReason = reason
	return e
}

func NewDirective(name, description string) *Directive {
	return &Directive{Name: name, Description: description}
}

func (d *Directive) AddArgument(v *InputValue) *Directive {
	d.Arguments = append(d.Arguments, v)
	return d
}
func (d *Directive) SetRepeatable(r bool) *Directive { d.IsRepeatable = r; return d }

// BuildFromSDL parses one SDL source and returns the corresponding Schema.
func BuildFromSDL(sdl string) (*Schema, error) {
	return Load("schema.graphql", sdl)
}

// Load parses the SDL source named name and builds a Schema. Type extensions
// are merged into their base definitions. When the document carries no schema
// definition, the conventional root names Query, Mutation and Subscription are
// used if such types exist.
func Load(name, sdl string) (*Schema, error) {
	doc, err := language.ParseSchema(name, sdl)
	if err != nil {
		return nil, err
	}
	return BuildFromDocument(doc)
}

// BuildFromDocument builds a Schema from a parsed SDL document.
func BuildFromDocument(doc *language.SchemaDocument) (*Schema, error) {
	s := NewSchema("")
	for _, t := range builtinScalars {
		s.AddType(t)
	}
	for _, d := range builtinDirectives {
		s.AddDirective(d)
	}

	for _, def := range doc.Definitions {
		if _, dup := s.Types[def.Name]; dup && !isBuiltin(def.Name) {
			return nil, language.ErrorPosf(def.Position, "type %s is defined more than once", def.Name)
		}
		s.AddType(buildDefinition(def))
	}
	for _, ext := range doc.Extensions {
		t := s.Types[ext.Name]
		if t == nil {
			return nil, language.ErrorPosf(ext.Position, "cannot extend undefined type %s", ext.Name)
		}
		extendType(t, ext)
	}
	for _, dir := range doc.Directives {
		d := NewDirective(dir.Name, dir.Description).SetRepeatable(dir.IsRepeatable)
		for _, loc := range dir.Locations {
			d.Locations = append(d.Locations, string(loc))
		}
		for _, arg := range dir.Arguments {
			d.AddArgument(buildArgument(arg))
		}
		s.AddDirective(d)
	}

	for _, sd := range append(doc.Schema, doc.SchemaExtension...) {
		for _, ot := range sd.OperationTypes {
			switch ot.Operation {
			case language.Query:
				s.SetQueryType(ot.Type)
			case language.Mutation:
				s.SetMutationType(ot.Type)
			case language.Subscription:
				s.SetSubscriptionType(ot.Type)
			}
		}
	}
	if s.QueryType == "" && s.Types["Query"] != nil {
		s.SetQueryType("Query")
	}
	if s.MutationType == "" && s.Types["Mutation"] != nil {
		s.SetMutationType("Mutation")
	}
	if s.SubscriptionType == "" && s.Types["Subscription"] != nil {
		s.SetSubscriptionType("Subscription")
	}
	if s.QueryType == "" {
		return nil, fmt.Errorf("schema has no query type")
	}
	if err := checkReferences(s); err != nil {
		return nil, err
	}
	return s, nil
}

func buildDefinition(def *language.Definition) *Type {
	var t *Type
	switch def.Kind {
	case language.Object:
		t = NewType(def.Name, TypeKindObject, def.Description)
	case language.Interface:
		t = NewType(def.Name, TypeKindInterface, def.Description)
	case language.Union:
		t = NewType(def.Name, TypeKindUnion, def.Description)
	case language.Enum:
		t = NewType(def.Name, TypeKindEnum, def.Description)
	case language.InputObject:
		t = NewType(def.Name, TypeKindInputObject, def.Description)
		t.SetOneOf(def.Directives.ForName("oneOf") != nil)
	default:
		t = NewType(def.Name, TypeKindScalar, def.Description)
		if d := def.Directives.ForName("specifiedBy"); d != nil {
			if arg := d.Arguments.ForName("url"); arg != nil && arg.Value != nil {
				t.SetSpecifiedByURL(arg.Value.Raw)
			}
		}
	}
	extendType(t, def)
	return t
}

func extendType(t *Type, def *language.Definition) {
	for _, name := range def.Interfaces {
		t.AddInterface(name)
	}
	for _, name := range def.Types {
		t.AddPossibleType(name)
	}
	for _, v := range def.EnumValues {
		ev := NewEnumValue(v.Name, v.Description)
		if reason, ok := deprecation(v.Directives); ok {
			ev.Deprecate(reason)
		}
		t.AddEnumValue(ev)
	}
	for _, fd := range def.Fields {
		if t.Kind == TypeKindInputObject {
			in := NewInputValue(fd.Name, fd.Description, buildTypeRef(fd.Type)).
				SetDefault(language.ValueToGo(fd.DefaultValue, nil))
			t.AddInputField(in)
			continue
		}
		if len(fd.Name) > 1 && fd.Name[:2] == "__" {
			continue
		}
		f := NewField(fd.Name, fd.Description, buildTypeRef(fd.Type))
		if reason, ok := deprecation(fd.Directives); ok {
			f.Deprecate(reason)
		}
		for _, arg := range fd.Arguments {
			f.AddArgument(buildArgument(arg))
		}
		t.AddField(f)
	}
}

func buildArgument(arg *language.ArgumentDefinition) *InputValue {
	in := NewInputValue(arg.Name, arg.Description, buildTypeRef(arg.Type)).
		SetDefault(language.ValueToGo(arg.DefaultValue, nil))
	if reason, ok := deprecation(arg.Directives); ok {
		in.Deprecate(reason)
	}
	return in
}

func deprecation(dirs language.DirectiveList) (string, bool) {
	d := dirs.ForName("deprecated")
	if d == nil {
		return "", false
	}
	reason := "No longer supported"
	if arg := d.Arguments.ForName("reason"); arg != nil && arg.Value != nil {
		reason = arg.Value.Raw
	}
	return reason, true
}

func buildTypeRef(t *language.Type) *TypeRef {
	var ref *TypeRef
	if t.Elem != nil {
		ref = ListType(buildTypeRef(t.Elem))
	} else {
		ref = NamedType(t.NamedType)
	}
	if t.NonNull {
		ref = NonNullType(ref)
	}
	return ref
}

func checkReferences(s *Schema) error {
	for _, t := range s.Types {
		for _, f := range t.Fields {
			if s.Types[f.Type.GetNamedType()] == nil {
				return fmt.Errorf("field %s.%s has unknown type %s", t.Name, f.Name, f.Type.GetNamedType())
			}
			for _, a := range f.Arguments {
				if s.Types[a.Type.GetNamedType()] == nil {
					return fmt.Errorf("argument %s.%s(%s) has unknown type %s", t.Name, f.Name, a.Name, a.Type.GetNamedType())
				}
			}
		}
		for _, name := range t.PossibleTypes {
			if s.Types[name] == nil {
				return fmt.Errorf("union %s references unknown type %s", t.Name, name)
			}
		}
	}
	return nil
}
