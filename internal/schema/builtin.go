package schema

// builtinScalars are part of every schema. They are shared between schemas
// and must not be modified.
var builtinScalars = []*Type{
	NewType("String", TypeKindScalar, "The `String` scalar type represents textual data, represented as UTF-8 character sequences."),
	NewType("Int", TypeKindScalar, "The `Int` scalar type represents non-fractional signed whole numeric values."),
	NewType("Float", TypeKindScalar, "The `Float` scalar type represents signed double-precision fractional values."),
	NewType("Boolean", TypeKindScalar, "The `Boolean` scalar type represents `true` or `false`."),
	NewType("ID", TypeKindScalar, "The `ID` scalar type represents a unique identifier, often used to refetch an object or as a key for caching."),
}

// builtinDirectives are the directives the query tree builder evaluates.
var builtinDirectives = []*Directive{
	conditionDirective("include", "Directs the executor to include this field or fragment only when the `if` argument is true.", "Included when true."),
	conditionDirective("skip", "Directs the executor to skip this field or fragment when the `if` argument is true.", "Skipped when true."),
}

func conditionDirective(name, description, ifDescription string) *Directive {
	d := NewDirective(name, description).
		AddArgument(NewInputValue("if", ifDescription, NonNullType(NamedType("Boolean"))))
	d.Locations = []string{"FIELD", "FRAGMENT_SPREAD", "INLINE_FRAGMENT"}
	return d
}

func isBuiltin(name string) bool {
	for _, t := range builtinScalars {
		if t.Name == name {
			return true
		}
	}
	return false
}

func isBuiltinDirective(name string) bool {
	for _, d := range builtinDirectives {
		if d.Name == name {
			return true
		}
	}
	return false
}
