package querytree

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/hanpama/fedgraph/internal/language"
	"github.com/hanpama/fedgraph/internal/schema"
)

// coerceVariableValues coerces the provided variables against the operation's
// variable definitions. Missing required variables are reported.
func (b *builder) coerceVariableValues(op *language.OperationDefinition) map[string]any {
	provided := b.variables
	if provided == nil {
		provided = map[string]any{}
	}
	coerced := make(map[string]any, len(op.VariableDefinitions))
	for _, varDef := range op.VariableDefinitions {
		name := varDef.Variable
		t := varDef.Type
		val, ok := provided[name]
		if !ok {
			if varDef.DefaultValue != nil {
				val = language.ValueToGo(varDef.DefaultValue, nil)
			} else if t.NonNull {
				b.errorf(varDef.Position, nil, "Variable \"$%s\" of required type %q was not provided.", name, t.String())
				continue
			} else {
				continue
			}
		}
		if val == nil && t.NonNull {
			b.errorf(varDef.Position, nil, "Variable \"$%s\" of non-null type %q must not be null.", name, t.String())
			continue
		}
		cv, err := b.coerceValue(val, typeRefFromAST(t))
		if err != nil {
			b.errorf(varDef.Position, nil, "Variable \"$%s\" got invalid value: %v.", name, err)
			continue
		}
		coerced[name] = cv
	}
	return coerced
}

// coerceArguments resolves the arguments of one field selection. Only
// arguments present in the query become Argument edges; defaults stay with the
// source that owns the field.
func (b *builder) coerceArguments(def *schema.Field, field *language.Field, path []string) ([]Argument, bool) {
	ok := true
	args := make([]Argument, 0, len(field.Arguments))
	for _, arg := range field.Arguments {
		argDef := def.Argument(arg.Name)
		if argDef == nil {
			b.errorf(arg.Position, path, "Unknown argument %q on field %q.", arg.Name, def.Name)
			ok = false
			continue
		}
		if arg.Value != nil && arg.Value.Kind == language.Variable {
			if _, provided := b.variables[arg.Value.Raw]; !provided {
				if schema.IsNonNull(argDef.Type) && argDef.DefaultValue == nil {
					b.errorf(arg.Position, path, "Argument %q of required type %q was provided the variable \"$%s\" which was not provided a runtime value.", arg.Name, typeString(argDef.Type), arg.Value.Raw)
					ok = false
				}
				continue
			}
		}
		cv, err := b.coerceValue(language.ValueToGo(arg.Value, b.variables), argDef.Type)
		if err != nil {
			b.errorf(arg.Position, path, "Argument %q has invalid value: %v.", arg.Name, err)
			ok = false
			continue
		}
		args = append(args, Argument{Name: argDef.Name, Typing: argDef, Value: cv, Index: -1})
	}
	for _, argDef := range def.Arguments {
		if schema.IsNonNull(argDef.Type) && argDef.DefaultValue == nil && field.Arguments.ForName(argDef.Name) == nil {
			b.errorf(field.Position, path, "Field %q argument %q of type %q is required, but it was not provided.", def.Name, argDef.Name, typeString(argDef.Type))
			ok = false
		}
	}
	return args, ok
}

// coerceValue coerces a value to the specified GraphQL input type
func (b *builder) coerceValue(value any, targetType *schema.TypeRef) (any, error) {
	if schema.IsNonNull(targetType) {
		if value == nil {
			return nil, fmt.Errorf("cannot provide null for non-null type")
		}
		return b.coerceValue(value, schema.Unwrap(targetType))
	}
	if value == nil {
		return nil, nil
	}
	if targetType.Kind == schema.TypeRefKindList {
		return b.coerceListValue(value, targetType)
	}

	namedType := targetType.GetNamedType()
	switch namedType {
	case "Int":
		return coerceToInt(value)
	case "Float":
		return coerceToFloat(value)
	case "String":
		return coerceToString(value)
	case "Boolean":
		return coerceToBoolean(value)
	case "ID":
		return coerceToID(value)
	}

	t := b.schema.Types[namedType]
	if t == nil {
		return nil, fmt.Errorf("unknown type %s", namedType)
	}
	switch t.Kind {
	case schema.TypeKindEnum:
		return coerceToEnum(value, t)
	case schema.TypeKindInputObject:
		return b.coerceInputObject(value, t)
	case schema.TypeKindScalar:
		return value, nil
	}
	return nil, fmt.Errorf("%s is not an input type", namedType)
}

func (b *builder) coerceListValue(value any, listType *schema.TypeRef) (any, error) {
	inner := schema.Unwrap(listType)
	if slice, ok := value.([]any); ok {
		out := make([]any, len(slice))
		for i, item := range slice {
			cv, err := b.coerceValue(item, inner)
			if err != nil {
				return nil, err
			}
			out[i] = cv
		}
		return out, nil
	}
	// Single value becomes a list of one
	cv, err := b.coerceValue(value, inner)
	if err != nil {
		return nil, err
	}
	return []any{cv}, nil
}

func (b *builder) coerceInputObject(value any, t *schema.Type) (any, error) {
	m, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected an object for %s, got %T", t.Name, value)
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make(map[string]any, len(m))
	for _, k := range keys {
		fieldDef := t.InputField(k)
		if fieldDef == nil {
			return nil, fmt.Errorf("field %q is not defined by type %s", k, t.Name)
		}
		cv, err := b.coerceValue(m[k], fieldDef.Type)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", t.Name, k, err)
		}
		out[k] = cv
	}
	for _, fieldDef := range t.InputFields {
		if _, present := m[fieldDef.Name]; !present && schema.IsNonNull(fieldDef.Type) && fieldDef.DefaultValue == nil {
			return nil, fmt.Errorf("field %s.%s of required type %s was not provided", t.Name, fieldDef.Name, typeString(fieldDef.Type))
		}
	}
	return out, nil
}

func coerceToInt(value any) (any, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case float64:
		if v == float64(int(v)) {
			return int(v), nil
		}
	case string:
		if iv, err := strconv.Atoi(v); err == nil {
			return iv, nil
		}
	}
	return nil, fmt.Errorf("cannot coerce %v (%T) to Int", value, value)
}

func coerceToFloat(value any) (any, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		if fv, err := strconv.ParseFloat(v, 64); err == nil {
			return fv, nil
		}
	}
	return nil, fmt.Errorf("cannot coerce %v (%T) to Float", value, value)
}

func coerceToString(value any) (any, error) {
	if v, ok := value.(string); ok {
		return v, nil
	}
	return nil, fmt.Errorf("cannot coerce %v (%T) to String", value, value)
}

func coerceToBoolean(value any) (any, error) {
	if v, ok := value.(bool); ok {
		return v, nil
	}
	return nil, fmt.Errorf("cannot coerce %v (%T) to Boolean", value, value)
}

func coerceToID(value any) (any, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10), nil
		}
	}
	return nil, fmt.Errorf("cannot coerce %v (%T) to ID", value, value)
}

func coerceToEnum(value any, t *schema.Type) (any, error) {
	var name string
	switch v := value.(type) {
	case string:
		name = v
	case Enum:
		name = string(v)
	default:
		return nil, fmt.Errorf("cannot coerce %v (%T) to %s", value, value, t.Name)
	}
	for _, ev := range t.EnumValues {
		if ev.Name == name {
			return Enum(name), nil
		}
	}
	return nil, fmt.Errorf("value %q does not exist in enum %s", name, t.Name)
}

func typeRefFromAST(t *language.Type) *schema.TypeRef {
	var ref *schema.TypeRef
	if t.Elem != nil {
		ref = schema.ListType(typeRefFromAST(t.Elem))
	} else {
		ref = schema.NamedType(t.NamedType)
	}
	if t.NonNull {
		ref = schema.NonNullType(ref)
	}
	return ref
}

func typeString(t *schema.TypeRef) string {
	switch t.Kind {
	case schema.TypeRefKindNonNull:
		return typeString(t.OfType) + "!"
	case schema.TypeRefKindList:
		return "[" + typeString(t.OfType) + "]"
	}
	return t.Named
}
