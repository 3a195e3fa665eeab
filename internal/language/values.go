package language

import (
	"strconv"
	"strings"
)

// ValueToGo converts an AST value to a plain Go value. Variables are looked up
// in vars (with or without the leading '$'); a missing variable yields nil.
func ValueToGo(value *Value, vars map[string]any) any {
	if value == nil {
		return nil
	}
	switch value.Kind {
	case Variable:
		if v, ok := vars[value.Raw]; ok {
			return v
		}
		if v, ok := vars[strings.TrimPrefix(value.Raw, "$")]; ok {
			return v
		}
		return nil
	case IntValue:
		if iv, err := strconv.ParseInt(value.Raw, 10, 64); err == nil {
			return int(iv)
		}
		fv, _ := strconv.ParseFloat(value.Raw, 64)
		return fv
	case FloatValue:
		fv, _ := strconv.ParseFloat(value.Raw, 64)
		return fv
	case StringValue, BlockValue, EnumValue:
		return value.Raw
	case BooleanValue:
		return value.Raw == "true"
	case NullValue:
		return nil
	case ListValue:
		out := make([]any, len(value.Children))
		for i, c := range value.Children {
			out[i] = ValueToGo(c.Value, vars)
		}
		return out
	case ObjectValue:
		m := make(map[string]any, len(value.Children))
		for _, f := range value.Children {
			m[f.Name] = ValueToGo(f.Value, vars)
		}
		return m
	default:
		return nil
	}
}
