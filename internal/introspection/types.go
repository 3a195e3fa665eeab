package introspection

import (
	"maps"
	"slices"
	"strings"

	"github.com/hanpama/fedgraph/internal/schema"
)

const typesSDL = `
schema { query: __Schema }

type __Schema {
  description: String
  types: [__Type!]!
  queryType: __Type!
  mutationType: __Type
  subscriptionType: __Type
  directives: [__Directive!]!
}

type __Type {
  kind: __TypeKind!
  name: String
  description: String
  specifiedByURL: String
  fields(includeDeprecated: Boolean = false): [__Field!]
  interfaces: [__Type!]
  possibleTypes: [__Type!]
  enumValues(includeDeprecated: Boolean = false): [__EnumValue!]
  inputFields(includeDeprecated: Boolean = false): [__InputValue!]
  ofType: __Type
  isOneOf: Boolean
}

enum __TypeKind { SCALAR OBJECT INTERFACE UNION ENUM INPUT_OBJECT LIST NON_NULL }

type __Field {
  name: String!
  description: String
  args(includeDeprecated: Boolean = false): [__InputValue!]!
  type: __Type!
  isDeprecated: Boolean!
  deprecationReason: String
}

type __InputValue {
  name: String!
  description: String
  type: __Type!
  defaultValue: String
  isDeprecated: Boolean!
  deprecationReason: String
}

type __EnumValue {
  name: String!
  description: String
  isDeprecated: Boolean!
  deprecationReason: String
}

type __Directive {
  name: String!
  description: String
  locations: [__DirectiveLocation!]!
  args(includeDeprecated: Boolean = false): [__InputValue!]!
  isRepeatable: Boolean!
}

enum __DirectiveLocation {
  QUERY MUTATION SUBSCRIPTION FIELD FRAGMENT_DEFINITION FRAGMENT_SPREAD INLINE_FRAGMENT
  VARIABLE_DEFINITION SCHEMA SCALAR OBJECT FIELD_DEFINITION ARGUMENT_DEFINITION INTERFACE
  UNION ENUM ENUM_VALUE INPUT_OBJECT INPUT_FIELD_DEFINITION
}
`

var metaTypes = func() map[string]*schema.Type {
	s, err := schema.Load("introspection.graphql", typesSDL)
	if err != nil {
		panic(err)
	}
	out := map[string]*schema.Type{}
	for name, t := range s.Types {
		if strings.HasPrefix(name, "__") {
			out[name] = t
		}
	}
	return out
}()

var (
	schemaField = schema.NewField("__schema", "Access the current type schema of this server.",
		schema.NonNullType(schema.NamedType("__Schema")))
	typeField = schema.NewField("__type", "Request the type information of a single type.",
		schema.NamedType("__Type")).
		AddArgument(schema.NewInputValue("name", "The name of the type to look up.",
			schema.NonNullType(schema.NamedType("String"))))
)

// Extend returns a copy of s that also holds the introspection types and
// whose query type offers __schema and __type. s is not modified.
func Extend(s *schema.Schema) *schema.Schema {
	ext := *s
	ext.Types = make(map[string]*schema.Type, len(s.Types)+len(metaTypes))
	maps.Copy(ext.Types, s.Types)
	maps.Copy(ext.Types, metaTypes)
	if q := s.GetQueryType(); q != nil {
		query := *q
		query.Fields = append(slices.Clip(q.Fields), schemaField, typeField)
		ext.Types[q.Name] = &query
	}
	return &ext
}

// IsMeta reports whether name is one of the fields Extend adds.
func IsMeta(name string) bool {
	return name == schemaField.Name || name == typeField.Name
}
