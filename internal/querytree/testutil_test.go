package querytree

import (
	"fmt"
	"strings"
	"testing"

	"github.com/hanpama/fedgraph/internal/language"
	"github.com/hanpama/fedgraph/internal/schema"
)

const globalSDL = `
type Query {
  partners(first: Int, order: Order): [Partner!]!
  partner(name: String!): Partner
  version: String
}

type Mutation {
  rename(from: String!, to: String!): Partner
}

enum Order { ASC DESC }

type Partner {
  name: String!
  purchases: [Purchase!]!
  worksAt: String
}

type Purchase {
  item: String!
  amount: Float!
}
`

const employeesSDL = `
type Query {
  employees: [Employee!]!
  employee(name: String, id: ID): Employee
}

type Employee {
  firstname: String!
  lastname: String!
  company: String
}
`

func mustSchema(t *testing.T, sdl string) *schema.Schema {
	t.Helper()
	s, err := schema.BuildFromSDL(sdl)
	if err != nil {
		t.Fatalf("schema error: %v", err)
	}
	return s
}

func mustBuild(t *testing.T, s *schema.Schema, query string, vars map[string]any) *Tree {
	t.Helper()
	doc, err := language.ParseQuery(query)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	tree, errs := Build(s, doc, "", vars)
	if len(errs) > 0 {
		t.Fatalf("build errors: %v", errs)
	}
	return tree
}

// shape renders a tree compactly: label:field(args){children}.
func shape(t *Tree) string {
	var sb strings.Builder
	var visit func(id NodeID)
	visit = func(id NodeID) {
		n := t.Node(id)
		if n.Label != n.Field {
			sb.WriteString(n.Label + ":")
		}
		sb.WriteString(n.Field)
		if len(n.Arguments) > 0 {
			sb.WriteString("(")
			for i, a := range n.Arguments {
				if i > 0 {
					sb.WriteString(",")
				}
				fmt.Fprintf(&sb, "%s:%v", a.Name, a.Value)
			}
			sb.WriteString(")")
		}
		if len(n.Children) > 0 {
			sb.WriteString("{")
			for i, c := range n.Children {
				if i > 0 {
					sb.WriteString(" ")
				}
				visit(c)
			}
			sb.WriteString("}")
		}
	}
	for i, r := range t.Roots {
		if i > 0 {
			sb.WriteString(" ")
		}
		visit(r.Node)
	}
	return sb.String()
}

type fakeEmbedding struct {
	local  *schema.Schema
	types  map[string]string
	fields map[string]string
	keys   map[string][]string
}

func (e *fakeEmbedding) FieldImage(owner, field string) (*schema.Field, string, bool) {
	localOwner, ok := e.types[owner]
	if !ok {
		return nil, "", false
	}
	name, ok := e.fields[owner+"."+field]
	if !ok {
		return nil, "", false
	}
	def := e.local.LookupField(localOwner, name)
	return def, localOwner, def != nil
}

func (e *fakeEmbedding) ArgumentImage(owner, field, arg string) (*schema.InputValue, bool) {
	def, _, ok := e.FieldImage(owner, field)
	if !ok {
		return nil, false
	}
	a := def.Argument(arg)
	return a, a != nil
}

func (e *fakeEmbedding) KeyFields(globalType string) []*schema.Field {
	var out []*schema.Field
	for _, name := range e.keys[globalType] {
		out = append(out, e.local.LookupField(e.types[globalType], name))
	}
	return out
}

func employees(t *testing.T) *fakeEmbedding {
	return &fakeEmbedding{
		local: mustSchema(t, employeesSDL),
		types: map[string]string{"Query": "Query", "Partner": "Employee"},
		fields: map[string]string{
			"Query.partners":  "employees",
			"Query.partner":   "employee",
			"Partner.worksAt": "company",
		},
		keys: map[string][]string{"Partner": {"firstname", "lastname"}},
	}
}
