package federation

import (
	"github.com/hanpama/fedgraph/internal/querytree"
	"github.com/hanpama/fedgraph/internal/schema"
)

type fieldKey struct {
	owner string
	field string
}

type argKey struct {
	owner string
	field string
	arg   string
}

// Embedding maps elements of the global schema onto one source's local schema.
// It is built once at startup and read concurrently afterwards.
type Embedding struct {
	Name  string
	Local *schema.Schema

	types     map[string]string
	fields    map[fieldKey]string
	args      map[argKey]string
	keyFields map[string][]*schema.Field
}

var _ querytree.Embedding = (*Embedding)(nil)

func NewEmbedding(name string, local *schema.Schema) *Embedding {
	return &Embedding{
		Name:      name,
		Local:     local,
		types:     make(map[string]string),
		fields:    make(map[fieldKey]string),
		args:      make(map[argKey]string),
		keyFields: make(map[string][]*schema.Field),
	}
}

// MapType declares local as the image of the global type.
func (e *Embedding) MapType(global, local string) *Embedding {
	e.types[global] = local
	return e
}

// MapField declares localField (on the image of owner) as the image of owner.field.
func (e *Embedding) MapField(owner, field, localField string) *Embedding {
	e.fields[fieldKey{owner, field}] = localField
	return e
}

// UnmapField removes the image of owner.field.
func (e *Embedding) UnmapField(owner, field string) *Embedding {
	delete(e.fields, fieldKey{owner, field})
	return e
}

// MapArgument declares localArg as the image of an argument of owner.field.
func (e *Embedding) MapArgument(owner, field, arg, localArg string) *Embedding {
	e.args[argKey{owner, field, arg}] = localArg
	return e
}

// MapSameNames maps global to local and every field of global whose name also
// exists on local, including same-named arguments.
func (e *Embedding) MapSameNames(global *schema.Schema, globalType, localType string) *Embedding {
	e.MapType(globalType, localType)
	gt, lt := global.Types[globalType], e.Local.Types[localType]
	if gt == nil || lt == nil {
		return e
	}
	for _, f := range gt.Fields {
		lf := lt.Field(f.Name)
		if lf == nil {
			continue
		}
		e.MapField(globalType, f.Name, lf.Name)
		for _, a := range f.Arguments {
			if lf.Argument(a.Name) != nil {
				e.MapArgument(globalType, f.Name, a.Name, a.Name)
			}
		}
	}
	return e
}

// TypeImage returns the local image of a global type.
func (e *Embedding) TypeImage(global string) (string, bool) {
	local, ok := e.types[global]
	return local, ok
}

// FieldImage returns the local field definition that images owner.field, along
// with the local type declaring it.
func (e *Embedding) FieldImage(owner, field string) (*schema.Field, string, bool) {
	localOwner, ok := e.types[owner]
	if !ok {
		return nil, "", false
	}
	name, ok := e.fields[fieldKey{owner, field}]
	if !ok {
		return nil, "", false
	}
	def := e.Local.LookupField(localOwner, name)
	if def == nil {
		return nil, "", false
	}
	return def, localOwner, true
}

// ArgumentImage returns the local argument definition that images an argument
// of owner.field.
func (e *Embedding) ArgumentImage(owner, field, arg string) (*schema.InputValue, bool) {
	def, _, ok := e.FieldImage(owner, field)
	if !ok {
		return nil, false
	}
	name, ok := e.args[argKey{owner, field, arg}]
	if !ok {
		return nil, false
	}
	a := def.Argument(name)
	return a, a != nil
}

// KeyFields returns the local fields this source selects on values of
// globalType so that identity keys can be evaluated.
func (e *Embedding) KeyFields(globalType string) []*schema.Field {
	return e.keyFields[globalType]
}

func (e *Embedding) addKeyField(globalType string, f *schema.Field) {
	for _, existing := range e.keyFields[globalType] {
		if existing == f {
			return
		}
	}
	e.keyFields[globalType] = append(e.keyFields[globalType], f)
}
