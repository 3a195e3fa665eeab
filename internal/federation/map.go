// Package federation describes how the global schema is served by backend
// sources: one Embedding per source, in registration order, and the identity
// Keys used to recognise the same entity across sources.
package federation

import (
	"errors"
	"fmt"

	"github.com/hanpama/fedgraph/internal/schema"
)

// ErrNoSources is returned when a map has no registered source.
var ErrNoSources = errors.New("federation: no sources registered")

// Map is the process-wide, read-only federation description.
type Map struct {
	Global *schema.Schema

	sources []*Embedding
	byName  map[string]*Embedding
	keys    map[string][]*Key
}

func NewMap(global *schema.Schema) *Map {
	return &Map{
		Global: global,
		byName: make(map[string]*Embedding),
		keys:   make(map[string][]*Key),
	}
}

// AddSource registers e. Registration order fixes the order in which sources
// are queried and their rows are merged.
func (m *Map) AddSource(e *Embedding) error {
	if _, dup := m.byName[e.Name]; dup {
		return fmt.Errorf("federation: source %q registered twice", e.Name)
	}
	m.sources = append(m.sources, e)
	m.byName[e.Name] = e
	return nil
}

// Sources returns the embeddings in registration order.
func (m *Map) Sources() []*Embedding { return m.sources }

// Source returns the embedding of the named source, or nil.
func (m *Map) Source(name string) *Embedding { return m.byName[name] }

// SourceIndex returns the registration position of the named source, or -1.
func (m *Map) SourceIndex(name string) int {
	for i, e := range m.sources {
		if e.Name == name {
			return i
		}
	}
	return -1
}

// AddKey declares k on its type. Sources referenced by the key's rules must be
// registered first; the fields each rule reads are added to that source's
// selections for the type.
func (m *Map) AddKey(k *Key) error {
	if m.Global.Types[k.Type] == nil {
		return fmt.Errorf("federation: key %s declared on unknown type %s", k.Name, k.Type)
	}
	for _, existing := range m.keys[k.Type] {
		if existing.Name == k.Name {
			return fmt.Errorf("federation: key %s declared twice on %s", k.Name, k.Type)
		}
	}
	type keyField struct {
		e   *Embedding
		def *schema.Field
	}
	var fields []keyField
	for source, rule := range k.rules {
		e := m.byName[source]
		if e == nil {
			return fmt.Errorf("federation: key %s.%s references unknown source %s", k.Type, k.Name, source)
		}
		localType, ok := e.TypeImage(k.Type)
		if !ok {
			return fmt.Errorf("federation: key %s.%s: source %s does not embed %s", k.Type, k.Name, source, k.Type)
		}
		for _, f := range rule.Fields {
			def := e.Local.LookupField(localType, f)
			if def == nil {
				return fmt.Errorf("federation: key %s.%s: field %s.%s not found in source %s", k.Type, k.Name, localType, f, source)
			}
			if e.Local.IsComposite(def.Type.GetNamedType()) {
				return fmt.Errorf("federation: key %s.%s: field %s.%s of source %s is not a leaf", k.Type, k.Name, localType, f, source)
			}
			fields = append(fields, keyField{e, def})
		}
	}
	for _, kf := range fields {
		kf.e.addKeyField(k.Type, kf.def)
	}
	m.keys[k.Type] = append(m.keys[k.Type], k)
	return nil
}

// Keys returns the keys declared on a global type.
func (m *Map) Keys(typeName string) []*Key { return m.keys[typeName] }

// HasKey reports whether the global type declares at least one key.
func (m *Map) HasKey(typeName string) bool { return len(m.keys[typeName]) > 0 }
