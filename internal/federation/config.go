package federation

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"github.com/hanpama/fedgraph/internal/schema"
)

// Config is the on-disk description of a federation.
//
//	schema: global.graphql
//	sources:
//	  - name: customers
//	    url: http://customers:8080/graphql
//	    schema: customers.graphql
//	    types:
//	      Query: {fields: {partners: customers}}
//	      Partner: {as: Customer}
//	keys:
//	  Partner:
//	    - name: byName
//	      rules:
//	        customers: {fields: [name]}
//	        suppliers: {fields: [name]}
type Config struct {
	Schema  string                 `yaml:"schema" validate:"required"`
	Sources []SourceConfig         `yaml:"sources" validate:"required,min=1,dive"`
	Keys    map[string][]KeyConfig `yaml:"keys" validate:"dive,dive"`
}

type SourceConfig struct {
	Name    string                `yaml:"name" validate:"required"`
	URL     string                `yaml:"url" validate:"omitempty,url"`
	Schema  string                `yaml:"schema" validate:"required"`
	Headers []string              `yaml:"headers"`
	Timeout time.Duration         `yaml:"timeout" validate:"gte=0"`
	Retries int                   `yaml:"retries" validate:"gte=0"`
	Auto    bool                  `yaml:"auto"`
	Types   map[string]TypeConfig `yaml:"types" validate:"dive"`
}

// TypeConfig embeds one global type into a source. Same-named fields are
// mapped unless excluded; Fields adds or overrides mappings.
type TypeConfig struct {
	As        string            `yaml:"as"`
	Fields    map[string]string `yaml:"fields"`
	Arguments map[string]string `yaml:"arguments"`
	Exclude   []string          `yaml:"exclude"`
}

type KeyConfig struct {
	Name  string                `yaml:"name" validate:"required"`
	Rules map[string]RuleConfig `yaml:"rules" validate:"required,min=1,dive"`
}

type RuleConfig struct {
	Fields    []string `yaml:"fields" validate:"required,min=1,dive,required"`
	Separator string   `yaml:"separator"`
}

// LoadConfig reads a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes and validates YAML configuration.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	seen := make(map[string]bool)
	for _, s := range cfg.Sources {
		if seen[s.Name] {
			return nil, fmt.Errorf("invalid config: source %q declared twice", s.Name)
		}
		seen[s.Name] = true
	}
	return &cfg, nil
}

// Source returns the configuration of the named source, or nil.
func (c *Config) Source(name string) *SourceConfig {
	for i := range c.Sources {
		if c.Sources[i].Name == name {
			return &c.Sources[i]
		}
	}
	return nil
}

// Load builds the federation map of a configuration file. Schema paths are
// resolved relative to the file's directory.
func Load(path string) (*Config, *Map, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, nil, err
	}
	m, err := Build(cfg, os.DirFS(filepath.Dir(path)))
	if err != nil {
		return nil, nil, err
	}
	return cfg, m, nil
}

// Build loads every schema referenced by cfg from fsys and assembles the map.
// All embedding and key problems are reported together.
func Build(cfg *Config, fsys fs.FS) (*Map, error) {
	global, err := loadSchema(fsys, cfg.Schema)
	if err != nil {
		return nil, err
	}
	m := NewMap(global)

	var errs *multierror.Error
	for _, sc := range cfg.Sources {
		local, err := loadSchema(fsys, sc.Schema)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("source %s: %w", sc.Name, err))
			continue
		}
		e, err := embed(global, local, sc)
		if err != nil {
			errs = multierror.Append(errs, err)
		}
		if err := m.AddSource(e); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}

	for _, typeName := range sortedKeys(cfg.Keys) {
		for _, kc := range cfg.Keys[typeName] {
			k := NewKey(typeName, kc.Name)
			for _, source := range sortedKeys(kc.Rules) {
				rule := kc.Rules[source]
				k.WithRule(source, rule.Fields, rule.Separator)
			}
			if err := m.AddKey(k); err != nil {
				errs = multierror.Append(errs, err)
			}
		}
	}
	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	return m, nil
}

func loadSchema(fsys fs.FS, name string) (*schema.Schema, error) {
	sdl, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	return schema.Load(name, string(sdl))
}

// embed builds the embedding of one source. Root operation types are always
// mapped by role; with Auto every same-named type is mapped as well.
func embed(global, local *schema.Schema, sc SourceConfig) (*Embedding, error) {
	e := NewEmbedding(sc.Name, local)
	explicit := make(map[fieldKey]bool)
	var errs *multierror.Error

	roots := [][2]string{
		{global.QueryType, local.QueryType},
		{global.MutationType, local.MutationType},
	}
	for _, r := range roots {
		if r[0] == "" || r[1] == "" || global.Types[r[0]] == nil || local.Types[r[1]] == nil {
			continue
		}
		if _, configured := sc.Types[r[0]]; configured {
			continue
		}
		e.MapSameNames(global, r[0], r[1])
	}

	if sc.Auto {
		for _, name := range sortedKeys(global.Types) {
			gt := global.Types[name]
			lt := local.Types[name]
			if lt == nil || lt.Kind != gt.Kind || isRoot(global, name) {
				continue
			}
			if _, configured := sc.Types[name]; configured {
				continue
			}
			if gt.Kind == schema.TypeKindObject || gt.Kind == schema.TypeKindInterface {
				e.MapSameNames(global, name, name)
			} else {
				e.MapType(name, name)
			}
		}
	}

	for _, name := range sortedKeys(sc.Types) {
		tc := sc.Types[name]
		if global.Types[name] == nil {
			errs = multierror.Append(errs, fmt.Errorf("source %s: unknown global type %s", sc.Name, name))
			continue
		}
		localName := tc.As
		if localName == "" {
			localName = name
			if isRoot(global, name) {
				localName = localRoot(global, local, name)
			}
		}
		lt := local.Types[localName]
		if lt == nil {
			errs = multierror.Append(errs, fmt.Errorf("source %s: unknown local type %s", sc.Name, localName))
			continue
		}
		e.MapSameNames(global, name, localName)
		for _, gf := range sortedKeys(tc.Fields) {
			lf := tc.Fields[gf]
			if global.LookupField(name, gf) == nil {
				errs = multierror.Append(errs, fmt.Errorf("source %s: unknown global field %s.%s", sc.Name, name, gf))
				continue
			}
			def := lt.Field(lf)
			if def == nil {
				errs = multierror.Append(errs, fmt.Errorf("source %s: unknown local field %s.%s", sc.Name, localName, lf))
				continue
			}
			e.MapField(name, gf, lf)
			explicit[fieldKey{name, gf}] = true
			for _, a := range global.LookupField(name, gf).Arguments {
				if def.Argument(a.Name) != nil {
					e.MapArgument(name, gf, a.Name, a.Name)
				}
			}
		}
		for _, excluded := range tc.Exclude {
			e.UnmapField(name, excluded)
		}
		for _, qualified := range sortedKeys(tc.Arguments) {
			field, arg, ok := strings.Cut(qualified, ".")
			if !ok {
				errs = multierror.Append(errs, fmt.Errorf("source %s: argument mapping %q must be field.argument", sc.Name, qualified))
				continue
			}
			e.MapArgument(name, field, arg, tc.Arguments[qualified])
			if _, ok := e.ArgumentImage(name, field, arg); !ok {
				errs = multierror.Append(errs, fmt.Errorf("source %s: argument %s.%s(%s:) has no local image", sc.Name, name, field, arg))
			}
		}
	}

	// Same-named fields mapped implicitly are dropped when their return type
	// is not embedded; explicit mappings must be consistent.
	for _, name := range sortedKeys(global.Types) {
		if _, ok := e.TypeImage(name); !ok {
			continue
		}
		for _, gf := range global.Types[name].Fields {
			if !explicit[fieldKey{name, gf.Name}] && checkField(global, e, name, gf) != nil {
				e.UnmapField(name, gf.Name)
			}
		}
	}
	if err := Check(global, e); err != nil {
		errs = multierror.Append(errs, err)
	}
	return e, errs.ErrorOrNil()
}

// Check verifies that e preserves structure: a mapped composite field must
// return the image of its global return type, and leaf fields must return a
// leaf.
func Check(global *schema.Schema, e *Embedding) error {
	var errs *multierror.Error
	for _, name := range sortedKeys(global.Types) {
		gt := global.Types[name]
		if _, ok := e.TypeImage(name); !ok {
			continue
		}
		for _, gf := range gt.Fields {
			if err := checkField(global, e, name, gf); err != nil {
				errs = multierror.Append(errs, err)
			}
		}
	}
	return errs.ErrorOrNil()
}

func checkField(global *schema.Schema, e *Embedding, owner string, gf *schema.Field) error {
	lf, _, ok := e.FieldImage(owner, gf.Name)
	if !ok {
		return nil
	}
	gNamed, lNamed := gf.Type.GetNamedType(), lf.Type.GetNamedType()
	gComposite, lComposite := global.IsComposite(gNamed), e.Local.IsComposite(lNamed)
	switch {
	case gComposite != lComposite:
		return fmt.Errorf("source %s: %s.%s maps %s onto %s", e.Name, owner, gf.Name, gNamed, lNamed)
	case gComposite:
		if image, ok := e.TypeImage(gNamed); !ok || image != lNamed {
			return fmt.Errorf("source %s: %s.%s returns %s, which is not embedded as %s", e.Name, owner, gf.Name, gNamed, lNamed)
		}
	}
	return nil
}

func isRoot(s *schema.Schema, name string) bool {
	return name == s.QueryType || name == s.MutationType || name == s.SubscriptionType
}

func localRoot(global, local *schema.Schema, name string) string {
	switch name {
	case global.QueryType:
		return local.QueryType
	case global.MutationType:
		return local.MutationType
	}
	return local.SubscriptionType
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
