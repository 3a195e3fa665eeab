// Package merge assembles the responses of several sources into the answer
// to one global query.
//
// An Engine holds a tree of cursors shaped after the global query tree. Each
// cursor is one of three kinds, chosen when the engine is built from the
// sources that serve the node:
//
//   - Local: one source serves the node.
//   - Concat: several sources serve a node whose type declares no key, or a
//     leaf; object rows are unioned in source registration order and the
//     first non-null leaf wins.
//   - ConcatMerge: several sources serve an object node whose type declares a
//     key, or a single-valued object node; rows describing the same entity
//     are merged.
//
// When two merged rows disagree on a single value, the first source in
// registration order wins, and within one source the first row wins.
package merge

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/buger/jsonparser"
	"github.com/jensneuse/abstractlogger"

	"github.com/hanpama/fedgraph/internal/federation"
	"github.com/hanpama/fedgraph/internal/querytree"
	"github.com/hanpama/fedgraph/internal/splitter"
)

var (
	// ErrDrained is returned by Write when the engine has already written.
	ErrDrained = errors.New("merge: engine already drained")
	// ErrUndrained reports rows left unconsumed after writing, which means
	// the cursor tree does not match the query.
	ErrUndrained = errors.New("merge: rows left unconsumed")
)

type Option func(*Engine)

// WithLogger sets the logger used to report rows without an evaluable key.
func WithLogger(l abstractlogger.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithResolved supplies JSON values for roots answered without a source.
// They are written as given, in place of the root's merged value.
func WithResolved(values map[querytree.NodeID][]byte) Option {
	return func(e *Engine) { e.resolved = values }
}

// Engine merges the responses to one split query. It is built per request
// and used once.
type Engine struct {
	tree   *querytree.Tree
	fmap   *federation.Map
	locals []splitter.Local
	names  []string
	logger abstractlogger.Logger

	resolved map[querytree.NodeID][]byte

	data    [][]byte
	fields  []field
	drained bool
}

// NewEngine builds the cursor tree for tree split into locals.
func NewEngine(tree *querytree.Tree, fmap *federation.Map, locals []splitter.Local, opts ...Option) *Engine {
	e := &Engine{
		tree:   tree,
		fmap:   fmap,
		locals: locals,
		logger: abstractlogger.NoopLogger,
		data:   make([][]byte, len(locals)),
	}
	for _, opt := range opts {
		opt(e)
	}
	for _, l := range locals {
		e.names = append(e.names, l.Source)
	}
	all := make([]int, len(locals))
	for i := range all {
		all[i] = i
	}
	roots := make([]querytree.NodeID, len(tree.Roots))
	for i, r := range tree.Roots {
		roots[i] = r.Node
	}
	e.fields = e.buildFields(roots, all)
	return e
}

func (e *Engine) buildFields(children []querytree.NodeID, candidates []int) []field {
	fields := make([]field, 0, len(children))
	for _, id := range children {
		n := e.tree.Node(id)
		if n.Hidden {
			continue
		}
		f := field{label: n.Label, list: n.Edge.IsListValued}
		switch sources := e.serving(id, candidates); {
		case n.IsTypename():
			f.typename = n.Edge.Owner
		case e.resolved[id] != nil:
			f.raw = e.resolved[id]
		case len(sources) > 0:
			f.cursor = e.build(id, sources)
		}
		fields = append(fields, f)
	}
	return fields
}

func (e *Engine) serving(id querytree.NodeID, candidates []int) []int {
	var out []int
	for _, i := range candidates {
		if _, ok := e.locals[i].Image(id); ok {
			out = append(out, i)
		}
	}
	return out
}

func (e *Engine) build(id querytree.NodeID, sources []int) *Cursor {
	n := e.tree.Node(id)
	switch {
	case len(sources) == 1:
		return &Cursor{Kind: KindLocal, Local: e.local(id, sources[0])}
	case n.Edge.IsComplex && (!n.Edge.IsListValued || e.fmap.HasKey(n.NamedType())):
		return &Cursor{Kind: KindConcatMerge, ConcatMerge: &ConcatMergeCursor{
			Node:    id,
			Sources: sources,
			label:   n.Label,
			list:    n.Edge.IsListValued,
			keys:    e.fmap.Keys(n.NamedType()),
			names:   e.names,
			fields:  e.buildFields(n.Children, sources),
			logger:  e.logger,
		}}
	default:
		c := &ConcatCursor{Node: id, list: n.Edge.IsListValued, complex: n.Edge.IsComplex}
		for _, s := range sources {
			c.Sources = append(c.Sources, e.local(id, s))
		}
		return &Cursor{Kind: KindConcat, Concat: c}
	}
}

func (e *Engine) local(id querytree.NodeID, source int) *LocalCursor {
	n := e.tree.Node(id)
	c := &LocalCursor{
		Node:    id,
		Source:  source,
		label:   n.Label,
		list:    n.Edge.IsListValued,
		complex: n.Edge.IsComplex,
	}
	if n.Edge.IsComplex {
		c.fields = e.buildFields(n.Children, []int{source})
	}
	return c
}

// Kind returns the kind of the cursor at the response path. Below a Concat
// cursor the path follows its first source.
func (e *Engine) Kind(path ...string) (Kind, bool) {
	fields := e.fields
	var kind Kind
	for _, label := range path {
		var next *Cursor
		for _, f := range fields {
			if f.label == label {
				next = f.cursor
				break
			}
		}
		if next == nil {
			return 0, false
		}
		kind = next.Kind
		switch next.Kind {
		case KindLocal:
			fields = next.Local.fields
		case KindConcat:
			fields = next.Concat.Sources[0].fields
		case KindConcatMerge:
			fields = next.ConcatMerge.fields
		}
	}
	return kind, kind != 0
}

// Feed hands the response body of one source to the engine. The body is a
// GraphQL response; only its data member is read. A missing or null data
// member counts as an empty answer.
func (e *Engine) Feed(source string, body []byte) error {
	i := -1
	for j, name := range e.names {
		if name == source {
			i = j
			break
		}
	}
	if i < 0 {
		return fmt.Errorf("merge: unexpected response from source %q", source)
	}
	data, typ, _, err := jsonparser.Get(body, "data")
	switch {
	case errors.Is(err, jsonparser.KeyPathNotFoundError) || typ == jsonparser.Null:
		e.data[i] = nil
	case err != nil:
		return fmt.Errorf("merge: response of %s: %w", source, err)
	case typ != jsonparser.Object:
		return fmt.Errorf("merge: response of %s: data is %s, not an object", source, typ)
	default:
		e.data[i] = data
	}
	return nil
}

// FeedReader is Feed for a streamed body.
func (e *Engine) FeedReader(source string, r io.Reader) error {
	body, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("merge: read response of %s: %w", source, err)
	}
	return e.Feed(source, body)
}

// Write merges every fed response and writes {"data": ...} to w. Write
// drains the engine and may be called once.
func (e *Engine) Write(w io.Writer) error {
	data, err := e.Data()
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	buf.Grow(len(data) + 10)
	buf.WriteString(`{"data":`)
	buf.Write(data)
	buf.WriteByte('}')
	_, err = w.Write(buf.Bytes())
	return err
}

// Data merges every fed response and returns the merged data object, fields
// in selection order. Data drains the engine and may be called once.
func (e *Engine) Data() ([]byte, error) {
	if e.drained {
		return nil, ErrDrained
	}
	e.drained = true

	var root object
	for i, data := range e.data {
		if data != nil {
			root = append(root, part{source: i, raw: data})
		}
	}
	addFields(e.fields, root)

	var w writer
	writeObject(&w, e.fields)
	if n := pendingFields(e.fields); n > 0 {
		return nil, fmt.Errorf("%w: %d", ErrUndrained, n)
	}
	return w.buf.Bytes(), nil
}
