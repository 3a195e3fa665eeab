package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jensneuse/abstractlogger"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"

	"github.com/hanpama/fedgraph/internal/eventbus"
	"github.com/hanpama/fedgraph/internal/events"
	"github.com/hanpama/fedgraph/internal/federation"
	"github.com/hanpama/fedgraph/internal/introspection"
	"github.com/hanpama/fedgraph/internal/language"
	"github.com/hanpama/fedgraph/internal/merge"
	"github.com/hanpama/fedgraph/internal/querytree"
	"github.com/hanpama/fedgraph/internal/schema"
	"github.com/hanpama/fedgraph/internal/splitter"
)

// ErrSourceIO marks a request that failed because a source could not be
// queried or answered with an unusable response.
var ErrSourceIO = errors.New("source request failed")

type Executor struct {
	fmap    *federation.Map
	schema  *schema.Schema
	sources map[string]Source
	limit   int
	logger  abstractlogger.Logger

	introspection bool
}

type Option func(*Executor)

// WithMaxConcurrency bounds the number of sources queried at the same time.
// Zero or less means no bound.
func WithMaxConcurrency(n int) Option { return func(e *Executor) { e.limit = n } }

func WithLogger(l abstractlogger.Logger) Option { return func(e *Executor) { e.logger = l } }

// WithIntrospection enables or disables the __schema and __type fields.
// They are enabled by default and answered by the gateway itself.
func WithIntrospection(enabled bool) Option {
	return func(e *Executor) { e.introspection = enabled }
}

// NewExecutor returns an executor for fmap. Every source registered in fmap
// needs a Source of the same name.
func NewExecutor(fmap *federation.Map, sources []Source, opts ...Option) (*Executor, error) {
	e := &Executor{
		fmap:    fmap,
		sources: make(map[string]Source, len(sources)),
		logger:  abstractlogger.NoopLogger,

		introspection: true,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.schema = fmap.Global
	if e.introspection {
		e.schema = introspection.Extend(fmap.Global)
	}
	for _, s := range sources {
		if fmap.Source(s.Name()) == nil {
			return nil, fmt.Errorf("executor: source %q is not part of the federation", s.Name())
		}
		e.sources[s.Name()] = s
	}
	for _, emb := range fmap.Sources() {
		if _, ok := e.sources[emb.Name]; !ok {
			return nil, fmt.Errorf("executor: no source for %q", emb.Name)
		}
	}
	return e, nil
}

// Map returns the federation the executor serves.
func (e *Executor) Map() *federation.Map { return e.fmap }

// Schema returns the schema requests are built against: the global schema,
// extended with the introspection fields when they are enabled.
func (e *Executor) Schema() *schema.Schema { return e.schema }

func (e *Executor) ExecuteRequest(
	ctx context.Context,
	document *language.QueryDocument,
	operationName string,
	variableValues map[string]any,
) *ExecutionResult {
	tree, errs := querytree.Build(e.schema, document, operationName, variableValues)
	if len(errs) > 0 {
		return &ExecutionResult{Errors: fromLanguageErrors(errs)}
	}
	return e.Execute(ctx, tree)
}

// Execute runs a query tree built against Schema.
func (e *Executor) Execute(ctx context.Context, tree *querytree.Tree) *ExecutionResult {
	resolved, err := e.introspect(tree)
	if err != nil {
		return failed(err, nil)
	}
	federated := tree.Select(func(r querytree.Root) bool { return resolved[r.Node] == nil })
	locals, err := splitter.Split(federated, e.fmap)
	eventbus.Publish(ctx, events.Split{Sources: sourceNames(locals), Err: err})
	if err != nil {
		var splitErr *splitter.Error
		if errors.As(err, &splitErr) {
			ge := GraphQLError{Message: splitErr.Message, cause: err}
			for _, p := range splitErr.Path {
				ge.Path = append(ge.Path, p)
			}
			return &ExecutionResult{Errors: []GraphQLError{ge}}
		}
		return failed(err, nil)
	}

	responses := make([]response, len(locals))
	g, gctx := errgroup.WithContext(ctx)
	if e.limit > 0 {
		g.SetLimit(e.limit)
	}
	for i := range locals {
		i := i
		l := locals[i]
		g.Go(func() error {
			r, err := e.fetch(gctx, l)
			if err != nil {
				return err
			}
			responses[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		var srcErr *sourceError
		if errors.As(err, &srcErr) {
			return failed(err, map[string]any{"source": srcErr.source})
		}
		return failed(err, nil)
	}

	start := time.Now()
	engine := merge.NewEngine(tree, e.fmap, locals, merge.WithLogger(e.logger), merge.WithResolved(resolved))
	result := &ExecutionResult{}
	for i, l := range locals {
		if err := engine.Feed(l.Source, responses[i].body); err != nil {
			return failed(fmt.Errorf("%w: %w", ErrSourceIO, err), map[string]any{"source": l.Source})
		}
		result.Errors = append(result.Errors, responses[i].errors...)
	}
	data, err := engine.Data()
	eventbus.Publish(ctx, events.MergeFinish{Sources: len(locals), Bytes: len(data), Err: err, Duration: time.Since(start)})
	if err != nil {
		e.logger.Error("executor: merge failed", abstractlogger.Error(err))
		return failed(err, nil)
	}
	result.Data = data
	return result
}

// introspect answers the introspection roots of tree.
func (e *Executor) introspect(tree *querytree.Tree) (map[querytree.NodeID][]byte, error) {
	if !e.introspection {
		return nil, nil
	}
	var resolved map[querytree.NodeID][]byte
	for _, r := range tree.Roots {
		if r.IsMutation || !introspection.IsMeta(tree.Node(r.Node).Field) {
			continue
		}
		raw, err := introspection.Resolve(e.schema, tree, r.Node)
		if err != nil {
			return nil, err
		}
		if resolved == nil {
			resolved = map[querytree.NodeID][]byte{}
		}
		resolved[r.Node] = raw
	}
	return resolved, nil
}

type response struct {
	body   []byte
	errors []GraphQLError
}

// sourceError attributes a fetch failure to a source.
type sourceError struct {
	source string
	err    error
}

func (e *sourceError) Error() string { return e.err.Error() }
func (e *sourceError) Unwrap() error { return e.err }

func (e *Executor) fetch(ctx context.Context, l splitter.Local) (response, error) {
	name := l.Source
	src := e.sources[name]
	start := time.Now()
	eventbus.Publish(ctx, events.SourceFetchStart{Source: name, Query: querytree.Text(l.Tree)})

	r, err := e.resolve(ctx, src, l.Tree)
	eventbus.Publish(ctx, events.SourceFetchFinish{Source: name, Bytes: len(r.body), Err: err, Duration: time.Since(start)})
	if err != nil {
		e.logger.Error("executor: source failed",
			abstractlogger.String("source", name),
			abstractlogger.Error(err),
		)
		return response{}, &sourceError{source: name, err: err}
	}
	e.logger.Debug("executor: source answered",
		abstractlogger.String("source", name),
		abstractlogger.Int("bytes", len(r.body)),
		abstractlogger.Int("errors", len(r.errors)),
	)
	return r, nil
}

func (e *Executor) resolve(ctx context.Context, src Source, tree *querytree.Tree) (response, error) {
	rc, err := src.ResolveAsStream(ctx, tree)
	if err != nil {
		return response{}, fmt.Errorf("%w: %s: %w", ErrSourceIO, src.Name(), err)
	}
	defer rc.Close()
	body, err := io.ReadAll(rc)
	if err != nil {
		return response{}, fmt.Errorf("%w: %s: read response: %w", ErrSourceIO, src.Name(), err)
	}
	if !gjson.ValidBytes(body) {
		return response{}, fmt.Errorf("%w: %s: response is not valid JSON", ErrSourceIO, src.Name())
	}

	r := response{body: body}
	gjson.GetBytes(body, "errors").ForEach(func(_, item gjson.Result) bool {
		ge := GraphQLError{Message: item.Get("message").String()}
		for _, p := range item.Get("path").Array() {
			if p.Type == gjson.Number {
				ge.Path = append(ge.Path, int(p.Int()))
			} else {
				ge.Path = append(ge.Path, p.String())
			}
		}
		for _, loc := range item.Get("locations").Array() {
			ge.Locations = append(ge.Locations, Location{Line: int(loc.Get("line").Int()), Column: int(loc.Get("column").Int())})
		}
		ge.Extensions = map[string]any{}
		if ext, ok := item.Get("extensions").Value().(map[string]any); ok {
			ge.Extensions = ext
		}
		ge.Extensions["source"] = src.Name()
		r.errors = append(r.errors, ge)
		return true
	})
	if data := gjson.GetBytes(body, "data"); len(r.errors) > 0 && (!data.Exists() || data.Type == gjson.Null) {
		return response{}, fmt.Errorf("%w: %s: %s", ErrSourceIO, src.Name(), r.errors[0].Message)
	}
	return r, nil
}

func sourceNames(locals []splitter.Local) []string {
	names := make([]string, len(locals))
	for i, l := range locals {
		names[i] = l.Source
	}
	return names
}
