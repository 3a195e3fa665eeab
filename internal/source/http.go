package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/jensneuse/abstractlogger"
	"google.golang.org/grpc/metadata"

	"github.com/hanpama/fedgraph/internal/executor"
	"github.com/hanpama/fedgraph/internal/querytree"
	"github.com/hanpama/fedgraph/internal/reqid"
)

var (
	_ executor.Source = (*HTTP)(nil)
	_ executor.Source = (*Static)(nil)
)

// maxErrorBody bounds how much of a failed response is kept in the error.
const maxErrorBody = 512

// HTTP queries a GraphQL source over HTTP POST. Failed queries are retried
// with backoff; mutations are sent once. Client headers named in
// Options.Headers are forwarded from the outgoing metadata of the request
// context.
type HTTP struct {
	name   string
	opts   *Options
	client *retryablehttp.Client
	once   *retryablehttp.Client
	closed atomic.Bool
}

func NewHTTP(name string, opts ...Option) *HTTP {
	o := defaultOptions()
	for _, f := range opts {
		f(o)
	}
	hc := o.HTTPClient
	if hc == nil {
		hc = cleanhttp.DefaultPooledClient()
	}
	return &HTTP{
		name:   name,
		opts:   o,
		client: newRetryClient(hc, o, o.Retries),
		once:   newRetryClient(hc, o, 0),
	}
}

func newRetryClient(hc *http.Client, o *Options, retries int) *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.HTTPClient = hc
	client.RetryMax = retries
	if o.RetryWaitMin > 0 {
		client.RetryWaitMin = o.RetryWaitMin
	}
	if o.RetryWaitMax > 0 {
		client.RetryWaitMax = o.RetryWaitMax
	}
	client.Logger = leveledLogger{o.Logger}
	// keep the last response so status errors can be reported
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	return client
}

// isMutation reports whether t carries a mutation root. Such a request is
// not safe to repeat.
func isMutation(t *querytree.Tree) bool {
	for _, r := range t.Roots {
		if r.IsMutation {
			return true
		}
	}
	return false
}

func (h *HTTP) Name() string { return h.name }

type request struct {
	Query string `json:"query"`
}

func (h *HTTP) ResolveAsStream(ctx context.Context, query *querytree.Tree) (io.ReadCloser, error) {
	if h.closed.Load() {
		return nil, &Error{Source: h.name, Err: ErrClosed}
	}
	if h.opts.Provider == nil {
		return nil, &Error{Source: h.name, Err: fmt.Errorf("provider not configured")}
	}
	endpoints, err := h.opts.Provider.Endpoints(ctx, h.name)
	if err != nil {
		return nil, &Error{Source: h.name, Err: err}
	}
	if len(endpoints) == 0 {
		return nil, &Error{Source: h.name, Err: ErrNoEndpoints}
	}
	endpoint := endpoints[rand.Intn(len(endpoints))]

	body, err := json.Marshal(request{Query: querytree.Text(query)})
	if err != nil {
		return nil, &Error{Source: h.name, Err: err}
	}

	cancel := context.CancelFunc(func() {})
	if _, ok := ctx.Deadline(); !ok && h.opts.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, h.opts.Timeout)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		cancel()
		return nil, &Error{Source: h.name, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	h.forwardHeaders(ctx, req.Header)

	client := h.client
	if isMutation(query) {
		client = h.once
	}
	resp, err := client.Do(req)
	if err != nil {
		cancel()
		return nil, &Error{Source: h.name, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer cancel()
		defer resp.Body.Close()
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &Error{
			Source:     h.name,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected response: %s", strings.TrimSpace(string(snippet))),
		}
	}
	h.opts.Logger.Debug("source: response received",
		abstractlogger.String("source", h.name),
		abstractlogger.String("endpoint", endpoint),
	)
	return &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}, nil
}

func (h *HTTP) forwardHeaders(ctx context.Context, header http.Header) {
	if id, ok := reqid.FromContext(ctx); ok {
		header.Set(reqid.Header, id)
	}
	md, ok := metadata.FromOutgoingContext(ctx)
	if !ok {
		return
	}
	for _, name := range h.opts.Headers {
		for _, v := range md.Get(name) {
			header.Add(name, v)
		}
	}
}

// Close releases idle connections. Requests made after Close fail.
func (h *HTTP) Close() error {
	if h.closed.Swap(true) {
		return nil
	}
	h.client.HTTPClient.CloseIdleConnections()
	return nil
}

// cancelOnClose keeps the request context alive until the body is consumed.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}

// leveledLogger routes retryablehttp's logging through abstractlogger.
type leveledLogger struct{ l abstractlogger.Logger }

func (l leveledLogger) fields(kv []interface{}) []abstractlogger.Field {
	out := make([]abstractlogger.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, abstractlogger.Any(fmt.Sprint(kv[i]), kv[i+1]))
	}
	return out
}

func (l leveledLogger) Error(msg string, kv ...interface{}) { l.l.Error(msg, l.fields(kv)...) }
func (l leveledLogger) Info(msg string, kv ...interface{})  { l.l.Info(msg, l.fields(kv)...) }
func (l leveledLogger) Debug(msg string, kv ...interface{}) { l.l.Debug(msg, l.fields(kv)...) }
func (l leveledLogger) Warn(msg string, kv ...interface{})  { l.l.Warn(msg, l.fields(kv)...) }
