package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/metadata"

	"github.com/hanpama/fedgraph/internal/eventbus"
	"github.com/hanpama/fedgraph/internal/events"
	"github.com/hanpama/fedgraph/internal/executor"
	"github.com/hanpama/fedgraph/internal/federation"
	"github.com/hanpama/fedgraph/internal/reqid"
)

const customersBody = `{"data":{"partners":[{"name":"Ferrell Leethem","_key_name":"Ferrell Leethem"}],"partner":{"name":"Ferrell Leethem","_key_name":"Ferrell Leethem"}}}`

// newTestHandler serves the partners federation. customers answers with
// handler, the other sources with empty data.
func newTestHandler(t *testing.T, handler executor.MockHandler, opts ...Option) *Handler {
	t.Helper()
	_, m, err := federation.Load("../federation/testdata/partners.yaml")
	require.NoError(t, err)
	if handler == nil {
		handler = executor.NewMockResponse(customersBody)
	}
	exec, err := executor.NewExecutor(m, []executor.Source{
		executor.NewMockSource("customers", handler),
		executor.NewMockSource("clients", executor.NewMockResponse(`{"data":{}}`)),
		executor.NewMockSource("employees", executor.NewMockResponse(`{"data":{}}`)),
	})
	require.NoError(t, err)
	h, err := New(exec, opts...)
	require.NoError(t, err)
	return h
}

func post(h http.Handler, body string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func capture(md *metadata.MD, id *string) executor.MockHandler {
	return func(ctx context.Context, _ string) (string, error) {
		*md, _ = metadata.FromOutgoingContext(ctx)
		*id, _ = reqid.FromContext(ctx)
		return customersBody, nil
	}
}

func TestServe(t *testing.T) {
	h := newTestHandler(t, nil)
	w := post(h, `{"query":"{ partners { name } }"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
	require.JSONEq(t, `{"data":{"partners":[{"name":"Ferrell Leethem"}]}}`, w.Body.String())
}

func TestServeGET(t *testing.T) {
	h := newTestHandler(t, nil)
	q := url.Values{
		"query":     {`query ($n: String!) { partner(name: $n) { name } }`},
		"variables": {`{"n":"Ferrell Leethem"}`},
	}
	req := httptest.NewRequest("GET", "/?"+q.Encode(), nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"data":{"partner":{"name":"Ferrell Leethem"}}}`, w.Body.String())
}

func TestServeBatch(t *testing.T) {
	var batches []int
	bus := eventbus.New()
	eventbus.On(bus, func(_ context.Context, e events.HTTPFinish) { batches = append(batches, e.Batch) })
	eventbus.Use(bus)
	t.Cleanup(func() { eventbus.Use(nil) })

	h := newTestHandler(t, nil)
	w := post(h, `[{"query":"{ partners { name } }"},{"query":"{ nope }"}]`, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var got []json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 2)
	require.JSONEq(t, `{"data":{"partners":[{"name":"Ferrell Leethem"}]}}`, string(got[0]))
	require.JSONEq(t, `{"data":null,"errors":[{"message":"Cannot query field \"nope\" on type \"Query\".","locations":[{"line":1,"column":3}],"path":["nope"]}]}`, string(got[1]))
	require.Equal(t, []int{2}, batches)
}

func TestServeErrors(t *testing.T) {
	h := newTestHandler(t, nil, WithMaxBodyBytes(64))
	tests := []struct {
		name    string
		method  string
		body    string
		ctype   string
		status  int
		message string
	}{
		{"syntax", "POST", `{"query":"{ partners { "}`, "application/json", http.StatusOK, "Expected Name, found <EOF>"},
		{"missing query", "POST", `{}`, "application/json", http.StatusBadRequest, "missing 'query'"},
		{"invalid json", "POST", `{"query":`, "application/json", http.StatusBadRequest, "invalid JSON"},
		{"empty batch", "POST", `[]`, "application/json", http.StatusBadRequest, "empty batch"},
		{"content type", "POST", `query=x`, "application/x-www-form-urlencoded", http.StatusBadRequest, "unsupported Content-Type"},
		{"too large", "POST", `{"query":"` + strings.Repeat(" ", 64) + `{ partners { name } }"}`, "application/json", http.StatusRequestEntityTooLarge, "body too large"},
		{"method", "PUT", ``, "", http.StatusMethodNotAllowed, "method not allowed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/", bytes.NewBufferString(tt.body))
			if tt.ctype != "" {
				req.Header.Set("Content-Type", tt.ctype)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			require.Equal(t, tt.status, w.Code)

			var res struct {
				Data   any
				Errors []executor.GraphQLError
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
			require.Nil(t, res.Data)
			require.Len(t, res.Errors, 1)
			require.Contains(t, res.Errors[0].Message, tt.message)
		})
	}
}

func TestForwardedHeaders(t *testing.T) {
	var md metadata.MD
	var id string
	h := newTestHandler(t, capture(&md, &id), WithMetadataHeaders("Authorization"))

	w := post(h, `{"query":"{ partners { name } }"}`, http.Header{
		"Authorization": {"Bearer abc"},
		"X-Other":       {"nope"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, []string{"Bearer abc"}, md.Get("authorization"))
	require.Empty(t, md.Get("x-other"))
}

func TestForwardedHeadersDefaultEmpty(t *testing.T) {
	var md metadata.MD
	var id string
	h := newTestHandler(t, capture(&md, &id))

	w := post(h, `{"query":"{ partners { name } }"}`, http.Header{"Authorization": {"Bearer abc"}})
	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, md.Get("authorization"))
}

func TestCORSAndPreflight(t *testing.T) {
	h := newTestHandler(t, nil, WithCORS("*"))

	// simple request
	w := post(h, `{"query":"{ partners { name } }"}`, http.Header{"Origin": {"http://example.com"}})
	require.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	// preflight
	pre := httptest.NewRequest("OPTIONS", "/", nil)
	pre.Header.Set("Origin", "http://example.com")
	pre.Header.Set("Access-Control-Request-Headers", "X-Test")
	pw := httptest.NewRecorder()
	h.ServeHTTP(pw, pre)
	require.Equal(t, http.StatusNoContent, pw.Code)
	require.Equal(t, "*", pw.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "X-Test", pw.Header().Get("Access-Control-Allow-Headers"))

	// explicit origins are echoed
	h = newTestHandler(t, nil, WithCORS("http://example.com"))
	w = post(h, `{"query":"{ partners { name } }"}`, http.Header{"Origin": {"http://example.com"}})
	require.Equal(t, "http://example.com", w.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "Origin", w.Header().Get("Vary"))
	w = post(h, `{"query":"{ partners { name } }"}`, http.Header{"Origin": {"http://evil.com"}})
	require.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestID(t *testing.T) {
	var md metadata.MD
	var id string
	h := newTestHandler(t, capture(&md, &id))

	w := post(h, `{"query":"{ partners { name } }"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, id)
	require.Equal(t, id, w.Header().Get(reqid.Header))

	const incoming = "6f1c2b0e-8a6d-4c1f-9a51-0d2b1e7f3c44"
	w = post(h, `{"query":"{ partners { name } }"}`, http.Header{reqid.Header: {incoming}})
	require.Equal(t, incoming, id)
	require.Equal(t, incoming, w.Header().Get(reqid.Header))
}

func TestGraphiQL(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	w := httptest.NewRecorder()
	newTestHandler(t, nil).ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "graphiql")

	w = httptest.NewRecorder()
	newTestHandler(t, nil, WithGraphiQL(false)).ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNewRequiresExecutor(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
}
