package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jensneuse/abstractlogger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hanpama/fedgraph/internal/federation"
)

const partnersConfig = "../../internal/federation/testdata/partners.yaml"

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"serve", "split", "schema"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}

	config := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, config)
	assert.Equal(t, "c", config.Shorthand)
	assert.Equal(t, "fedgraph.yaml", config.DefValue)
}

func TestSplit(t *testing.T) {
	out, err := execute(t, "split", "-c", partnersConfig, "{ partners { name worksAt } }")
	require.NoError(t, err)

	sections := strings.Split(out, "\n\n# ")
	require.Len(t, sections, 3, out)
	assert.True(t, strings.HasPrefix(sections[0], "# customers\n"))
	assert.True(t, strings.HasPrefix(sections[1], "clients\n"))
	assert.True(t, strings.HasPrefix(sections[2], "employees\n"))
	assert.Contains(t, sections[0], "partners: customers")
	assert.Contains(t, sections[1], "name: fullName")
	assert.Contains(t, sections[2], "worksAt: company")
}

func TestSplitWithResponses(t *testing.T) {
	out, err := execute(t, "split", "-c", partnersConfig, "--responses", "testdata/responses",
		"query ($withWork: Boolean!) { partners { name worksAt @include(if: $withWork) } }",
		"--variables", `{"withWork": true}`)
	require.NoError(t, err)

	var res struct {
		Data json.RawMessage
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.JSONEq(t, `{"partners":[
		{"name":"Ferrell Leethem","worksAt":"Initech"},
		{"name":"Ada Byron","worksAt":null}
	]}`, string(res.Data))
}

func TestSplitErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no query", []string{"split", "-c", partnersConfig}, "no query given"},
		{"syntax", []string{"split", "-c", partnersConfig, "{ partners {"}, "Expected Name, found <EOF>"},
		{"unknown field", []string{"split", "-c", partnersConfig, "{ partners { age } }"}, `Cannot query field "age" on type "Partner".`},
		{"uncovered", []string{"split", "-c", partnersConfig, "{ r { a { x } } }"}, `No source serves field "r" on type "Query".`},
		{"variables", []string{"split", "-c", partnersConfig, "--variables", "[", "{ partners { name } }"}, "invalid --variables"},
		{"config", []string{"split", "-c", "testdata/missing.yaml", "{ partners { name } }"}, "read config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestSchema(t *testing.T) {
	out, err := execute(t, "schema", "-c", partnersConfig)
	require.NoError(t, err)
	assert.Contains(t, out, "type Partner {")
	assert.NotContains(t, out, "type Client")

	out, err = execute(t, "schema", "-c", partnersConfig, "--source", "clients")
	require.NoError(t, err)
	assert.Contains(t, out, "type Client {")

	_, err = execute(t, "schema", "-c", partnersConfig, "--source", "suppliers")
	require.EqualError(t, err, `unknown source "suppliers"`)
}

func TestHandler(t *testing.T) {
	backend := func(body string) *httptest.Server {
		return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(body))
		}))
	}
	customers := backend(`{"data":{"partners":[{"name":"Ferrell Leethem","_key_name":"Ferrell Leethem"}]}}`)
	defer customers.Close()
	clients := backend(`{"data":{"partners":[{"name":"Ferrell Leethem","_key_fullName":"Ferrell Leethem"}]}}`)
	defer clients.Close()
	employees := backend(`{"data":{"partners":[{"worksAt":"Initech","_key_firstname":"Ferrell","_key_lastname":"Leethem"}]}}`)
	defer employees.Close()

	cfg, fmap, err := federation.Load(partnersConfig)
	require.NoError(t, err)
	urls := map[string]string{"customers": customers.URL, "clients": clients.URL, "employees": employees.URL}
	for i := range cfg.Sources {
		cfg.Sources[i].URL = urls[cfg.Sources[i].Name]
	}
	require.Equal(t, []string{"Authorization"}, forwardedHeaders(cfg))

	h, err := newHandler(cfg, fmap, abstractlogger.NoopLogger, &ServeOptions{MaxBodyBytes: 1 << 10, Introspection: true})
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/graphql", strings.NewReader(`{"query":"{ partners { name worksAt } }"}`)).
		WithContext(context.Background())
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"data":{"partners":[{"name":"Ferrell Leethem","worksAt":"Initech"}]}}`, w.Body.String())

	req = httptest.NewRequest("POST", "/graphql", strings.NewReader(`{"query":"{ __type(name: \"Partner\") { name kind } }"}`))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.JSONEq(t, `{"data":{"__type":{"name":"Partner","kind":"OBJECT"}}}`, w.Body.String())

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
}

func TestHandlerRequiresURLs(t *testing.T) {
	cfg, fmap, err := federation.Load(partnersConfig)
	require.NoError(t, err)
	cfg.Sources[1].URL = ""
	_, err = newHandler(cfg, fmap, abstractlogger.NoopLogger, &ServeOptions{})
	require.EqualError(t, err, `source "clients" has no url`)
}
