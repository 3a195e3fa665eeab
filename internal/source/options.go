package source

import (
	"net/http"
	"time"

	"github.com/jensneuse/abstractlogger"
)

// Options configures an HTTP source.
//
// Defaults:
// - Timeout: 3s (used only if the incoming context has no deadline)
// - Retries: 2 (queries only; mutations are sent once)
// - Logger:  abstractlogger.NoopLogger
//
// Provider must be set (use WithEndpoint for a single URL).
type Options struct {
	Provider EndpointProvider

	Timeout time.Duration
	Retries int

	// RetryWaitMin and RetryWaitMax bound the backoff between retries. Zero
	// keeps the client defaults.
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration

	// Headers lists the client request headers forwarded to the source.
	Headers []string

	HTTPClient *http.Client
	Logger     abstractlogger.Logger
}

type Option func(*Options)

func defaultOptions() *Options {
	return &Options{
		Timeout: 3 * time.Second,
		Retries: 2,
		Logger:  abstractlogger.NoopLogger,
	}
}

func WithProvider(p EndpointProvider) Option { return func(o *Options) { o.Provider = p } }
func WithTimeout(d time.Duration) Option     { return func(o *Options) { o.Timeout = d } }
func WithRetries(n int) Option               { return func(o *Options) { o.Retries = n } }
func WithRetryWait(min, max time.Duration) Option {
	return func(o *Options) { o.RetryWaitMin, o.RetryWaitMax = min, max }
}
func WithHeaders(names ...string) Option   { return func(o *Options) { o.Headers = names } }
func WithHTTPClient(c *http.Client) Option { return func(o *Options) { o.HTTPClient = c } }
func WithLogger(l abstractlogger.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// WithEndpoint serves every request from url.
func WithEndpoint(url string) Option {
	return func(o *Options) { o.Provider = singleEndpoint(url) }
}
