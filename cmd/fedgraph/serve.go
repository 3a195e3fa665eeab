package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jensneuse/abstractlogger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/hanpama/fedgraph/internal/eventbus"
	"github.com/hanpama/fedgraph/internal/executor"
	"github.com/hanpama/fedgraph/internal/federation"
	"github.com/hanpama/fedgraph/internal/metrics"
	"github.com/hanpama/fedgraph/internal/otel"
	"github.com/hanpama/fedgraph/internal/server"
	"github.com/hanpama/fedgraph/internal/source"
)

// ServeOptions holds the flags of the serve command.
type ServeOptions struct {
	Addr           string
	Pretty         bool
	Timeout        time.Duration
	MaxBodyBytes   int64
	CORS           []string
	GraphiQL       bool
	Introspection  bool
	MaxConcurrency int
	OTelEndpoint   string
	OTelService    string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP GraphQL gateway",
		Long: `Run the HTTP GraphQL gateway.

The gateway serves GraphQL at /graphql and Prometheus metrics at /metrics.
Every source listed in the config must have a url.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, rootOpts, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.Addr, "addr", ":8080", "HTTP listen address")
	f.BoolVar(&opts.Pretty, "pretty", false, "pretty-print JSON responses")
	f.DurationVar(&opts.Timeout, "timeout", 10*time.Second, "per-request timeout")
	f.Int64Var(&opts.MaxBodyBytes, "max-body-bytes", 1<<20, "request body limit, 0 for none")
	f.StringSliceVar(&opts.CORS, "cors", nil, "allowed CORS origins")
	f.BoolVar(&opts.GraphiQL, "graphiql", true, "serve GraphiQL to browsers")
	f.BoolVar(&opts.Introspection, "introspection", true, "answer __schema and __type queries")
	f.IntVar(&opts.MaxConcurrency, "max-concurrency", 0, "sources queried at once per request, 0 for all")
	f.StringVar(&opts.OTelEndpoint, "otel.endpoint", "", "OTLP collector endpoint")
	f.StringVar(&opts.OTelService, "otel.service", "fedgraph", "OpenTelemetry service name")
	return cmd
}

// httpSources creates one HTTP source per configured source.
func httpSources(cfg *federation.Config, logger abstractlogger.Logger) ([]executor.Source, error) {
	var out []executor.Source
	for _, sc := range cfg.Sources {
		if sc.URL == "" {
			return nil, fmt.Errorf("source %q has no url", sc.Name)
		}
		opts := []source.Option{
			source.WithEndpoint(sc.URL),
			source.WithHeaders(sc.Headers...),
			source.WithLogger(logger),
		}
		if sc.Timeout > 0 {
			opts = append(opts, source.WithTimeout(sc.Timeout))
		}
		if sc.Retries > 0 {
			opts = append(opts, source.WithRetries(sc.Retries))
		}
		out = append(out, source.NewHTTP(sc.Name, opts...))
	}
	return out, nil
}

// forwardedHeaders is the union of the headers any source forwards.
func forwardedHeaders(cfg *federation.Config) []string {
	seen := map[string]bool{}
	var out []string
	for _, sc := range cfg.Sources {
		for _, h := range sc.Headers {
			if !seen[h] {
				seen[h] = true
				out = append(out, h)
			}
		}
	}
	return out
}

func newHandler(cfg *federation.Config, fmap *federation.Map, logger abstractlogger.Logger, opts *ServeOptions) (http.Handler, error) {
	sources, err := httpSources(cfg, logger)
	if err != nil {
		return nil, err
	}
	exec, err := executor.NewExecutor(fmap, sources,
		executor.WithMaxConcurrency(opts.MaxConcurrency),
		executor.WithLogger(logger),
		executor.WithIntrospection(opts.Introspection),
	)
	if err != nil {
		return nil, err
	}

	sopts := []server.Option{
		server.WithTimeout(opts.Timeout),
		server.WithMaxBodyBytes(opts.MaxBodyBytes),
		server.WithGraphiQL(opts.GraphiQL),
		server.WithLogger(logger),
	}
	if opts.Pretty {
		sopts = append(sopts, server.WithPretty())
	}
	if len(opts.CORS) > 0 {
		sopts = append(sopts, server.WithCORS(opts.CORS...))
	}
	if hs := forwardedHeaders(cfg); len(hs) > 0 {
		sopts = append(sopts, server.WithMetadataHeaders(hs...))
	}
	h, err := server.New(exec, sopts...)
	if err != nil {
		return nil, fmt.Errorf("server init: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/graphql", h)
	mux.Handle("/metrics", metrics.Handler(prometheus.DefaultGatherer))
	return mux, nil
}

func runServe(ctx context.Context, rootOpts *RootOptions, opts *ServeOptions) error {
	logger, sync, err := newLogger(rootOpts)
	if err != nil {
		return err
	}
	defer sync()

	cfg, fmap, err := federation.Load(rootOpts.Config)
	if err != nil {
		return err
	}

	eventbus.Use(eventbus.New())
	shutdownTracing, err := otel.Setup(opts.OTelEndpoint, opts.OTelService)
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()
	defer metrics.New(prometheus.DefaultRegisterer).Register()()

	handler, err := newHandler(cfg, fmap, logger, opts)
	if err != nil {
		return err
	}

	srv := &http.Server{Addr: opts.Addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	logger.Info("fedgraph listening",
		abstractlogger.String("addr", opts.Addr),
		abstractlogger.Int("sources", len(fmap.Sources())),
	)

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	logger.Info("fedgraph shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), opts.Timeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
