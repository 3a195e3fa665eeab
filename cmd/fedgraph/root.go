package main

import (
	"fmt"

	"github.com/jensneuse/abstractlogger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Config  string
	Verbose bool
}

// NewRootCommand creates the root command for the fedgraph CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "fedgraph",
		Short:         "fedgraph - federated GraphQL gateway",
		Long:          "Splits GraphQL queries across backend sources and merges their answers into one response.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.Config, "config", "c", "fedgraph.yaml", "federation config file")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewSplitCommand(opts))
	cmd.AddCommand(NewSchemaCommand(opts))

	return cmd
}

// newLogger builds the zap backed logger used by every command.
func newLogger(opts *RootOptions) (abstractlogger.Logger, func(), error) {
	cfg := zap.NewProductionConfig()
	level := abstractlogger.InfoLevel
	if opts.Verbose {
		cfg = zap.NewDevelopmentConfig()
		level = abstractlogger.DebugLevel
	}
	z, err := cfg.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}
	return abstractlogger.NewZapLogger(z, level), func() { _ = z.Sync() }, nil
}
