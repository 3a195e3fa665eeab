package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/hanpama/fedgraph/internal/federation"
	"github.com/hanpama/fedgraph/internal/schema"
)

// NewSchemaCommand creates the schema command.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	var sourceName string
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the global schema, or the schema of one source",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchema(rootOpts, sourceName, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&sourceName, "source", "s", "", "print the schema of this source")
	return cmd
}

func runSchema(rootOpts *RootOptions, sourceName string, out io.Writer) error {
	_, fmap, err := federation.Load(rootOpts.Config)
	if err != nil {
		return err
	}
	s := fmap.Global
	if sourceName != "" {
		emb := fmap.Source(sourceName)
		if emb == nil {
			return fmt.Errorf("unknown source %q", sourceName)
		}
		s = emb.Local
	}
	_, err = io.WriteString(out, schema.Render(s))
	return err
}
