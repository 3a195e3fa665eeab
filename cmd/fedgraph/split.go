package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hanpama/fedgraph/internal/executor"
	"github.com/hanpama/fedgraph/internal/federation"
	"github.com/hanpama/fedgraph/internal/language"
	"github.com/hanpama/fedgraph/internal/querytree"
	"github.com/hanpama/fedgraph/internal/source"
	"github.com/hanpama/fedgraph/internal/splitter"
)

// SplitOptions holds the flags of the split command.
type SplitOptions struct {
	File      string
	Variables string
	Operation string
	Responses string
}

// NewSplitCommand creates the split command.
func NewSplitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SplitOptions{}
	cmd := &cobra.Command{
		Use:   "split [query]",
		Short: "Print the local query every source would receive",
		Long: `Split a query against the global schema and print the local query of
every source that takes part.

With --responses, canned answers are read from <dir>/<source>.json and the
merged result is printed instead. Sources without a file answer with no data.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query, err := readQuery(args, opts.File, cmd.InOrStdin())
			if err != nil {
				return err
			}
			return runSplit(cmd.Context(), rootOpts, opts, query, cmd.OutOrStdout())
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.File, "file", "f", "", "read the query from a file, - for stdin")
	f.StringVar(&opts.Variables, "variables", "", "variables as a JSON object")
	f.StringVar(&opts.Operation, "operation", "", "operation name")
	f.StringVar(&opts.Responses, "responses", "", "directory of canned source responses")
	return cmd
}

func readQuery(args []string, file string, stdin io.Reader) (string, error) {
	switch {
	case len(args) == 1 && file != "":
		return "", errors.New("give the query as an argument or with --file, not both")
	case len(args) == 1:
		return args[0], nil
	case file == "-":
		b, err := io.ReadAll(stdin)
		return string(b), err
	case file != "":
		b, err := os.ReadFile(file)
		return string(b), err
	}
	return "", errors.New("no query given")
}

func runSplit(ctx context.Context, rootOpts *RootOptions, opts *SplitOptions, query string, out io.Writer) error {
	_, fmap, err := federation.Load(rootOpts.Config)
	if err != nil {
		return err
	}
	vars := map[string]any{}
	if opts.Variables != "" {
		if err := json.Unmarshal([]byte(opts.Variables), &vars); err != nil {
			return fmt.Errorf("invalid --variables: %w", err)
		}
	}
	doc, err := language.ParseQuery(query)
	if err != nil {
		return err
	}
	tree, errs := querytree.Build(fmap.Global, doc, opts.Operation, vars)
	if len(errs) > 0 {
		return errs
	}

	if opts.Responses != "" {
		return printMerged(ctx, fmap, tree, os.DirFS(opts.Responses), out)
	}

	locals, err := splitter.Split(tree, fmap)
	if err != nil {
		return err
	}
	for i, l := range locals {
		if i > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprintf(out, "# %s\n%s\n", l.Source, strings.TrimRight(querytree.Text(l.Tree), "\n"))
	}
	return nil
}

func printMerged(ctx context.Context, fmap *federation.Map, tree *querytree.Tree, responses fs.FS, out io.Writer) error {
	var sources []executor.Source
	for _, emb := range fmap.Sources() {
		body, err := fs.ReadFile(responses, emb.Name+".json")
		if errors.Is(err, fs.ErrNotExist) {
			body = []byte(`{"data":null}`)
		} else if err != nil {
			return fmt.Errorf("read %s.json: %w", emb.Name, err)
		}
		sources = append(sources, source.NewStatic(emb.Name, body))
	}
	exec, err := executor.NewExecutor(fmap, sources)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(exec.Execute(ctx, tree))
}
