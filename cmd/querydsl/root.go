package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/querydsl/internal/catalog"
	"github.com/kailas-cloud/querydsl/internal/version"
	"github.com/kailas-cloud/querydsl/pkg/dsl"
)

// DefaultCatalogPath is used when --catalog is not given.
var DefaultCatalogPath = filepath.Join("config", "catalog.yaml")

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "querydsl",
		Short: "Compile declarative match engines into search queries",
		Long: `querydsl compiles engines declared in a YAML catalog into
Elasticsearch-style bool and function_score queries.

Run it as an HTTP service with "serve", or use the offline commands
to check a catalog and inspect compiled queries.`,
		SilenceUsage: true,
	}
	root.AddCommand(
		newServeCmd(),
		newCompileCmd(),
		newValidateCmd(),
		newTryCmd(),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "querydsl %s (commit %s, built %s)\n",
				version.Version, version.Commit, version.Date)
			return err
		},
	}
}

// readJSONArg decodes a flag value holding inline JSON or naming a file.
// A leading @ always means a file; otherwise a value that is not valid JSON
// is read as a path when such a file exists.
func readJSONArg(arg string, v any) error {
	data := []byte(arg)
	if path, ok := strings.CutPrefix(arg, "@"); ok {
		b, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return err
		}
		data = b
	} else if !json.Valid(data) {
		b, err := os.ReadFile(filepath.Clean(arg))
		switch {
		case err == nil:
			data = b
		case !errors.Is(err, fs.ErrNotExist):
			return err
		}
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %q: %w", arg, err)
	}
	return nil
}

// compileArgs are the flags shared by compile and try.
type compileArgs struct {
	catalogPath string
	engine      string
	params      string
	base        string
}

func (a *compileArgs) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&a.catalogPath, "catalog", "c", DefaultCatalogPath, "Path to the engine catalog")
	f.StringVarP(&a.engine, "engine", "e", "", "Engine to compile")
	f.StringVarP(&a.params, "params", "p", "{}", "Match params as JSON, or a file path")
	f.StringVarP(&a.base, "query", "q", "", "Base query of a function_score engine as JSON, or a file path")
	f.StringVarP(&a.base, "base", "b", "", "Alias of --query")
	_ = f.MarkHidden("base")
	_ = cmd.MarkFlagRequired("engine")
}

func (a *compileArgs) compile() (dsl.Query, error) {
	cat, err := catalog.Load(a.catalogPath, nil)
	if err != nil {
		return nil, err
	}
	eng, err := cat.Engine(a.engine)
	if err != nil {
		return nil, err
	}
	params := map[string]any{}
	if err := readJSONArg(a.params, &params); err != nil {
		return nil, fmt.Errorf("params: %w", err)
	}
	var base dsl.Query
	if a.base != "" {
		var raw json.RawMessage
		if err := readJSONArg(a.base, &raw); err != nil {
			return nil, fmt.Errorf("query: %w", err)
		}
		if base, err = dsl.RawJSON(raw); err != nil {
			return nil, fmt.Errorf("query: %w", err)
		}
	}
	return eng.Compile(params, base)
}

func writeQuery(w io.Writer, q dsl.Query, pretty bool) error {
	data, err := dsl.Marshal(q)
	if err != nil {
		return err
	}
	if pretty {
		var buf bytes.Buffer
		if err := json.Indent(&buf, data, "", "  "); err != nil {
			return err
		}
		data = buf.Bytes()
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
