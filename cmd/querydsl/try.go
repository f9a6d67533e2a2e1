package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	bleveBackend "github.com/kailas-cloud/querydsl/internal/backend/bleve"
	"github.com/kailas-cloud/querydsl/pkg/dsl"
)

type tryResult struct {
	Query json.RawMessage    `json:"query"`
	Total uint64             `json:"total"`
	Hits  []bleveBackend.Hit `json:"hits"`
}

func newTryCmd() *cobra.Command {
	var (
		args       compileArgs
		docs       string
		textFields []string
		size       int
	)
	cmd := &cobra.Command{
		Use:   "try",
		Short: "Compile an engine and run it against sample documents",
		Long: `Compile an engine and run the query against documents held in an
in-memory bleve index. String fields are matched verbatim unless listed
in --text-field. Script queries cannot run locally.

Examples:
  querydsl try -e JobSearchEngine -p '{"city":"Berlin"}' --docs @jobs.json --text-field title`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var list []map[string]any
			if err := readJSONArg(docs, &list); err != nil {
				return fmt.Errorf("docs: %w", err)
			}
			q, err := args.compile()
			if err != nil {
				return err
			}

			idx, err := bleveBackend.NewMemIndex(bleveBackend.NewIndexMapping(textFields...), zap.NewNop())
			if err != nil {
				return err
			}
			defer func() { _ = idx.Close() }()
			if err := idx.Load(list); err != nil {
				return err
			}
			hits, total, err := idx.Search(context.Background(), q, size)
			if err != nil {
				return err
			}

			data, err := dsl.Marshal(q)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			enc.SetEscapeHTML(false)
			return enc.Encode(tryResult{Query: data, Total: total, Hits: hits})
		},
	}
	args.register(cmd)
	f := cmd.Flags()
	f.StringVar(&docs, "docs", "[]", "Documents as a JSON array, or a file path")
	f.StringSliceVar(&textFields, "text-field", nil, "Field analyzed as full text (repeatable)")
	f.IntVarP(&size, "size", "n", bleveBackend.DefaultSize, "Maximum number of hits")
	return cmd
}
