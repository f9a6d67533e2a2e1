package main

import (
	"github.com/spf13/cobra"
)

func newCompileCmd() *cobra.Command {
	var (
		args   compileArgs
		pretty bool
	)
	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Compile one engine and print the query",
		Long: `Compile one engine of the catalog with the given params and print
the resulting query document.

Examples:
  querydsl compile -e JobSearchEngine -p '{"city":"Berlin"}'
  querydsl compile -e JobRanking -p params.json -q '{"match_all":{}}' --pretty`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q, err := args.compile()
			if err != nil {
				return err
			}
			return writeQuery(cmd.OutOrStdout(), q, pretty)
		},
	}
	args.register(cmd)
	cmd.Flags().BoolVar(&pretty, "pretty", false, "Indent the output")
	return cmd
}
