package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/querydsl/internal/catalog"
)

func newValidateCmd() *cobra.Command {
	var catalogPath string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a catalog and list its engines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cat, err := catalog.Load(catalogPath, nil)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ENGINE\tKIND\tATTRIBUTES")
			for _, e := range cat.Engines() {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Name, e.Kind, strings.Join(e.Attributes, ","))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			_, err = fmt.Fprintf(out, "%d engines, digest %s\n", len(cat.Engines()), cat.Digest())
			return err
		},
	}
	cmd.Flags().StringVarP(&catalogPath, "catalog", "c", DefaultCatalogPath, "Path to the engine catalog")
	return cmd
}
