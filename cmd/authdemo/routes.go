package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"finitefield.org/authdemo/internal/authdemo/guard"
)

func routesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "Print the route guard policy",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PATH\tACCESS")
			for _, rule := range guard.Default().Table() {
				fmt.Fprintf(w, "%s\t%s\n", rule.Path, rule.Access)
			}
			fmt.Fprintln(w, "*\tredirect to /")
			return w.Flush()
		},
	}
}
