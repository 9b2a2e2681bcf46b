package main

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func newProvidersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List configured price-history providers and whether they are usable",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			usable := make(map[string]bool)
			for _, p := range createProviders(a.cfg) {
				usable[p.Name()] = true
			}

			table := tablewriter.NewTable(os.Stdout,
				tablewriter.WithHeader([]string{"Order", "Provider", "Available"}),
			)
			for i, name := range a.cfg.Data.Providers {
				status := "no"
				if usable[name] {
					status = "yes"
				}
				table.Append([]string{fmt.Sprintf("%d", i+1), name, status})
			}
			table.Render()
			return nil
		},
	}
}
