package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/permit-leads/internal/model"
	"github.com/sells-group/permit-leads/internal/phase"
	"github.com/sells-group/permit-leads/internal/trade"
)

var tradesCmd = &cobra.Command{
	Use:   "trades",
	Short: "Inspect the trade catalog",
}

var tradesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List trades and the phases in which each is active",
	RunE: func(cmd *cobra.Command, _ []string) error {
		formatTrades(cmd.OutOrStdout(), trade.NewCatalog(trade.DefaultTrades()).All())
		return nil
	},
}

func formatTrades(w io.Writer, trades []model.Trade) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSLUG\tNAME\tPHASES")
	for _, t := range trades {
		var phases string
		for _, ph := range phase.All() {
			if phase.IsActiveIn(t.Slug, ph) {
				if phases != "" {
					phases += ","
				}
				phases += string(ph)
			}
		}
		if phases == "" {
			phases = "-"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", t.ID, t.Slug, t.Name, phases)
	}
	tw.Flush() //nolint:errcheck
}

func init() {
	tradesCmd.AddCommand(tradesListCmd)
	rootCmd.AddCommand(tradesCmd)
}
