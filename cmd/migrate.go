package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/permit-leads/internal/product"
	"github.com/sells-group/permit-leads/internal/trade"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the schema and seed the trade and product catalogs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("store"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.Migrate(ctx); err != nil {
			return err
		}

		nt, err := st.SeedTrades(ctx, trade.DefaultTrades())
		if err != nil {
			return eris.Wrap(err, "migrate: seed trades")
		}
		np, err := st.SeedProducts(ctx, product.DefaultProducts())
		if err != nil {
			return eris.Wrap(err, "migrate: seed products")
		}

		zap.L().Info("migrate complete", zap.Int64("trades", nt), zap.Int64("products", np))
		fmt.Fprintf(cmd.OutOrStdout(), "schema ready; %d trades, %d products seeded\n", nt, np)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
