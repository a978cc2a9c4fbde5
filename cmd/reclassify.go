package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/permit-leads/internal/classify"
	"github.com/sells-group/permit-leads/internal/model"
	"github.com/sells-group/permit-leads/internal/monitoring"
	"github.com/sells-group/permit-leads/internal/reclassify"
	"github.com/sells-group/permit-leads/internal/store"
)

var reclassifyCmd = &cobra.Command{
	Use:   "reclassify",
	Short: "Reclassify stored permits in batches",
	Long:  "Reclassifies every stored permit (primaries first, then companion permits) and replaces their derived rows. Run after a rule or catalog change.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		opts, err := reclassifyOpts(cmd)
		if err != nil {
			return err
		}
		if opts.BatchSize > 0 {
			cfg.Reclassify.BatchSize = opts.BatchSize
		}
		if err := cfg.Validate("reclassify"); err != nil {
			return err
		}
		opts.BatchSize = cfg.Reclassify.BatchSize

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		eng, err := loadEngine(ctx, st, classify.WithScopeSource(model.ScopeSourceReclassified))
		if err != nil {
			return err
		}

		o := reclassify.New(st, eng,
			reclassify.WithRateLimit(cfg.Reclassify.MaxPermitsPerSecond),
			reclassify.WithAlerter(monitoring.NewAlerter(cfg.Monitoring)),
		)
		stats, err := o.ReclassifyAll(ctx, opts)
		if err != nil {
			return err
		}

		formatStats(cmd.OutOrStdout(), stats)
		return nil
	},
}

func reclassifyOpts(cmd *cobra.Command) (reclassify.RunOpts, error) {
	batch, _ := cmd.Flags().GetInt("batch-size")
	permitType, _ := cmd.Flags().GetString("permit-type")
	companionsOnly, _ := cmd.Flags().GetBool("companions-only")
	since, _ := cmd.Flags().GetString("since")

	opts := reclassify.RunOpts{
		BatchSize:      batch,
		Filter:         store.PermitFilter{PermitType: permitType},
		CompanionsOnly: companionsOnly,
	}
	if since != "" {
		t, err := time.Parse(time.DateOnly, since)
		if err != nil {
			return opts, eris.Wrapf(err, "reclassify: --since must be YYYY-MM-DD, got %q", since)
		}
		opts.Filter.IssuedSince = &t
	}
	return opts, nil
}

func formatStats(w io.Writer, s model.ReclassifyStats) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Run:\t%s\n", s.RunID)
	fmt.Fprintf(tw, "Classified:\t%d\n", s.Classified)
	fmt.Fprintf(tw, "Errors:\t%d (%.1f%%)\n", s.Errors, s.ErrorRate()*100)
	fmt.Fprintf(tw, "Trade matches:\t%d\n", s.TradeMatchesTotal)
	fmt.Fprintf(tw, "Products:\t%d\n", s.ProductsTotal)
	fmt.Fprintf(tw, "Propagated:\t%d\n", s.Propagated)
	fmt.Fprintf(tw, "Unclassified:\t%d\n", s.Unclassified)
	fmt.Fprintf(tw, "Elapsed:\t%s\n", s.CompletedAt.Sub(s.StartedAt).Round(time.Millisecond))
	tw.Flush() //nolint:errcheck
}

func init() {
	reclassifyCmd.Flags().Int("batch-size", 0, "permits per page (default from reclassify.batch_size)")
	reclassifyCmd.Flags().String("permit-type", "", "only reclassify permits of this type")
	reclassifyCmd.Flags().Bool("companions-only", false, "only reclassify companion permits")
	reclassifyCmd.Flags().String("since", "", "only permits issued on or after this date (YYYY-MM-DD)")
	rootCmd.AddCommand(reclassifyCmd)
}
