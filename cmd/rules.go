package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/permit-leads/internal/model"
	"github.com/sells-group/permit-leads/internal/rules"
	"github.com/sells-group/permit-leads/internal/store"
	"github.com/sells-group/permit-leads/internal/trade"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect and manage trade mapping rules",
}

// -- rules list --

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the active rule catalog",
	Long:  "Lists the rules the engine would use: the rules file if configured, else the rule store when a database is configured, else the built-in defaults.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		var st store.Store
		if cfg.Store.DatabaseURL != "" {
			s, err := initStore(ctx)
			if err != nil {
				return err
			}
			defer s.Close() //nolint:errcheck
			st = s
		}

		eng, err := loadEngine(ctx, st)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.ErrOrStderr(), "source: %s (%d rules, %d skipped)\n",
			eng.Rules().Source(), eng.Rules().Len(), eng.Rules().Skipped())
		formatRules(cmd.OutOrStdout(), eng.Rules().Active(), eng.Trades())
		return nil
	},
}

// -- rules export --

var rulesExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the built-in rules as a YAML rule file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		output, _ := cmd.Flags().GetString("output")

		w := cmd.OutOrStdout()
		if output != "" {
			f, err := os.Create(output)
			if err != nil {
				return eris.Wrapf(err, "rules export: create %s", output)
			}
			defer f.Close() //nolint:errcheck
			w = f
		}
		return rules.Write(w, rules.DefaultRules())
	},
}

// -- rules seed --

var rulesSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Upsert rules into the rule store",
	Long:  "Upserts the rules from --file (or classify.rules_file) into trade_mapping_rules. Without a file the built-in defaults are seeded.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("store"); err != nil {
			return err
		}

		path, _ := cmd.Flags().GetString("file")
		if path == "" {
			path = cfg.Classify.RulesFile
		}
		rs := rules.DefaultRules()
		if path != "" {
			var err error
			rs, err = rules.ReadFile(path)
			if err != nil {
				return err
			}
		}
		if failures := rules.Validate(rs); len(failures) > 0 {
			formatFailures(cmd.ErrOrStderr(), failures)
			return eris.Errorf("rules seed: %d invalid rules", len(failures))
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		n, err := st.SeedRules(ctx, rs)
		if err != nil {
			return err
		}
		zap.L().Info("rules seeded", zap.Int64("rows", n), zap.String("file", path))
		fmt.Fprintf(cmd.OutOrStdout(), "%d rules seeded\n", len(rs))
		return nil
	},
}

// -- rules validate --

var rulesValidateCmd = &cobra.Command{
	Use:   "validate [FILE]",
	Short: "Validate a YAML rule file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfg.Classify.RulesFile
		if len(args) == 1 {
			path = args[0]
		}
		if path == "" {
			return eris.New("rules validate: no file given and classify.rules_file is not set")
		}

		rs, err := rules.ReadFile(path)
		if err != nil {
			return err
		}
		failures := rules.Validate(rs)
		if len(failures) > 0 {
			formatFailures(cmd.ErrOrStderr(), failures)
			return eris.Errorf("rules validate: %d of %d rules invalid", len(failures), len(rs))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d rules OK\n", path, len(rs))
		return nil
	},
}

func formatRules(w io.Writer, rs []rules.CompiledRule, trades *trade.Catalog) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTIER\tTRADE\tFIELD\tPATTERN\tCONF\tWINDOW")
	for _, r := range rs {
		slug := fmt.Sprintf("#%d", r.TradeID)
		if t, ok := trades.ByID(r.TradeID); ok {
			slug = t.Slug
		}
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\t%.2f\t%s\n",
			r.ID, r.Tier, slug, r.MatchField, r.MatchPattern, r.Confidence, formatWindow(r.Window))
	}
	tw.Flush() //nolint:errcheck
}

func formatWindow(w *model.Window) string {
	if w == nil {
		return "-"
	}
	return fmt.Sprintf("%d-%dmo", w.MinAgeMonths, w.MaxAgeMonths)
}

func formatFailures(w io.Writer, failures map[int64]error) {
	ids := make([]int64, 0, len(failures))
	for id := range failures {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		fmt.Fprintf(w, "rule %d: %v\n", id, failures[id])
	}
}

func init() {
	rulesExportCmd.Flags().String("output", "", "write to this file instead of stdout")
	rulesSeedCmd.Flags().String("file", "", "YAML rule file to seed (default classify.rules_file, else built-ins)")

	rulesCmd.AddCommand(rulesListCmd)
	rulesCmd.AddCommand(rulesExportCmd)
	rulesCmd.AddCommand(rulesSeedCmd)
	rulesCmd.AddCommand(rulesValidateCmd)
	rootCmd.AddCommand(rulesCmd)
}
