package main

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/permit-leads/internal/model"
	"github.com/sells-group/permit-leads/internal/propagate"
	"github.com/sells-group/permit-leads/internal/reclassify"
)

var classifyCmd = &cobra.Command{
	Use:   "classify <permit_num> <revision_num>",
	Short: "Classify one permit and print the result",
	Long:  "Runs scope classification, trade matching and scoring for one stored permit. With --write the derived rows are replaced in the store.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("store"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		eng, err := loadEngine(ctx, st)
		if err != nil {
			return err
		}

		key := model.PermitKey{PermitNum: args[0], RevisionNum: args[1]}
		write, _ := cmd.Flags().GetBool("write")

		var c model.Classification
		if write {
			c, err = reclassify.New(st, eng).ReclassifyOne(ctx, key)
			if err != nil {
				return err
			}
		} else {
			p, err := st.GetPermit(ctx, key)
			if err != nil {
				return err
			}
			var siblings []model.Permit
			if propagate.IsCompanion(p.PermitType) {
				siblings, err = st.ListSiblings(ctx, propagate.BasePermitNum(p.PermitNum))
				if err != nil {
					return eris.Wrap(err, "classify: list siblings")
				}
			}
			c = eng.ClassifyWithSiblings(*p, siblings)
		}

		return writeJSON(cmd.OutOrStdout(), c)
	},
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(v), "encode json")
}

func init() {
	classifyCmd.Flags().Bool("write", false, "replace the permit's stored derived rows")
	rootCmd.AddCommand(classifyCmd)
}
