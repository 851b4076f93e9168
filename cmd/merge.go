package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/force-pipeline/internal/dedupe"
)

var mergeForceID string

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Merge duplicate open opportunities per force",
	Long: `Groups open opportunities by force, keeps the oldest record per group,
unions signals onto it and archives the rest as dormant with an audit
note. Safe to re-run: archived records never re-enter the candidate
set. Run one merge at a time against a given store.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		open, err := st.ListOpenOpportunities(ctx, mergeForceID)
		if err != nil {
			return err
		}
		zap.L().Info("merge: candidate set loaded", zap.Int("open", len(open)))

		merger := dedupe.New(st, dedupe.WithRateLimit(cfg.Store.WriteRPS))
		results, runErr := merger.Run(ctx, open)

		for _, r := range results {
			fmt.Printf("%s: kept %s, archived %d, skipped %d, +%d signals (%d total)\n",
				r.ForceID, r.KeeperID, len(r.DuplicateIDs), len(r.SkippedIDs),
				r.SignalsAdded, r.SignalsTotal)
		}
		if len(results) == 0 && runErr == nil {
			fmt.Println("nothing to merge")
		}
		return runErr
	},
}

func init() {
	mergeCmd.Flags().StringVar(&mergeForceID, "force", "", "restrict merge to one force id")
	rootCmd.AddCommand(mergeCmd)
}
