package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/force-pipeline/internal/decay"
	"github.com/sells-group/force-pipeline/internal/model"
)

var decayCmd = &cobra.Command{
	Use:   "decay",
	Short: "Report relationship decay across all contacts",
	Long: `Classifies every contact's staleness against the tiered thresholds
(8/15/30 days for active pipeline, 31/61/90 for closed-won clients)
and prints counts by section. Contacts with no recorded last contact
classify as cold so they stay visible.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		contacts, err := st.ListContactsWithLastContact(ctx)
		if err != nil {
			return err
		}

		classifier := decay.FromConfig(cfg.Decay)
		now := time.Now().UTC()

		// Classify each section concurrently; each produces an
		// independent report that is combined below.
		sections := []model.AlertType{
			model.AlertDealContact, model.AlertClientCheckin, model.AlertOrganisation,
		}
		reports := make([]*decay.Report, len(sections))

		g, _ := errgroup.WithContext(ctx)
		for i, section := range sections {
			g.Go(func() error {
				var subset []model.Contact
				for _, c := range contacts {
					if c.AlertType == section {
						subset = append(subset, c)
					}
				}
				reports[i] = classifier.BuildReport(subset, now)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		for i, section := range sections {
			r := reports[i]
			fmt.Printf("%s: %d contacts\n", section, len(r.Alerts))
			for _, status := range []model.DecayStatus{
				model.DecayActive, model.DecayWarming, model.DecayAtRisk, model.DecayCold,
			} {
				if n := r.ByStatus[status]; n > 0 {
					fmt.Printf("  %-8s %d\n", status, n)
				}
			}
		}

		zap.L().Info("decay: report generated", zap.Int("contacts", len(contacts)))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(decayCmd)
}
