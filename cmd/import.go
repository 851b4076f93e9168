package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/force-pipeline/internal/importer"
)

var importCmd = &cobra.Command{
	Use:   "import <workbook.xlsx>",
	Short: "Import force and contact reference data from a workbook",
	Long: `Reads the "forces" and "contacts" sheets of an admin-maintained
workbook and upserts the rows into the store. Re-importing the same
workbook is safe.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		res, err := importer.Run(ctx, st, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("imported %d forces, %d contacts\n", res.Forces, res.Contacts)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
}
