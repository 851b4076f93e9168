package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/force-pipeline/internal/config"
	"github.com/sells-group/force-pipeline/internal/force"
	"github.com/sells-group/force-pipeline/internal/store"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "force-pipeline",
	Short: "Police force opportunity pipeline",
	Long:  "Tracks sales opportunities against police forces: resolves mentions to canonical forces, flags relationship decay, merges duplicates, drives the review queue.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// openStore opens the configured record store and runs migrations.
func openStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}

// loadResolver builds the force resolver from the configured table
// file, falling back to the compiled-in UK table.
func loadResolver() (*force.Resolver, error) {
	if cfg.Forces.TablePath == "" {
		return force.NewResolver(force.DefaultTable()), nil
	}
	tbl, err := force.LoadTable(cfg.Forces.TablePath)
	if err != nil {
		return nil, err
	}
	return force.NewResolver(tbl), nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
