package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spotaudit/spotaudit/internal/config"
	"github.com/spotaudit/spotaudit/internal/reconcile"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "spotaudit",
	Short: "Broadcast schedule reconciliation",
	Long:  "Extracts scheduled spots from plan workbooks and reconciles them against broadcast logs, flagging spots that never aired.",
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

// newEngine builds the matching engine with the configured tolerances.
func newEngine() *reconcile.Engine {
	return reconcile.New(reconcile.Options{
		EarlyTolerance: time.Duration(cfg.Reconcile.EarlyToleranceMins) * time.Minute,
		LateTolerance:  time.Duration(cfg.Reconcile.LateToleranceMins) * time.Minute,
	})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
