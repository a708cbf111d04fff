package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/tealeg/xlsx/v2"

	"github.com/spotaudit/spotaudit/internal/export"
	"github.com/spotaudit/spotaudit/internal/fetcher"
	"github.com/spotaudit/spotaudit/internal/schedule"
)

var (
	reconcileSheet        string
	reconcileChannel      string
	reconcileAdvertiser   string
	reconcileReference    string
	reconcileUnmatchedOut string
	reconcileLogOut       string
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile <plan.xlsx> <log.{xlsx,csv}>",
	Short: "Extract a plan sheet and reconcile it against a broadcast log",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := xlsx.OpenFile(args[0])
		if err != nil {
			return eris.Wrap(err, "open plan workbook")
		}

		spots, err := schedule.Extract(f, reconcileSheet, reconcileChannel, reconcileAdvertiser)
		if err != nil {
			return err
		}

		logTable, err := fetcher.ReadTable(args[1])
		if err != nil {
			return err
		}

		res, err := newEngine().Reconcile(spots, logTable, reconcileReference)
		if err != nil {
			return err
		}

		unmatchedCSV, err := export.UnmatchedCSV(res.Unmatched)
		if err != nil {
			return err
		}
		if err := os.WriteFile(reconcileUnmatchedOut, unmatchedCSV, 0o644); err != nil {
			return eris.Wrap(err, "write unmatched csv")
		}

		logCSV, err := export.TableCSV(res.Log)
		if err != nil {
			return err
		}
		if err := os.WriteFile(reconcileLogOut, logCSV, 0o644); err != nil {
			return eris.Wrap(err, "write annotated log csv")
		}

		fmt.Printf("spots: %d  matched log rows: %d  unmatched: %d\n",
			len(spots), res.Matched, len(res.Unmatched))
		fmt.Printf("wrote %s and %s\n", reconcileUnmatchedOut, reconcileLogOut)
		return nil
	},
}

func init() {
	reconcileCmd.Flags().StringVar(&reconcileSheet, "sheet", "", "plan sheet name (required)")
	reconcileCmd.Flags().StringVar(&reconcileChannel, "channel", "", "channel stamped onto every spot")
	reconcileCmd.Flags().StringVar(&reconcileAdvertiser, "advertiser", "", "advertiser stamped onto every spot")
	reconcileCmd.Flags().StringVar(&reconcileReference, "reference", "", "reference number stamped onto matched log rows (required)")
	reconcileCmd.Flags().StringVar(&reconcileUnmatchedOut, "unmatched-out", "unmatched_data.csv", "unmatched records output path")
	reconcileCmd.Flags().StringVar(&reconcileLogOut, "log-out", "annotated_log.csv", "annotated log output path")
	reconcileCmd.MarkFlagRequired("sheet")     //nolint:errcheck
	reconcileCmd.MarkFlagRequired("reference") //nolint:errcheck
	rootCmd.AddCommand(reconcileCmd)
}
