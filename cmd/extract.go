package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/tealeg/xlsx/v2"

	"github.com/spotaudit/spotaudit/internal/export"
	"github.com/spotaudit/spotaudit/internal/model"
	"github.com/spotaudit/spotaudit/internal/schedule"
)

var (
	extractSheet      string
	extractChannel    string
	extractAdvertiser string
	extractOut        string
)

var extractCmd = &cobra.Command{
	Use:   "extract <plan.xlsx>",
	Short: "Extract scheduled spots from a plan workbook",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := xlsx.OpenFile(args[0])
		if err != nil {
			return eris.Wrap(err, "open workbook")
		}

		spots, err := schedule.Extract(f, extractSheet, extractChannel, extractAdvertiser)
		if err != nil {
			return err
		}

		if err := writeSpots(extractOut, spots); err != nil {
			return err
		}

		fmt.Printf("extracted %d spots to %s\n", len(spots), extractOut)
		return nil
	},
}

// writeSpots writes extracted spots as a workbook or, for a .csv path, as CSV.
func writeSpots(path string, spots []model.ScheduledSpot) error {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		data, err := export.ScheduleCSV(spots)
		if err != nil {
			return err
		}
		return eris.Wrap(os.WriteFile(path, data, 0o644), "write csv")
	}

	out, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "create output file")
	}
	defer out.Close() //nolint:errcheck

	return export.WriteScheduleXLSX(out, spots)
}

func init() {
	extractCmd.Flags().StringVar(&extractSheet, "sheet", "", "plan sheet name (required)")
	extractCmd.Flags().StringVar(&extractChannel, "channel", "", "channel stamped onto every spot")
	extractCmd.Flags().StringVar(&extractAdvertiser, "advertiser", "", "advertiser stamped onto every spot")
	extractCmd.Flags().StringVar(&extractOut, "out", "extracted_schedule.xlsx", "output path (.xlsx or .csv)")
	extractCmd.MarkFlagRequired("sheet") //nolint:errcheck
	rootCmd.AddCommand(extractCmd)
}
