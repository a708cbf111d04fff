package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/tealeg/xlsx/v2"

	"github.com/spotaudit/spotaudit/internal/schedule"
)

var sheetsCmd = &cobra.Command{
	Use:   "sheets <plan.xlsx>",
	Short: "List the selectable sheets of a plan workbook",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := xlsx.OpenFile(args[0])
		if err != nil {
			return eris.Wrap(err, "open workbook")
		}

		for _, name := range schedule.ListSheets(f) {
			fmt.Println(name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sheetsCmd)
}
