package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dvloznov/budget-sync/internal/app"
	"github.com/dvloznov/budget-sync/internal/budget"
)

func newVersionCommand(ctx *commandContext) *cobra.Command {
	var spreadsheetID, sheetName string

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show the stored version of a sheet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			runCtx := ctx.withLogger(cmd.Context())

			store, err := app.OpenVersionStore(runCtx, cfg.Versioning)
			if err != nil {
				return err
			}
			defer store.Close()

			id := budget.Identity{SpreadsheetID: spreadsheetID, SheetName: sheetName}
			v, err := store.Get(runCtx, id)
			if err != nil {
				return err
			}
			if v == nil {
				return fmt.Errorf("no version recorded for %s/%s", spreadsheetID, sheetName)
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Field", "Value"}, versionRows(*v), nil))
			return nil
		},
	}

	cmd.Flags().StringVar(&spreadsheetID, "spreadsheet", "", "Google Sheets spreadsheet id")
	cmd.Flags().StringVar(&sheetName, "sheet", "", "Sheet (tab) name")
	_ = cmd.MarkFlagRequired("spreadsheet")
	_ = cmd.MarkFlagRequired("sheet")

	return cmd
}

func versionRows(v budget.BudgetVersion) [][]string {
	rows := [][]string{
		{"version", v.Label()},
		{"version_id", v.VersionID},
		{"content_hash", v.ContentHash},
		{"first_seen", v.FirstSeen.Format(time.RFC3339)},
		{"last_updated", v.LastUpdated.Format(time.RFC3339)},
	}
	if v.PreviousVersionID != "" {
		rows = append(rows, []string{"previous_version_id", v.PreviousVersionID})
	}
	return rows
}
