package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dvloznov/budget-sync/internal/app"
	"github.com/dvloznov/budget-sync/internal/budget"
	"github.com/dvloznov/budget-sync/internal/config"
	"github.com/dvloznov/budget-sync/internal/pipeline"
	"github.com/dvloznov/budget-sync/internal/sheet"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var spreadsheetID, sheetName, xlsxPath, outPath string
	var sink bool

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Process one budget sheet and print the document",
		Long: `Process one budget sheet from Google Sheets (--spreadsheet) or a local
.xlsx export (--xlsx). The processed budget is written as JSON to --out or
stdout; --sink also streams it to BigQuery.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			runCtx := ctx.withLogger(cmd.Context())

			req, src, err := resolveSource(cmd, *cfg, spreadsheetID, sheetName, xlsxPath)
			if err != nil {
				return err
			}

			a, err := app.New(runCtx, *cfg, src, app.Options{Sink: sink, Archive: true})
			if err != nil {
				return err
			}
			defer a.Close()

			state, err := a.Pipeline.Run(runCtx, req)
			if err != nil {
				return fmt.Errorf("process %s/%s: %w", req.SpreadsheetID, req.SheetName, err)
			}

			if err := writeDocument(cmd.OutOrStdout(), outPath, state.Budget); err != nil {
				return err
			}
			printSummary(cmd.ErrOrStderr(), state)
			return nil
		},
	}

	cmd.Flags().StringVar(&spreadsheetID, "spreadsheet", "", "Google Sheets spreadsheet id (defaults to the file name with --xlsx)")
	cmd.Flags().StringVar(&sheetName, "sheet", "", "Sheet (tab) name")
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "Read a local .xlsx export instead of Google Sheets")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Write the document to this file instead of stdout")
	cmd.Flags().BoolVar(&sink, "sink", false, "Stream rows to BigQuery")
	_ = cmd.MarkFlagRequired("sheet")
	cmd.MarkFlagsOneRequired("spreadsheet", "xlsx")

	return cmd
}

func resolveSource(cmd *cobra.Command, cfg config.Config, spreadsheetID, sheetName, xlsxPath string) (pipeline.Request, sheet.Source, error) {
	req := pipeline.Request{SpreadsheetID: strings.TrimSpace(spreadsheetID), SheetName: sheetName}

	if xlsxPath != "" {
		if req.SpreadsheetID == "" {
			req.SpreadsheetID = strings.TrimSuffix(filepath.Base(xlsxPath), filepath.Ext(xlsxPath))
		}
		return req, sheet.NewWorkbookSource(xlsxPath), nil
	}

	if req.SpreadsheetID == "" {
		return req, nil, errors.New("--spreadsheet is required without --xlsx")
	}
	src, err := sheet.NewSheetsSource(cmd.Context(), cfg.SheetsOptions())
	if err != nil {
		return req, nil, err
	}
	return req, src, nil
}

func writeDocument(stdout io.Writer, outPath string, pb *budget.ProcessedBudget) error {
	data, err := json.MarshalIndent(pb, "", "  ")
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	data = append(data, '\n')

	if outPath == "" {
		_, err = stdout.Write(data)
		return err
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", outPath, err)
	}
	return nil
}

func printSummary(w io.Writer, state *pipeline.PipelineState) {
	pb := state.Budget
	counts := pb.Metadata.ProcessingSummary.ValidationIssues
	fmt.Fprintf(w, "%s %s/%s version %s (%s): %d line items, validation %s (%d errors, %d warnings)\n",
		pb.BudgetID,
		pb.Metadata.Source.SpreadsheetID, pb.Metadata.Source.SheetName,
		pb.Metadata.Version.Label, pb.Metadata.VersionStatus,
		len(pb.LineItems), pb.ValidationStatus,
		counts[budget.SeverityError], counts[budget.SeverityWarning])
	if skipped := pb.Metadata.ProcessingSummary.SkippedClasses; len(skipped) > 0 {
		fmt.Fprintf(w, "skipped classes: %s\n", strings.Join(skipped, ", "))
	}
	if state.ArtifactURI != "" {
		fmt.Fprintf(w, "archived to %s\n", state.ArtifactURI)
	}
}
