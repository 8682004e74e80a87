package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/dvloznov/budget-sync/internal/app"
	"github.com/dvloznov/budget-sync/internal/pipeline"
	"github.com/dvloznov/budget-sync/internal/sheet"
)

// manifest lists the sheets of one batch run.
type manifest struct {
	Concurrency int `toml:"concurrency"`
	// Workbook reads every sheet from a local .xlsx export instead of
	// Google Sheets.
	Workbook string             `toml:"workbook"`
	Sheets   []pipeline.Request `toml:"sheets"`
}

func loadManifest(path string) (manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return manifest{}, fmt.Errorf("loadManifest: %w", err)
	}

	var m manifest
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&m); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return manifest{}, fmt.Errorf("loadManifest: %s: unknown keys:\n%s", path, strict.String())
		}
		return manifest{}, fmt.Errorf("loadManifest: %s: %w", path, err)
	}

	if m.Workbook != "" && !filepath.IsAbs(m.Workbook) {
		m.Workbook = filepath.Join(filepath.Dir(path), m.Workbook)
	}
	if len(m.Sheets) == 0 {
		return manifest{}, fmt.Errorf("loadManifest: %s lists no sheets", path)
	}

	var errs []error
	for i := range m.Sheets {
		s := &m.Sheets[i]
		s.SpreadsheetID = strings.TrimSpace(s.SpreadsheetID)
		if s.SpreadsheetID == "" && m.Workbook != "" {
			s.SpreadsheetID = strings.TrimSuffix(filepath.Base(m.Workbook), filepath.Ext(m.Workbook))
		}
		if s.SpreadsheetID == "" || s.SheetName == "" {
			errs = append(errs, fmt.Errorf("sheets[%d]: spreadsheet_id and sheet_name are required", i))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return manifest{}, fmt.Errorf("loadManifest: %s: %w", path, err)
	}
	return m, nil
}

func newBatchCommand(ctx *commandContext) *cobra.Command {
	var manifestPath string
	var sink bool

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Process every sheet listed in a manifest",
		Long: `Process every sheet listed in a TOML manifest:

  concurrency = 4
  # workbook = "exports/ACME0324.xlsx"

  [[sheets]]
  spreadsheet_id = "1AbC..."
  sheet_name = "Estimate"

A failing sheet does not stop the others; the command exits non-zero when
any sheet failed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			runCtx := ctx.withLogger(cmd.Context())

			m, err := loadManifest(manifestPath)
			if err != nil {
				return err
			}

			var src sheet.Source
			if m.Workbook != "" {
				src = sheet.NewWorkbookSource(m.Workbook)
			} else {
				src, err = sheet.NewSheetsSource(runCtx, cfg.SheetsOptions())
				if err != nil {
					return err
				}
			}

			a, err := app.New(runCtx, *cfg, src, app.Options{Sink: sink, Archive: true})
			if err != nil {
				return err
			}
			defer a.Close()

			results := pipeline.RunBatch(runCtx, a.Pipeline, m.Sheets, m.Concurrency)

			headers, rows, failed := batchRows(results)
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(headers, rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft}))

			if failed > 0 {
				return fmt.Errorf("%d of %d sheets failed", failed, len(results))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&manifestPath, "manifest", "m", "", "Batch manifest (TOML)")
	cmd.Flags().BoolVar(&sink, "sink", false, "Stream rows to BigQuery")
	_ = cmd.MarkFlagRequired("manifest")

	return cmd
}

func batchRows(results []pipeline.BatchResult) ([]string, [][]string, int) {
	headers := []string{"Sheet", "Version", "Validation", "Items", "Result"}
	rows := make([][]string, 0, len(results))
	failed := 0

	for _, r := range results {
		name := r.Request.SpreadsheetID + "/" + r.Request.SheetName
		if r.Err != nil {
			failed++
			rows = append(rows, []string{name, "-", "-", "-", r.Err.Error()})
			continue
		}
		pb := r.Budget
		result := string(pb.Metadata.VersionStatus)
		if r.ArtifactURI != "" {
			result += " " + r.ArtifactURI
		}
		rows = append(rows, []string{
			name,
			pb.Metadata.Version.Label,
			string(pb.ValidationStatus),
			strconv.Itoa(len(pb.LineItems)),
			result,
		})
	}
	return headers, rows, failed
}
