package sheet

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/dvloznov/budget-sync/internal/logger"
)

const (
	defaultBatchSize  = 40
	defaultMaxRetries = 5
	defaultBaseDelay  = time.Second
)

// SheetsSource reads ranges from Google Sheets with batched requests and
// exponential backoff on quota and server errors.
type SheetsSource struct {
	svc        *sheets.Service
	batchSize  int
	maxRetries int
	baseDelay  time.Duration
	sleep      func(context.Context, time.Duration) error
}

// SheetsOptions tunes SheetsSource. Zero values fall back to defaults.
type SheetsOptions struct {
	CredentialsFile string
	BatchSize       int
	MaxRetries      int
	BaseDelay       time.Duration
}

// NewSheetsSource creates a read-only Sheets client.
func NewSheetsSource(ctx context.Context, opts SheetsOptions) (*SheetsSource, error) {
	clientOpts := []option.ClientOption{option.WithScopes(sheets.SpreadsheetsReadonlyScope)}
	if opts.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsFile))
	}

	svc, err := sheets.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("NewSheetsSource: creating service: %w", err)
	}

	s := &SheetsSource{
		svc:        svc,
		batchSize:  opts.BatchSize,
		maxRetries: opts.MaxRetries,
		baseDelay:  opts.BaseDelay,
		sleep:      sleepContext,
	}
	if s.batchSize <= 0 {
		s.batchSize = defaultBatchSize
	}
	if s.maxRetries <= 0 {
		s.maxRetries = defaultMaxRetries
	}
	if s.baseDelay <= 0 {
		s.baseDelay = defaultBaseDelay
	}
	return s, nil
}

// Fetch implements Source.
func (s *SheetsSource) Fetch(ctx context.Context, spreadsheetID, sheetName string, ranges []Range) (*Snapshot, error) {
	log := logger.FromContext(ctx)

	loc, err := s.describe(ctx, spreadsheetID, sheetName)
	if err != nil {
		return nil, err
	}

	grid := NewGrid()
	for start := 0; start < len(ranges); start += s.batchSize {
		end := min(start+s.batchSize, len(ranges))
		batch := ranges[start:end]

		a1 := make([]string, len(batch))
		for i, r := range batch {
			a1[i] = QualifiedRange(sheetName, r)
		}

		var resp *sheets.BatchGetValuesResponse
		err := s.withRetry(ctx, log, func() error {
			var callErr error
			resp, callErr = s.svc.Spreadsheets.Values.BatchGet(spreadsheetID).
				Ranges(a1...).
				ValueRenderOption("FORMATTED_VALUE").
				MajorDimension("ROWS").
				Context(ctx).
				Do()
			return callErr
		})
		if err != nil {
			return nil, fmt.Errorf("SheetsSource.Fetch: batch get %s: %w", spreadsheetID, err)
		}

		for i, vr := range resp.ValueRanges {
			if i >= len(batch) || vr == nil {
				continue
			}
			grid.Fill(batch[i].Start, stringRows(vr.Values))
		}
	}

	log.Debug().
		Str("spreadsheet_id", spreadsheetID).
		Str("sheet_name", sheetName).
		Int("ranges", len(ranges)).
		Int("cells", grid.Len()).
		Msg("Fetched sheet ranges")

	return &Snapshot{Locator: loc, Grid: grid, FetchedAt: time.Now().UTC()}, nil
}

func (s *SheetsSource) describe(ctx context.Context, spreadsheetID, sheetName string) (Locator, error) {
	var meta *sheets.Spreadsheet
	err := s.withRetry(ctx, logger.FromContext(ctx), func() error {
		var callErr error
		meta, callErr = s.svc.Spreadsheets.Get(spreadsheetID).
			Fields("properties.title", "sheets.properties").
			Context(ctx).
			Do()
		return callErr
	})
	if err != nil {
		return Locator{}, fmt.Errorf("SheetsSource.describe: %s: %w", spreadsheetID, err)
	}

	loc := Locator{SpreadsheetID: spreadsheetID, SheetName: sheetName}
	if meta.Properties != nil {
		loc.SpreadsheetTitle = meta.Properties.Title
	}
	for _, sh := range meta.Sheets {
		if sh.Properties != nil && sh.Properties.Title == sheetName {
			loc.SheetGID = sh.Properties.SheetId
			return loc, nil
		}
	}
	return Locator{}, fmt.Errorf("SheetsSource.describe: %q in %s: %w", sheetName, spreadsheetID, ErrSheetNotFound)
}

func (s *SheetsSource) withRetry(ctx context.Context, log zerolog.Logger, call func() error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = call()
		if err == nil || !retryable(err) || attempt >= s.maxRetries {
			return err
		}
		delay := s.baseDelay * time.Duration(1<<attempt)
		log.Warn().Err(err).Int("attempt", attempt+1).Dur("delay", delay).Msg("Sheets API call failed, retrying")
		if sleepErr := s.sleep(ctx, delay); sleepErr != nil {
			return sleepErr
		}
	}
}

func retryable(err error) bool {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return false
	}
	return gerr.Code == http.StatusTooManyRequests || gerr.Code >= http.StatusInternalServerError
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// QualifiedRange renders a range with its sheet prefix, quoting the name.
func QualifiedRange(sheetName string, r Range) string {
	return "'" + strings.ReplaceAll(sheetName, "'", "''") + "'!" + r.String()
}

func stringRows(values [][]interface{}) [][]string {
	rows := make([][]string, len(values))
	for i, row := range values {
		rows[i] = make([]string, len(row))
		for j, v := range row {
			if v != nil {
				rows[i][j] = fmt.Sprint(v)
			}
		}
	}
	return rows
}
