// Package config loads the TOML configuration shared by the CLI and the API
// server.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/budget-sync/internal/logger"
	"github.com/dvloznov/budget-sync/internal/processor"
	"github.com/dvloznov/budget-sync/internal/sheet"
	"github.com/dvloznov/budget-sync/internal/validation"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "BUDGET_SYNC_"

// Versioning backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Logging contains configuration for log output.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Sheets configures the Google Sheets reader.
type Sheets struct {
	CredentialsFile string `toml:"credentials_file"`
	BatchSize       int    `toml:"batch_size"`
	MaxRetries      int    `toml:"max_retries"`
	// BaseDelay is a Go duration string such as "1s".
	BaseDelay string `toml:"base_delay"`
}

// Validation holds the numeric thresholds as decimal strings.
type Validation struct {
	VarianceTolerance string `toml:"variance_tolerance"`
	PnWRateMin        string `toml:"pnw_rate_min"`
	PnWRateMax        string `toml:"pnw_rate_max"`
}

// Versioning selects where version records live.
type Versioning struct {
	Backend string `toml:"backend"`
	// Path is a directory for the file backend and a database file for sqlite.
	Path string `toml:"path"`
}

// BigQuery configures the warehouse sink.
type BigQuery struct {
	Enabled    bool   `toml:"enabled"`
	ProjectID  string `toml:"project_id"`
	DatasetID  string `toml:"dataset_id"`
	MaxRetries int    `toml:"max_retries"`
}

// Storage configures where processed documents are archived. A bucket
// selects GCS, otherwise LocalDir is used when set.
type Storage struct {
	Bucket   string `toml:"bucket"`
	Prefix   string `toml:"prefix"`
	LocalDir string `toml:"local_dir"`
}

// API configures the HTTP server and its worker pool.
type API struct {
	Port      int `toml:"port"`
	Workers   int `toml:"workers"`
	QueueSize int `toml:"queue_size"`
}

// Config is the complete configuration.
type Config struct {
	Logging    Logging    `toml:"logging"`
	Sheets     Sheets     `toml:"sheets"`
	Validation Validation `toml:"validation"`
	Versioning Versioning `toml:"versioning"`
	BigQuery   BigQuery   `toml:"bigquery"`
	Storage    Storage    `toml:"storage"`
	API        API        `toml:"api"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Logging: Logging{Level: "info", Format: logger.FormatConsole},
		Sheets: Sheets{
			BatchSize:  40,
			MaxRetries: 5,
			BaseDelay:  "1s",
		},
		Validation: Validation{
			VarianceTolerance: "0.01",
			PnWRateMin:        "0",
			PnWRateMax:        "1",
		},
		Versioning: Versioning{Backend: BackendMemory},
		BigQuery: BigQuery{
			DatasetID:  "budgets",
			MaxRetries: 3,
		},
		Storage: Storage{Prefix: "budgets"},
		API: API{
			Port:      8080,
			Workers:   4,
			QueueSize: 100,
		},
	}
}

// Load decodes the file at path over the defaults, applies environment
// overrides and validates the result. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("Load: %w", err)
		}
		if err := Decode(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("Load: %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, fmt.Errorf("Load: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("Load: %w", err)
	}
	return cfg, nil
}

// Decode parses TOML into cfg, rejecting unknown keys.
func Decode(data []byte, cfg *Config) error {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return fmt.Errorf("unknown configuration keys:\n%s", strict.String())
		}
		return err
	}
	return nil
}

// Encode renders cfg as TOML.
func (c Config) Encode() ([]byte, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("Encode: %w", err)
	}
	return data, nil
}

type lookupFunc func(string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(EnvPrefix + key)
		if !ok {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
		}
		*dst = n
		return nil
	}

	str("LOG_LEVEL", &c.Logging.Level)
	str("LOG_FORMAT", &c.Logging.Format)
	str("SHEETS_CREDENTIALS_FILE", &c.Sheets.CredentialsFile)
	str("VARIANCE_TOLERANCE", &c.Validation.VarianceTolerance)
	str("VERSIONING_BACKEND", &c.Versioning.Backend)
	str("VERSIONING_PATH", &c.Versioning.Path)
	str("BIGQUERY_PROJECT_ID", &c.BigQuery.ProjectID)
	str("BIGQUERY_DATASET_ID", &c.BigQuery.DatasetID)
	str("STORAGE_BUCKET", &c.Storage.Bucket)
	str("STORAGE_PREFIX", &c.Storage.Prefix)
	str("STORAGE_LOCAL_DIR", &c.Storage.LocalDir)

	if v, ok := lookup(EnvPrefix + "BIGQUERY_ENABLED"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sBIGQUERY_ENABLED: %w", EnvPrefix, err)
		}
		c.BigQuery.Enabled = b
	}

	for key, dst := range map[string]*int{
		"API_PORT":       &c.API.Port,
		"API_WORKERS":    &c.API.Workers,
		"API_QUEUE_SIZE": &c.API.QueueSize,
	} {
		if err := num(key, dst); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks the configuration for values the services cannot run with.
func (c Config) Validate() error {
	var errs []error

	if _, err := logger.NewFromConfig(c.Logging.Level, c.Logging.Format, os.Stderr); err != nil {
		errs = append(errs, fmt.Errorf("logging: %w", err))
	}
	if _, err := time.ParseDuration(c.Sheets.BaseDelay); c.Sheets.BaseDelay != "" && err != nil {
		errs = append(errs, fmt.Errorf("sheets.base_delay: %w", err))
	}

	tol, err := parseDecimal("validation.variance_tolerance", c.Validation.VarianceTolerance)
	if err != nil {
		errs = append(errs, err)
	} else if tol.IsNegative() {
		errs = append(errs, fmt.Errorf("validation.variance_tolerance must not be negative"))
	}
	lo, errLo := parseDecimal("validation.pnw_rate_min", c.Validation.PnWRateMin)
	hi, errHi := parseDecimal("validation.pnw_rate_max", c.Validation.PnWRateMax)
	errs = append(errs, errLo, errHi)
	if errLo == nil && errHi == nil && lo.GreaterThan(hi) {
		errs = append(errs, fmt.Errorf("validation.pnw_rate_min %s exceeds pnw_rate_max %s", lo, hi))
	}

	switch c.Versioning.Backend {
	case BackendMemory:
	case BackendFile, BackendSQLite:
		if c.Versioning.Path == "" {
			errs = append(errs, fmt.Errorf("versioning.path is required for the %s backend", c.Versioning.Backend))
		}
	default:
		errs = append(errs, fmt.Errorf("versioning.backend %q is not one of memory, file, sqlite", c.Versioning.Backend))
	}

	if c.BigQuery.Enabled && (c.BigQuery.ProjectID == "" || c.BigQuery.DatasetID == "") {
		errs = append(errs, fmt.Errorf("bigquery.project_id and bigquery.dataset_id are required when bigquery is enabled"))
	}

	if c.API.Port <= 0 || c.API.Port > 65535 {
		errs = append(errs, fmt.Errorf("api.port %d is out of range", c.API.Port))
	}
	if c.API.Workers <= 0 {
		errs = append(errs, fmt.Errorf("api.workers must be positive"))
	}
	if c.API.QueueSize < 0 {
		errs = append(errs, fmt.Errorf("api.queue_size must not be negative"))
	}

	return errors.Join(errs...)
}

func parseDecimal(field, raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %q is not a decimal", field, raw)
	}
	return d, nil
}

// ProcessingOptions returns the extraction thresholds. Call after Validate.
func (c Config) ProcessingOptions() processor.Options {
	tol, _ := parseDecimal("", c.Validation.VarianceTolerance)
	return processor.Options{VarianceTolerance: tol}
}

// ValidationOptions returns the budget-wide check thresholds. Call after Validate.
func (c Config) ValidationOptions() validation.Options {
	tol, _ := parseDecimal("", c.Validation.VarianceTolerance)
	lo, _ := parseDecimal("", c.Validation.PnWRateMin)
	hi, _ := parseDecimal("", c.Validation.PnWRateMax)
	return validation.Options{PnWRateMin: lo, PnWRateMax: hi, Tolerance: tol}
}

// SheetsOptions returns the Sheets reader settings.
func (c Config) SheetsOptions() sheet.SheetsOptions {
	delay, _ := time.ParseDuration(c.Sheets.BaseDelay)
	return sheet.SheetsOptions{
		CredentialsFile: c.Sheets.CredentialsFile,
		BatchSize:       c.Sheets.BatchSize,
		MaxRetries:      c.Sheets.MaxRetries,
		BaseDelay:       delay,
	}
}
