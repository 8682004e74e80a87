package main

import (
	"context"
	"crypto/sha256"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/rs/zerolog"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/budget-sync/internal/config"
	"github.com/dvloznov/budget-sync/internal/logger"
	"github.com/dvloznov/budget-sync/migrations"
)

// Migration is one numbered DDL file.
type Migration struct {
	Version  int
	Name     string
	Filename string
	SQL      string
	Checksum string
}

// AppliedMigration is a row of schema_migrations.
type AppliedMigration struct {
	Version   int
	Name      string
	AppliedAt time.Time
	Checksum  string
	AppliedBy string
}

func main() {
	var (
		configPath    = flag.String("config", os.Getenv("BUDGET_SYNC_CONFIG"), "Configuration file path (or set BUDGET_SYNC_CONFIG)")
		projectID     = flag.String("project", "", "GCP project ID (defaults to bigquery.project_id)")
		datasetID     = flag.String("dataset", "", "BigQuery dataset ID (defaults to bigquery.dataset_id)")
		appliedBy     = flag.String("applied-by", "migrate-cli", "Name recorded in schema_migrations")
		migrationsDir = flag.String("migrations", "", "Read migrations from this directory instead of the embedded set")
		dryRun        = flag.Bool("dry-run", false, "List pending migrations without applying them")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log, err := logger.NewFromConfig(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	project := firstNonEmpty(*projectID, cfg.BigQuery.ProjectID)
	dataset := firstNonEmpty(*datasetID, cfg.BigQuery.DatasetID)
	if project == "" {
		log.Fatal().Msg("A GCP project is required: pass -project or set bigquery.project_id")
	}

	var fsys fs.FS
	if *migrationsDir != "" {
		fsys = os.DirFS(*migrationsDir)
	} else if fsys, err = fs.Sub(migrations.BigQuery, "bigquery"); err != nil {
		log.Fatal().Err(err).Msg("Embedded migrations are missing")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := bigquery.NewClient(ctx, project)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery client")
	}
	defer client.Close()

	m := &migrator{
		client:    client,
		project:   project,
		dataset:   dataset,
		appliedBy: *appliedBy,
		log:       log.With().Str("project", project).Str("dataset", dataset).Logger(),
	}
	if err := m.run(ctx, fsys, *dryRun); err != nil {
		log.Fatal().Err(err).Msg("Migration failed")
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

type migrator struct {
	client    *bigquery.Client
	project   string
	dataset   string
	appliedBy string
	log       zerolog.Logger
}

func (m *migrator) run(ctx context.Context, fsys fs.FS, dryRun bool) error {
	if err := m.ensureSchemaMigrationsTable(ctx); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}

	all, err := readMigrations(fsys, m.project, m.dataset, m.log)
	if err != nil {
		return err
	}
	applied, err := m.appliedMigrations(ctx)
	if err != nil {
		return err
	}

	pending, drifted := planMigrations(all, applied)
	for _, d := range drifted {
		m.log.Warn().Str("migration", d.Filename).Msg("Migration changed since it was applied")
	}
	m.log.Info().
		Int("found", len(all)).
		Int("applied", len(applied)).
		Int("pending", len(pending)).
		Msg("Planned migrations")

	if dryRun {
		for _, p := range pending {
			m.log.Info().Str("migration", p.Filename).Msg("Would apply")
		}
		return nil
	}

	for _, p := range pending {
		if err := m.query(ctx, p.SQL, nil); err != nil {
			return fmt.Errorf("apply %s: %w", p.Filename, err)
		}
		if err := m.record(ctx, p); err != nil {
			return fmt.Errorf("record %s: %w", p.Filename, err)
		}
		m.log.Info().Str("migration", p.Filename).Msg("Applied")
	}

	if len(pending) == 0 {
		m.log.Info().Msg("Dataset is up to date")
	}
	return nil
}

// planMigrations returns the migrations not yet applied, in version order, and
// the applied ones whose file checksum no longer matches the recorded one.
func planMigrations(migrations []Migration, applied []AppliedMigration) (pending, drifted []Migration) {
	checksums := make(map[int]string, len(applied))
	for _, am := range applied {
		checksums[am.Version] = am.Checksum
	}

	for _, m := range migrations {
		sum, ok := checksums[m.Version]
		switch {
		case !ok:
			pending = append(pending, m)
		case sum != "" && sum != m.Checksum:
			drifted = append(drifted, m)
		}
	}
	return pending, drifted
}

func (m *migrator) table(name string) string {
	return "`" + m.project + "." + m.dataset + "." + name + "`"
}

// query runs a DDL or DML statement and waits for it.
func (m *migrator) query(ctx context.Context, sql string, params []bigquery.QueryParameter) error {
	q := m.client.Query(sql)
	q.Parameters = params

	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}
	return nil
}

func (m *migrator) ensureSchemaMigrationsTable(ctx context.Context) error {
	return m.query(ctx, `
		CREATE TABLE IF NOT EXISTS `+m.table("schema_migrations")+` (
			version     INT64 NOT NULL,
			name        STRING NOT NULL,
			applied_at  TIMESTAMP NOT NULL,
			checksum    STRING,
			applied_by  STRING
		)`, nil)
}

func (m *migrator) record(ctx context.Context, mig Migration) error {
	return m.query(ctx, `
		INSERT INTO `+m.table("schema_migrations")+`
		(version, name, applied_at, checksum, applied_by)
		VALUES (@version, @name, CURRENT_TIMESTAMP(), @checksum, @applied_by)`,
		[]bigquery.QueryParameter{
			{Name: "version", Value: mig.Version},
			{Name: "name", Value: mig.Name},
			{Name: "checksum", Value: mig.Checksum},
			{Name: "applied_by", Value: m.appliedBy},
		})
}

func (m *migrator) appliedMigrations(ctx context.Context) ([]AppliedMigration, error) {
	it, err := m.client.Query(`
		SELECT version, name, applied_at, checksum, applied_by
		FROM ` + m.table("schema_migrations") + `
		ORDER BY version ASC`).Read(ctx)
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("reading applied migrations: %w", err)
	}

	var applied []AppliedMigration
	for {
		var row struct {
			Version   int64
			Name      string
			AppliedAt time.Time
			Checksum  bigquery.NullString
			AppliedBy bigquery.NullString
		}
		err := it.Next(&row)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterating applied migrations: %w", err)
		}
		applied = append(applied, AppliedMigration{
			Version:   int(row.Version),
			Name:      row.Name,
			AppliedAt: row.AppliedAt,
			Checksum:  row.Checksum.StringVal,
			AppliedBy: row.AppliedBy.StringVal,
		})
	}
	return applied, nil
}

// migrationPattern matches migration files: 0001_name.sql
var migrationPattern = regexp.MustCompile(`^(\d{4})_(.+)\.sql$`)

// readMigrations loads the migrations at the top of fsys in version order,
// substituting the project and dataset placeholders. The checksum covers the
// file before substitution.
func readMigrations(fsys fs.FS, project, dataset string, log zerolog.Logger) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("readMigrations: %w", err)
	}

	replacer := strings.NewReplacer("{{PROJECT_ID}}", project, "{{DATASET_ID}}", dataset)

	var out []Migration
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		matches := migrationPattern.FindStringSubmatch(e.Name())
		if matches == nil {
			log.Debug().Str("file", e.Name()).Msg("Skipping non-migration file")
			continue
		}
		version, _ := strconv.Atoi(matches[1])

		content, err := fs.ReadFile(fsys, e.Name())
		if err != nil {
			return nil, fmt.Errorf("readMigrations: %s: %w", e.Name(), err)
		}

		out = append(out, Migration{
			Version:  version,
			Name:     matches[2],
			Filename: e.Name(),
			SQL:      replacer.Replace(string(content)),
			Checksum: fmt.Sprintf("%x", sha256.Sum256(content)),
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}
