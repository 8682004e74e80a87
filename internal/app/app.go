// Package app builds the budget pipeline and its collaborators from
// configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dvloznov/budget-sync/internal/config"
	"github.com/dvloznov/budget-sync/internal/gcsuploader"
	infraBQ "github.com/dvloznov/budget-sync/internal/infra/bigquery"
	"github.com/dvloznov/budget-sync/internal/logger"
	"github.com/dvloznov/budget-sync/internal/pipeline"
	"github.com/dvloznov/budget-sync/internal/sheet"
	"github.com/dvloznov/budget-sync/internal/versioning"
)

// App owns the pipeline and every resource it opened.
type App struct {
	Config    config.Config
	Pipeline  *pipeline.Pipeline
	Versions  versioning.Store
	// Artifacts is nil unless archiving was requested and storage is configured.
	Artifacts pipeline.ArtifactStore

	closers []io.Closer
}

// Options select the optional stages of the pipeline.
type Options struct {
	// Sink writes rows to BigQuery; requires bigquery.enabled.
	Sink bool
	// Archive stores the processed document when storage is configured.
	Archive bool
}

// New opens the configured stores and builds the pipeline over src.
func New(ctx context.Context, cfg config.Config, src sheet.Source, opts Options) (*App, error) {
	a := &App{Config: cfg}

	versions, err := OpenVersionStore(ctx, cfg.Versioning)
	if err != nil {
		return nil, fmt.Errorf("New: %w", err)
	}
	a.Versions = versions
	a.closers = append(a.closers, versions)

	deps := pipeline.Dependencies{
		Source:         src,
		Versions:       versioning.NewEngine(versions),
		ArtifactPrefix: cfg.Storage.Prefix,
		Processing:     cfg.ProcessingOptions(),
		Validation:     cfg.ValidationOptions(),
	}

	if opts.Archive {
		store, closer, err := OpenArtifactStore(ctx, cfg.Storage)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("New: %w", err)
		}
		if closer != nil {
			a.closers = append(a.closers, closer)
		}
		if store != nil {
			deps.Artifacts = store
			a.Artifacts = store
		}
	}

	if opts.Sink {
		if !cfg.BigQuery.Enabled {
			a.Close()
			return nil, fmt.Errorf("New: the warehouse sink needs bigquery.enabled")
		}
		repo, err := infraBQ.NewBigQueryBudgetRepository(ctx, infraBQ.Options{
			ProjectID:  cfg.BigQuery.ProjectID,
			DatasetID:  cfg.BigQuery.DatasetID,
			MaxRetries: cfg.BigQuery.MaxRetries,
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("New: %w", err)
		}
		a.closers = append(a.closers, repo)
		deps.Sink = repo
	}

	p, err := pipeline.NewBudgetPipeline(deps)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("New: %w", err)
	}
	a.Pipeline = p
	return a, nil
}

// Close releases every opened resource, newest first.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// OpenVersionStore opens the configured version backend.
func OpenVersionStore(ctx context.Context, cfg config.Versioning) (versioning.Store, error) {
	switch cfg.Backend {
	case config.BackendMemory, "":
		return versioning.NewMemoryStore(), nil
	case config.BackendFile:
		return versioning.NewFileStore(cfg.Path)
	case config.BackendSQLite:
		return versioning.OpenSQLite(ctx, cfg.Path)
	default:
		return nil, fmt.Errorf("OpenVersionStore: unknown backend %q", cfg.Backend)
	}
}

// OpenArtifactStore returns the GCS store when a bucket is configured, the
// local store when a directory is, and nil otherwise. The closer is nil for
// stores that hold no client.
func OpenArtifactStore(ctx context.Context, cfg config.Storage) (pipeline.ArtifactStore, io.Closer, error) {
	switch {
	case cfg.Bucket != "":
		s, err := gcsuploader.NewGCSArtifactStore(ctx, cfg.Bucket)
		if err != nil {
			return nil, nil, fmt.Errorf("OpenArtifactStore: %w", err)
		}
		return s, s, nil
	case cfg.LocalDir != "":
		s, err := gcsuploader.NewLocalArtifactStore(cfg.LocalDir)
		if err != nil {
			return nil, nil, fmt.Errorf("OpenArtifactStore: %w", err)
		}
		return s, nil, nil
	default:
		log := logger.FromContext(ctx)
		log.Debug().Msg("No artifact storage configured, documents will not be archived")
		return nil, nil, nil
	}
}
