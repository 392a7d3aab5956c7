package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/grantdesk/applicants/backend/config"
	"github.com/grantdesk/applicants/backend/db"
	"github.com/grantdesk/applicants/backend/service"
)

// app holds the wired stores and the document pipeline
type app struct {
	cfg      *config.Config
	subjects service.SubjectStore
	docs     *service.DocumentService
	closers  []func() error
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}

	states, err := a.openStores()
	if err != nil {
		a.Close()
		return nil, err
	}

	files, err := openFileStore(ctx, &cfg.Storage)
	if err != nil {
		a.Close()
		return nil, err
	}

	converter := service.NewOfficeConverter(&cfg.Converter)
	slog.Info("conversion engine candidates", "candidates", converter.Candidates())

	var mailer service.Mailer
	if cfg.Mail.Enabled {
		mailer = service.NewSMTPMailer(&cfg.Mail)
	}

	a.docs = service.NewDocumentService(service.Dependencies{
		Layout:    service.NewLayout(cfg),
		Subjects:  a.subjects,
		States:    states,
		Files:     files,
		Generator: service.NewGenerationClient(&cfg.Generation),
		Templates: service.NewTemplateProvider(cfg.Templates.Dir),
		Converter: converter,
		Mailer:    mailer,
	})
	return a, nil
}

func (a *app) openStores() (service.StateTracker, error) {
	switch a.cfg.Database.Driver {
	case "memory":
		store := service.NewMemoryStore(a.cfg.Database.MaxSubjects)
		a.subjects = store
		return store, nil
	case "sqlite":
		conn, err := db.Open(a.cfg.Database.Path)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, conn.Close)
		store := service.NewSQLiteStore(conn)
		a.subjects = store
		return store, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", a.cfg.Database.Driver)
	}
}

func openFileStore(ctx context.Context, cfg *config.StorageConfig) (service.FileStore, error) {
	switch cfg.Backend {
	case "disk":
		return service.NewDiskStore(cfg.Root)
	case "minio":
		store, err := service.NewMinioStore(&cfg.Minio, cfg.Root)
		if err != nil {
			return nil, fmt.Errorf("initializing MINIO storage: %w", err)
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("ensuring MINIO bucket: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// Close waits for background email deliveries and releases the stores
func (a *app) Close() error {
	if a.docs != nil {
		a.docs.Wait()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}
