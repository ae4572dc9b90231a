package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/askwhyharsh/fogofearth/internal/config"
	"github.com/askwhyharsh/fogofearth/internal/document"
	"github.com/askwhyharsh/fogofearth/internal/fog"
	"github.com/askwhyharsh/fogofearth/internal/session"
	"github.com/askwhyharsh/fogofearth/internal/storage"
	"github.com/askwhyharsh/fogofearth/pkg/logger"
)

const sessionLogName = "sessions.ndjson"

// app is one device's fog opened from a local data directory.
type app struct {
	cfg     *config.Config
	fog     *fog.Service
	tracker *session.Tracker
	logger  logger.Logger
	dataDir string
}

func openApp(ctx context.Context, opts *rootOptions) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	dataDir := opts.DataDir
	if dataDir == "" {
		dataDir = cfg.Persistence.DataDir
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	level := "error"
	if opts.Verbose {
		level = "debug"
	}
	log := logger.NewLogger("development", level)

	blobs := storage.NewFileBlobStore(dataDir)
	repo, err := document.NewRepository(blobs, cfg.Persistence.DocumentKey, document.WithLogger(log))
	if err != nil {
		return nil, err
	}

	tracker := session.NewTracker(session.NewPrefs(blobs), log,
		session.NewFileSink(filepath.Join(dataDir, sessionLogName)))

	svc := fog.NewService(repo, fog.SettingsFromConfig(cfg), log, fog.WithTracker(tracker))
	if err := svc.Hydrate(ctx); err != nil {
		return nil, err
	}

	return &app{
		cfg:     cfg,
		fog:     svc,
		tracker: tracker,
		logger:  log,
		dataDir: dataDir,
	}, nil
}

func (a *app) sessionLogPath() string {
	return filepath.Join(a.dataDir, sessionLogName)
}
