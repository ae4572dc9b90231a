// Package fog ties the reveal store, its persisted document, the chunk
// receiver and the study session together behind one serialized facade.
package fog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/askwhyharsh/fogofearth/internal/config"
	"github.com/askwhyharsh/fogofearth/internal/coverage"
	"github.com/askwhyharsh/fogofearth/internal/document"
	"github.com/askwhyharsh/fogofearth/internal/location"
	"github.com/askwhyharsh/fogofearth/internal/metrics"
	"github.com/askwhyharsh/fogofearth/internal/reveal"
	"github.com/askwhyharsh/fogofearth/internal/session"
	"github.com/askwhyharsh/fogofearth/internal/transfer"
	"github.com/askwhyharsh/fogofearth/pkg/logger"
)

// Notifier is told about changes a map view has to redraw for.
type Notifier interface {
	PointRevealed(p location.GeoPoint, primaryCount int)
	SharedImported(sharedCount int)
	TransferProgress(transferID string, have, total int)
	FogReset()
}

type nopNotifier struct{}

func (nopNotifier) PointRevealed(location.GeoPoint, int) {}
func (nopNotifier) SharedImported(int)                   {}
func (nopNotifier) TransferProgress(string, int, int)    {}
func (nopNotifier) FogReset()                            {}

type Settings struct {
	Reveal        reveal.Options
	Style         coverage.MaskStyle
	MaxPartLength int
}

func DefaultSettings() Settings {
	return Settings{
		Reveal:        reveal.DefaultOptions(),
		Style:         coverage.DefaultMaskStyle(),
		MaxPartLength: transfer.DefaultMaxPartLength,
	}
}

// SettingsFromConfig maps the fog and transfer sections of the configuration.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		Reveal: reveal.Options{
			PrimaryRadiusMeters: cfg.Fog.PrimaryRadiusMeters,
			SharedRadiusMeters:  cfg.Fog.SharedRadiusMeters,
			MinDistanceMeters:   cfg.Fog.MinDistanceMeters,
			DedupeShared:        cfg.Fog.DedupeShared,
			SpatialIndex:        cfg.Fog.SpatialIndex,
		},
		Style: coverage.MaskStyle{
			FogAlpha:         uint8(cfg.Fog.FogAlpha),
			SharedClearAlpha: uint8(cfg.Fog.SharedClearAlpha),
		},
		MaxPartLength: cfg.Transfer.MaxPartLength,
	}
}

const (
	OutcomeProgress       = "progress"
	OutcomeImported       = "imported"
	OutcomeLegacyImported = "legacy_imported"
	OutcomeEmpty          = "empty"
	OutcomeRejected       = "rejected"
	OutcomeInvalid        = "invalid"
)

type ImportResult struct {
	Outcome     string `json:"outcome"`
	TransferID  string `json:"transferId,omitempty"`
	Have        int    `json:"have,omitempty"`
	Total       int    `json:"total,omitempty"`
	SharedCount int    `json:"sharedCount"`
}

type Stats struct {
	PrimaryPoints int    `json:"primaryPoints"`
	SharedPoints  int    `json:"sharedPoints"`
	Dirty         bool   `json:"dirty"`
	Revision      int64  `json:"revision"`
	TransferID    string `json:"transferId,omitempty"`
	TransferHave  int    `json:"transferHave,omitempty"`
	TransferTotal int    `json:"transferTotal,omitempty"`
	SessionActive bool   `json:"sessionActive"`
}

// Service is the single writer for one device's fog. Every method is safe
// for concurrent use; calls are serialized.
type Service struct {
	mu       sync.Mutex
	settings Settings
	repo     *document.Repository
	doc      *document.Document
	store    *reveal.Store
	receiver *transfer.Receiver
	tracker  *session.Tracker
	notifier Notifier
	logger   logger.Logger
	dirty    bool
}

type ServiceOption func(*Service)

func WithTracker(t *session.Tracker) ServiceOption {
	return func(s *Service) {
		s.tracker = t
	}
}

func WithNotifier(n Notifier) ServiceOption {
	return func(s *Service) {
		s.notifier = n
	}
}

func NewService(repo *document.Repository, settings Settings, log logger.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		settings: settings,
		repo:     repo,
		doc:      &document.Document{SchemaVersion: document.CurrentSchemaVersion},
		store:    reveal.NewStore(settings.Reveal, nil, nil),
		receiver: transfer.NewReceiver(),
		notifier: nopNotifier{},
		logger:   log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Hydrate replaces the in-memory layers with the stored document.
func (s *Service) Hydrate(ctx context.Context) error {
	doc, err := s.repo.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load fog document: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.doc = doc
	s.store = doc.Hydrate(s.settings.Reveal)
	s.dirty = false
	s.updateGauges()

	s.logger.Info("Fog hydrated",
		"primary_points", s.store.PrimaryLen(),
		"shared_points", s.store.SharedLen(),
		"revision", doc.Revision,
	)
	return nil
}

// AddPrimary records a location fix. It reports whether the point was kept.
func (s *Service) AddPrimary(p location.GeoPoint) bool {
	if s.tracker != nil {
		s.tracker.RecordLocation(p)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.store.AddPrimary(p) {
		metrics.PointsSkippedTotal.Inc()
		return false
	}

	s.dirty = true
	metrics.PointsAddedTotal.Inc()
	s.updateGauges()
	s.notifier.PointRevealed(p, s.store.PrimaryLen())
	return true
}

// Export is one snapshot of the primary layer: the polyline and the chunks
// cut from it.
type Export struct {
	Encoded string
	Chunks  []transfer.Chunk
}

// ExportChunks splits the primary layer for a size-limited channel and
// counts one map share.
func (s *Service) ExportChunks(ctx context.Context) (Export, error) {
	s.mu.Lock()
	encoded := s.store.ExportPrimaryEncoded()
	s.mu.Unlock()

	chunks, err := transfer.SplitNow(encoded, s.settings.MaxPartLength)
	if err != nil {
		return Export{}, err
	}

	metrics.ExportsTotal.Inc()
	if s.tracker != nil {
		if _, err := s.tracker.IncrementShareCount(ctx); err != nil {
			s.logger.Warn("Failed to count map share", "error", err)
		}
	}
	return Export{Encoded: encoded, Chunks: chunks}, nil
}

// ImportScanned feeds one scanned string to the receiver. A completed
// transfer replaces the shared layer and is saved right away; a failure
// leaves both layers unchanged.
func (s *Service) ImportScanned(ctx context.Context, scan string) (ImportResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.receiver.Ingest(scan)
	if err != nil {
		metrics.ImportsTotal.WithLabelValues(OutcomeRejected).Inc()
		return ImportResult{Outcome: OutcomeRejected, SharedCount: s.store.SharedLen()}, err
	}
	metrics.ChunksIngestedTotal.Inc()

	var result ImportResult
	switch res.Status {
	case transfer.StatusProgress:
		s.notifier.TransferProgress(res.TransferID, res.Have, res.Total)
		return ImportResult{
			Outcome:     OutcomeProgress,
			TransferID:  res.TransferID,
			Have:        res.Have,
			Total:       res.Total,
			SharedCount: s.store.SharedLen(),
		}, nil

	case transfer.StatusComplete:
		if res.Empty() {
			metrics.ImportsTotal.WithLabelValues(OutcomeEmpty).Inc()
			return ImportResult{Outcome: OutcomeEmpty, TransferID: res.TransferID, SharedCount: s.store.SharedLen()}, nil
		}
		if err := s.store.ImportSharedEncoded(res.Payload); err != nil {
			metrics.ImportsTotal.WithLabelValues(OutcomeInvalid).Inc()
			return ImportResult{Outcome: OutcomeInvalid, TransferID: res.TransferID, SharedCount: s.store.SharedLen()}, err
		}
		result = ImportResult{Outcome: OutcomeImported, TransferID: res.TransferID, Have: res.Have, Total: res.Total}

	case transfer.StatusLegacy:
		s.store.SetShared(res.Points)
		result = ImportResult{Outcome: OutcomeLegacyImported}
	}

	result.SharedCount = s.store.SharedLen()
	metrics.ImportsTotal.WithLabelValues(result.Outcome).Inc()
	s.dirty = true
	s.updateGauges()
	s.notifier.SharedImported(result.SharedCount)

	if err := s.flushLocked(ctx); err != nil {
		// The autosaver retries while the service stays dirty.
		s.logger.Error("Failed to save imported map", "error", err)
	}

	s.logger.Info("Shared map imported", "outcome", result.Outcome, "shared_points", result.SharedCount)
	return result, nil
}

// EstimateUncovered samples how much of the explored area is still fogged.
func (s *Service) EstimateUncovered() coverage.Estimate {
	s.mu.Lock()
	points := s.store.PrimaryPoints()
	radius := s.settings.Reveal.PrimaryRadiusMeters
	s.mu.Unlock()

	start := time.Now()
	est := coverage.Sample(points, radius)
	metrics.EstimateDurationMs.Observe(float64(time.Since(start).Milliseconds()))
	return est
}

// BuildMaskDescription describes how a renderer composites both layers.
func (s *Service) BuildMaskDescription() coverage.MaskSpec {
	s.mu.Lock()
	defer s.mu.Unlock()
	return coverage.BuildMask(s.store.Primary(), s.store.Shared(), s.settings.Style)
}

// Flush saves the layers if anything changed since the last save.
func (s *Service) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked(ctx)
}

func (s *Service) flushLocked(ctx context.Context) error {
	if !s.dirty {
		return nil
	}

	s.doc.Capture(s.store)
	if err := s.repo.Save(ctx, s.doc); err != nil {
		metrics.SaveFailuresTotal.Inc()
		return fmt.Errorf("failed to save fog document: %w", err)
	}

	metrics.SavesTotal.Inc()
	s.dirty = false
	s.logger.Debug("Fog saved", "revision", s.doc.Revision)
	return nil
}

// Reset clears both layers, drops any partial transfer and saves.
func (s *Service) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.store.Clear()
	s.receiver.Reset()
	s.dirty = true
	s.updateGauges()
	s.notifier.FogReset()

	return s.flushLocked(ctx)
}

func (s *Service) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := Stats{
		PrimaryPoints: s.store.PrimaryLen(),
		SharedPoints:  s.store.SharedLen(),
		Dirty:         s.dirty,
		Revision:      s.doc.Revision,
	}
	if id, have, total, ok := s.receiver.Progress(); ok {
		stats.TransferID, stats.TransferHave, stats.TransferTotal = id, have, total
	}
	if s.tracker != nil {
		stats.SessionActive = s.tracker.Active()
	}
	return stats
}

// Layers returns snapshots of both layers.
func (s *Service) Layers() (primary, shared reveal.Layer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Primary(), s.store.Shared()
}

func (s *Service) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

func (s *Service) updateGauges() {
	metrics.PrimaryPoints.Set(float64(s.store.PrimaryLen()))
	metrics.SharedPoints.Set(float64(s.store.SharedLen()))
}
