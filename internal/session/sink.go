package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/askwhyharsh/fogofearth/internal/storage"
)

// FileSink appends one JSON line per session to a file.
type FileSink struct {
	mu   sync.Mutex
	path string
}

func NewFileSink(path string) *FileSink {
	return &FileSink{path: path}
}

func (s *FileSink) Path() string {
	return s.path
}

func (s *FileSink) Record(ctx context.Context, summary Summary) error {
	line, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal session summary: %w", err)
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create session log directory: %w", err)
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open session log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(line); err != nil {
		return fmt.Errorf("failed to append session log: %w", err)
	}
	return nil
}

// SessionWriter is the part of the Postgres client the sink needs.
type SessionWriter interface {
	InsertSession(ctx context.Context, rec storage.SessionRecord) error
}

type PostgresSink struct {
	db SessionWriter
}

func NewPostgresSink(db SessionWriter) *PostgresSink {
	return &PostgresSink{db: db}
}

func (s *PostgresSink) Record(ctx context.Context, summary Summary) error {
	return s.db.InsertSession(ctx, storage.SessionRecord{
		SessionID:     summary.SessionID,
		ParticipantID: summary.ParticipantID,
		SessionNumber: summary.SessionNumber,
		StartedAt:     time.UnixMilli(summary.StartTs).UTC(),
		EndedAt:       time.UnixMilli(summary.EndTs).UTC(),
		DurationMs:    summary.DurationMs,
		DistanceM:     summary.DistanceM,
		MapShareCount: summary.MapShareCount,
	})
}
