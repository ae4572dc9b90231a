package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

type PostgresClient struct {
	db *sql.DB
}

// SessionRecord is one completed foreground session as stored in the study
// table.
type SessionRecord struct {
	SessionID     string
	ParticipantID string
	SessionNumber int64
	StartedAt     time.Time
	EndedAt       time.Time
	DurationMs    int64
	DistanceM     float64
	MapShareCount int64
}

type ParticipantStats struct {
	Sessions      int64
	TotalDistance float64
	TotalShares   int64
}

func NewPostgresClient(connStr string) (*PostgresClient, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	client := &PostgresClient{db: db}

	// Initialize schema
	if err := client.initSchema(); err != nil {
		return nil, err
	}

	return client, nil
}

// NewPostgresClientFromDB wraps an already opened database without touching
// the schema.
func NewPostgresClientFromDB(db *sql.DB) *PostgresClient {
	return &PostgresClient{db: db}
}

func (p *PostgresClient) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS study_sessions (
		session_id VARCHAR(64) PRIMARY KEY,
		participant_id VARCHAR(64) NOT NULL,
		session_number BIGINT NOT NULL,
		started_at TIMESTAMPTZ NOT NULL,
		ended_at TIMESTAMPTZ NOT NULL,
		duration_ms BIGINT NOT NULL,
		distance_m DOUBLE PRECISION NOT NULL,
		map_share_count BIGINT NOT NULL,
		created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_study_sessions_participant ON study_sessions (participant_id);
	`

	_, err := p.db.Exec(schema)
	return err
}

func (p *PostgresClient) Close() error {
	return p.db.Close()
}

func (p *PostgresClient) InsertSession(ctx context.Context, rec SessionRecord) error {
	query := `
		INSERT INTO study_sessions
			(session_id, participant_id, session_number, started_at, ended_at, duration_ms, distance_m, map_share_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (session_id) DO NOTHING
	`
	_, err := p.db.ExecContext(ctx, query,
		rec.SessionID,
		rec.ParticipantID,
		rec.SessionNumber,
		rec.StartedAt,
		rec.EndedAt,
		rec.DurationMs,
		rec.DistanceM,
		rec.MapShareCount,
	)
	return err
}

func (p *PostgresClient) GetParticipantStats(ctx context.Context, participantID string) (*ParticipantStats, error) {
	query := `
		SELECT
			COUNT(*),
			COALESCE(SUM(distance_m), 0),
			COALESCE(MAX(map_share_count), 0)
		FROM study_sessions
		WHERE participant_id = $1
	`

	var stats ParticipantStats
	err := p.db.QueryRowContext(ctx, query, participantID).Scan(
		&stats.Sessions,
		&stats.TotalDistance,
		&stats.TotalShares,
	)
	if err != nil {
		return nil, err
	}

	return &stats, nil
}
