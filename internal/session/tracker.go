package session

import (
	"context"
	"sync"
	"time"

	"github.com/askwhyharsh/fogofearth/internal/location"
	apperrors "github.com/askwhyharsh/fogofearth/pkg/errors"
	"github.com/askwhyharsh/fogofearth/pkg/logger"
	"github.com/google/uuid"
)

// Summary describes one finished foreground session. Field names follow the
// study log format.
type Summary struct {
	Type          string  `json:"type"`
	SessionID     string  `json:"sessionId"`
	ParticipantID string  `json:"participantId"`
	SessionNumber int64   `json:"sessionNumber"`
	StartTs       int64   `json:"startTs"`
	EndTs         int64   `json:"endTs"`
	DurationMs    int64   `json:"durationMs"`
	DistanceM     float64 `json:"sessionDistanceM"`
	MapShareCount int64   `json:"mapShareCount"`
}

// Sink receives every finished session.
type Sink interface {
	Record(ctx context.Context, s Summary) error
}

// Tracker follows the foreground session: Start when the app becomes
// visible, End when it leaves. It replaces process-wide session counters
// with one owned object.
type Tracker struct {
	mu     sync.Mutex
	prefs  *Prefs
	sinks  []Sink
	logger logger.Logger
	now    func() time.Time

	active       bool
	startedAt    time.Time
	lastActivity time.Time
	number       int64
	distance     float64
	last         *location.GeoPoint
}

func NewTracker(prefs *Prefs, log logger.Logger, sinks ...Sink) *Tracker {
	return &Tracker{
		prefs:  prefs,
		sinks:  sinks,
		logger: log,
		now:    time.Now,
	}
}

// Start opens a session. Starting an active session does nothing.
func (t *Tracker) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.active {
		return nil
	}

	number, err := t.prefs.NextSessionNumber(ctx)
	if err != nil {
		return err
	}

	now := t.now()
	t.active = true
	t.startedAt = now
	t.lastActivity = now
	t.number = number
	t.distance = 0
	t.last = nil

	t.logger.Info("Session started", "session_number", number)
	return nil
}

// End closes the active session, hands the summary to every sink and
// returns it. Sink failures are logged, not returned.
func (t *Tracker) End(ctx context.Context) (*Summary, error) {
	t.mu.Lock()
	if !t.active {
		t.mu.Unlock()
		return nil, apperrors.ErrSessionNotActive
	}
	t.active = false
	startedAt, number, distance := t.startedAt, t.number, t.distance
	t.last = nil
	t.mu.Unlock()

	participantID, err := t.prefs.ParticipantID(ctx)
	if err != nil {
		return nil, err
	}
	shares, err := t.prefs.MapShareCount(ctx)
	if err != nil {
		return nil, err
	}

	end := t.now()
	summary := &Summary{
		Type:          "session",
		SessionID:     uuid.New().String(),
		ParticipantID: participantID,
		SessionNumber: number,
		StartTs:       startedAt.UnixMilli(),
		EndTs:         end.UnixMilli(),
		DurationMs:    end.Sub(startedAt).Milliseconds(),
		DistanceM:     distance,
		MapShareCount: shares,
	}

	for _, sink := range t.sinks {
		if err := sink.Record(ctx, *summary); err != nil {
			t.logger.Error("Failed to record session", "session_id", summary.SessionID, "error", err)
		}
	}

	t.logger.Info("Session ended",
		"session_id", summary.SessionID,
		"duration_ms", summary.DurationMs,
		"distance_m", summary.DistanceM,
	)
	return summary, nil
}

// RecordLocation adds the distance from the previous fix while a session is
// active. Fixes outside a session are ignored.
func (t *Tracker) RecordLocation(p location.GeoPoint) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.active {
		return
	}
	if t.last != nil {
		t.distance += location.Distance(*t.last, p)
	}
	t.last = &p
	t.lastActivity = t.now()
}

func (t *Tracker) IncrementShareCount(ctx context.Context) (int64, error) {
	return t.prefs.IncrementMapShareCount(ctx)
}

func (t *Tracker) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

// idleSince reports when the active session last saw a location fix.
func (t *Tracker) idleSince() (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastActivity, t.active
}
