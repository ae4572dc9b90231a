package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/askwhyharsh/fogofearth/internal/storage"
	"github.com/google/uuid"
)

const prefsKey = "study_prefs.json"

type prefsData struct {
	ParticipantID string `json:"participantId"`
	SessionNumber int64  `json:"sessionNumber"`
	MapShareCount int64  `json:"mapShareCount"`
}

// Prefs holds the study counters that survive restarts: the participant id,
// the last session number and the cumulative map share count.
type Prefs struct {
	mu     sync.Mutex
	blobs  storage.BlobStore
	loaded bool
	data   prefsData
}

func NewPrefs(blobs storage.BlobStore) *Prefs {
	return &Prefs{blobs: blobs}
}

func (p *Prefs) load(ctx context.Context) error {
	if p.loaded {
		return nil
	}

	raw, err := p.blobs.Load(ctx, prefsKey)
	if err != nil {
		return fmt.Errorf("failed to load study prefs: %w", err)
	}
	if raw != nil {
		// Unreadable prefs restart the counters.
		if err := json.Unmarshal(raw, &p.data); err != nil {
			p.data = prefsData{}
		}
	}
	p.loaded = true
	return nil
}

func (p *Prefs) save(ctx context.Context) error {
	raw, err := json.Marshal(p.data)
	if err != nil {
		return fmt.Errorf("failed to marshal study prefs: %w", err)
	}
	if err := p.blobs.Save(ctx, prefsKey, raw); err != nil {
		return fmt.Errorf("failed to save study prefs: %w", err)
	}
	return nil
}

// ParticipantID returns the stable participant id, creating it on first use.
func (p *Prefs) ParticipantID(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.load(ctx); err != nil {
		return "", err
	}
	if p.data.ParticipantID == "" {
		p.data.ParticipantID = uuid.New().String()
		if err := p.save(ctx); err != nil {
			return "", err
		}
	}
	return p.data.ParticipantID, nil
}

func (p *Prefs) NextSessionNumber(ctx context.Context) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.load(ctx); err != nil {
		return 0, err
	}
	p.data.SessionNumber++
	if err := p.save(ctx); err != nil {
		p.data.SessionNumber--
		return 0, err
	}
	return p.data.SessionNumber, nil
}

func (p *Prefs) IncrementMapShareCount(ctx context.Context) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.load(ctx); err != nil {
		return 0, err
	}
	p.data.MapShareCount++
	if err := p.save(ctx); err != nil {
		p.data.MapShareCount--
		return 0, err
	}
	return p.data.MapShareCount, nil
}

func (p *Prefs) MapShareCount(ctx context.Context) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.load(ctx); err != nil {
		return 0, err
	}
	return p.data.MapShareCount, nil
}
