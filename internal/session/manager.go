package session

import (
	"context"
	"time"

	"github.com/askwhyharsh/fogofearth/pkg/logger"
)

// Manager ends sessions whose device stopped reporting, standing in for a
// missed background transition.
type Manager struct {
	tracker     *Tracker
	logger      logger.Logger
	idleTimeout time.Duration
	interval    time.Duration
}

func NewManager(tracker *Tracker, idleTimeout time.Duration, log logger.Logger) *Manager {
	interval := idleTimeout / 4
	if interval < time.Second {
		interval = time.Second
	}
	return &Manager{
		tracker:     tracker,
		logger:      log,
		idleTimeout: idleTimeout,
		interval:    interval,
	}
}

// Start checks for idle sessions until ctx is done, then ends any session
// still open.
func (m *Manager) Start(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.logger.Info("Session Manager started", "idle_timeout", m.idleTimeout.String())

	for {
		select {
		case <-ticker.C:
			m.endIdleSession(ctx)
		case <-ctx.Done():
			if m.tracker.Active() {
				if _, err := m.tracker.End(context.Background()); err != nil {
					m.logger.Error("Failed to end session on shutdown", "error", err)
				}
			}
			m.logger.Info("Session Manager stopped")
			return
		}
	}
}

func (m *Manager) endIdleSession(ctx context.Context) {
	if m.idleTimeout <= 0 {
		return
	}
	last, active := m.tracker.idleSince()
	if !active || m.tracker.now().Sub(last) < m.idleTimeout {
		return
	}

	m.logger.Debug("Ending idle session", "last_activity", last)
	if _, err := m.tracker.End(ctx); err != nil {
		m.logger.Error("Failed to end idle session", "error", err)
	}
}
