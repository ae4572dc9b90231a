package fog

import (
	"context"
	"time"

	"github.com/askwhyharsh/fogofearth/pkg/logger"
)

const shutdownFlushTimeout = 5 * time.Second

// Autosaver flushes the service on a fixed interval while it has unsaved
// changes, and once more when stopped.
type Autosaver struct {
	service  *Service
	interval time.Duration
	logger   logger.Logger
}

func NewAutosaver(service *Service, interval time.Duration, log logger.Logger) *Autosaver {
	return &Autosaver{
		service:  service,
		interval: interval,
		logger:   log,
	}
}

func (a *Autosaver) Start(ctx context.Context) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	a.logger.Info("Autosaver started", "interval", a.interval.String())

	for {
		select {
		case <-ticker.C:
			if !a.service.Dirty() {
				continue
			}
			if err := a.service.Flush(ctx); err != nil {
				a.logger.Error("Periodic fog save failed", "error", err)
			}
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), shutdownFlushTimeout)
			if err := a.service.Flush(flushCtx); err != nil {
				a.logger.Error("Final fog save failed", "error", err)
			}
			cancel()
			a.logger.Info("Autosaver stopped")
			return
		}
	}
}
