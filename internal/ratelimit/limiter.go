package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/askwhyharsh/fogofearth/internal/config"
	"github.com/askwhyharsh/fogofearth/internal/metrics"
	"github.com/askwhyharsh/fogofearth/internal/storage"
	"github.com/redis/go-redis/v9"
)

const window = time.Minute

// RateLimiter defines the contract for enforcing and managing rate limits.
type RateLimiter interface {
	// AllowLocationUpdate checks if a device can report another fix.
	AllowLocationUpdate(ctx context.Context, deviceID string) (bool, error)

	// AllowImportScan checks if a device can submit another scanned chunk.
	AllowImportScan(ctx context.Context, deviceID string) (bool, error)

	// AllowIPRequest checks if an IP can make a request.
	AllowIPRequest(ctx context.Context, ip string) (bool, error)

	// RemainingImportScans returns how many scans a device can still submit in the current window.
	RemainingImportScans(ctx context.Context, deviceID string) (int, error)

	// ResetLimits clears all rate limit counters for a device.
	ResetLimits(ctx context.Context, deviceID string) error
}

type Limiter struct {
	redis  storage.RedisClient
	config config.RateLimitConfig
	prefix string
	now    func() time.Time
}

func NewLimiter(redisClient storage.RedisClient, config config.RateLimitConfig, prefix string) *Limiter {
	return &Limiter{
		redis:  redisClient,
		config: config,
		prefix: prefix,
		now:    time.Now,
	}
}

func (l *Limiter) AllowLocationUpdate(ctx context.Context, deviceID string) (bool, error) {
	return l.allow(ctx, "location", l.locationKey(deviceID), l.config.LocationPerMin)
}

func (l *Limiter) AllowImportScan(ctx context.Context, deviceID string) (bool, error) {
	return l.allow(ctx, "import", l.importKey(deviceID), l.config.ImportScansPerMin)
}

func (l *Limiter) AllowIPRequest(ctx context.Context, ip string) (bool, error) {
	return l.allow(ctx, "ip", fmt.Sprintf("%sratelimit:ip:%s:requests", l.prefix, ip), l.config.RequestsPerMin)
}

func (l *Limiter) allow(ctx context.Context, action, key string, maxCount int) (bool, error) {
	allowed, err := l.checkSlidingWindow(ctx, key, maxCount, window)
	if err == nil && !allowed {
		metrics.RateLimitedTotal.WithLabelValues(action).Inc()
	}
	return allowed, err
}

// checkSlidingWindow implements a sliding window rate limiter using sorted sets.
// A non-positive maxCount disables the limit.
func (l *Limiter) checkSlidingWindow(ctx context.Context, key string, maxCount int, window time.Duration) (bool, error) {
	if maxCount <= 0 {
		return true, nil
	}

	now := l.now()
	windowStart := now.Add(-window).UnixNano()

	// Remove old entries outside the window
	if err := l.redis.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatInt(windowStart, 10)); err != nil {
		return false, fmt.Errorf("failed to clean old entries: %w", err)
	}

	count, err := l.redis.ZCard(ctx, key)
	if err != nil {
		return false, fmt.Errorf("failed to count entries: %w", err)
	}

	if count >= int64(maxCount) {
		return false, nil
	}

	// Nanosecond members keep bursts within one second distinct.
	if err := l.redis.ZAdd(ctx, key, &redis.Z{
		Score:  float64(now.UnixNano()),
		Member: strconv.FormatInt(now.UnixNano(), 10),
	}); err != nil {
		return false, fmt.Errorf("failed to add entry: %w", err)
	}

	l.redis.Expire(ctx, key, window)

	return true, nil
}

func (l *Limiter) RemainingImportScans(ctx context.Context, deviceID string) (int, error) {
	count, err := l.redis.ZCard(ctx, l.importKey(deviceID))
	if err != nil {
		return l.config.ImportScansPerMin, nil
	}

	remaining := l.config.ImportScansPerMin - int(count)
	if remaining < 0 {
		remaining = 0
	}

	return remaining, nil
}

// ResetLimits resets all rate limits for a device (use with caution)
func (l *Limiter) ResetLimits(ctx context.Context, deviceID string) error {
	return l.redis.Del(ctx, l.locationKey(deviceID), l.importKey(deviceID))
}

func (l *Limiter) locationKey(deviceID string) string {
	return fmt.Sprintf("%sratelimit:location:%s", l.prefix, deviceID)
}

func (l *Limiter) importKey(deviceID string) string {
	return fmt.Sprintf("%sratelimit:import:%s", l.prefix, deviceID)
}
