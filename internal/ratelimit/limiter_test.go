package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/askwhyharsh/fogofearth/internal/config"
	"github.com/askwhyharsh/fogofearth/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T, cfg config.RateLimitConfig) (*Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewLimiter(storage.WrapRedisClient(client), cfg, "fog:"), mr
}

func TestLimiter_LocationWindow(t *testing.T) {
	ctx := context.Background()
	limiter, _ := newTestLimiter(t, config.RateLimitConfig{LocationPerMin: 3})

	now := time.Unix(1700000000, 0)
	limiter.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		allowed, err := limiter.AllowLocationUpdate(ctx, "device-1")
		require.NoError(t, err)
		assert.True(t, allowed, "update %d", i)
		now = now.Add(time.Millisecond)
	}

	allowed, err := limiter.AllowLocationUpdate(ctx, "device-1")
	require.NoError(t, err)
	assert.False(t, allowed)

	allowed, err = limiter.AllowLocationUpdate(ctx, "device-2")
	require.NoError(t, err)
	assert.True(t, allowed, "limits are per device")

	now = now.Add(61 * time.Second)
	allowed, err = limiter.AllowLocationUpdate(ctx, "device-1")
	require.NoError(t, err)
	assert.True(t, allowed, "window slides")
}

func TestLimiter_BurstWithinOneSecond(t *testing.T) {
	ctx := context.Background()
	limiter, _ := newTestLimiter(t, config.RateLimitConfig{ImportScansPerMin: 2})

	for i := 0; i < 2; i++ {
		allowed, err := limiter.AllowImportScan(ctx, "d")
		require.NoError(t, err)
		assert.True(t, allowed)
	}
	allowed, err := limiter.AllowImportScan(ctx, "d")
	require.NoError(t, err)
	assert.False(t, allowed)

	remaining, err := limiter.RemainingImportScans(ctx, "d")
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)

	require.NoError(t, limiter.ResetLimits(ctx, "d"))
	remaining, err = limiter.RemainingImportScans(ctx, "d")
	require.NoError(t, err)
	assert.Equal(t, 2, remaining)
}

func TestLimiter_ZeroDisablesLimit(t *testing.T) {
	limiter, _ := newTestLimiter(t, config.RateLimitConfig{})
	for i := 0; i < 10; i++ {
		allowed, err := limiter.AllowIPRequest(context.Background(), "1.2.3.4")
		require.NoError(t, err)
		assert.True(t, allowed)
	}
}

func TestLimiter_RedisDown(t *testing.T) {
	limiter, mr := newTestLimiter(t, config.RateLimitConfig{LocationPerMin: 1})
	mr.Close()

	_, err := limiter.AllowLocationUpdate(context.Background(), "d")
	assert.Error(t, err)
}

func TestMiddleware_IPRateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	limiter, _ := newTestLimiter(t, config.RateLimitConfig{RequestsPerMin: 1})
	mw := NewMiddleware(limiter)

	router := gin.New()
	router.Use(mw.IPRateLimit(), mw.DeviceID())
	router.GET("/x", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(DeviceIDKey))
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Device-ID", "phone-7")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "phone-7", w.Body.String())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}
