package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("FOG_CONFIG_FILE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 100.0, cfg.Fog.PrimaryRadiusMeters)
	assert.Equal(t, 500.0, cfg.Fog.SharedRadiusMeters)
	assert.Equal(t, 4.5, cfg.Fog.MinDistanceMeters)
	assert.Equal(t, 255, cfg.Fog.FogAlpha)
	assert.Equal(t, 170, cfg.Fog.SharedClearAlpha)
	assert.Equal(t, 600, cfg.Transfer.MaxPartLength)
	assert.Equal(t, "fog_state", cfg.Persistence.DocumentKey)
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fog.yaml")
	content := `
fog:
  primaryRadiusMeters: 80
  sharedRadiusMeters: 300
transfer:
  maxPartLength: 200
persistence:
  autosaveInterval: 5s
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	t.Setenv("FOG_CONFIG_FILE", path)
	t.Setenv("FOG_SHARED_RADIUS_METERS", "250")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 80.0, cfg.Fog.PrimaryRadiusMeters)
	assert.Equal(t, 250.0, cfg.Fog.SharedRadiusMeters, "env overrides file")
	assert.Equal(t, 200, cfg.Transfer.MaxPartLength)
	assert.Equal(t, 5*time.Second, cfg.Persistence.AutosaveInterval)
	assert.Equal(t, 4.5, cfg.Fog.MinDistanceMeters, "untouched keys keep defaults")
}

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv("FOG_CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	cfg.Transfer.MaxPartLength = 0
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Fog.SharedClearAlpha = 300
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Fog.PrimaryRadiusMeters = 0
	assert.Error(t, cfg.Validate())
}

func TestRedisAddr(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "localhost:6379", cfg.RedisAddr())
}
