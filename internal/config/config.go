package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Redis       RedisConfig       `yaml:"redis"`
	Postgres    PostgresConfig    `yaml:"postgres"`
	Fog         FogConfig         `yaml:"fog"`
	Transfer    TransferConfig    `yaml:"transfer"`
	Persistence PersistenceConfig `yaml:"persistence"`
	RateLimit   RateLimitConfig   `yaml:"rateLimit"`
	Study       StudyConfig       `yaml:"study"`
	Monitoring  MonitoringConfig  `yaml:"monitoring"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
	Env  string `yaml:"env"`
	Host string `yaml:"host"`
}

type RedisConfig struct {
	Host      string `yaml:"host"`
	Port      string `yaml:"port"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"keyPrefix"`
}

// PostgresConfig is optional; an empty DSN disables the summary sink.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

type FogConfig struct {
	PrimaryRadiusMeters float64 `yaml:"primaryRadiusMeters"`
	SharedRadiusMeters  float64 `yaml:"sharedRadiusMeters"`
	MinDistanceMeters   float64 `yaml:"minDistanceMeters"`
	FogAlpha            int     `yaml:"fogAlpha"`
	SharedClearAlpha    int     `yaml:"sharedClearAlpha"`
	DedupeShared        bool    `yaml:"dedupeShared"`
	SpatialIndex        bool    `yaml:"spatialIndex"`
}

type TransferConfig struct {
	MaxPartLength int `yaml:"maxPartLength"`
}

type PersistenceConfig struct {
	DocumentKey       string        `yaml:"documentKey"`
	AutosaveInterval  time.Duration `yaml:"autosaveInterval"`
	ConflictDetection bool          `yaml:"conflictDetection"`
	DataDir           string        `yaml:"dataDir"`
}

type RateLimitConfig struct {
	LocationPerMin    int `yaml:"locationPerMin"`
	ImportScansPerMin int `yaml:"importScansPerMin"`
	RequestsPerMin    int `yaml:"requestsPerMin"`
}

type StudyConfig struct {
	SessionLogPath string        `yaml:"sessionLogPath"`
	IdleTimeout    time.Duration `yaml:"idleTimeout"`
}

type MonitoringConfig struct {
	EnableMetrics bool   `yaml:"enableMetrics"`
	LogLevel      string `yaml:"logLevel"`
}

// Default returns the built-in configuration before any file or env overrides.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8080",
			Env:  "development",
			Host: "0.0.0.0",
		},
		Redis: RedisConfig{
			Host:      "localhost",
			Port:      "6379",
			KeyPrefix: "fog:",
		},
		Fog: FogConfig{
			PrimaryRadiusMeters: 100,
			SharedRadiusMeters:  500,
			MinDistanceMeters:   4.5,
			FogAlpha:            255,
			SharedClearAlpha:    170,
			SpatialIndex:        true,
		},
		Transfer: TransferConfig{
			MaxPartLength: 600,
		},
		Persistence: PersistenceConfig{
			DocumentKey:      "fog_state",
			AutosaveInterval: 2 * time.Second,
			DataDir:          "./data",
		},
		RateLimit: RateLimitConfig{
			LocationPerMin:    120,
			ImportScansPerMin: 60,
			RequestsPerMin:    600,
		},
		Study: StudyConfig{
			SessionLogPath: "./data/sessions.ndjson",
			IdleTimeout:    10 * time.Minute,
		},
		Monitoring: MonitoringConfig{
			EnableMetrics: true,
			LogLevel:      "info",
		},
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// FOG_CONFIG_FILE (if any), then environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	config := Default()

	if path := os.Getenv("FOG_CONFIG_FILE"); path != "" {
		if err := config.applyFile(path); err != nil {
			return nil, err
		}
	}

	config.applyEnv()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.Server.Env = getEnv("ENV", c.Server.Env)
	c.Server.Host = getEnv("HOST", c.Server.Host)

	c.Redis.Host = getEnv("REDIS_HOST", c.Redis.Host)
	c.Redis.Port = getEnv("REDIS_PORT", c.Redis.Port)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getEnvAsInt("REDIS_DB", c.Redis.DB)
	c.Redis.KeyPrefix = getEnv("REDIS_KEY_PREFIX", c.Redis.KeyPrefix)

	c.Postgres.DSN = getEnv("POSTGRES_DSN", c.Postgres.DSN)

	c.Fog.PrimaryRadiusMeters = getEnvAsFloat("FOG_PRIMARY_RADIUS_METERS", c.Fog.PrimaryRadiusMeters)
	c.Fog.SharedRadiusMeters = getEnvAsFloat("FOG_SHARED_RADIUS_METERS", c.Fog.SharedRadiusMeters)
	c.Fog.MinDistanceMeters = getEnvAsFloat("FOG_MIN_DISTANCE_METERS", c.Fog.MinDistanceMeters)
	c.Fog.FogAlpha = getEnvAsInt("FOG_ALPHA", c.Fog.FogAlpha)
	c.Fog.SharedClearAlpha = getEnvAsInt("FOG_SHARED_CLEAR_ALPHA", c.Fog.SharedClearAlpha)
	c.Fog.DedupeShared = getEnvAsBool("FOG_DEDUPE_SHARED", c.Fog.DedupeShared)
	c.Fog.SpatialIndex = getEnvAsBool("FOG_SPATIAL_INDEX", c.Fog.SpatialIndex)

	c.Transfer.MaxPartLength = getEnvAsInt("TRANSFER_MAX_PART_LENGTH", c.Transfer.MaxPartLength)

	c.Persistence.DocumentKey = getEnv("PERSISTENCE_DOCUMENT_KEY", c.Persistence.DocumentKey)
	c.Persistence.AutosaveInterval = getEnvAsDuration("PERSISTENCE_AUTOSAVE_INTERVAL", c.Persistence.AutosaveInterval)
	c.Persistence.ConflictDetection = getEnvAsBool("PERSISTENCE_CONFLICT_DETECTION", c.Persistence.ConflictDetection)
	c.Persistence.DataDir = getEnv("PERSISTENCE_DATA_DIR", c.Persistence.DataDir)

	c.RateLimit.LocationPerMin = getEnvAsInt("RATE_LIMIT_LOCATION_PER_MIN", c.RateLimit.LocationPerMin)
	c.RateLimit.ImportScansPerMin = getEnvAsInt("RATE_LIMIT_IMPORT_SCANS_PER_MIN", c.RateLimit.ImportScansPerMin)
	c.RateLimit.RequestsPerMin = getEnvAsInt("RATE_LIMIT_REQUESTS_PER_MIN", c.RateLimit.RequestsPerMin)

	c.Study.SessionLogPath = getEnv("STUDY_SESSION_LOG_PATH", c.Study.SessionLogPath)
	c.Study.IdleTimeout = getEnvAsDuration("STUDY_IDLE_TIMEOUT", c.Study.IdleTimeout)

	c.Monitoring.EnableMetrics = getEnvAsBool("ENABLE_METRICS", c.Monitoring.EnableMetrics)
	c.Monitoring.LogLevel = getEnv("LOG_LEVEL", c.Monitoring.LogLevel)
}

// Validate rejects settings the fog store and transfer codec cannot work with.
func (c *Config) Validate() error {
	if c.Fog.PrimaryRadiusMeters <= 0 || c.Fog.SharedRadiusMeters <= 0 {
		return fmt.Errorf("reveal radii must be positive")
	}
	if c.Fog.MinDistanceMeters < 0 {
		return fmt.Errorf("min distance must not be negative")
	}
	if c.Fog.FogAlpha < 0 || c.Fog.FogAlpha > 255 || c.Fog.SharedClearAlpha < 0 || c.Fog.SharedClearAlpha > 255 {
		return fmt.Errorf("alpha values must be within 0..255")
	}
	if c.Transfer.MaxPartLength < 1 {
		return fmt.Errorf("transfer max part length must be at least 1")
	}
	if c.Persistence.DocumentKey == "" {
		return fmt.Errorf("persistence document key must not be empty")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}
