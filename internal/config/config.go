package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the top-level configuration loaded from defaults/file/env.
type Config struct {
	DataDir string `json:"dataDir" env:"TRAIL_DATA_DIR"`

	// Segment rotation and retention.
	MaxSegmentBytes   int64 `json:"maxSegmentBytes" env:"TRAIL_MAX_SEGMENT_BYTES"`
	MaxSegmentAgeSecs int   `json:"maxSegmentAgeSecs" env:"TRAIL_MAX_SEGMENT_AGE_SECS"`
	RetentionDays     int   `json:"retentionDays" env:"TRAIL_RETENTION_DAYS"`
	CompressionLevel  int   `json:"compressionLevel" env:"TRAIL_COMPRESSION_LEVEL"`

	// Write buffering.
	BatchSize       int `json:"batchSize" env:"TRAIL_BATCH_SIZE"`
	FlushIntervalMS int `json:"flushIntervalMS" env:"TRAIL_FLUSH_INTERVAL_MS"`

	// Query cache.
	CacheTTLSecs  int `json:"cacheTTLSecs" env:"TRAIL_CACHE_TTL_SECS"`
	CacheCapacity int `json:"cacheCapacity" env:"TRAIL_CACHE_CAPACITY"`

	// Payload and statistics bounds.
	MaxDetailsBytes   int `json:"maxDetailsBytes" env:"TRAIL_MAX_DETAILS_BYTES"`
	DistinctEntityCap int `json:"distinctEntityCap" env:"TRAIL_DISTINCT_ENTITY_CAP"`

	// Tamper evidence.
	EnableIntegrity bool   `json:"enableIntegrity" env:"TRAIL_ENABLE_INTEGRITY"`
	KeyName         string `json:"keyName" env:"TRAIL_KEY_NAME"`

	LogLevel  string `json:"logLevel" env:"TRAIL_LOG_LEVEL"`
	LogFormat string `json:"logFormat" env:"TRAIL_LOG_FORMAT"`
}

// Default returns built-in defaults.
func Default() Config {
	return Config{
		MaxSegmentBytes:   50 << 20,
		MaxSegmentAgeSecs: 0,
		RetentionDays:     90,
		CompressionLevel:  6,
		BatchSize:         100,
		FlushIntervalMS:   5000,
		CacheTTLSecs:      30,
		CacheCapacity:     128,
		MaxDetailsBytes:   50 << 10,
		DistinctEntityCap: 10000,
		EnableIntegrity:   true,
		KeyName:           "audit",
		LogLevel:          "info",
		LogFormat:         "text",
	}
}

// Load reads configuration from an optional JSON file and overlays TRAIL_*
// environment variables. An empty path skips the file layer.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, err
		}
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks invariants that would otherwise surface as runtime faults.
func (c Config) Validate() error {
	if c.MaxSegmentBytes <= 0 {
		return fmt.Errorf("maxSegmentBytes must be positive, got %d", c.MaxSegmentBytes)
	}
	if c.CompressionLevel < 1 || c.CompressionLevel > 9 {
		return fmt.Errorf("compressionLevel must be 1..9, got %d", c.CompressionLevel)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batchSize must be positive, got %d", c.BatchSize)
	}
	if c.FlushIntervalMS <= 0 {
		return fmt.Errorf("flushIntervalMS must be positive, got %d", c.FlushIntervalMS)
	}
	if c.CacheCapacity <= 0 {
		return fmt.Errorf("cacheCapacity must be positive, got %d", c.CacheCapacity)
	}
	if c.MaxDetailsBytes <= 0 {
		return fmt.Errorf("maxDetailsBytes must be positive, got %d", c.MaxDetailsBytes)
	}
	return nil
}

// MaxSegmentAge returns the rotation age threshold; zero disables it.
func (c Config) MaxSegmentAge() time.Duration {
	return time.Duration(c.MaxSegmentAgeSecs) * time.Second
}

// Retention returns how long closed segments are kept; zero keeps forever.
func (c Config) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

// FlushInterval returns the flusher's time trigger.
func (c Config) FlushInterval() time.Duration {
	return time.Duration(c.FlushIntervalMS) * time.Millisecond
}

// CacheTTL returns the query result staleness bound.
func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSecs) * time.Second
}
