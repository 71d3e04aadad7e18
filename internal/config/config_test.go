package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	require.Equal(t, int64(50<<20), cfg.MaxSegmentBytes)
	require.Equal(t, 5*time.Second, cfg.FlushInterval())
	require.Equal(t, 30*time.Second, cfg.CacheTTL())
	require.Equal(t, 90*24*time.Hour, cfg.Retention())
	require.True(t, cfg.EnableIntegrity)
}

func TestLoadFileAndEnvOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trail.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"batchSize": 10, "cacheTTLSecs": 5}`), 0o644))
	t.Setenv("TRAIL_BATCH_SIZE", "25")
	t.Setenv("TRAIL_COMPRESSION_LEVEL", "9")

	cfg, err := Load(path)
	require.NoError(t, err)
	// env wins over file, file wins over defaults
	require.Equal(t, 25, cfg.BatchSize)
	require.Equal(t, 5, cfg.CacheTTLSecs)
	require.Equal(t, 9, cfg.CompressionLevel)
	require.Equal(t, 128, cfg.CacheCapacity)
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Setenv("TRAIL_COMPRESSION_LEVEL", "12")
	_, err := Load("")
	require.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
}
