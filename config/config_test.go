package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefault(t *testing.T) {
	assert := assert.New(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(Default(), cfg)
	assert.Equal(runtime.NumCPU(), cfg.TargetPartitions)
}

func TestLoadEnv(t *testing.T) {
	assert := assert.New(t)

	t.Setenv("AWKFRAME_BATCH_SIZE", "16")
	t.Setenv("AWKFRAME_LOG_LEVEL", "DEBUG")
	t.Setenv("AWKFRAME_COLOR", "false")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(16, cfg.BatchSize)
	assert.Equal("DEBUG", cfg.Log.Level)
	assert.False(cfg.Color)
}

func TestLoadFile(t *testing.T) {
	assert := assert.New(t)

	path := filepath.Join(t.TempDir(), "awkframe.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
batch_size: 2
target_partitions: 3
log:
  format: json
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(2, cfg.BatchSize)
	assert.Equal(3, cfg.TargetPartitions)
	assert.Equal("json", cfg.Log.Format)
	assert.Equal(1000, cfg.SchemaInferMaxRecords)
}

func TestLoadInvalid(t *testing.T) {
	assert := assert.New(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(err)

	t.Setenv("AWKFRAME_BATCH_SIZE", "0")
	_, err = Load("")
	assert.Error(err)
}
