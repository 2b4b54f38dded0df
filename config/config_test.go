package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, uint64(8<<20), cfg.Loader.UploadBudgetBytes)
	assert.Equal(t, 5*time.Millisecond, cfg.Loader.TickInterval)
	assert.Equal(t, 2*time.Minute, cfg.Loader.Timeout)
	assert.Equal(t, 0, cfg.Loader.DecodeWorkers)

	assert.Equal(t, "text", cfg.Report.Format)
	assert.False(t, cfg.Report.Verbose)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Empty(t, cfg.Logging.LogFile)
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gantry.yaml")
	content := `
loader:
  upload_budget_bytes: 1048576
  timeout: 30s
  decode_workers: 2

report:
  format: json
  verbose: true

logging:
  level: debug
  log_file: inspect.log
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, uint64(1<<20), cfg.Loader.UploadBudgetBytes)
	assert.Equal(t, 30*time.Second, cfg.Loader.Timeout)
	assert.Equal(t, 2, cfg.Loader.DecodeWorkers)
	// Unset fields keep their defaults.
	assert.Equal(t, 5*time.Millisecond, cfg.Loader.TickInterval)

	assert.Equal(t, "json", cfg.Report.Format)
	assert.True(t, cfg.Report.Verbose)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "inspect.log", cfg.Logging.LogFile)
}

func TestLoadRejectsInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("loader:\n  timeout: [not, a, duration\n"), 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading config from")
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.Loader.UploadBudgetBytes = 42
	cfg.Report.Format = "json"
	require.NoError(t, cfg.SaveTo(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestConfigDirIsAbsolute(t *testing.T) {
	dir := ConfigDir()
	require.NotEmpty(t, dir)
	assert.True(t, filepath.IsAbs(dir))
}
