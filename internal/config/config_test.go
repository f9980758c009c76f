package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, 5, cfg.Runs.SlotCount)
	require.Equal(t, "frame", cfg.Runs.Mode)
	require.Equal(t, "fresh", cfg.Runs.Reuse)
	require.False(t, cfg.Runs.Rerun)
	require.True(t, cfg.Runs.Shuffle)
	require.Equal(t, 500*time.Millisecond, cfg.RerunDelay())
	require.Equal(t, 5*time.Second, cfg.FetchTimeout())
	require.Equal(t, 8*time.Second, cfg.NavTimeout())
	require.Equal(t, "welcome to nginx", cfg.Headless.SentinelTitle)
	require.Equal(t, "local", cfg.Storage.Backend)
	require.Equal(t, "delivery_outcomes", cfg.DB.OutcomeTable)
	require.Equal(t, "runs", cfg.DB.RunTable)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
server:
  port: 9999
runs:
  slot_count: 3
  mode: fetch
  shuffle: false
headless:
  enabled: false
storage:
  backend: memory
schedule:
  entries:
    - cron: "0 * * * *"
      url: "https://example.com"
      mode: fetch
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 9999, cfg.Server.Port)
	require.Equal(t, 3, cfg.Runs.SlotCount)
	require.Equal(t, "fetch", cfg.Runs.Mode)
	require.False(t, cfg.Runs.Shuffle)
	require.False(t, cfg.Headless.Enabled)
	require.Equal(t, "memory", cfg.Storage.Backend)
	require.Len(t, cfg.Schedule.Entries, 1)
	require.Equal(t, "0 * * * *", cfg.Schedule.Entries[0].Cron)
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("LINKFORGE_SERVER_PORT", "7777")
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 7777, cfg.Server.Port)
}

func TestValidateRejectsBadValues(t *testing.T) {
	t.Parallel()

	base := func() Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	cfg := base()
	cfg.Server.Port = 0
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.Runs.SlotCount = 0
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.Fetch.TimeoutSeconds = 0
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.Headless.Enabled = true
	cfg.Headless.MaxParallel = 0
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.Auth.Enabled = true
	cfg.Auth.APIKey = ""
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.Storage.Backend = "s3"
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.Storage.Backend = "gcs"
	cfg.Storage.GCSBucket = ""
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.Schedule.Entries = []ScheduleEntry{{Cron: "", URL: "https://example.com"}}
	require.Error(t, cfg.Validate())
}
