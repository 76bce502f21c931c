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
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.FBref.Workers)
	assert.Equal(t, 2, cfg.FBref.TableRetries)
	assert.Equal(t, 2*time.Second, cfg.FBref.RetryDelay())
	assert.Equal(t, 90, cfg.FBref.MinMinutes)
	assert.Equal(t, 900, cfg.Transfers.MinMinutes)
	assert.Equal(t, uint64(42), cfg.Cluster.Seed)
	assert.Equal(t, 6, cfg.HTTP.MaxAttempts)
	assert.Equal(t, 7*time.Second, cfg.HTTP.Cooldown())
	assert.Equal(t, "http", cfg.Fetcher)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "eplstats.yaml")
	body := "season: 2023-2024\nfbref:\n  workers: 4\nhttp:\n  max_attempts: 3\n"
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))

	t.Setenv("HTTP_MAX_ATTEMPTS", "9")
	t.Setenv("DEBUG", "1")
	t.Setenv("TABLE_NAME", "epl_players")

	cfg, err := Load(p)
	require.NoError(t, err)

	assert.Equal(t, "2023-2024", cfg.Season)
	assert.Equal(t, 4, cfg.FBref.Workers)
	assert.Equal(t, 9, cfg.HTTP.MaxAttempts)
	assert.True(t, cfg.Debug)
	assert.Equal(t, "epl_players", cfg.AWS.TableName)
}

func TestLoad_MissingFileFallsBack(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "results.csv", cfg.FBref.ResultsFile)
}
