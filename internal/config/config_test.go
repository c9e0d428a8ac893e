package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.HTTPAddress)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Database.Enabled())
	assert.False(t, cfg.Redis.Enabled())
	assert.Equal(t, 600*time.Millisecond, cfg.Game.AICooldown)
	assert.Equal(t, "standard", cfg.Game.Deck)
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.GRPCAddress)
}

func TestLoadFileAndEnvironment(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := writeFile(t, dir, "config.yaml", `
server:
  http_address: ":7000"
  allowed_origins: ["https://deal.example"]
logging:
  level: debug
  format: json
database:
  url: postgres://deal@localhost/deal
redis:
  address: localhost:6379
  snapshot_ttl: 30m
game:
  ai_cooldown: 250ms
`)
	t.Setenv("DEAL_SERVER_HTTP_ADDRESS", ":7001")
	t.Setenv("DEAL_GAME_AI_RESPOND_DELAY", "2s")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":7001", cfg.Server.HTTPAddress, "environment wins over file")
	assert.Equal(t, []string{"https://deal.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.True(t, cfg.Database.Enabled())
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, 30*time.Minute, cfg.Redis.SnapshotTTL)
	assert.Equal(t, 250*time.Millisecond, cfg.Game.AICooldown)
	assert.Equal(t, 2*time.Second, cfg.Game.AIRespondDelay)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	writeFile(t, dir, ".env", "DEAL_GAME_REPLAY_DIR=/var/lib/deal/replays\n")
	t.Cleanup(func() { os.Unsetenv("DEAL_GAME_REPLAY_DIR") })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/deal/replays", cfg.Game.ReplayDir)
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := map[string]string{
		"format":     "logging:\n  format: xml\n",
		"pool":       "database:\n  min_conns: 20\n  max_conns: 5\n",
		"token cost": "game:\n  seat_token_cost: 2\n",
		"negative":   "game:\n  ai_cooldown: -1s\n",
		"syntax":     "server: [unterminated\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			t.Chdir(dir)
			_, err := Load(writeFile(t, dir, "config.yaml", body))
			assert.Error(t, err)
		})
	}
}
