package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
[server]
port = 8080
mode = "release"
worker_id = 3

[kafka]
brokers = ["127.0.0.1:9092"]
event_topic = "gateway.events"
result_topic = "invite.results"
group_id = "invite-tracker"

[platform]
base_url = "https://discord.com/api/v10"
token = "secret-token"

[ratelimit]
limit = 50
window_sec = 1
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, int64(3), cfg.Server.WorkerID)
	assert.Equal(t, []string{"127.0.0.1:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "gateway.events", cfg.Kafka.EventTopic)
	assert.Equal(t, "invite.results", cfg.Kafka.ResultTopic)
	assert.Equal(t, "secret-token", cfg.Platform.Token)
	assert.Equal(t, 50, cfg.RateLimit.Limit)
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := writeConfig(t, `
[server]
port = 8080
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "https://discord.gg", cfg.Platform.InviteBaseURL)
	assert.Equal(t, 10, cfg.Platform.TimeoutSec)
	assert.Equal(t, 8, cfg.Tracker.Shards)
	assert.Equal(t, 256, cfg.Tracker.QueueSize)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}
