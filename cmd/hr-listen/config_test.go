package main

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/layr8/hyperate-go"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hr-listen.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
token: file-token
endpoint: ws://localhost:4000/socket/websocket
devices:
  - ABC
  - https://app.hyperate.io/DEF
clips: [ABC]
log_level: debug
metrics_addr: ":9090"
database_url: postgres://localhost/hr?sslmode=disable
`)

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, listenConfig{
		Token:       "file-token",
		Endpoint:    "ws://localhost:4000/socket/websocket",
		Devices:     []string{"ABC", "https://app.hyperate.io/DEF"},
		Clips:       []string{"ABC"},
		LogLevel:    "debug",
		MetricsAddr: ":9090",
		DatabaseURL: "postgres://localhost/hr?sslmode=disable",
	}, cfg)
}

func TestLoadConfig_Empty(t *testing.T) {
	cfg, err := loadConfig(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, listenConfig{}, cfg)

	cfg, err = loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, listenConfig{}, cfg)
}

func TestLoadConfig_UnknownField(t *testing.T) {
	_, err := loadConfig(writeConfig(t, "tokn: typo\n"))
	assert.Error(t, err)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := loadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.True(t, errors.Is(err, os.ErrNotExist), "got %v", err)
}

func TestListenConfig_Merge(t *testing.T) {
	file := listenConfig{Token: "file", Devices: []string{"A"}, LogLevel: "warn"}
	flags := listenConfig{Token: "flag", Clips: []string{"B"}}

	got := file.merge(flags)
	assert.Equal(t, "flag", got.Token)
	assert.Equal(t, []string{"A"}, got.Devices)
	assert.Equal(t, []string{"B"}, got.Clips)
	assert.Equal(t, "warn", got.LogLevel)
}

func TestListenConfig_Topics(t *testing.T) {
	cfg := listenConfig{
		Devices: []string{"ABC", "https://app.hyperate.io/DEF", "ABC"},
		Clips:   []string{"ABC"},
	}
	topics, err := cfg.topics()
	require.NoError(t, err)
	assert.Equal(t, []string{"hr:ABC", "hr:DEF", "clips:ABC"}, topics)
}

func TestListenConfig_TopicsInvalid(t *testing.T) {
	_, err := listenConfig{}.topics()
	assert.Error(t, err)

	_, err = listenConfig{Devices: []string{"not a device"}}.topics()
	assert.True(t, errors.Is(err, hyperate.ErrInvalidDeviceID), "got %v", err)
}

func TestNewLogger(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, newLogger("DEBUG", io.Discard).GetLevel())
	assert.Equal(t, logrus.InfoLevel, newLogger("", io.Discard).GetLevel())
	assert.Equal(t, logrus.InfoLevel, newLogger("loud", io.Discard).GetLevel())
}
