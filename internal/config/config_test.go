package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:8000/api", cfg.Server.URL)
	assert.Equal(t, "ws://127.0.0.1:8000/ws/tasks", cfg.Server.WSURL)
}

func TestLoadFromFile(t *testing.T) {
	ws := t.TempDir()
	data := []byte("server:\n  url: https://tasks.example.com/api\n  ws_url: wss://tasks.example.com/ws/tasks\n")
	require.NoError(t, os.WriteFile(filepath.Join(ws, "taskdeck.yml"), data, 0o644))

	cfg, err := Load(ws)
	require.NoError(t, err)
	assert.Equal(t, "https://tasks.example.com/api", cfg.Server.URL)
	assert.Equal(t, "wss://tasks.example.com/ws/tasks", cfg.Server.WSURL)
}

func TestPartialFileKeepsDefaults(t *testing.T) {
	cfg, err := FromYAML([]byte("server:\n  url: https://tasks.example.com/api\n"))
	require.NoError(t, err)
	assert.Equal(t, "https://tasks.example.com/api", cfg.Server.URL)
	assert.Equal(t, "ws://127.0.0.1:8000/ws/tasks", cfg.Server.WSURL)
}

func TestFromYAMLInvalid(t *testing.T) {
	_, err := FromYAML([]byte("server: [not a mapping"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Server.URL = ""
	assert.EqualError(t, cfg.Validate(), "config.server.url is required")

	cfg = Default()
	cfg.Server.WSURL = ""
	assert.EqualError(t, cfg.Validate(), "config.server.ws_url is required")

	assert.NoError(t, Default().Validate())
}
