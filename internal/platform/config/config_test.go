package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "http://localhost:5000/api", cfg.Remote.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.Remote.Timeout)
	assert.Equal(t, 60*time.Second, cfg.Workflow.StepTimeout)
	assert.Equal(t, DefaultConsentText, cfg.Consent.Text)
	assert.Equal(t, 12*time.Hour, cfg.Session.TTL)
	assert.Empty(t, cfg.Redis.URL)
	assert.Empty(t, cfg.Database.URL)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("COMPLYSCAN_SERVER_ADDR", ":9090")
	t.Setenv("COMPLYSCAN_REMOTE_TIMEOUT", "3s")
	t.Setenv("COMPLYSCAN_REDIS_URL", "redis://localhost:6379/0")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 3*time.Second, cfg.Remote.Timeout)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "complyscan.yaml")
	content := []byte("remote:\n  base_url: https://audits.internal/api\nworkflow:\n  step_timeout: 5s\nlog:\n  format: json\n")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://audits.internal/api", cfg.Remote.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Workflow.StepTimeout)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Setenv("COMPLYSCAN_WORKFLOW_STEP_TIMEOUT", "0s")
	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "workflow.step_timeout")
}
