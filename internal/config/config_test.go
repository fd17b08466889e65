package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadPortable(t *testing.T) {
	exe, err := os.Executable()
	require.NoError(t, err)
	exeDir := filepath.Dir(exe)

	cfg, err := Load(true)
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(filepath.Join(exeDir, "data")) })

	assert.Equal(t, filepath.Join(exeDir, "data"), cfg.DataDir)
	assert.Equal(t, filepath.Join(exeDir, "data", "tracker.db"), cfg.DBPath)
	assert.Equal(t, DefaultPort, cfg.Port)
}

func TestCloudEnabled(t *testing.T) {
	t.Setenv("TITRACK_CLOUD_BASE_URL", "")
	t.Setenv("TITRACK_CLOUD_ANON_KEY", "")
	cfg := &Config{}
	assert.False(t, cfg.CloudEnabled())

	cfg.CloudBaseURL = "https://cloud.example"
	cfg.CloudAnonKey = "anon-key"
	assert.True(t, cfg.CloudEnabled())
}

func TestPortOverrideFromEnv(t *testing.T) {
	exe, err := os.Executable()
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(filepath.Join(filepath.Dir(exe), "data")) })

	t.Setenv("TITRACK_PORT", "9999")
	cfg, err := Load(true)
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Port)
}

func TestDeviceUUIDAndLegacyPaths(t *testing.T) {
	cfg := &Config{DataDir: "/tmp/titrack-test"}
	assert.Equal(t, "/tmp/titrack-test/device_uuid", cfg.DeviceUUIDPath())
	assert.Equal(t, "/tmp/titrack-test/titrack_legacy.db", cfg.LegacyDBPath())
}
