// Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
// See LICENSE for license information.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "/api/v1", cfg.Server.Prefix)
	assert.True(t, cfg.Auth.Required)
	assert.Equal(t, "X-API-Key", cfg.Auth.Header)
	assert.Equal(t, "minio", cfg.Storage.Provider)
	assert.Equal(t, "subprocess", cfg.Sandbox.Backend)
	assert.Equal(t, int64(10*1024*1024), cfg.Sandbox.MaxOutputBytes)
	assert.Equal(t, 100, cfg.Scheduler.MaxConcurrent)
	assert.Equal(t, 0, cfg.Scheduler.QueueSize)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("API_PORT", "9001")
	t.Setenv("AUTH_REQUIRED", "false")
	t.Setenv("POSTGRES_HOST", "db.internal")
	t.Setenv("SCHEDULER_MAX_CONCURRENT", "8")
	t.Setenv("SANDBOX_MAX_OUTPUT_BYTES", "1024")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9001, cfg.Server.Port)
	assert.False(t, cfg.Auth.Required)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 8, cfg.Scheduler.MaxConcurrent)
	assert.Equal(t, int64(1024), cfg.Sandbox.MaxOutputBytes)
}

func TestLoadIgnoresMalformedEnv(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("API_PORT", "not-a-number")
	t.Setenv("AUTH_REQUIRED", "not-a-bool")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Server.Port)
	assert.True(t, cfg.Auth.Required)
}

func TestLoadYAMLOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
server:
  port: 7070
  prefix: /api/v2
scheduler:
  max_concurrent: 4
`)
	require.NoError(t, os.WriteFile(path, content, 0644))
	t.Setenv("CONFIG_PATH", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "/api/v2", cfg.Server.Prefix)
	assert.Equal(t, 4, cfg.Scheduler.MaxConcurrent)
	// values absent from the overlay keep their env defaults
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
}
