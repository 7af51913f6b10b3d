package cmd

import (
	"path/filepath"
	"testing"

	"github.com/ssargent/nucleon/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	dataDir := filepath.Join(tmpDir, "data")

	t.Run("creates config and data dir", func(t *testing.T) {
		cfg, created, err := initializeConfig(configPath, dataDir, false)
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, dataDir, cfg.DataDir)
		assert.Len(t, cfg.Security.APIKey, 64)
		assert.DirExists(t, dataDir)
		assert.True(t, config.ConfigExists(configPath))
	})

	t.Run("keeps existing config", func(t *testing.T) {
		first, err := config.LoadConfig(configPath)
		require.NoError(t, err)

		cfg, created, err := initializeConfig(configPath, dataDir, false)
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, first.Security.APIKey, cfg.Security.APIKey)
	})

	t.Run("force regenerates the key", func(t *testing.T) {
		first, err := config.LoadConfig(configPath)
		require.NoError(t, err)

		cfg, created, err := initializeConfig(configPath, dataDir, true)
		require.NoError(t, err)
		assert.True(t, created)
		assert.NotEqual(t, first.Security.APIKey, cfg.Security.APIKey)
	})
}

func TestInitializeConfig_InvalidPath(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, writeFile(blocker, "x"))

	_, _, err := initializeConfig(filepath.Join(blocker, "config.yaml"), "", false)
	assert.Error(t, err)
}
