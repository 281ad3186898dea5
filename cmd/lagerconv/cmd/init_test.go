package cmd

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/lagerconv/pkg/config"
)

func TestInitCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	t.Run("writes defaults", func(t *testing.T) {
		out, err := execute(t, "init", "--config", path, "--format", "parquet", "--with-api-key")
		require.NoError(t, err)
		assert.Contains(t, out, path)

		cfg, err := config.LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "parquet", cfg.Output.Format)
		assert.Len(t, cfg.Server.APIKey, 64)
		assert.Contains(t, out, cfg.Server.APIKey)
	})

	t.Run("refuses to overwrite", func(t *testing.T) {
		_, err := execute(t, "init", "--config", path)
		assert.ErrorContains(t, err, "already exists")
	})

	t.Run("force overwrites", func(t *testing.T) {
		_, err := execute(t, "init", "--config", path, "--force")
		require.NoError(t, err)

		cfg, err := config.LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, config.DefaultConfig(), cfg)
	})

	t.Run("rejects unknown format", func(t *testing.T) {
		_, err := execute(t, "init", "--config", filepath.Join(t.TempDir(), "c.yaml"), "--format", "hdf5")
		assert.Error(t, err)
	})
}
