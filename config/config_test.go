package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAppConfigValidateBasic(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *AppConfig)
		wantErr bool
	}{
		{"default", func(c *AppConfig) {}, false},
		{"memdb", func(c *AppConfig) { c.DBBackend = "memdb" }, false},
		{"pebble", func(c *AppConfig) { c.DBBackend = "pebbledb" }, true},
		{"negative cache", func(c *AppConfig) { c.IAVLCacheSize = -1 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultAppConfig(t.TempDir())
			tt.mutate(c)
			err := c.ValidateBasic()
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestWriteConfigFiles(t *testing.T) {
	home := t.TempDir()
	cfg := DefaultConfig(home)
	cfg.App.DBBackend = "memdb"
	cfg.App.IAVLCacheSize = 64
	require.NoError(t, cfg.ValidateBasic())
	cfg.WriteConfigFiles()

	require.FileExists(t, filepath.Join(home, ConfigSubFolder, NodeConfigFile))
	dat, err := os.ReadFile(cfg.AppConfigFile())
	require.NoError(t, err)
	require.Contains(t, string(dat), `db_backend = "memdb"`)
	require.Contains(t, string(dat), "iavl_cache_size = 64")
	require.Equal(t, filepath.Join(home, "data"), cfg.App.DataDir())
}
