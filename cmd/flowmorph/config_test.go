package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowmorph/flowmorph/pkg/schema"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg := loadConfig()
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Contains(t, cfg.DBPath, ".flowmorph")
	assert.Empty(t, cfg.MappingsPath)
}

func TestLoadConfig_SettingsFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".flowmorph")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	settings := `{"log_level": "debug", "db_path": "/tmp/custom.db"}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "settings.json"), []byte(settings), 0o644))

	cfg := loadConfig()
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/tmp/custom.db", cfg.DBPath)
}

func TestLoadConfig_EnvOverridesSettings(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".flowmorph")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "settings.json"), []byte(`{"log_level": "debug"}`), 0o644))

	t.Setenv("FLOWMORPH_LOG_LEVEL", "error")
	t.Setenv("FLOWMORPH_DB_PATH", "/tmp/env.db")
	t.Setenv("FLOWMORPH_MAPPINGS", "/tmp/maps.yaml")

	cfg := loadConfig()
	assert.Equal(t, "error", cfg.LogLevel)
	assert.Equal(t, "/tmp/env.db", cfg.DBPath)
	assert.Equal(t, "/tmp/maps.yaml", cfg.MappingsPath)
}

func TestResolveDirection(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		flag    string
		want    schema.Direction
		wantErr bool
	}{
		{"explicit flag", `{}`, "graph-to-scenario", schema.GraphToScenario, false},
		{"bad flag", `{}`, "upside-down", "", true},
		{"nodes array", `{"nodes": []}`, "", schema.GraphToScenario, false},
		{"flow array", `{"flow": []}`, "", schema.ScenarioToGraph, false},
		{"both present", `{"nodes": [], "flow": []}`, "", "", true},
		{"neither present", `{"name": "x"}`, "", "", true},
		{"not json", `nope`, "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveDirection([]byte(tt.raw), tt.flag)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
