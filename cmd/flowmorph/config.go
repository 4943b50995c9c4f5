package main

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Config holds all flowmorph CLI configuration.
// Priority: env vars > settings.json > defaults.
type Config struct {
	DBPath       string `json:"db_path"`
	MappingsPath string `json:"mappings_path"`
	LogLevel     string `json:"log_level"`
}

func defaultConfig() Config {
	return Config{
		DBPath:   filepath.Join(flowmorphDir(), "flowmorph.db"),
		LogLevel: "info",
	}
}

func flowmorphDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".flowmorph"
	}
	return filepath.Join(home, ".flowmorph")
}

func settingsPath() string {
	return filepath.Join(flowmorphDir(), "settings.json")
}

func loadConfig() Config {
	cfg := defaultConfig()

	// Layer 2: settings.json (ignore if missing).
	if data, err := os.ReadFile(settingsPath()); err == nil {
		_ = json.Unmarshal(data, &cfg)
	}

	// Layer 3: env vars override.
	if v := os.Getenv("FLOWMORPH_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("FLOWMORPH_MAPPINGS"); v != "" {
		cfg.MappingsPath = v
	}
	if v := os.Getenv("FLOWMORPH_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	return cfg
}
