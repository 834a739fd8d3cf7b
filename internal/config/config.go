// Package config loads the optional TOML configuration file. File
// values override the defaults; command-line flags override the file.
// Serial parameters are fixed by the sensor protocol and are
// deliberately absent here.
package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config is the resolved runtime configuration.
type Config struct {
	Port        string
	Debug       bool
	LogOnly     bool
	LogPath     string
	Measurement string

	RotateSizeMB  int
	RotateBackups int
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LogPath:       "measurements.log",
		Measurement:   "bmnode",
		RotateSizeMB:  10,
		RotateBackups: 1,
	}
}

type fileConfig struct {
	Port          string `toml:"port"`
	Debug         bool   `toml:"debug"`
	LogOnly       bool   `toml:"log_only"`
	LogPath       string `toml:"log_path"`
	Measurement   string `toml:"measurement"`
	RotateSizeMB  int    `toml:"rotate_size_mb"`
	RotateBackups int    `toml:"rotate_backups"`
}

// Load reads path and applies only the keys the file actually defines
// on top of the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}

	if meta.IsDefined("port") {
		cfg.Port = strings.TrimSpace(raw.Port)
	}

	if meta.IsDefined("debug") {
		cfg.Debug = raw.Debug
	}

	if meta.IsDefined("log_only") {
		cfg.LogOnly = raw.LogOnly
	}

	if meta.IsDefined("log_path") {
		if p := strings.TrimSpace(raw.LogPath); p != "" {
			cfg.LogPath = p
		}
	}

	if meta.IsDefined("measurement") {
		if m := strings.TrimSpace(raw.Measurement); m != "" {
			cfg.Measurement = m
		}
	}

	if meta.IsDefined("rotate_size_mb") {
		if raw.RotateSizeMB <= 0 {
			return Config{}, fmt.Errorf("invalid rotate_size_mb %d: must be positive", raw.RotateSizeMB)
		}
		cfg.RotateSizeMB = raw.RotateSizeMB
	}

	if meta.IsDefined("rotate_backups") {
		if raw.RotateBackups < 1 {
			return Config{}, fmt.Errorf("invalid rotate_backups %d: must be at least 1 to enable rotation", raw.RotateBackups)
		}
		cfg.RotateBackups = raw.RotateBackups
	}

	return cfg, nil
}
