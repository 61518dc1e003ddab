// =============================================================================
// Bulk Importer - Configuration Module
// =============================================================================
//
// This module loads the main application configuration. Import templates
// live in their own directory and are loaded by the template package; the
// main config only points at them and carries the knobs of the pipeline
// itself.
//
// =============================================================================

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// MainConfig holds the global application configuration, loaded from
// config.yaml.
type MainConfig struct {
	// TemplatesDir is the directory containing import template YAML files.
	// Default: "./templates"
	TemplatesDir string `yaml:"templates_dir"`

	// DatabasePath is the path to the SQLite record store.
	// Default: "./importer.db"
	DatabasePath string `yaml:"database_path"`

	// ReportsDir is the directory error reports are written to.
	// Default: "./reports"
	ReportsDir string `yaml:"reports_dir"`

	// PageSize is the review pagination window.
	// Default: 25
	PageSize int `yaml:"page_size"`

	// BatchSize caps the values per store existence query during
	// reconciliation.
	// Default: 30
	BatchSize int `yaml:"batch_size"`

	// DataRowOffset is added to a row index when displaying "row N" to the
	// user; it accounts for the header and description rows.
	// Default: 3
	DataRowOffset int `yaml:"data_row_offset"`
}

// Load loads the main configuration from a YAML file. A missing file is
// not an error: the defaults describe a runnable layout.
func Load(path string) (*MainConfig, error) {
	var cfg MainConfig

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Defaults only.
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyDefaults(&cfg)

	if err := ensureDirs(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for any unset configuration options.
func applyDefaults(cfg *MainConfig) {
	if cfg.TemplatesDir == "" {
		cfg.TemplatesDir = "./templates"
	}
	if cfg.DatabasePath == "" {
		cfg.DatabasePath = "./importer.db"
	}
	if cfg.ReportsDir == "" {
		cfg.ReportsDir = "./reports"
	}
	if cfg.PageSize == 0 {
		cfg.PageSize = 25
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 30
	}
	if cfg.DataRowOffset == 0 {
		cfg.DataRowOffset = 3
	}
}

// ensureDirs creates the directories the pipeline writes into.
func ensureDirs(cfg *MainConfig) error {
	for _, dir := range []string{cfg.TemplatesDir, cfg.ReportsDir} {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", dir, err)
			}
		}
	}
	return nil
}
