package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical analysis defaults file.
// This is the single source of truth for all default analysis values.
const DefaultConfigPath = "config/sofa.defaults.json"

// AnalysisConfig represents the root configuration for the analysis
// service. The schema matches the /api/params endpoint so the same JSON
// can be used for both startup configuration and runtime updates.
type AnalysisConfig struct {
	// Engine params
	NumberOfDataPoints *int `json:"number_of_data_points,omitempty"`
	NumberOfBins       *int `json:"number_of_bins,omitempty"`

	// Server params
	ListenAddr      *string `json:"listen_addr,omitempty"`
	ShutdownTimeout *string `json:"shutdown_timeout,omitempty"` // duration string like "5s"

	// Storage params
	DatabasePath *string `json:"database_path,omitempty"`
	ExportBase   *string `json:"export_base,omitempty"`
	PlotDir      *string `json:"plot_dir,omitempty"`
}

// Helper functions to create pointers
func ptrInt(v int) *int          { return &v }
func ptrString(v string) *string { return &v }

// EmptyAnalysisConfig returns an AnalysisConfig with all fields set to nil.
// Use LoadAnalysisConfig to load actual values from the defaults file.
func EmptyAnalysisConfig() *AnalysisConfig {
	return &AnalysisConfig{}
}

// LoadAnalysisConfig loads an AnalysisConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
// Fields omitted from the JSON file retain their default values, so
// partial configs are safe.
func LoadAnalysisConfig(path string) (*AnalysisConfig, error) {
	// Validate the config file path.
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse JSON into empty config. The Get* methods provide fallback
	// defaults for any fields not specified in the JSON.
	cfg := EmptyAnalysisConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical analysis defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *AnalysisConfig {
	// Try paths from current dir up to repo root
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // from internal/forcevolume/plot/
	}
	for _, path := range candidates {
		if cfg, err := LoadAnalysisConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *AnalysisConfig) Validate() error {
	if c.NumberOfDataPoints != nil {
		if *c.NumberOfDataPoints <= 0 {
			return fmt.Errorf("number_of_data_points must be positive, got %d", *c.NumberOfDataPoints)
		}
	}

	if c.NumberOfBins != nil {
		if *c.NumberOfBins <= 0 {
			return fmt.Errorf("number_of_bins must be positive, got %d", *c.NumberOfBins)
		}
	}

	// Validate ShutdownTimeout can be parsed if set
	if c.ShutdownTimeout != nil && *c.ShutdownTimeout != "" {
		if _, err := time.ParseDuration(*c.ShutdownTimeout); err != nil {
			return fmt.Errorf("invalid shutdown_timeout '%s': %w", *c.ShutdownTimeout, err)
		}
	}

	return nil
}

// GetNumberOfDataPoints returns the number_of_data_points value or the default.
func (c *AnalysisConfig) GetNumberOfDataPoints() int {
	if c.NumberOfDataPoints == nil {
		return 2000 // default
	}
	return *c.NumberOfDataPoints
}

// GetNumberOfBins returns the number_of_bins value or the default.
func (c *AnalysisConfig) GetNumberOfBins() int {
	if c.NumberOfBins == nil {
		return 100 // default
	}
	return *c.NumberOfBins
}

// GetListenAddr returns the listen_addr value or the default.
func (c *AnalysisConfig) GetListenAddr() string {
	if c.ListenAddr == nil || *c.ListenAddr == "" {
		return "localhost:8080" // default
	}
	return *c.ListenAddr
}

// GetShutdownTimeout parses and returns the ShutdownTimeout as a time.Duration.
func (c *AnalysisConfig) GetShutdownTimeout() time.Duration {
	if c.ShutdownTimeout == nil || *c.ShutdownTimeout == "" {
		return 5 * time.Second // default
	}
	d, err := time.ParseDuration(*c.ShutdownTimeout)
	if err != nil {
		return 5 * time.Second // default on parse error
	}
	return d
}

// GetDatabasePath returns the database_path value or the default.
func (c *AnalysisConfig) GetDatabasePath() string {
	if c.DatabasePath == nil || *c.DatabasePath == "" {
		return "sofa-sessions.db" // default
	}
	return *c.DatabasePath
}

// GetExportBase returns the export_base value or the default.
func (c *AnalysisConfig) GetExportBase() string {
	if c.ExportBase == nil || *c.ExportBase == "" {
		return "." // default: session folders under the working dir
	}
	return *c.ExportBase
}

// GetPlotDir returns the plot_dir value or the default.
func (c *AnalysisConfig) GetPlotDir() string {
	if c.PlotDir == nil || *c.PlotDir == "" {
		return "plots" // default
	}
	return *c.PlotDir
}
