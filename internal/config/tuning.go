// Package config loads solver tuning parameters from JSON files. Fields
// are pointer-typed so a partial file overrides only what it names; the
// Get* methods supply defaults for everything else.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// TuningConfig represents the root configuration for solver tuning. The
// schema matches the /api/params endpoint so the same JSON works for both
// startup configuration and runtime inspection.
type TuningConfig struct {
	// Solver params
	GroupSize          *int     `json:"group_size,omitempty"`
	MaxConditionNumber *float64 `json:"max_condition_number,omitempty"`
	SolverWorkers      *int     `json:"solver_workers,omitempty"`

	// Consensus params
	ClusterDistanceThreshold *float64 `json:"cluster_distance_threshold,omitempty"`
	MinClusterSize           *int     `json:"min_cluster_size,omitempty"`
	ClusterSpreadTolerance   *float64 `json:"cluster_spread_tolerance,omitempty"`
}

// EmptyTuningConfig returns a TuningConfig with all fields unset, so every
// getter falls through to its default.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file. Fields omitted
// from the file keep their defaults, so partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

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

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are usable.
func (c *TuningConfig) Validate() error {
	if c.GroupSize != nil && *c.GroupSize < 4 {
		return fmt.Errorf("group_size must be at least 4, got %d", *c.GroupSize)
	}
	if c.MaxConditionNumber != nil && *c.MaxConditionNumber <= 1 {
		return fmt.Errorf("max_condition_number must exceed 1, got %f", *c.MaxConditionNumber)
	}
	if c.SolverWorkers != nil && *c.SolverWorkers < 0 {
		return fmt.Errorf("solver_workers must be non-negative, got %d", *c.SolverWorkers)
	}
	if c.ClusterDistanceThreshold != nil && *c.ClusterDistanceThreshold <= 0 {
		return fmt.Errorf("cluster_distance_threshold must be positive, got %f", *c.ClusterDistanceThreshold)
	}
	if c.MinClusterSize != nil && *c.MinClusterSize < 1 {
		return fmt.Errorf("min_cluster_size must be at least 1, got %d", *c.MinClusterSize)
	}
	if c.ClusterSpreadTolerance != nil && *c.ClusterSpreadTolerance <= 0 {
		return fmt.Errorf("cluster_spread_tolerance must be positive, got %f", *c.ClusterSpreadTolerance)
	}
	return nil
}

// GetGroupSize returns the group_size value or the default.
func (c *TuningConfig) GetGroupSize() int {
	if c.GroupSize == nil {
		return 4 // minimum for an exact 3-D solve
	}
	return *c.GroupSize
}

// GetMaxConditionNumber returns the max_condition_number value or the default.
func (c *TuningConfig) GetMaxConditionNumber() float64 {
	if c.MaxConditionNumber == nil {
		return 1e10 // default
	}
	return *c.MaxConditionNumber
}

// GetSolverWorkers returns the solver_workers value or the default.
// Zero means one worker per CPU.
func (c *TuningConfig) GetSolverWorkers() int {
	if c.SolverWorkers == nil {
		return 0
	}
	return *c.SolverWorkers
}

// GetClusterDistanceThreshold returns the cluster_distance_threshold value
// or the default.
func (c *TuningConfig) GetClusterDistanceThreshold() float64 {
	if c.ClusterDistanceThreshold == nil {
		return 100.0 // metres
	}
	return *c.ClusterDistanceThreshold
}

// GetMinClusterSize returns the min_cluster_size value or the default.
func (c *TuningConfig) GetMinClusterSize() int {
	if c.MinClusterSize == nil {
		return 3 // default
	}
	return *c.MinClusterSize
}

// GetClusterSpreadTolerance returns the cluster_spread_tolerance value or
// the default.
func (c *TuningConfig) GetClusterSpreadTolerance() float64 {
	if c.ClusterSpreadTolerance == nil {
		return 50.0 // metres
	}
	return *c.ClusterSpreadTolerance
}
