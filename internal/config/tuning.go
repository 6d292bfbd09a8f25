package config

import (
	"encoding/json"
	"fmt"
	"math"
	"path/filepath"
	"time"

	"github.com/banshee-data/floorobjects/internal/catalog"
	"github.com/banshee-data/floorobjects/internal/fsutil"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// Built-in fallbacks used when a field is absent from the loaded JSON.
const (
	DefaultMaxPlacements    = 32
	DefaultTapQueueCapacity = 16
	DefaultPinchScaleStep   = 0.03
	DefaultMinScale         = 0.001
	DefaultMaxScale         = 100.0
	DefaultFrameInterval    = 33 * time.Millisecond
)

// Upper limits enforced by Validate.
const (
	MaxMaxPlacements    = 4096
	MaxTapQueueCapacity = 1024
)

// TuningConfig represents the root configuration for placement tuning.
// Every field is optional; the Get* methods supply defaults so partial
// configs are safe.
type TuningConfig struct {
	// Registry
	MaxPlacements *int `json:"max_placements,omitempty"`

	// Input
	TapQueueCapacity *int     `json:"tap_queue_capacity,omitempty"`
	PinchScaleStep   *float64 `json:"pinch_scale_step,omitempty"`
	MinScale         *float64 `json:"min_scale,omitempty"`
	MaxScale         *float64 `json:"max_scale,omitempty"`

	// Catalog
	SelectedModel *string         `json:"selected_model,omitempty"`
	Models        []catalog.Model `json:"models,omitempty"`

	// Frame loop pacing for the simulator
	FrameInterval *string `json:"frame_interval,omitempty"` // duration string like "33ms"
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from the defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	return LoadTuningConfigFS(fsutil.OSFileSystem{}, path)
}

// LoadTuningConfigFS is LoadTuningConfig reading through fsys.
func LoadTuningConfigFS(fsys fsutil.FileSystem, path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := fsys.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := fsys.ReadFile(cleanPath)
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

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,          // from cmd/floorsim/
		"../../" + DefaultConfigPath,       // from internal/config/
		"../../../" + DefaultConfigPath,    // from internal/tracking/synthetic/
		"../../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.MaxPlacements != nil && (*c.MaxPlacements < 1 || *c.MaxPlacements > MaxMaxPlacements) {
		return fmt.Errorf("max_placements must be in [1, %d], got %d", MaxMaxPlacements, *c.MaxPlacements)
	}

	if c.TapQueueCapacity != nil && (*c.TapQueueCapacity < 1 || *c.TapQueueCapacity > MaxTapQueueCapacity) {
		return fmt.Errorf("tap_queue_capacity must be in [1, %d], got %d", MaxTapQueueCapacity, *c.TapQueueCapacity)
	}

	if c.PinchScaleStep != nil {
		if v := *c.PinchScaleStep; !(v > 0 && v < 1) {
			return fmt.Errorf("pinch_scale_step must be in (0, 1), got %f", v)
		}
	}

	minScale, maxScale := c.GetMinScale(), c.GetMaxScale()
	if !(minScale > 0) || math.IsInf(maxScale, 0) || math.IsNaN(maxScale) {
		return fmt.Errorf("scale bounds must be positive and finite, got [%f, %f]", minScale, maxScale)
	}
	if minScale >= maxScale {
		return fmt.Errorf("min_scale (%f) must be less than max_scale (%f)", minScale, maxScale)
	}

	if c.FrameInterval != nil && *c.FrameInterval != "" {
		if _, err := time.ParseDuration(*c.FrameInterval); err != nil {
			return fmt.Errorf("invalid frame_interval '%s': %w", *c.FrameInterval, err)
		}
	}

	cat, err := c.GetCatalog()
	if err != nil {
		return fmt.Errorf("models: %w", err)
	}
	if _, err := c.GetSelectedModel(cat); err != nil {
		return fmt.Errorf("selected_model: %w", err)
	}

	return nil
}

// GetMaxPlacements returns the max_placements value or the default.
func (c *TuningConfig) GetMaxPlacements() int {
	if c.MaxPlacements == nil {
		return DefaultMaxPlacements
	}
	return *c.MaxPlacements
}

// GetTapQueueCapacity returns the tap_queue_capacity value or the default.
func (c *TuningConfig) GetTapQueueCapacity() int {
	if c.TapQueueCapacity == nil {
		return DefaultTapQueueCapacity
	}
	return *c.TapQueueCapacity
}

// GetPinchScaleStep returns the pinch_scale_step value or the default.
func (c *TuningConfig) GetPinchScaleStep() float64 {
	if c.PinchScaleStep == nil {
		return DefaultPinchScaleStep
	}
	return *c.PinchScaleStep
}

// GetMinScale returns the min_scale value or the default.
func (c *TuningConfig) GetMinScale() float64 {
	if c.MinScale == nil {
		return DefaultMinScale
	}
	return *c.MinScale
}

// GetMaxScale returns the max_scale value or the default.
func (c *TuningConfig) GetMaxScale() float64 {
	if c.MaxScale == nil {
		return DefaultMaxScale
	}
	return *c.MaxScale
}

// GetFrameInterval parses and returns the FrameInterval as a time.Duration.
func (c *TuningConfig) GetFrameInterval() time.Duration {
	if c.FrameInterval == nil || *c.FrameInterval == "" {
		return DefaultFrameInterval
	}
	d, err := time.ParseDuration(*c.FrameInterval)
	if err != nil {
		return DefaultFrameInterval // default on parse error
	}
	return d
}

// GetCatalog builds the model catalog, falling back to the built-in models.
func (c *TuningConfig) GetCatalog() (*catalog.Catalog, error) {
	if len(c.Models) == 0 {
		return catalog.New(catalog.DefaultModels())
	}
	return catalog.New(c.Models)
}

// GetSelectedModel returns the model selected at startup: selected_model if
// set, otherwise the catalog default.
func (c *TuningConfig) GetSelectedModel(cat *catalog.Catalog) (catalog.Model, error) {
	if c.SelectedModel == nil || *c.SelectedModel == "" {
		return cat.Default(), nil
	}
	return cat.Lookup(catalog.ModelID(*c.SelectedModel))
}
