// Package config loads the static site configuration: stop-line
// positions, camera intrinsics, and detection thresholds. The config is
// loaded once at startup and immutable thereafter; a config missing
// stop lines or intrinsics is fatal because the detector cannot compute
// stop associations or projections without them.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/stopline.report/internal/geom"
	"github.com/banshee-data/stopline.report/internal/route"
)

// CameraInfo holds the pinhole camera parameters as configured.
type CameraInfo struct {
	FocalLengthX *float64 `json:"focal_length_x,omitempty"`
	FocalLengthY *float64 `json:"focal_length_y,omitempty"`
	ImageWidth   *int     `json:"image_width,omitempty"`
	ImageHeight  *int     `json:"image_height,omitempty"`
}

// SiteConfig is the root configuration for one deployment. Fields
// omitted from the JSON file retain their defaults via the Get*
// accessors; stop lines and camera info have no defaults and must be
// present.
type SiteConfig struct {
	// StopLinePositions is the ordered list of (x, y) stop-line
	// points, one per intersection.
	StopLinePositions [][]float64 `json:"stop_line_positions"`

	CameraInfo *CameraInfo `json:"camera_info"`

	// CameraMountTranslation is the fixed base_link camera offset used
	// by the static transform source. Optional.
	CameraMountTranslation *[3]float64 `json:"camera_mount_translation,omitempty"`

	MaxStopDistance     *int    `json:"max_stop_distance,omitempty"`
	StateCountThreshold *int    `json:"state_count_threshold,omitempty"`
	TransformTimeout    *string `json:"transform_timeout,omitempty"` // duration string like "1s"
}

// LoadSiteConfig loads and validates a SiteConfig from a JSON file.
func LoadSiteConfig(path string) (*SiteConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &SiteConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration is complete enough to run the
// detector.
func (c *SiteConfig) Validate() error {
	if len(c.StopLinePositions) == 0 {
		return fmt.Errorf("stop_line_positions must not be empty")
	}
	for i, sl := range c.StopLinePositions {
		if len(sl) != 2 {
			return fmt.Errorf("stop_line_positions[%d] must have exactly 2 coordinates, got %d", i, len(sl))
		}
	}

	if c.CameraInfo == nil {
		return fmt.Errorf("camera_info is required")
	}
	ci := c.CameraInfo
	if ci.FocalLengthX == nil || ci.FocalLengthY == nil || ci.ImageWidth == nil || ci.ImageHeight == nil {
		return fmt.Errorf("camera_info requires focal_length_x, focal_length_y, image_width and image_height")
	}
	if err := c.Intrinsics().Validate(); err != nil {
		return fmt.Errorf("camera_info: %w", err)
	}

	if c.MaxStopDistance != nil && *c.MaxStopDistance <= 0 {
		return fmt.Errorf("max_stop_distance must be positive, got %d", *c.MaxStopDistance)
	}
	if c.StateCountThreshold != nil && *c.StateCountThreshold < 1 {
		return fmt.Errorf("state_count_threshold must be >= 1, got %d", *c.StateCountThreshold)
	}
	if c.TransformTimeout != nil && *c.TransformTimeout != "" {
		if _, err := time.ParseDuration(*c.TransformTimeout); err != nil {
			return fmt.Errorf("invalid transform_timeout '%s': %w", *c.TransformTimeout, err)
		}
	}
	return nil
}

// StopLines returns the configured stop lines as route points, in
// config order.
func (c *SiteConfig) StopLines() []route.Point {
	points := make([]route.Point, len(c.StopLinePositions))
	for i, sl := range c.StopLinePositions {
		points[i] = route.Point{X: sl[0], Y: sl[1]}
	}
	return points
}

// Intrinsics returns the configured camera intrinsics.
func (c *SiteConfig) Intrinsics() geom.Intrinsics {
	in := geom.Intrinsics{}
	if c.CameraInfo == nil {
		return in
	}
	if c.CameraInfo.FocalLengthX != nil {
		in.FocalLengthX = *c.CameraInfo.FocalLengthX
	}
	if c.CameraInfo.FocalLengthY != nil {
		in.FocalLengthY = *c.CameraInfo.FocalLengthY
	}
	if c.CameraInfo.ImageWidth != nil {
		in.ImageWidth = *c.CameraInfo.ImageWidth
	}
	if c.CameraInfo.ImageHeight != nil {
		in.ImageHeight = *c.CameraInfo.ImageHeight
	}
	return in
}

// GetMaxStopDistance returns the max_stop_distance value or the default.
func (c *SiteConfig) GetMaxStopDistance() int {
	if c.MaxStopDistance == nil {
		return 200
	}
	return *c.MaxStopDistance
}

// GetStateCountThreshold returns the state_count_threshold value or the default.
func (c *SiteConfig) GetStateCountThreshold() int {
	if c.StateCountThreshold == nil {
		return 3
	}
	return *c.StateCountThreshold
}

// GetTransformTimeout parses and returns the TransformTimeout as a time.Duration.
func (c *SiteConfig) GetTransformTimeout() time.Duration {
	if c.TransformTimeout == nil || *c.TransformTimeout == "" {
		return 1 * time.Second // default
	}
	d, err := time.ParseDuration(*c.TransformTimeout)
	if err != nil {
		return 1 * time.Second // default on parse error
	}
	return d
}

// GetCameraMountTranslation returns the configured mount translation or
// the zero offset.
func (c *SiteConfig) GetCameraMountTranslation() [3]float64 {
	if c.CameraMountTranslation == nil {
		return [3]float64{}
	}
	return *c.CameraMountTranslation
}
