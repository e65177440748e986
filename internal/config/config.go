package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrNoDisplayAreas is returned when the effective configuration declares no
// display area.
var ErrNoDisplayAreas = errors.New("at least one display area is required")

// Backend names.
const (
	BackendAuto   = "auto"
	BackendX11    = "x11"
	BackendMemory = "memory"
)

// Easings lists the easing curve names accepted by animation.easing.
var Easings = []string{"linear", "smoothstep", "smootherstep", "ease-in-out-cubic"}

// Rect is a rectangle in display coordinates.
type Rect struct {
	X      int `yaml:"x"`
	Y      int `yaml:"y"`
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// DisplayConfig declares a display served by the memory backend. The X11
// backend reads displays from RandR instead.
type DisplayConfig struct {
	ID     int    `yaml:"id"`
	Name   string `yaml:"name,omitempty"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
}

// AreaConfig declares one display area and the surface hosting it.
type AreaConfig struct {
	Name      string `yaml:"name"`
	DisplayID int    `yaml:"display_id"`
	FeatureID int    `yaml:"feature_id"`
	// LaunchFeatureID is the feature id tasks launch into; 0 = FeatureID.
	LaunchFeatureID int    `yaml:"launch_feature_id,omitempty"`
	CornerRadius    int    `yaml:"corner_radius,omitempty"`
	Group           string `yaml:"group,omitempty"`
	Bounds          Rect   `yaml:"bounds"`
	Visible         bool   `yaml:"visible"`
	Hotkey          string `yaml:"hotkey,omitempty"`
	// SyncSurfaceToWM re-syncs bounds to the window manager whenever the
	// surface changes. Default: true.
	SyncSurfaceToWM *bool `yaml:"sync_surface_to_wm,omitempty"`
}

// GetLaunchFeatureID returns the effective launch feature id.
func (a AreaConfig) GetLaunchFeatureID() int {
	if a.LaunchFeatureID == 0 {
		return a.FeatureID
	}
	return a.LaunchFeatureID
}

// GetSyncSurfaceToWM returns the effective value, defaulting to true.
func (a AreaConfig) GetSyncSurfaceToWM() bool {
	if a.SyncSurfaceToWM == nil {
		return true
	}
	return *a.SyncSurfaceToWM
}

// AnimationConfig configures the default animation handler.
type AnimationConfig struct {
	DurationMS int    `yaml:"duration_ms"`
	Easing     string `yaml:"easing"`
}

// Duration returns the animation duration.
func (a AnimationConfig) Duration() time.Duration {
	return time.Duration(a.DurationMS) * time.Millisecond
}

// Config holds the application configuration.
type Config struct {
	LogLevel                 string          `yaml:"log_level"`
	Backend                  string          `yaml:"backend"`
	Display                  string          `yaml:"display,omitempty"`
	XAuthority               string          `yaml:"xauthority,omitempty"`
	PlaceholderActivity      string          `yaml:"placeholder_activity"`
	ReconcileIntervalSeconds int             `yaml:"reconcile_interval_seconds"`
	Animation                AnimationConfig `yaml:"animation"`
	Displays                 []DisplayConfig `yaml:"displays"`
	DisplayAreas             []AreaConfig    `yaml:"display_areas"`
}

func DefaultConfig() *Config {
	return &Config{
		LogLevel:                 "info",
		Backend:                  BackendAuto,
		PlaceholderActivity:      "dashell/.PlaceholderActivity",
		ReconcileIntervalSeconds: 30,
		Animation: AnimationConfig{
			DurationMS: 250,
			Easing:     "smoothstep",
		},
		Displays: []DisplayConfig{
			{ID: 0, Name: "primary", Width: 1920, Height: 1080},
		},
		DisplayAreas: []AreaConfig{
			{
				Name:      "maps",
				FeatureID: 1,
				Group:     "main",
				Bounds:    Rect{Width: 1920, Height: 1080},
				Visible:   true,
				Hotkey:    "Mod4-Mod1-m",
			},
			{
				Name:         "apps",
				FeatureID:    2,
				CornerRadius: 24,
				Group:        "main",
				Bounds:       Rect{X: 480, Y: 60, Width: 1400, Height: 960},
				Hotkey:       "Mod4-Mod1-a",
			},
		},
	}
}

// ReconcileInterval returns the periodic leash resync interval. Zero
// disables it.
func (c *Config) ReconcileInterval() time.Duration {
	if c == nil || c.ReconcileIntervalSeconds <= 0 {
		return 0
	}
	return time.Duration(c.ReconcileIntervalSeconds) * time.Second
}

// Area returns the display area with the given name.
func (c *Config) Area(name string) (AreaConfig, bool) {
	for _, a := range c.DisplayAreas {
		if a.Name == name {
			return a, true
		}
	}
	return AreaConfig{}, false
}

// Save writes the configuration to path, or to the standard location when
// path is empty.
//
// Note: this marshals the effective config and will not preserve comments or
// include structure from the original YAML.
func (c *Config) Save(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if path == "" {
		var err error
		if path, err = DefaultConfigPath(); err != nil {
			return err
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate performs strict validation of the effective configuration.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return &ValidationError{Path: "log_level", Err: fmt.Errorf("log_level must be one of: debug, info, warn, error")}
	}
	switch c.Backend {
	case BackendAuto, BackendX11, BackendMemory:
	default:
		return &ValidationError{Path: "backend", Err: fmt.Errorf("backend must be one of: auto, x11, memory")}
	}
	if pkg, class, ok := strings.Cut(c.PlaceholderActivity, "/"); !ok || pkg == "" || class == "" {
		return &ValidationError{Path: "placeholder_activity", Err: fmt.Errorf("placeholder_activity must be package/class")}
	}
	if c.ReconcileIntervalSeconds < 0 {
		return &ValidationError{Path: "reconcile_interval_seconds", Err: fmt.Errorf("reconcile_interval_seconds must be >= 0")}
	}
	if c.Animation.DurationMS < 0 {
		return &ValidationError{Path: "animation.duration_ms", Err: fmt.Errorf("duration_ms must be >= 0")}
	}
	if !validEasing(c.Animation.Easing) {
		return &ValidationError{Path: "animation.easing", Err: fmt.Errorf("easing must be one of: %s", strings.Join(Easings, ", "))}
	}

	displays := make(map[int]struct{}, len(c.Displays))
	for i, d := range c.Displays {
		path := fmt.Sprintf("displays[%d]", i)
		if _, dup := displays[d.ID]; dup {
			return &ValidationError{Path: path + ".id", Err: fmt.Errorf("duplicate display id %d", d.ID)}
		}
		displays[d.ID] = struct{}{}
		if d.Width <= 0 || d.Height <= 0 {
			return &ValidationError{Path: path, Err: fmt.Errorf("display size must be positive")}
		}
	}

	if len(c.DisplayAreas) == 0 {
		return &ValidationError{Path: "display_areas", Err: ErrNoDisplayAreas}
	}
	names := make(map[string]struct{}, len(c.DisplayAreas))
	features := make(map[[2]int]string, len(c.DisplayAreas))
	for i, a := range c.DisplayAreas {
		path := fmt.Sprintf("display_areas[%d]", i)
		if strings.TrimSpace(a.Name) == "" {
			return &ValidationError{Path: path + ".name", Err: fmt.Errorf("name is required")}
		}
		if _, dup := names[a.Name]; dup {
			return &ValidationError{Path: path + ".name", Err: fmt.Errorf("duplicate display area %q", a.Name)}
		}
		names[a.Name] = struct{}{}
		if a.FeatureID <= 0 {
			return &ValidationError{Path: path + ".feature_id", Err: fmt.Errorf("feature_id must be > 0")}
		}
		if a.LaunchFeatureID < 0 {
			return &ValidationError{Path: path + ".launch_feature_id", Err: fmt.Errorf("launch_feature_id must be >= 0")}
		}
		key := [2]int{a.DisplayID, a.FeatureID}
		if other, dup := features[key]; dup {
			return &ValidationError{Path: path + ".feature_id", Err: fmt.Errorf("feature %d on display %d already used by %q", a.FeatureID, a.DisplayID, other)}
		}
		features[key] = a.Name
		if a.Bounds.Width <= 0 || a.Bounds.Height <= 0 {
			return &ValidationError{Path: path + ".bounds", Err: fmt.Errorf("bounds must have a positive size")}
		}
		if a.CornerRadius < 0 {
			return &ValidationError{Path: path + ".corner_radius", Err: fmt.Errorf("corner_radius must be >= 0")}
		}
	}
	return nil
}

func validEasing(name string) bool {
	for _, e := range Easings {
		if e == name {
			return true
		}
	}
	return false
}
