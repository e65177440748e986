package config

import (
	"fmt"
	"strings"
)

type ValidationError struct {
	Path   string
	Source Source
	Err    error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Source.Kind == SourceFile && e.Source.File != "" && e.Source.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %v", e.Source.File, e.Source.Line, e.Source.Column, e.Path, e.Err)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// BuildEffectiveConfig applies raw over the defaults.
func BuildEffectiveConfig(raw RawConfig) (*Config, error) {
	cfg := DefaultConfig()

	if raw.LogLevel != nil {
		cfg.LogLevel = strings.ToLower(strings.TrimSpace(*raw.LogLevel))
	}
	if raw.Backend != nil {
		cfg.Backend = strings.ToLower(strings.TrimSpace(*raw.Backend))
	}
	if raw.Display != nil {
		cfg.Display = *raw.Display
	}
	if raw.XAuthority != nil {
		cfg.XAuthority = *raw.XAuthority
	}
	if raw.PlaceholderActivity != nil {
		cfg.PlaceholderActivity = strings.TrimSpace(*raw.PlaceholderActivity)
	}
	if raw.ReconcileIntervalSeconds != nil {
		cfg.ReconcileIntervalSeconds = *raw.ReconcileIntervalSeconds
	}
	if raw.Animation != nil {
		if raw.Animation.DurationMS != nil {
			cfg.Animation.DurationMS = *raw.Animation.DurationMS
		}
		if raw.Animation.Easing != nil {
			cfg.Animation.Easing = strings.ToLower(strings.TrimSpace(*raw.Animation.Easing))
		}
	}
	if raw.Displays != nil {
		cfg.Displays = append([]DisplayConfig(nil), (*raw.Displays)...)
	}
	if raw.DisplayAreas != nil {
		cfg.DisplayAreas = append([]AreaConfig(nil), (*raw.DisplayAreas)...)
	}
	return cfg, nil
}
