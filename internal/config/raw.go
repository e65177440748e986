package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// IncludeList supports either:
//
//	include: "/path/to/file.yaml"
//
// or:
//
//	include:
//	  - "/path/to/file.yaml"
//	  - "/path/to/dir"
type IncludeList []string

func (l *IncludeList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case 0:
		*l = nil
		return nil
	case yaml.ScalarNode:
		if value.Tag != "!!str" {
			return fmt.Errorf("include must be a string or list of strings")
		}
		*l = []string{value.Value}
		return nil
	case yaml.SequenceNode:
		out := make([]string, 0, len(value.Content))
		for _, item := range value.Content {
			if item.Kind != yaml.ScalarNode || item.Tag != "!!str" {
				return fmt.Errorf("include entries must be strings")
			}
			out = append(out, item.Value)
		}
		*l = out
		return nil
	default:
		return fmt.Errorf("include must be a string or list of strings")
	}
}

type RawAnimation struct {
	DurationMS *int    `yaml:"duration_ms"`
	Easing     *string `yaml:"easing"`
}

// RawConfig is one YAML file before defaults are applied. Nil fields were
// not set by the file. Lists replace, they do not append.
type RawConfig struct {
	Include IncludeList `yaml:"include"`

	LogLevel                 *string          `yaml:"log_level"`
	Backend                  *string          `yaml:"backend"`
	Display                  *string          `yaml:"display"`
	XAuthority               *string          `yaml:"xauthority"`
	PlaceholderActivity      *string          `yaml:"placeholder_activity"`
	ReconcileIntervalSeconds *int             `yaml:"reconcile_interval_seconds"`
	Animation                *RawAnimation    `yaml:"animation"`
	Displays                 *[]DisplayConfig `yaml:"displays"`
	DisplayAreas             *[]AreaConfig    `yaml:"display_areas"`
}

func (r RawConfig) merge(over RawConfig) RawConfig {
	out := r
	out.Include = nil
	if over.LogLevel != nil {
		out.LogLevel = over.LogLevel
	}
	if over.Backend != nil {
		out.Backend = over.Backend
	}
	if over.Display != nil {
		out.Display = over.Display
	}
	if over.XAuthority != nil {
		out.XAuthority = over.XAuthority
	}
	if over.PlaceholderActivity != nil {
		out.PlaceholderActivity = over.PlaceholderActivity
	}
	if over.ReconcileIntervalSeconds != nil {
		out.ReconcileIntervalSeconds = over.ReconcileIntervalSeconds
	}
	if over.Animation != nil {
		anim := RawAnimation{}
		if out.Animation != nil {
			anim = *out.Animation
		}
		if over.Animation.DurationMS != nil {
			anim.DurationMS = over.Animation.DurationMS
		}
		if over.Animation.Easing != nil {
			anim.Easing = over.Animation.Easing
		}
		out.Animation = &anim
	}
	if over.Displays != nil {
		out.Displays = over.Displays
	}
	if over.DisplayAreas != nil {
		out.DisplayAreas = over.DisplayAreas
	}
	return out
}
