package animation

import (
	"fmt"
	"sort"
	"strings"
)

// EasingFunc maps progress in [0,1] to eased progress in [0,1].
type EasingFunc func(t float64) float64

var (
	EaseLinear EasingFunc = func(t float64) float64 { return t }

	EaseSmoothstep EasingFunc = func(t float64) float64 {
		return t * t * (3 - 2*t)
	}

	// EaseSmootherstep has zero first and second derivatives at both ends.
	EaseSmootherstep EasingFunc = func(t float64) float64 {
		return t * t * t * (t*(t*6-15) + 10)
	}

	EaseInOutCubic EasingFunc = func(t float64) float64 {
		if t < 0.5 {
			return 4 * t * t * t
		}
		t1 := 2*t - 2
		return 1 + t1*t1*t1*0.5
	}
)

var easings = map[string]EasingFunc{
	"linear":            EaseLinear,
	"smoothstep":        EaseSmoothstep,
	"smootherstep":      EaseSmootherstep,
	"ease-in-out-cubic": EaseInOutCubic,
}

// EasingNames lists the names accepted by EasingByName.
func EasingNames() []string {
	names := make([]string, 0, len(easings))
	for name := range easings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// EasingByName resolves an easing function. Empty means smoothstep.
func EasingByName(name string) (EasingFunc, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return EaseSmoothstep, nil
	}
	fn, ok := easings[name]
	if !ok {
		return nil, fmt.Errorf("unknown easing %q (valid: %s)", name, strings.Join(EasingNames(), ", "))
	}
	return fn, nil
}
