package threads

import "time"

// OptimizationLevel trades recall against AI API cost with one knob.
type OptimizationLevel string

const (
	// OptimizationHigh favors cost: long cache TTL, strict confidence floor.
	OptimizationHigh OptimizationLevel = "high"
	// OptimizationMedium is the balanced default.
	OptimizationMedium OptimizationLevel = "medium"
	// OptimizationLow favors recall: short TTL, permissive floor.
	OptimizationLow OptimizationLevel = "low"
)

// Settings are the tunables an optimization level resolves to.
type Settings struct {
	CacheTTL      time.Duration
	MinConfidence int
}

// Settings maps the level to concrete values. Unknown levels get medium.
func (l OptimizationLevel) Settings() Settings {
	switch l {
	case OptimizationHigh:
		return Settings{CacheTTL: 24 * time.Hour, MinConfidence: 75}
	case OptimizationLow:
		return Settings{CacheTTL: time.Hour, MinConfidence: 65}
	default:
		return Settings{CacheTTL: 6 * time.Hour, MinConfidence: 70}
	}
}
