package priority

import (
	"strings"

	"github.com/gigbase/stagehand/internal/errors"
)

// Level represents a work item's scheduling priority bucket.
type Level string

const (
	// LevelHigh items drain before all others.
	LevelHigh Level = "high"

	// LevelNormal items drain after high and before low.
	LevelNormal Level = "normal"

	// LevelLow items drain only when nothing more urgent is buffered.
	LevelLow Level = "low"
)

// String returns the string representation of the level.
func (l Level) String() string {
	return string(l)
}

// Rank returns the level's urgency rank. Lower ranks drain first,
// and wait estimation counts buffered items with rank <= the requested one.
func (l Level) Rank() int {
	switch l {
	case LevelHigh:
		return 0
	case LevelNormal:
		return 1
	default:
		return 2
	}
}

// Valid reports whether the level is one of the three defined buckets.
func (l Level) Valid() bool {
	switch l {
	case LevelHigh, LevelNormal, LevelLow:
		return true
	}
	return false
}

// Score thresholds for bucketing combined scores into levels.
// The boundaries are policy, not contract: callers must rely only on
// monotonicity (a higher score never yields a less urgent level).
const (
	highThreshold   = 50
	normalThreshold = 20
)

// LevelFor buckets a combined priority score into a Level.
func LevelFor(score int) Level {
	switch {
	case score >= highThreshold:
		return LevelHigh
	case score >= normalThreshold:
		return LevelNormal
	default:
		return LevelLow
	}
}

// ParseLevel converts a string into a Level. Matching is case-insensitive.
func ParseLevel(s string) (Level, error) {
	switch Level(strings.ToLower(s)) {
	case LevelHigh:
		return LevelHigh, nil
	case LevelNormal:
		return LevelNormal, nil
	case LevelLow:
		return LevelLow, nil
	}
	return "", errors.NewValidationError("priority level is not recognized").
		WithField("priority").
		WithValue(s)
}
