package gamification

import (
	"fmt"
	"math"
	"strings"

	"github.com/cppla/lifetrack/models"
)

// LevelingPolicy maps cumulative XP to a level. Implementations are pure
// and total over non-negative input.
type LevelingPolicy interface {
	Name() string
	Level(xp int64) int
	ToNextLevel(xp int64) int64
}

// LinearPolicy: level = floor(xp/100)+1.
type LinearPolicy struct{}

func (LinearPolicy) Name() string { return "linear" }

func (LinearPolicy) Level(xp int64) int {
	return int(nonNegative(xp)/100) + 1
}

func (p LinearPolicy) ToNextLevel(xp int64) int64 {
	return int64(p.Level(xp))*100 - nonNegative(xp)
}

// SqrtPolicy: level = floor(sqrt(xp/100))+1.
type SqrtPolicy struct{}

func (SqrtPolicy) Name() string { return "sqrt" }

func (SqrtPolicy) Level(xp int64) int {
	// floor(sqrt(x/100)) == isqrt(floor(x/100)) for integer x.
	return int(isqrt(nonNegative(xp)/100)) + 1
}

func (p SqrtPolicy) ToNextLevel(xp int64) int64 {
	level := int64(p.Level(xp))
	return level*level*100 - nonNegative(xp)
}

// PolicyByName returns the named leveling policy.
func PolicyByName(name string) (LevelingPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "linear":
		return LinearPolicy{}, nil
	case "sqrt", "":
		return SqrtPolicy{}, nil
	default:
		return nil, fmt.Errorf("unknown leveling policy %q", name)
	}
}

// applyLevel recomputes the cached level fields from XP.
func applyLevel(policy LevelingPolicy, profile *models.GamificationProfile) {
	profile.Level = policy.Level(profile.XP)
	profile.XPToNextLevel = policy.ToNextLevel(profile.XP)
}

func isqrt(n int64) int64 {
	if n <= 0 {
		return 0
	}
	r := int64(math.Sqrt(float64(n)))
	for r*r > n {
		r--
	}
	for (r+1)*(r+1) <= n {
		r++
	}
	return r
}

func nonNegative(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}
