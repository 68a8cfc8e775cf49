package models

import (
	"fmt"
	"strings"
)

type LevelKind string

const (
	LevelSupport      LevelKind = "support"
	LevelResistance   LevelKind = "resistance"
	LevelBattleground LevelKind = "battleground"
)

// ParseLevelKind resolves provider spellings such as "SUPPORT", "Resistance Zone" or "BG".
func ParseLevelKind(s string) (LevelKind, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch {
	case strings.Contains(v, "support"):
		return LevelSupport, nil
	case strings.Contains(v, "resist"):
		return LevelResistance, nil
	case strings.Contains(v, "battle"), v == "bg":
		return LevelBattleground, nil
	}
	return "", fmt.Errorf("unknown level kind %q", s)
}

type LevelStrength string

const (
	StrengthWeak     LevelStrength = "weak"
	StrengthModerate LevelStrength = "moderate"
	StrengthStrong   LevelStrength = "strong"
)

func ParseLevelStrength(s string) (LevelStrength, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "weak", "low":
		return StrengthWeak, nil
	case "moderate", "medium", "mid":
		return StrengthModerate, nil
	case "strong", "high":
		return StrengthStrong, nil
	}
	return "", fmt.Errorf("unknown level strength %q", s)
}

// Weight maps strength onto [0,1] for scoring.
func (s LevelStrength) Weight() float64 {
	switch s {
	case StrengthStrong:
		return 1
	case StrengthModerate:
		return 0.6
	default:
		return 0.3
	}
}

// Level is a price level at which significant institutional volume traded.
type Level struct {
	Price    float64       `json:"price"`
	Volume   int64         `json:"volume"`
	Kind     LevelKind     `json:"kind"`
	Strength LevelStrength `json:"strength"`
}

// DistancePct returns the absolute distance from price to the level in percent of price.
func (l Level) DistancePct(price float64) float64 {
	if price <= 0 {
		return 0
	}
	d := (l.Price - price) / price * 100
	if d < 0 {
		return -d
	}
	return d
}

// LevelRole is the directional role a level plays for a session.
type LevelRole string

const (
	RoleSupport    LevelRole = "support"
	RoleResistance LevelRole = "resistance"
	RoleBoth       LevelRole = "both"
)

// ClassifiedLevel pairs a level with the role assigned by a classification policy.
type ClassifiedLevel struct {
	Level
	Role LevelRole `json:"role"`
}

func (c ClassifiedLevel) ActsAsSupport() bool {
	return c.Role == RoleSupport || c.Role == RoleBoth
}

func (c ClassifiedLevel) ActsAsResistance() bool {
	return c.Role == RoleResistance || c.Role == RoleBoth
}
