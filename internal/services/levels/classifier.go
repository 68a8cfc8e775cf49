package levels

import (
	"fmt"

	"SignalForge/internal/domain/models"
)

// Policy decides which directional role a level plays.
type Policy string

const (
	// PolicyPriorSession anchors roles to the prior session close. Roles are fixed
	// for the whole session, so one level never produces both a bounce and a rejection.
	PolicyPriorSession Policy = "prior_session"
	// PolicyLivePrice flips roles as the live price crosses a level.
	PolicyLivePrice Policy = "live_price"
	// PolicyDeclared trusts the provider kind; battlegrounds act both ways.
	PolicyDeclared Policy = "declared"
)

func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", PolicyPriorSession:
		return PolicyPriorSession, nil
	case PolicyLivePrice, PolicyDeclared:
		return Policy(s), nil
	}
	return "", fmt.Errorf("unknown level policy %q", s)
}

type Classifier struct {
	policy Policy
}

func NewClassifier(policy Policy) *Classifier {
	if policy == "" {
		policy = PolicyPriorSession
	}
	return &Classifier{policy: policy}
}

func (c *Classifier) Policy() Policy { return c.policy }

// Classify assigns roles. priorClose is used by PolicyPriorSession and falls back
// to price when unknown; price is used by PolicyLivePrice.
func (c *Classifier) Classify(levels []models.Level, priorClose, price float64) []models.ClassifiedLevel {
	out := make([]models.ClassifiedLevel, 0, len(levels))
	for _, l := range levels {
		out = append(out, models.ClassifiedLevel{Level: l, Role: c.role(l, priorClose, price)})
	}
	return out
}

func (c *Classifier) role(l models.Level, priorClose, price float64) models.LevelRole {
	switch c.policy {
	case PolicyDeclared:
		switch l.Kind {
		case models.LevelSupport:
			return models.RoleSupport
		case models.LevelResistance:
			return models.RoleResistance
		default:
			return models.RoleBoth
		}
	case PolicyLivePrice:
		return bySide(l.Price, price)
	default:
		anchor := priorClose
		if anchor <= 0 {
			anchor = price
		}
		return bySide(l.Price, anchor)
	}
}

func bySide(level, anchor float64) models.LevelRole {
	switch {
	case anchor <= 0:
		return models.RoleBoth
	case level < anchor:
		return models.RoleSupport
	case level > anchor:
		return models.RoleResistance
	default:
		return models.RoleBoth
	}
}
