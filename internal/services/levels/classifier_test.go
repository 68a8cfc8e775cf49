package levels

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"SignalForge/internal/domain/models"
)

func TestPriorSessionRolesDoNotFlipIntraday(t *testing.T) {
	c := NewClassifier(PolicyPriorSession)
	lvls := []models.Level{
		{Price: 680, Kind: models.LevelBattleground},
		{Price: 690, Kind: models.LevelBattleground},
	}

	// prior close 685; live price trades on both sides of each level during the day
	for _, price := range []float64{675, 685, 695} {
		got := c.Classify(lvls, 685, price)
		assert.Equal(t, models.RoleSupport, got[0].Role, "price %v", price)
		assert.Equal(t, models.RoleResistance, got[1].Role, "price %v", price)
	}
}

func TestPriorSessionFallsBackToPrice(t *testing.T) {
	c := NewClassifier(PolicyPriorSession)
	got := c.Classify([]models.Level{{Price: 100}}, 0, 105)
	assert.Equal(t, models.RoleSupport, got[0].Role)
}

func TestLivePriceFlips(t *testing.T) {
	c := NewClassifier(PolicyLivePrice)
	lvl := []models.Level{{Price: 680, Kind: models.LevelSupport}}
	assert.Equal(t, models.RoleSupport, c.Classify(lvl, 0, 681)[0].Role)
	assert.Equal(t, models.RoleResistance, c.Classify(lvl, 0, 679)[0].Role)
}

func TestDeclared(t *testing.T) {
	c := NewClassifier(PolicyDeclared)
	got := c.Classify([]models.Level{
		{Price: 1, Kind: models.LevelSupport},
		{Price: 2, Kind: models.LevelResistance},
		{Price: 3, Kind: models.LevelBattleground},
	}, 10, 10)
	assert.Equal(t, models.RoleSupport, got[0].Role)
	assert.Equal(t, models.RoleResistance, got[1].Role)
	assert.True(t, got[2].ActsAsSupport())
	assert.True(t, got[2].ActsAsResistance())
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	assert.NoError(t, err)
	assert.Equal(t, PolicyPriorSession, p)
	_, err = ParsePolicy("vibes")
	assert.Error(t, err)
}
