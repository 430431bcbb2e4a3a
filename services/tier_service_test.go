package services

import (
	"testing"

	"loyalty-points-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tierLadder() []models.BonusTier {
	return []models.BonusTier{
		{Name: "Bronze", MinPoints: 0},
		{Name: "Silver", MinPoints: 100},
		{Name: "Gold", MinPoints: 500},
	}
}

func TestResolveTier(t *testing.T) {
	tests := []struct {
		name         string
		points       int64
		wantCurrent  string
		wantNext     string
		wantProgress float64
	}{
		{"floor of the ladder", 0, "Bronze", "Silver", 0},
		{"mid bronze", 50, "Bronze", "Silver", 50},
		{"boundary is inclusive", 100, "Silver", "Gold", 0},
		{"mid silver", 250, "Silver", "Gold", 37.5},
		{"top tier", 500, "Gold", "", 100},
		{"beyond top tier", 9000, "Gold", "", 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ResolveTier(tierLadder(), tt.points)

			require.NotNil(t, result.CurrentTier)
			assert.Equal(t, tt.wantCurrent, result.CurrentTier.Name)

			if tt.wantNext == "" {
				assert.Nil(t, result.NextTier)
			} else {
				require.NotNil(t, result.NextTier)
				assert.Equal(t, tt.wantNext, result.NextTier.Name)
			}
			assert.InDelta(t, tt.wantProgress, result.Progress, 0.001)
		})
	}
}

func TestResolveTierBelowFirstTier(t *testing.T) {
	tiers := []models.BonusTier{
		{Name: "Silver", MinPoints: 100},
		{Name: "Gold", MinPoints: 500},
	}

	result := ResolveTier(tiers, 40)

	assert.Nil(t, result.CurrentTier)
	require.NotNil(t, result.NextTier)
	assert.Equal(t, "Silver", result.NextTier.Name)
	assert.Zero(t, result.Progress)
}

func TestResolveTierNoTiersConfigured(t *testing.T) {
	result := ResolveTier(nil, 1000)
	assert.Nil(t, result.CurrentTier)
	assert.Nil(t, result.NextTier)
}

func TestResolveTierMonotonic(t *testing.T) {
	// More points never resolves to a lower tier
	tiers := tierLadder()
	prevMin := int64(-1)
	for points := int64(0); points <= 600; points += 25 {
		result := ResolveTier(tiers, points)
		require.NotNil(t, result.CurrentTier)
		assert.GreaterOrEqual(t, result.CurrentTier.MinPoints, prevMin)
		prevMin = result.CurrentTier.MinPoints
	}
}
