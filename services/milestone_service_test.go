package services

import (
	"testing"

	"loyalty-points-system/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestMilestoneEligible(t *testing.T) {
	target := decimal.NewFromInt(1000)

	tests := []struct {
		name      string
		milestone models.BonusMilestone
		progress  models.UserMilestoneProgress
		want      bool
	}{
		{
			name:      "target not reached",
			milestone: models.BonusMilestone{TargetValue: target},
			progress:  models.UserMilestoneProgress{CurrentValue: decimal.NewFromInt(999)},
			want:      false,
		},
		{
			name:      "target reached exactly",
			milestone: models.BonusMilestone{TargetValue: target},
			progress:  models.UserMilestoneProgress{CurrentValue: target},
			want:      true,
		},
		{
			name:      "target exceeded",
			milestone: models.BonusMilestone{TargetValue: target},
			progress:  models.UserMilestoneProgress{CurrentValue: decimal.NewFromInt(5000)},
			want:      true,
		},
		{
			name:      "one-shot milestone never fires twice",
			milestone: models.BonusMilestone{TargetValue: target, IsRepeatable: false},
			progress:  models.UserMilestoneProgress{CurrentValue: target, CompletionCount: 1},
			want:      false,
		},
		{
			name:      "repeatable milestone fires again",
			milestone: models.BonusMilestone{TargetValue: target, IsRepeatable: true},
			progress:  models.UserMilestoneProgress{CurrentValue: target, CompletionCount: 3},
			want:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MilestoneEligible(&tt.milestone, &tt.progress)
			assert.Equal(t, tt.want, got)
		})
	}
}
