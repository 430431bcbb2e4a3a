package services

import (
	"strings"
	"testing"
	"time"

	"loyalty-points-system/models"

	"github.com/stretchr/testify/assert"
)

func TestCheckRewardEligibility(t *testing.T) {
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
	past := now.Add(-24 * time.Hour)
	future := now.Add(24 * time.Hour)

	tests := []struct {
		name            string
		reward          models.Reward
		userRedemptions int64
		wantErr         error
	}{
		{
			name:   "active unrestricted reward",
			reward: models.Reward{IsActive: true},
		},
		{
			name:    "inactive reward",
			reward:  models.Reward{IsActive: false},
			wantErr: ErrRewardInactive,
		},
		{
			name:    "not yet valid",
			reward:  models.Reward{IsActive: true, ValidFrom: &future},
			wantErr: ErrRewardNotYetAvailable,
		},
		{
			name:    "validity window closed",
			reward:  models.Reward{IsActive: true, ValidUntil: &past},
			wantErr: ErrRewardExpired,
		},
		{
			name:   "inside validity window",
			reward: models.Reward{IsActive: true, ValidFrom: &past, ValidUntil: &future},
		},
		{
			name:    "global redemption limit hit",
			reward:  models.Reward{IsActive: true, TotalRedemptionsLimit: 10, CurrentRedemptions: 10},
			wantErr: ErrRedemptionLimitReached,
		},
		{
			name:   "global limit not yet hit",
			reward: models.Reward{IsActive: true, TotalRedemptionsLimit: 10, CurrentRedemptions: 9},
		},
		{
			name:            "per-user limit hit",
			reward:          models.Reward{IsActive: true, MaxRedemptionsPerUser: 2},
			userRedemptions: 2,
			wantErr:         ErrUserRedemptionLimitReached,
		},
		{
			name:            "zero limits mean unlimited",
			reward:          models.Reward{IsActive: true},
			userRedemptions: 500,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckRewardEligibility(&tt.reward, tt.userRedemptions, now)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestGenerateCouponCode(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		code := GenerateCouponCode()
		assert.Len(t, code, couponCodeLength)
		for _, r := range code {
			assert.True(t, strings.ContainsRune(couponCodeAlphabet, r),
				"unexpected character %q in coupon code %s", r, code)
		}
		assert.False(t, seen[code], "duplicate coupon code %s", code)
		seen[code] = true
	}
}
