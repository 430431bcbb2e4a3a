package services

import (
	"testing"
	"time"

	"loyalty-points-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// assertBalanceInvariant checks the account equation that every committed
// transaction must preserve: current = earned - redeemed - expired.
func assertBalanceInvariant(t *testing.T, account *models.UserBonusAccount) {
	t.Helper()
	assert.Equal(t,
		account.TotalEarnedPoints-account.TotalRedeemedPoints-account.TotalExpiredPoints,
		account.CurrentPoints)
	assert.GreaterOrEqual(t, account.CurrentPoints, int64(0))
	assert.GreaterOrEqual(t, account.PendingPoints, int64(0))
}

func TestBalanceLifecycle(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	account := &models.UserBonusAccount{}

	before, after, err := ApplyAward(account, 100, models.TransactionConfirmed, now)
	require.NoError(t, err)
	assert.Equal(t, int64(0), before)
	assert.Equal(t, int64(100), after)
	assert.Equal(t, int64(100), account.CurrentPoints)
	assertBalanceInvariant(t, account)

	// Pending awards do not move the current balance
	before, after, err = ApplyAward(account, 50, models.TransactionPending, now)
	require.NoError(t, err)
	assert.Equal(t, int64(100), before)
	assert.Equal(t, int64(100), after)
	assert.Equal(t, int64(50), account.PendingPoints)
	assertBalanceInvariant(t, account)

	balance := ApplyConfirmation(account, 50, now)
	assert.Equal(t, int64(150), balance)
	assert.Equal(t, int64(0), account.PendingPoints)
	assertBalanceInvariant(t, account)

	before, after, err = ApplyDeduction(account, 150, now)
	require.NoError(t, err)
	assert.Equal(t, int64(150), before)
	assert.Equal(t, int64(0), after)
	assertBalanceInvariant(t, account)

	// Empty balance: the deduction fails and leaves the account untouched
	snapshot := *account
	_, _, err = ApplyDeduction(account, 1, now)
	assert.ErrorIs(t, err, ErrInsufficientPoints)
	assert.Equal(t, snapshot, *account)
	assertBalanceInvariant(t, account)
}

func TestApplyAwardRejectsNonPositivePoints(t *testing.T) {
	account := &models.UserBonusAccount{}
	_, _, err := ApplyAward(account, 0, models.TransactionConfirmed, time.Now())
	assert.Error(t, err)
	_, _, err = ApplyAward(account, -5, models.TransactionConfirmed, time.Now())
	assert.Error(t, err)
	assert.Equal(t, int64(0), account.TotalEarnedPoints)
}

func TestApplyExpiryFloorsAtZero(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	account := &models.UserBonusAccount{}

	_, _, err := ApplyAward(account, 30, models.TransactionConfirmed, now)
	require.NoError(t, err)
	_, _, err = ApplyDeduction(account, 20, now)
	require.NoError(t, err)

	// The whole 30-point lot expires but 20 of it was already spent
	before, after := ApplyExpiry(account, 30)
	assert.Equal(t, int64(10), before)
	assert.Equal(t, int64(0), after)
	assert.Equal(t, int64(0), account.CurrentPoints)
	assert.Equal(t, int64(30), account.TotalExpiredPoints)
}

func TestApplyCancellationFloorsPending(t *testing.T) {
	account := &models.UserBonusAccount{PendingPoints: 10}
	ApplyCancellation(account, 25)
	assert.Equal(t, int64(0), account.PendingPoints)
	assert.Equal(t, int64(0), account.CurrentPoints)
}

func expirationRows(remaining ...int64) []models.PointsExpiration {
	rows := make([]models.PointsExpiration, len(remaining))
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, r := range remaining {
		rows[i] = models.PointsExpiration{
			RemainingPoints: r,
			ExpiresAt:       base.AddDate(0, i, 0),
		}
	}
	return rows
}

func TestPlanFIFOConsumption(t *testing.T) {
	tests := []struct {
		name   string
		rows   []int64
		points int64
		want   []int64
	}{
		{
			name:   "oldest lot drained first",
			rows:   []int64{10, 20, 30},
			points: 15,
			want:   []int64{10, 5, 0},
		},
		{
			name:   "exact single lot",
			rows:   []int64{10, 20},
			points: 10,
			want:   []int64{10, 0},
		},
		{
			name:   "spans all lots",
			rows:   []int64{10, 20, 30},
			points: 60,
			want:   []int64{10, 20, 30},
		},
		{
			name:   "deduction exceeds tracked lots",
			rows:   []int64{5, 5},
			points: 100,
			want:   []int64{5, 5},
		},
		{
			name:   "zero deduction touches nothing",
			rows:   []int64{10, 20},
			points: 0,
			want:   []int64{0, 0},
		},
		{
			name:   "no open lots",
			rows:   nil,
			points: 25,
			want:   []int64{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PlanFIFOConsumption(expirationRows(tt.rows...), tt.points)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPlanFIFOConsumptionNeverOverdraws(t *testing.T) {
	rows := expirationRows(3, 7, 11)
	for points := int64(0); points <= 25; points++ {
		plan := PlanFIFOConsumption(rows, points)
		var total int64
		for i, take := range plan {
			assert.LessOrEqual(t, take, rows[i].RemainingPoints)
			total += take
		}
		assert.LessOrEqual(t, total, points)
	}
}
