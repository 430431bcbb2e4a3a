package services

import (
	"errors"

	"loyalty-points-system/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TierService resolves which tier an account sits in and how far along it is
// toward the next one. Resolution is stateless; the account row only caches
// the latest result.
type TierService struct {
	DB *gorm.DB
}

func NewTierService(db *gorm.DB) *TierService {
	return &TierService{DB: db}
}

// TierResult is the outcome of a tier calculation
type TierResult struct {
	CurrentTier *models.BonusTier `json:"current_tier"`
	NextTier    *models.BonusTier `json:"next_tier,omitempty"`
	Progress    float64           `json:"progress"` // 0-100 toward the next tier
}

// ResolveTier picks the highest tier whose MinPoints <= points and the first
// tier strictly above it. Tiers must be ordered by MinPoints ascending.
func ResolveTier(tiers []models.BonusTier, points int64) TierResult {
	result := TierResult{}
	for i := range tiers {
		if tiers[i].MinPoints <= points {
			result.CurrentTier = &tiers[i]
		} else {
			result.NextTier = &tiers[i]
			break
		}
	}

	if result.CurrentTier == nil {
		return result
	}
	if result.NextTier == nil {
		result.Progress = 100
		return result
	}

	span := result.NextTier.MinPoints - result.CurrentTier.MinPoints
	if span <= 0 {
		return result
	}
	result.Progress = float64(points-result.CurrentTier.MinPoints) / float64(span) * 100
	return result
}

// CalculateUserTier resolves the account's tier from its current points and
// refreshes the cached tier id/progress on the account row when they drift.
func (s *TierService) CalculateUserTier(userID, programID string) (*TierResult, error) {
	var account models.UserBonusAccount
	if err := s.DB.Where("user_id = ? AND bonus_program_id = ?", userID, programID).
		First(&account).Error; err != nil {
		return nil, err
	}

	tiers, err := s.ActiveTiers(programID)
	if err != nil {
		return nil, err
	}

	result := ResolveTier(tiers, account.CurrentPoints)

	var resolvedID *string
	if result.CurrentTier != nil {
		resolvedID = &result.CurrentTier.ID
	}
	if !tierIDEqual(account.CurrentTierID, resolvedID) || account.TierProgress != result.Progress {
		updates := map[string]interface{}{
			"current_tier_id": resolvedID,
			"tier_progress":   result.Progress,
		}
		if err := s.DB.Model(&account).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return &result, nil
}

// Multiplier returns the earn multiplier for the user's current tier,
// defaulting to 1 below the first tier.
func (s *TierService) Multiplier(userID, programID string) (decimal.Decimal, error) {
	result, err := s.CalculateUserTier(userID, programID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// No account yet means no tier and the base earn rate
			return decimal.NewFromInt(1), nil
		}
		return decimal.Decimal{}, err
	}
	if result.CurrentTier == nil || result.CurrentTier.Multiplier.IsZero() {
		return decimal.NewFromInt(1), nil
	}
	return result.CurrentTier.Multiplier, nil
}

// ActiveTiers loads a program's active tiers ordered by threshold.
func (s *TierService) ActiveTiers(programID string) ([]models.BonusTier, error) {
	var tiers []models.BonusTier
	err := s.DB.Where("bonus_program_id = ? AND is_active = true", programID).
		Order("min_points ASC").
		Find(&tiers).Error
	return tiers, err
}

func tierIDEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
