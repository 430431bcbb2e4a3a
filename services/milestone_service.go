package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"loyalty-points-system/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MilestoneService accumulates per-user progress and pushes completion awards
// through the ledger.
type MilestoneService struct {
	DB     *gorm.DB
	Ledger *LedgerService
}

func NewMilestoneService(db *gorm.DB, ledger *LedgerService) *MilestoneService {
	return &MilestoneService{DB: db, Ledger: ledger}
}

// MilestoneCompletion reports one completed milestone and its award
type MilestoneCompletion struct {
	Milestone   models.BonusMilestone        `json:"milestone"`
	Progress    models.UserMilestoneProgress `json:"progress"`
	Transaction *models.BonusTransaction     `json:"transaction"`
}

// TrackMilestoneProgress adds increment to the user's progress row, creating
// it on first contact.
func (s *MilestoneService) TrackMilestoneProgress(userID, milestoneID string, increment decimal.Decimal) (*models.UserMilestoneProgress, error) {
	var progress *models.UserMilestoneProgress
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		progress, err = s.trackProgress(tx, userID, milestoneID, increment)
		return err
	})
	if err != nil {
		return nil, err
	}
	return progress, nil
}

func (s *MilestoneService) trackProgress(tx *gorm.DB, userID, milestoneID string, increment decimal.Decimal) (*models.UserMilestoneProgress, error) {
	seed := models.UserMilestoneProgress{
		UserID:           userID,
		BonusMilestoneID: milestoneID,
		CurrentValue:     decimal.Zero,
	}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "bonus_milestone_id"}},
		DoNothing: true,
	}).Create(&seed).Error; err != nil {
		return nil, fmt.Errorf("failed to ensure progress row: %w", err)
	}

	var progress models.UserMilestoneProgress
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND bonus_milestone_id = ?", userID, milestoneID).
		First(&progress).Error; err != nil {
		return nil, err
	}

	progress.CurrentValue = progress.CurrentValue.Add(increment)
	if err := tx.Save(&progress).Error; err != nil {
		return nil, err
	}
	return &progress, nil
}

// CheckMilestoneCompletion awards the milestone if the target is met and the
// user is still eligible. Returns nil (no error) when there is nothing to do:
// target not reached, or a non-repeatable milestone already completed.
func (s *MilestoneService) CheckMilestoneCompletion(userID, milestoneID string) (*MilestoneCompletion, error) {
	var completion *MilestoneCompletion
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var milestone models.BonusMilestone
		if err := tx.Where("id = ?", milestoneID).First(&milestone).Error; err != nil {
			return err
		}
		var err error
		completion, err = s.checkCompletion(tx, userID, &milestone)
		return err
	})
	if err != nil {
		return nil, err
	}
	return completion, nil
}

func (s *MilestoneService) checkCompletion(tx *gorm.DB, userID string, milestone *models.BonusMilestone) (*MilestoneCompletion, error) {
	var progress models.UserMilestoneProgress
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND bonus_milestone_id = ?", userID, milestone.ID).
		First(&progress).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	if !MilestoneEligible(milestone, &progress) {
		return nil, nil
	}

	now := time.Now()
	txn, err := s.Ledger.awardPoints(tx, AwardParams{
		UserID:      userID,
		ProgramID:   milestone.BonusProgramID,
		Points:      milestone.RewardPoints,
		Type:        models.TransactionEarnedMilestone,
		Status:      models.TransactionConfirmed,
		Description: fmt.Sprintf("Milestone reached: %s", milestone.Name),
		Metadata: models.JSONMap{
			"milestone_id":   milestone.ID,
			"milestone_name": milestone.Name,
		},
	})
	if err != nil {
		return nil, err
	}

	progress.IsCompleted = true
	progress.CompletedAt = &now
	progress.CompletionCount++
	if milestone.IsRepeatable {
		// Progress restarts so the milestone can trigger again
		progress.CurrentValue = decimal.Zero
	}
	if err := tx.Save(&progress).Error; err != nil {
		return nil, err
	}

	log.Printf("[Milestone] %s completed by user %s (+%d points)", milestone.Name, userID, milestone.RewardPoints)
	return &MilestoneCompletion{Milestone: *milestone, Progress: progress, Transaction: txn}, nil
}

// MilestoneEligible reports whether a completion award should fire for the
// current progress state.
func MilestoneEligible(milestone *models.BonusMilestone, progress *models.UserMilestoneProgress) bool {
	if progress.CurrentValue.LessThan(milestone.TargetValue) {
		return false
	}
	if !milestone.IsRepeatable && progress.CompletionCount > 0 {
		return false
	}
	return true
}

// CheckMilestonesForEvent feeds one external event (order placed, referral
// tracked, ...) into every active milestone of the matching type, inside one
// transaction so progress and awards land together or not at all.
func (s *MilestoneService) CheckMilestonesForEvent(userID, programID string, eventType models.MilestoneType, eventValue decimal.Decimal) ([]MilestoneCompletion, error) {
	var completions []MilestoneCompletion
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var milestones []models.BonusMilestone
		if err := tx.Where("bonus_program_id = ? AND type = ? AND is_active = true", programID, eventType).
			Find(&milestones).Error; err != nil {
			return err
		}

		for i := range milestones {
			if _, err := s.trackProgress(tx, userID, milestones[i].ID, eventValue); err != nil {
				return err
			}
			completion, err := s.checkCompletion(tx, userID, &milestones[i])
			if err != nil {
				return err
			}
			if completion != nil {
				completions = append(completions, *completion)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return completions, nil
}

// GetUserProgress lists the user's progress across a program's milestones.
func (s *MilestoneService) GetUserProgress(userID, programID string) ([]models.UserMilestoneProgress, error) {
	var progress []models.UserMilestoneProgress
	err := s.DB.
		Joins("JOIN bonus_milestones ON bonus_milestones.id = user_milestone_progresses.bonus_milestone_id").
		Where("user_milestone_progresses.user_id = ? AND bonus_milestones.bonus_program_id = ?", userID, programID).
		Find(&progress).Error
	return progress, err
}
