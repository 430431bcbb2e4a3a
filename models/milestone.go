package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MilestoneType selects which external event feeds a milestone's progress
type MilestoneType string

const (
	MilestoneTotalSpent    MilestoneType = "total_spent"
	MilestoneOrderCount    MilestoneType = "order_count"
	MilestoneReferralCount MilestoneType = "referral_count"
)

// BonusMilestone defines a cumulative-progress achievement within a program.
// Repeatable milestones reset progress after each completion and may trigger
// again; non-repeatable milestones award once only.
type BonusMilestone struct {
	ID             string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	BonusProgramID string `gorm:"type:uuid;not null;index" json:"bonus_program_id"`

	Name        string        `gorm:"not null" json:"name"`
	Description string        `gorm:"type:text" json:"description"`
	Type        MilestoneType `gorm:"not null;index" json:"type"`

	// total_spent targets are currency amounts, order_count/referral_count are
	// plain counts. Both fit the numeric column.
	TargetValue  decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"target_value"`
	RewardPoints int64           `gorm:"not null" json:"reward_points"`

	IsRepeatable bool    `gorm:"default:false" json:"is_repeatable"`
	IsActive     bool    `gorm:"default:true" json:"is_active"`
	Metadata     JSONMap `json:"metadata,omitempty"`

	Timestamps
}

// UserMilestoneProgress accumulates one user's progress toward one milestone
type UserMilestoneProgress struct {
	ID               string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	UserID           string `gorm:"type:uuid;not null;uniqueIndex:idx_progress_user_milestone" json:"user_id"`
	BonusMilestoneID string `gorm:"type:uuid;not null;uniqueIndex:idx_progress_user_milestone" json:"bonus_milestone_id"`

	CurrentValue    decimal.Decimal `gorm:"type:numeric(14,2);default:0" json:"current_value"`
	IsCompleted     bool            `gorm:"default:false" json:"is_completed"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`
	CompletionCount int             `gorm:"default:0" json:"completion_count"`

	Timestamps
}
