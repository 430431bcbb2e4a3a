package models

import "time"

// Referral is one referral code owned by a referrer. ReferredUserID and
// SignedUpAt are set once someone signs up with the code. The two bonus flags
// are independent so each side is awarded exactly once.
type Referral struct {
	ID             string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	BonusProgramID string `gorm:"type:uuid;not null;index" json:"bonus_program_id"`
	ReferrerUserID string `gorm:"type:uuid;not null;index" json:"referrer_user_id"`

	Code string `gorm:"uniqueIndex;not null" json:"code"`

	ReferredUserID *string    `gorm:"type:uuid;index" json:"referred_user_id,omitempty"`
	SignedUpAt     *time.Time `json:"signed_up_at,omitempty"`

	ReferrerBonusGiven bool `gorm:"default:false" json:"referrer_bonus_given"`
	RefereeBonusGiven  bool `gorm:"default:false" json:"referee_bonus_given"`

	Timestamps
}
