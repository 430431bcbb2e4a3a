package services

import (
	"errors"
	"log"
	"time"

	"loyalty-points-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProgramService carries the admin surface for bonus programs, tiers, the
// reward catalog and milestones.
type ProgramService struct {
	DB *gorm.DB
}

func NewProgramService(db *gorm.DB) *ProgramService {
	return &ProgramService{DB: db}
}

// --- Programs ---

// CreateProgram creates a bonus program for the caller's organization
func (s *ProgramService) CreateProgram(c *fiber.Ctx) error {
	orgID := c.Locals("organization_id").(string)

	var req struct {
		Name                string  `json:"name" validate:"required"`
		Description         string  `json:"description"`
		PointsPerUnit       string  `json:"points_per_unit"`
		MinOrderAmount      string  `json:"min_order_amount"`
		MaxPointsPerOrder   int64   `json:"max_points_per_order"`
		PointsExpiryDays    *int    `json:"points_expiry_days"`
		SignupBonusPoints   int64   `json:"signup_bonus_points"`
		ReferrerBonusPoints int64   `json:"referrer_bonus_points"`
		RefereeBonusPoints  int64   `json:"referee_bonus_points"`
		IsActive            *bool   `json:"is_active"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Name is required"})
	}

	rate, err := parseDecimalField(req.PointsPerUnit, decimal.NewFromInt(1))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid points_per_unit"})
	}
	minOrder, err := parseDecimalField(req.MinOrderAmount, decimal.Zero)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid min_order_amount"})
	}

	program := &models.BonusProgram{
		OrganizationID:      orgID,
		Name:                req.Name,
		Slug:                slug.Make(req.Name),
		Description:         req.Description,
		PointsPerUnit:       rate,
		MinOrderAmount:      minOrder,
		MaxPointsPerOrder:   req.MaxPointsPerOrder,
		PointsExpiryDays:    req.PointsExpiryDays,
		SignupBonusPoints:   req.SignupBonusPoints,
		ReferrerBonusPoints: req.ReferrerBonusPoints,
		RefereeBonusPoints:  req.RefereeBonusPoints,
		IsActive:            true,
	}
	if req.IsActive != nil {
		program.IsActive = *req.IsActive
	}

	if err := s.DB.Create(program).Error; err != nil {
		log.Printf("DB Error creating program: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create program"})
	}
	return c.Status(fiber.StatusCreated).JSON(program)
}

// UpdateProgram edits a program's configuration
func (s *ProgramService) UpdateProgram(c *fiber.Ctx) error {
	orgID := c.Locals("organization_id").(string)
	id := c.Params("programId")
	if _, err := uuid.Parse(id); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid program ID"})
	}

	var program models.BonusProgram
	if err := s.DB.Where("id = ? AND organization_id = ?", id, orgID).First(&program).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Program not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	var req struct {
		Name                *string `json:"name"`
		Description         *string `json:"description"`
		PointsPerUnit       *string `json:"points_per_unit"`
		MinOrderAmount      *string `json:"min_order_amount"`
		MaxPointsPerOrder   *int64  `json:"max_points_per_order"`
		PointsExpiryDays    *int    `json:"points_expiry_days"`
		SignupBonusPoints   *int64  `json:"signup_bonus_points"`
		ReferrerBonusPoints *int64  `json:"referrer_bonus_points"`
		RefereeBonusPoints  *int64  `json:"referee_bonus_points"`
		IsActive            *bool   `json:"is_active"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if req.Name != nil {
		program.Name = *req.Name
		program.Slug = slug.Make(*req.Name)
	}
	if req.Description != nil {
		program.Description = *req.Description
	}
	if req.PointsPerUnit != nil {
		rate, err := decimal.NewFromString(*req.PointsPerUnit)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid points_per_unit"})
		}
		program.PointsPerUnit = rate
	}
	if req.MinOrderAmount != nil {
		minOrder, err := decimal.NewFromString(*req.MinOrderAmount)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid min_order_amount"})
		}
		program.MinOrderAmount = minOrder
	}
	if req.MaxPointsPerOrder != nil {
		program.MaxPointsPerOrder = *req.MaxPointsPerOrder
	}
	if req.PointsExpiryDays != nil {
		program.PointsExpiryDays = req.PointsExpiryDays
	}
	if req.SignupBonusPoints != nil {
		program.SignupBonusPoints = *req.SignupBonusPoints
	}
	if req.ReferrerBonusPoints != nil {
		program.ReferrerBonusPoints = *req.ReferrerBonusPoints
	}
	if req.RefereeBonusPoints != nil {
		program.RefereeBonusPoints = *req.RefereeBonusPoints
	}
	if req.IsActive != nil {
		program.IsActive = *req.IsActive
	}

	if err := s.DB.Save(&program).Error; err != nil {
		log.Printf("DB Error updating program: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update program"})
	}
	return c.JSON(program)
}

// DeleteProgram soft-deletes a program so its ledger history stays intact
func (s *ProgramService) DeleteProgram(c *fiber.Ctx) error {
	orgID := c.Locals("organization_id").(string)
	id := c.Params("programId")

	var program models.BonusProgram
	if err := s.DB.Where("id = ? AND organization_id = ?", id, orgID).First(&program).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Program not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	if err := s.DB.Delete(&program).Error; err != nil {
		log.Printf("DB Error deleting program: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete program"})
	}
	return c.JSON(fiber.Map{"message": "Program deleted successfully"})
}

// ListPrograms returns the organization's programs
func (s *ProgramService) ListPrograms(c *fiber.Ctx) error {
	orgID := c.Locals("organization_id").(string)

	var programs []models.BonusProgram
	if err := s.DB.Where("organization_id = ?", orgID).Order("created_at DESC").Find(&programs).Error; err != nil {
		log.Printf("DB Error fetching programs: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch programs"})
	}
	return c.JSON(programs)
}

// --- Tiers ---

// CreateTier adds a tier to a program
func (s *ProgramService) CreateTier(c *fiber.Ctx) error {
	programID := c.Params("programId")

	var req struct {
		Name       string `json:"name" validate:"required"`
		MinPoints  int64  `json:"min_points"`
		Multiplier string `json:"multiplier"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Name is required"})
	}
	if req.MinPoints < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "min_points cannot be negative"})
	}

	multiplier, err := parseDecimalField(req.Multiplier, decimal.NewFromInt(1))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid multiplier"})
	}

	tier := &models.BonusTier{
		BonusProgramID: programID,
		Name:           req.Name,
		MinPoints:      req.MinPoints,
		Multiplier:     multiplier,
		IsActive:       true,
	}
	if err := s.DB.Create(tier).Error; err != nil {
		log.Printf("DB Error creating tier: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create tier"})
	}
	return c.Status(fiber.StatusCreated).JSON(tier)
}

// UpdateTier edits a tier going forward; past transactions are untouched
func (s *ProgramService) UpdateTier(c *fiber.Ctx) error {
	id := c.Params("tierId")

	var tier models.BonusTier
	if err := s.DB.First(&tier, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Tier not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	var req struct {
		Name       *string `json:"name"`
		MinPoints  *int64  `json:"min_points"`
		Multiplier *string `json:"multiplier"`
		IsActive   *bool   `json:"is_active"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if req.Name != nil {
		tier.Name = *req.Name
	}
	if req.MinPoints != nil {
		tier.MinPoints = *req.MinPoints
	}
	if req.Multiplier != nil {
		multiplier, err := decimal.NewFromString(*req.Multiplier)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid multiplier"})
		}
		tier.Multiplier = multiplier
	}
	if req.IsActive != nil {
		tier.IsActive = *req.IsActive
	}

	if err := s.DB.Save(&tier).Error; err != nil {
		log.Printf("DB Error updating tier: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update tier"})
	}
	return c.JSON(tier)
}

// ListTiers returns a program's tiers ordered by threshold
func (s *ProgramService) ListTiers(c *fiber.Ctx) error {
	programID := c.Params("programId")

	var tiers []models.BonusTier
	if err := s.DB.Where("bonus_program_id = ?", programID).Order("min_points ASC").Find(&tiers).Error; err != nil {
		log.Printf("DB Error fetching tiers: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch tiers"})
	}
	return c.JSON(tiers)
}

// --- Rewards ---

// CreateReward adds a reward to the catalog
func (s *ProgramService) CreateReward(c *fiber.Ctx) error {
	programID := c.Params("programId")

	var req struct {
		Name                  string            `json:"name" validate:"required"`
		Description           string            `json:"description"`
		Type                  models.RewardType `json:"type" validate:"required,oneof=discount_percent discount_fixed free_shipping free_product cash_back"`
		PointsCost            int64             `json:"points_cost" validate:"required"`
		DiscountPercent       string            `json:"discount_percent"`
		DiscountAmount        string            `json:"discount_amount"`
		CashAmount            string            `json:"cash_amount"`
		FreeProductID         *string           `json:"free_product_id"`
		Currency              string            `json:"currency"`
		MaxRedemptionsPerUser int               `json:"max_redemptions_per_user"`
		TotalRedemptionsLimit int               `json:"total_redemptions_limit"`
		ValidFrom             *time.Time        `json:"valid_from"`
		ValidUntil            *time.Time        `json:"valid_until"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.Name == "" || req.PointsCost <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Name and a positive points_cost are required"})
	}

	switch req.Type {
	case models.RewardDiscountPercent:
		if req.DiscountPercent == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "discount_percent is required for percentage rewards"})
		}
	case models.RewardDiscountFixed:
		if req.DiscountAmount == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "discount_amount is required for fixed discount rewards"})
		}
	case models.RewardCashBack:
		if req.CashAmount == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "cash_amount is required for cash back rewards"})
		}
	case models.RewardFreeProduct:
		if req.FreeProductID == nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "free_product_id is required for free product rewards"})
		}
	case models.RewardFreeShipping:
		// no value fields
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid reward type"})
	}

	discountPercent, err := parseDecimalField(req.DiscountPercent, decimal.Zero)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid discount_percent"})
	}
	discountAmount, err := parseDecimalField(req.DiscountAmount, decimal.Zero)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid discount_amount"})
	}
	cashAmount, err := parseDecimalField(req.CashAmount, decimal.Zero)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid cash_amount"})
	}

	reward := &models.Reward{
		BonusProgramID:        programID,
		Name:                  req.Name,
		Slug:                  slug.Make(req.Name),
		Description:           req.Description,
		Type:                  req.Type,
		PointsCost:            req.PointsCost,
		DiscountPercent:       discountPercent,
		DiscountAmount:        discountAmount,
		CashAmount:            cashAmount,
		FreeProductID:         req.FreeProductID,
		MaxRedemptionsPerUser: req.MaxRedemptionsPerUser,
		TotalRedemptionsLimit: req.TotalRedemptionsLimit,
		ValidFrom:             req.ValidFrom,
		ValidUntil:            req.ValidUntil,
		IsActive:              true,
	}
	if req.Currency != "" {
		reward.Currency = req.Currency
	}

	if err := s.DB.Create(reward).Error; err != nil {
		log.Printf("DB Error creating reward: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create reward"})
	}
	return c.Status(fiber.StatusCreated).JSON(reward)
}

// UpdateReward edits a catalog entry
func (s *ProgramService) UpdateReward(c *fiber.Ctx) error {
	id := c.Params("rewardId")

	var reward models.Reward
	if err := s.DB.First(&reward, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Reward not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	var req struct {
		Name                  *string    `json:"name"`
		Description           *string    `json:"description"`
		PointsCost            *int64     `json:"points_cost"`
		MaxRedemptionsPerUser *int       `json:"max_redemptions_per_user"`
		TotalRedemptionsLimit *int       `json:"total_redemptions_limit"`
		ValidFrom             *time.Time `json:"valid_from"`
		ValidUntil            *time.Time `json:"valid_until"`
		IsActive              *bool      `json:"is_active"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if req.Name != nil {
		reward.Name = *req.Name
		reward.Slug = slug.Make(*req.Name)
	}
	if req.Description != nil {
		reward.Description = *req.Description
	}
	if req.PointsCost != nil {
		if *req.PointsCost <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "points_cost must be positive"})
		}
		reward.PointsCost = *req.PointsCost
	}
	if req.MaxRedemptionsPerUser != nil {
		reward.MaxRedemptionsPerUser = *req.MaxRedemptionsPerUser
	}
	if req.TotalRedemptionsLimit != nil {
		reward.TotalRedemptionsLimit = *req.TotalRedemptionsLimit
	}
	if req.ValidFrom != nil {
		reward.ValidFrom = req.ValidFrom
	}
	if req.ValidUntil != nil {
		reward.ValidUntil = req.ValidUntil
	}
	if req.IsActive != nil {
		reward.IsActive = *req.IsActive
	}

	if err := s.DB.Save(&reward).Error; err != nil {
		log.Printf("DB Error updating reward: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update reward"})
	}
	return c.JSON(reward)
}

// ListRewards returns a program's catalog; pass active=true to filter
func (s *ProgramService) ListRewards(c *fiber.Ctx) error {
	programID := c.Params("programId")

	query := s.DB.Where("bonus_program_id = ?", programID)
	if c.Query("active") == "true" {
		query = query.Where("is_active = true")
	}

	var rewards []models.Reward
	if err := query.Order("points_cost ASC").Find(&rewards).Error; err != nil {
		log.Printf("DB Error fetching rewards: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch rewards"})
	}
	return c.JSON(rewards)
}

// --- Milestones ---

// CreateMilestone adds a milestone to a program
func (s *ProgramService) CreateMilestone(c *fiber.Ctx) error {
	programID := c.Params("programId")

	var req struct {
		Name         string               `json:"name" validate:"required"`
		Description  string               `json:"description"`
		Type         models.MilestoneType `json:"type" validate:"required,oneof=total_spent order_count referral_count"`
		TargetValue  string               `json:"target_value" validate:"required"`
		RewardPoints int64                `json:"reward_points" validate:"required"`
		IsRepeatable bool                 `json:"is_repeatable"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.Name == "" || req.RewardPoints <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Name and a positive reward_points are required"})
	}
	switch req.Type {
	case models.MilestoneTotalSpent, models.MilestoneOrderCount, models.MilestoneReferralCount:
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid milestone type"})
	}

	target, err := decimal.NewFromString(req.TargetValue)
	if err != nil || target.LessThanOrEqual(decimal.Zero) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "target_value must be a positive number"})
	}

	milestone := &models.BonusMilestone{
		BonusProgramID: programID,
		Name:           req.Name,
		Description:    req.Description,
		Type:           req.Type,
		TargetValue:    target,
		RewardPoints:   req.RewardPoints,
		IsRepeatable:   req.IsRepeatable,
		IsActive:       true,
	}
	if err := s.DB.Create(milestone).Error; err != nil {
		log.Printf("DB Error creating milestone: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create milestone"})
	}
	return c.Status(fiber.StatusCreated).JSON(milestone)
}

// UpdateMilestone edits a milestone
func (s *ProgramService) UpdateMilestone(c *fiber.Ctx) error {
	id := c.Params("milestoneId")

	var milestone models.BonusMilestone
	if err := s.DB.First(&milestone, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Milestone not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	var req struct {
		Name         *string `json:"name"`
		Description  *string `json:"description"`
		TargetValue  *string `json:"target_value"`
		RewardPoints *int64  `json:"reward_points"`
		IsRepeatable *bool   `json:"is_repeatable"`
		IsActive     *bool   `json:"is_active"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if req.Name != nil {
		milestone.Name = *req.Name
	}
	if req.Description != nil {
		milestone.Description = *req.Description
	}
	if req.TargetValue != nil {
		target, err := decimal.NewFromString(*req.TargetValue)
		if err != nil || target.LessThanOrEqual(decimal.Zero) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "target_value must be a positive number"})
		}
		milestone.TargetValue = target
	}
	if req.RewardPoints != nil {
		milestone.RewardPoints = *req.RewardPoints
	}
	if req.IsRepeatable != nil {
		milestone.IsRepeatable = *req.IsRepeatable
	}
	if req.IsActive != nil {
		milestone.IsActive = *req.IsActive
	}

	if err := s.DB.Save(&milestone).Error; err != nil {
		log.Printf("DB Error updating milestone: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update milestone"})
	}
	return c.JSON(milestone)
}

// ListMilestones returns a program's milestones
func (s *ProgramService) ListMilestones(c *fiber.Ctx) error {
	programID := c.Params("programId")

	var milestones []models.BonusMilestone
	if err := s.DB.Where("bonus_program_id = ?", programID).Order("created_at ASC").Find(&milestones).Error; err != nil {
		log.Printf("DB Error fetching milestones: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch milestones"})
	}
	return c.JSON(milestones)
}

func parseDecimalField(raw string, fallback decimal.Decimal) (decimal.Decimal, error) {
	if raw == "" {
		return fallback, nil
	}
	return decimal.NewFromString(raw)
}
