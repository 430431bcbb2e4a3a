// handlers/loyalty_routes.go
package handlers

import (
	"errors"
	"strconv"

	"loyalty-points-system/middleware"
	"loyalty-points-system/models"
	"loyalty-points-system/services"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// LoyaltyDeps bundles the services the user-facing surface needs
type LoyaltyDeps struct {
	Ledger      *services.LedgerService
	Tiers       *services.TierService
	Milestones  *services.MilestoneService
	Referrals   *services.ReferralService
	Redemptions *services.RedemptionService
	Payouts     *services.PayoutService
}

// SetupLoyaltyRoutes registers the user surface. The user-context guard is
// scoped to these prefixes only; the internal /events surface carries no
// end-user identity and must stay outside it.
func SetupLoyaltyRoutes(app *fiber.App, deps LoyaltyDeps) {
	programs := app.Group("/programs", middleware.UserContextMiddleware())
	referrals := app.Group("/referrals", middleware.UserContextMiddleware())

	// Balance for the authenticated user in one program
	programs.Get("/:programId/account", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		programID := c.Params("programId")

		account, err := deps.Ledger.GetAccount(userID, programID)
		if err != nil {
			if services.IsNotFound(err) {
				// No account yet — the user simply has not earned anything
				return c.JSON(models.UserBonusAccount{
					UserID:         userID,
					BonusProgramID: programID,
				})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error fetching account"})
		}
		return c.JSON(account)
	})

	// Paginated ledger history
	programs.Get("/:programId/transactions", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		programID := c.Params("programId")

		page, _ := strconv.Atoi(c.Query("page", "1"))
		size, _ := strconv.Atoi(c.Query("size", "20"))

		txns, total, err := deps.Ledger.ListTransactions(userID, programID, page, size)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error fetching transactions"})
		}
		return c.JSON(fiber.Map{
			"transactions": txns,
			"page":         page,
			"size":         size,
			"total":        total,
		})
	})

	// Current tier + progress toward the next one
	programs.Get("/:programId/tier", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		programID := c.Params("programId")

		result, err := deps.Tiers.CalculateUserTier(userID, programID)
		if err != nil {
			if services.IsNotFound(err) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "No bonus account for this program"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to calculate tier"})
		}
		return c.JSON(result)
	})

	// Milestone progress
	programs.Get("/:programId/milestones", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		programID := c.Params("programId")

		progress, err := deps.Milestones.GetUserProgress(userID, programID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error fetching milestone progress"})
		}
		return c.JSON(progress)
	})

	// Mint a referral code
	programs.Post("/:programId/referrals", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		programID := c.Params("programId")

		referral, err := deps.Referrals.CreateReferral(programID, userID)
		if err != nil {
			return respondServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(referral)
	})

	// The caller's referral codes and their signup state
	programs.Get("/:programId/referrals", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		programID := c.Params("programId")

		referrals, err := deps.Referrals.ListReferrals(programID, userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error fetching referrals"})
		}
		return c.JSON(referrals)
	})

	// Bind the authenticated (newly signed up) user to a referral code and
	// settle both bonuses
	referrals.Post("/track", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var req struct {
			Code string `json:"code" validate:"required"`
		}
		if err := c.BodyParser(&req); err != nil || req.Code == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Referral code is required"})
		}

		referral, err := deps.Referrals.TrackReferral(req.Code, userID)
		if err != nil {
			return respondServiceError(c, err)
		}

		// Referral counts feed the referrer's milestones
		if _, err := deps.Milestones.CheckMilestonesForEvent(
			referral.ReferrerUserID, referral.BonusProgramID,
			models.MilestoneReferralCount, decimal.NewFromInt(1)); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update referral milestones"})
		}

		referral, err = deps.Referrals.AwardReferralBonuses(referral.ID)
		if err != nil {
			return respondServiceError(c, err)
		}
		return c.JSON(referral)
	})

	// Spend points on a catalog reward
	programs.Post("/:programId/rewards/:rewardId/redeem", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		programID := c.Params("programId")
		rewardID := c.Params("rewardId")

		var req struct {
			PayoutDetails models.JSONMap `json:"payout_details"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}

		result, err := deps.Redemptions.RedeemReward(userID, programID, rewardID, req.PayoutDetails)
		if err != nil {
			return respondServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(result)
	})

	// The caller's coupons, optionally filtered by status
	programs.Get("/:programId/coupons", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		programID := c.Params("programId")

		var status *models.BonusCouponStatus
		if raw := c.Query("status"); raw != "" {
			s := models.BonusCouponStatus(raw)
			status = &s
		}

		coupons, err := deps.Redemptions.ListUserCoupons(userID, programID, status)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error fetching coupons"})
		}
		return c.JSON(coupons)
	})

	// The caller's payout requests
	programs.Get("/:programId/payouts", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		programID := c.Params("programId")

		payouts, err := deps.Payouts.ListUserPayouts(userID, programID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error fetching payouts"})
		}
		return c.JSON(payouts)
	})
}

// respondServiceError maps service sentinels onto HTTP statuses. Anything
// unrecognized is a 500.
func respondServiceError(c *fiber.Ctx, err error) error {
	switch {
	case services.IsNotFound(err):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Not found"})
	case errors.Is(err, services.ErrInvalidReferralCode):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrInsufficientPoints),
		errors.Is(err, services.ErrTransactionNotPending),
		errors.Is(err, services.ErrReferralAlreadyUsed),
		errors.Is(err, services.ErrRedemptionLimitReached),
		errors.Is(err, services.ErrUserRedemptionLimitReached),
		errors.Is(err, services.ErrPayoutNotPending),
		errors.Is(err, services.ErrPayoutNotApproved),
		errors.Is(err, services.ErrCouponNotActive):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrRewardInactive),
		errors.Is(err, services.ErrRewardExpired),
		errors.Is(err, services.ErrRewardNotYetAvailable),
		errors.Is(err, services.ErrCouponExpired),
		errors.Is(err, services.ErrProgramInactive),
		errors.Is(err, services.ErrPayoutDetailsRequired),
		errors.Is(err, services.ErrSelfReferral):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal error", "cause": err.Error()})
	}
}
