package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"loyalty-points-system/handlers"
	"loyalty-points-system/middleware"
	"loyalty-points-system/models"
	"loyalty-points-system/services"
	"loyalty-points-system/utils"
	"loyalty-points-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 10 * 1024 * 1024, // 10MB
	})

	// 🔐❗ GLOBAL: Only Gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

	// Load allowed origins from environment variable
	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control, X-Organization-ID, X-User-ID, X-User-Roles",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	if err := utils.InitR2(); err != nil {
		log.Fatal("failed to initialize R2 client:", err)
	}

	// TranslateError maps pg unique violations onto gorm.ErrDuplicatedKey,
	// which the referral code generator retries on
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.BonusProgram{},
		&models.BonusTier{},
		&models.UserBonusAccount{},
		&models.BonusTransaction{},
		&models.PointsExpiration{},
		&models.BonusMilestone{},
		&models.UserMilestoneProgress{},
		&models.Referral{},
		&models.Reward{},
		&models.BonusCoupon{},
		&models.PayoutRequest{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	ledgerService := services.NewLedgerService(db)
	tierService := services.NewTierService(db)
	milestoneService := services.NewMilestoneService(db, ledgerService)
	referralService := services.NewReferralService(db, ledgerService)
	redemptionService := services.NewRedemptionService(db, ledgerService)
	payoutService := services.NewPayoutService(db)
	cashbackService := services.NewCashbackService(db, ledgerService, tierService, milestoneService)
	programService := services.NewProgramService(db)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Hourly point and coupon expiry sweeps
	scheduler, err := services.StartSweepScheduler(ledgerService, redemptionService)
	if err != nil {
		log.Fatal("failed to start sweep scheduler:", err)
	}
	defer func() { _ = scheduler.Shutdown() }()

	// Nightly-ish ledger statement exports to R2
	exporter := workers.NewStatementExporter(db)
	go workers.RunStatementExports(ctx, exporter, 24*time.Hour)

	handlers.SetupLoyaltyRoutes(app, handlers.LoyaltyDeps{
		Ledger:      ledgerService,
		Tiers:       tierService,
		Milestones:  milestoneService,
		Referrals:   referralService,
		Redemptions: redemptionService,
		Payouts:     payoutService,
	})
	handlers.SetupAdminRoutes(app, handlers.AdminDeps{
		Programs:    programService,
		Ledger:      ledgerService,
		Payouts:     payoutService,
		Redemptions: redemptionService,
	})
	handlers.SetupEventRoutes(app, handlers.EventDeps{
		Cashback:    cashbackService,
		Redemptions: redemptionService,
	})

	go func() {
		if err := app.Listen(":5300"); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Println("✅ Server running on http://localhost:5300")
	log.Println("✅ Expiry sweeps scheduled hourly")
	log.Println("✅ Statement export worker running (every 24h)")
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
}
