package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"game-economy-service/config"
	"game-economy-service/handlers"
	"game-economy-service/logging"
	"game-economy-service/middleware"
	"game-economy-service/models"
	"game-economy-service/services"
	"game-economy-service/utils"
	"game-economy-service/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/jonboulle/clockwork"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logger, err := logging.New(cfg.Production)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	clock := clockwork.NewRealClock()

	// Row timestamps come from the same clock as the business logic.
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		NowFunc: func() time.Time { return clock.Now().UTC() },
	})
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := db.AutoMigrate(models.All()...); err != nil {
		logger.Fatal("failed to migrate database", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var notifier services.Notifier = services.NewLogNotifier(logger)
	if cfg.TelegramBotToken != "" {
		tg, err := services.NewTelegramNotifier(db, cfg.TelegramBotToken)
		if err != nil {
			logger.Warn("telegram notifier unavailable, logging messages instead", zap.Error(err))
		} else {
			notifier = tg
		}
	}

	var settlerOpts []services.SettlerOption
	if cfg.R2.Enabled() {
		archive, err := utils.NewR2Archive(ctx, cfg.R2)
		if err != nil {
			logger.Fatal("failed to initialize R2 client", zap.Error(err))
		}
		settlerOpts = append(settlerOpts, services.WithArchive(archive))
	}

	ledger := services.NewLedger(clock)
	authService := services.NewAuthService(cfg.JWTSecret, cfg.SessionTTL, clock)
	referralService := services.NewReferralService(db, notifier, clock, cfg.Reward.ReferralTickets, logger)
	usersService := services.NewUsersService(db, referralService, logger)
	tournamentService := services.NewTournamentService(db, ledger, clock, cfg.Tournament, logger)
	gameService := services.NewGameService(db, ledger, referralService, clock, cfg.AntiCheat, cfg.Reward, logger)
	settler := services.NewSettler(db, ledger, notifier, clock,
		cfg.Tournament.SettlementBatchSize, cfg.Tournament.PrizeSplit, logger, settlerOpts...)

	if _, err := services.StartSettlementScheduler(ctx, settler, clock, cfg.SettlementInterval, logger); err != nil {
		logger.Fatal("failed to start settlement scheduler", zap.Error(err))
	}

	reconciler := workers.NewReconciliationWorker(db, clock, cfg.ReconcileInterval, cfg.ReconcileGrace, logger)
	reconciler.Start(ctx)

	app := fiber.New(fiber.Config{
		AppName:               "game-economy-service",
		DisableStartupMessage: cfg.Production,
	})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.MetricsMiddleware())

	allowedOrigins := strings.Split(cfg.AllowedOrigins, ",")
	for i, origin := range allowedOrigins {
		allowedOrigins[i] = strings.TrimSpace(origin)
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(allowedOrigins, ","),
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Request-ID, X-User-ID",
		ExposeHeaders:    "Content-Length, Content-Type, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	app.Get("/healthz", func(c *fiber.Ctx) error {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.UserContext())
		}
		if err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "db unavailable"})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	gateway := middleware.GatewayAuthMiddleware(cfg.GatewayToken, logger.Named("gateway"))
	auth := middleware.UserContextMiddleware(authService, cfg.GatewayToken, cfg.TrustGatewayHeaders, logger.Named("auth"))

	handlers.SetupUserRoutes(app, usersService, authService, gateway, auth, logger)
	handlers.SetupTournamentRoutes(app, tournamentService, auth, logger)
	handlers.SetupGameRoutes(app, gameService, auth, logger)
	handlers.SetupAdminRoutes(app, reconciler, gateway, logger)

	go func() {
		if err := app.Listen(cfg.Addr); err != nil {
			logger.Error("server error", zap.Error(err))
			stop()
		}
	}()

	logger.Info("server running",
		zap.String("addr", cfg.Addr),
		zap.Duration("settlement_interval", cfg.SettlementInterval),
		zap.Int("events", len(cfg.Tournament.Events)),
		zap.Bool("r2_archive", cfg.R2.Enabled()))

	<-ctx.Done()
	logger.Info("shutting down server")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}
