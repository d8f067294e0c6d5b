package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"okr-progression-system/config"
	"okr-progression-system/handlers"
	"okr-progression-system/middleware"
	"okr-progression-system/models"
	"okr-progression-system/services"
	"okr-progression-system/utils"
	"okr-progression-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/lmittmann/tint"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	slog.SetDefault(slog.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level:      cfg.SlogLevel(),
		TimeFormat: time.DateTime,
		AddSource:  true,
	})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	if err := db.AutoMigrate(models.All()...); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Warn("[CACHE] redis unreachable, leaderboards uncached and objective attempts unlimited", "addr", cfg.RedisAddr, "err", err)
		rdb.Close()
		rdb = nil
	}

	var publisher workers.Publisher = workers.LogPublisher{}
	if amqpPub, err := workers.NewAMQPPublisher(cfg.AMQPURL, cfg.NotificationQueue); err != nil {
		slog.Warn("[DISPATCH] rabbitmq unavailable, notifications will only be logged", "err", err)
	} else {
		defer amqpPub.Close()
		publisher = amqpPub
	}
	dispatcher := workers.NewDispatcher(publisher, 1024)
	dispatcher.Start(ctx)

	store := services.NewStore(db, cfg.QueryTimeout)
	ladder := services.NewLadderService(store)
	xp := services.NewXPService(store)
	leaderboards := services.NewLeaderboardService(store, ladder, xp, rdb, cfg.LeaderboardCacheTTL)
	challenges := services.NewChallengeService(store, leaderboards)
	invitations := services.NewInvitationService(store, dispatcher)
	teams := services.NewTeamService(store, cfg.TeamTokenSecret, cfg.TeamTokenTTL)
	users := services.NewUserService(store)
	progression := services.NewProgressionService(store)

	var evaluator services.Evaluator
	if cfg.LLMServiceURL != "" {
		evaluator = services.NewLLMClient(cfg.LLMServiceURL, cfg.GatewayToken)
	}
	scores := services.NewScoreService(store, leaderboards, evaluator)

	var limiter *services.AttemptLimiter
	if rdb != nil {
		limiter = services.NewAttemptLimiter(rdb, "attempts:objectives:", cfg.ObjectiveFetchLimit, cfg.ObjectiveFetchWindow)
	}
	objectives := services.NewObjectiveService(store, limiter)

	weekly := workers.NewWeeklySummaryJob(progression, dispatcher)
	var exporter *workers.SnapshotExporter
	if cfg.R2.Enabled() {
		r2, err := utils.NewR2Client(ctx, cfg.R2.AccountID, cfg.R2.AccessKeyID, cfg.R2.AccessKeySecret, cfg.R2.Bucket, cfg.R2.CDNBaseURL)
		if err != nil {
			log.Fatalf("failed to initialize R2 client: %v", err)
		}
		exporter = workers.NewSnapshotExporter(leaderboards, r2)
	}
	sched, err := workers.StartScheduler(ctx, weekly, exporter)
	if err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}

	if cfg.SyncServiceURL != "" {
		workers.NewUserSyncWorker(db, cfg.SyncServiceURL, cfg.SyncServicePath, cfg.GatewayToken).Start(ctx)
	} else {
		slog.Warn("[SYNC] SYNC_SERVICE_URL not set, user mirror sync disabled")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 4 * 1024 * 1024,
	})
	// Only gateway requests are served.
	app.Use(middleware.GatewayAuthMiddleware(cfg.GatewayToken))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.AllowedOrigins, ","),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-User-ID, X-User-Roles, Accept-Language",
		ExposeHeaders:    "Content-Length, Content-Type, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	secured := app.Group("/s", middleware.UserContextMiddleware())
	admin := secured.Group("/admin", middleware.RequireRole("admin"))

	handlers.SetupLevelRoutes(app, admin, ladder)
	handlers.SetupProgressionRoutes(secured, leaderboards, users)
	handlers.SetupChallengeRoutes(secured, challenges, invitations)
	handlers.SetupTeamRoutes(secured, teams)
	handlers.SetupScoreRoutes(secured, scores, objectives)
	if exporter != nil {
		handlers.SetupAdminRoutes(admin, weekly, exporter, limiter)
	} else {
		handlers.SetupAdminRoutes(admin, weekly, nil, limiter)
	}

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server error", "err", err)
			stop()
		}
	}()
	slog.Info("server running", "port", cfg.Port, "origins", cfg.AllowedOrigins)

	<-ctx.Done()
	slog.Info("shutting down")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		slog.Error("server shutdown", "err", err)
	}
	if err := sched.Shutdown(); err != nil {
		slog.Error("scheduler shutdown", "err", err)
	}
	dispatcher.Wait()
	if rdb != nil {
		rdb.Close()
	}
}
