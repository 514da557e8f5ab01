package main // Entry point package

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/labreserve/labreserve/internal/app"
	"github.com/labreserve/labreserve/internal/booking"
	"github.com/labreserve/labreserve/internal/config"
	"github.com/labreserve/labreserve/internal/database"
	"github.com/labreserve/labreserve/internal/handler"
	mw "github.com/labreserve/labreserve/internal/middleware"
	"github.com/labreserve/labreserve/internal/queue"
	"github.com/labreserve/labreserve/internal/repository"
	"github.com/labreserve/labreserve/internal/router"
	queuepub "github.com/labreserve/labreserve/internal/service"
)

func main() {
	cfg := config.Load()
	logger := app.NewLogger(cfg.Env)
	defer func() { _ = logger.Sync() }()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	if err := database.Migrate("file://migrations", cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName); err != nil {
		log.Fatalf("database migration failed: %v", err)
	}

	// Repositories over the shared connection pool.
	labRepo := repository.NewLabRepo(db)
	resRepo := repository.NewReservationRepo(db)
	auditRepo := repository.NewAuditRepo(db)
	userRepo := repository.NewUserRepo(db)
	tokenRepo := repository.NewTokenRepo(db)

	// Event publishing is optional; an empty AMQP URL disables it.
	var notifier booking.Notifier
	if cfg.AMQPURL != "" {
		notifier = queuepub.NewNotifier(cfg.AMQPURL, labRepo, logger)
		go func() {
			if err := queue.StartDecisionConsumer(cfg.AMQPURL, logger); err != nil {
				logger.Error("decision consumer exited", zap.Error(err))
			}
		}()
	}

	svc := booking.NewService(labRepo, resRepo, auditRepo, booking.Settings{
		MinUnit:            cfg.Booking.MinUnit,
		DefaultMaxDuration: cfg.Booking.DefaultMaxDuration,
		CancellationWindow: cfg.Booking.CancellationWindow,
		AllowLateCancel:    cfg.Booking.AllowLateCancel,
		AutoApprove:        cfg.Booking.AutoApprove(),
		PeerApproval:       cfg.Booking.PeerApproval,
	}, notifier)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sweeper := app.NewSweeper(svc, cfg.Booking.SweepInterval, logger)
	sweeper.Start(ctx)
	defer sweeper.Stop()

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())

	// Redis-backed rate limiting and response caching degrade to no-ops
	// when Redis is unreachable.
	rdb := config.NewRedisClient()
	if rdb == nil {
		logger.Warn("redis unavailable; rate limiting and caching disabled")
	}
	e.Use(mw.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	e.Use(mw.NewRedisCache(config.LoadCacheConfig(), rdb))

	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, userRepo, tokenRepo), cfg.JWTSecret)
	router.RegisterLabs(e, handler.NewLabHandler(svc), cfg.JWTSecret)
	router.RegisterReservations(e, handler.NewReservationHandler(svc), cfg.JWTSecret)

	// Shut down cleanly on SIGINT/SIGTERM so in-flight requests finish.
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		logger.Info("shutdown signal received")
		cancel()
		_ = e.Shutdown(context.Background())
	}()

	addr := ":" + cfg.Port
	logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
	if err := e.Start(addr); err != nil {
		logger.Info("server stopped", zap.Error(err))
	}
}
