package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ckck92/BLG-WEBSITE/internal/config"
	"github.com/ckck92/BLG-WEBSITE/internal/database"
	"github.com/ckck92/BLG-WEBSITE/internal/handler"
	"github.com/ckck92/BLG-WEBSITE/internal/metrics"
	"github.com/ckck92/BLG-WEBSITE/internal/middleware"
	"github.com/ckck92/BLG-WEBSITE/internal/queue"
	"github.com/ckck92/BLG-WEBSITE/internal/repository"
	"github.com/ckck92/BLG-WEBSITE/internal/router"
	"github.com/ckck92/BLG-WEBSITE/internal/scheduling"
	"github.com/ckck92/BLG-WEBSITE/internal/service"
	"github.com/ckck92/BLG-WEBSITE/internal/worker"
)

const sweepLockKey = "blg:sweep:lock"

func main() {
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	cfg := config.Load()
	logger := newLogger(cfg)
	log.Logger = logger

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dialect, err := database.ParseDialect(cfg.DBDriver)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid database driver")
	}
	db, err := openDB(cfg, dialect)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", string(dialect)).Msg("open database")
	}
	defer db.Close()

	if err := database.Migrate(ctx, db, dialect); err != nil {
		logger.Fatal().Err(err).Msg("migrate database")
	}
	if cfg.SeedFile != "" {
		seed, err := database.LoadSeed(cfg.SeedFile)
		if err != nil {
			logger.Fatal().Err(err).Msg("load catalog seed")
		}
		if err := database.ApplySeed(ctx, db, seed); err != nil {
			logger.Fatal().Err(err).Msg("apply catalog seed")
		}
	}

	rdb := config.NewRedisClient(ctx)
	if rdb == nil {
		logger.Warn().Msg("redis unavailable; using in-process sweep lock and rate limiter, response cache off")
	} else {
		defer rdb.Close()
	}

	if cfg.MetricsEnabled {
		metrics.Register()
	}

	auditRepo := repository.NewAuditRepo(db)
	var (
		events service.EventPublisher = queue.NewLogSink(logger.With().Str("component", "events").Logger())
		audit  service.AuditSink      = auditRepo
	)
	if cfg.AMQPURL != "" {
		pub := queue.NewPublisher(cfg.AMQPURL,
			queue.WithQueues(cfg.EventsQueue, cfg.AuditQueue),
			queue.WithAuditFallback(auditRepo),
			queue.WithPublisherLogger(logger.With().Str("component", "publisher").Logger()),
		)
		defer pub.Close()
		events, audit = pub, pub

		if cfg.AuditConsumerEnabled {
			consumer := queue.NewAuditConsumer(cfg.AMQPURL, cfg.AuditQueue, auditRepo,
				logger.With().Str("component", "audit_consumer").Logger())
			go func() {
				if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error().Err(err).Msg("audit consumer stopped")
				}
			}()
		}
	}

	validator := scheduling.NewValidator(scheduling.WithLocation(cfg.ShopTimezone))
	svc := service.NewSchedulingService(
		repository.NewCatalogRepo(db),
		repository.NewReservationRepo(db, dialect),
		validator,
		service.WithEventPublisher(events),
		service.WithAuditSink(audit),
		service.WithLogger(logger.With().Str("component", "scheduling").Logger()),
	)

	var locker worker.Locker = &worker.LocalLocker{}
	if rdb != nil {
		locker = worker.NewRedisLocker(rdb, sweepLockKey, cfg.SweepLockTTL)
	}
	sweeper := worker.NewSweeper(svc, locker, cfg.SweepInterval, logger.With().Str("component", "sweeper").Logger())
	if cfg.SweepEnabled {
		go sweeper.Start(ctx)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewRequestValidator()
	httpLog := logger.With().Str("component", "http").Logger()
	e.Use(echomw.Recover(), middleware.RequestID(), middleware.AccessLog(httpLog))

	limit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, httpLog)
	cacheCfg := config.LoadCacheConfig()
	reservations := handler.NewReservationHandler(svc, httpLog)

	router.RegisterRoutes(e, handler.NewReadyHandler(db, rdb), cfg.MetricsEnabled)
	router.RegisterPublic(e, handler.NewCatalogHandler(svc, httpLog), limit, middleware.NewRedisCache(cacheCfg, rdb, httpLog))
	router.RegisterClient(e, reservations, cfg.JWTSecret, limit)
	router.RegisterAdmin(e,
		handler.NewAdminHandler(svc, auditRepo, sweeper, cfg.ShopTimezone, httpLog),
		reservations, cfg.JWTSecret, limit,
		middleware.PurgeCache(cacheCfg, rdb, httpLog),
	)

	addr := ":" + cfg.Port
	go func() {
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Str("driver", string(dialect)).Msg("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
}

func newLogger(cfg config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	var l zerolog.Logger
	if cfg.Env == "dev" {
		l = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	} else {
		l = zerolog.New(os.Stdout)
	}
	return l.Level(level).With().Timestamp().Str("service", "blg-reservations").Logger()
}

func openDB(cfg config.Config, dialect database.Dialect) (*sql.DB, error) {
	if dialect == database.SQLite {
		return database.OpenSQLite(cfg.SQLitePath)
	}
	return database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
}
