package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/cinema-booking/internal/config"
	"github.com/iliyamo/cinema-booking/internal/database"
	"github.com/iliyamo/cinema-booking/internal/external"
	"github.com/iliyamo/cinema-booking/internal/handler"
	"github.com/iliyamo/cinema-booking/internal/jobs"
	"github.com/iliyamo/cinema-booking/internal/logger"
	"github.com/iliyamo/cinema-booking/internal/metrics"
	"github.com/iliyamo/cinema-booking/internal/queue"
	"github.com/iliyamo/cinema-booking/internal/repository"
	"github.com/iliyamo/cinema-booking/internal/router"
	"github.com/iliyamo/cinema-booking/internal/service"
	"github.com/iliyamo/cinema-booking/internal/storage"
	"github.com/iliyamo/cinema-booking/internal/validation"
)

func main() {
	// A missing .env is fine; the real environment wins either way.
	_ = godotenv.Load()

	cfg, err := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		logger.Fatal("invalid configuration", "error", err)
	}
	log := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(database.Options{
		User: cfg.DBUser,
		Pass: cfg.DBPass,
		Host: cfg.DBHost,
		Port: cfg.DBPort,
		Name: cfg.DBName,
	})
	if err != nil {
		logger.Fatal("database connection failed", "error", err)
	}
	defer db.Close()
	if cfg.MigrateOnStart {
		if err := database.Migrate(ctx, db); err != nil {
			logger.Fatal("database migration failed", "error", err)
		}
	}

	var rdb *redis.Client
	if client, err := config.NewRedisClient(config.LoadRedisConfig()); err != nil {
		log.Warn("redis unavailable, running without cache and with in-memory rate limits", "error", err)
	} else {
		rdb = client
		defer rdb.Close()
	}

	m := metrics.New()
	httpClient := &http.Client{Timeout: 30 * time.Second}

	rates := external.NewCachedRates(
		external.NewRatesClient(cfg.RatesURL, httpClient, cfg.RatesTimeout),
		rdb, cfg.RatesCacheTTL,
	)
	var payments service.PaymentProvider
	if cfg.ReservationMode == config.ModePayment {
		payments = external.NewPaymentClient(cfg.PaymentURL, cfg.PaymentClientID, cfg.PaymentClientSecret,
			httpClient, cfg.PaymentTimeout)
	}

	var events service.EventPublisher = queue.LogPublisher{}
	if cfg.AMQPURL != "" {
		pub := queue.NewPublisher(cfg.AMQPURL)
		defer pub.Close()
		events = pub
		if cfg.ConsumerEnabled {
			consumer := queue.NewConsumer(cfg.AMQPURL, cfg.AuditLogPath)
			go func() {
				if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					log.Error("reservation consumer stopped", "error", err)
				}
			}()
		}
	}

	images, err := storage.NewImages(cfg.ImageDir, cfg.MaxImageBytes)
	if err != nil {
		logger.Fatal("image storage unavailable", "error", err)
	}

	cinemaRepo := repository.NewCinemaRepo(db)
	hallRepo := repository.NewHallRepo(db)
	movieRepo := repository.NewMovieRepo(db)
	screeningRepo := repository.NewScreeningRepo(db)
	reservationRepo := repository.NewReservationRepo(db)
	userRepo := repository.NewUserRepo(db)
	tokenRepo := repository.NewTokenRepo(db)

	screenings := service.NewScreeningService(screeningRepo, movieRepo, hallRepo, reservationRepo, rates, m, nil)
	reservations := service.NewReservationService(service.ReservationDeps{
		Reservations: reservationRepo,
		Screenings:   screeningRepo,
		Users:        userRepo,
		Payments:     payments,
		Events:       events,
		Metrics:      m,
		Mode:         cfg.ReservationMode,
	})

	e := echo.New()
	e.HideBanner = true
	e.Validator = validation.New()
	e.HTTPErrorHandler = handler.ErrorHandler
	e.Use(echomw.Recover())
	e.Use(echomw.BodyLimit("8M"))

	router.Register(e, router.Handlers{
		Users: handler.NewUserHandler(
			service.NewUserService(userRepo, images, m, cfg.BcryptCost),
			service.NewAuthService(userRepo, tokenRepo, cfg.JWTSecret, cfg.AccessTTL, cfg.RefreshTTL),
		),
		Cinemas:      handler.NewCinemaHandler(service.NewCinemaService(cinemaRepo)),
		Halls:        handler.NewHallHandler(service.NewHallService(hallRepo, cinemaRepo)),
		Movies:       handler.NewMovieHandler(service.NewMovieService(movieRepo, images)),
		Screenings:   handler.NewScreeningHandler(screenings),
		Reservations: handler.NewReservationHandler(reservations),
	}, router.Deps{
		JWTSecret: cfg.JWTSecret,
		RateLimit: config.LoadRateLimitConfig(),
		Cache:     config.LoadCacheConfig(),
		Redis:     rdb,
		Metrics:   m,
		DB:        db,
		ImageDir:  cfg.ImageDir,
	})

	if cfg.PriceRefreshEnabled {
		job, err := jobs.NewPriceRefreshJob(screenings, m, cfg.PriceRefreshAt)
		if err != nil {
			logger.Fatal("invalid price refresh schedule", "error", err)
		}
		job.Start(ctx)
		defer job.Stop()
	}

	go func() {
		addr := ":" + cfg.Port
		log.Info("listening", "addr", addr, "env", cfg.Env, "reservation_mode", cfg.ReservationMode)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}
