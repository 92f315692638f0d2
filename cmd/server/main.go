package main // Entry point of the exam registration API

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/exam-registration/internal/booking"
	"github.com/iliyamo/exam-registration/internal/config"
	"github.com/iliyamo/exam-registration/internal/database"
	"github.com/iliyamo/exam-registration/internal/handler"
	"github.com/iliyamo/exam-registration/internal/notify"
	"github.com/iliyamo/exam-registration/internal/queue"
	"github.com/iliyamo/exam-registration/internal/repository"
	"github.com/iliyamo/exam-registration/internal/router"
	"github.com/iliyamo/exam-registration/internal/service"
)

func main() {
	config.LoadDotEnv()
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}
	slog.SetDefault(config.NewLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat).With("env", cfg.Env))

	if err := run(cfg); err != nil {
		slog.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg.DBDriver, cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName, cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()
	if cfg.DBAutoMigrate {
		if err := database.Migrate(ctx, db, cfg.DBDriver); err != nil {
			return err
		}
	}

	policy, err := config.LoadPolicy(cfg.PolicyFile)
	if err != nil {
		return err
	}
	rdb := config.NewRedisClient()
	if rdb != nil {
		defer rdb.Close()
	}

	// Without a broker confirmations are emailed inline; with one they are
	// published and a consumer in this process sends them.
	direct := notify.NewDirectNotifier(notify.NewSender(cfg.ResendAPIKey, cfg.MailFrom))
	var notifier booking.Notifier = direct
	if cfg.RabbitURL != "" {
		notifier = service.NewQueuePublisher(cfg.RabbitURL)
		consumer := queue.NewConsumer(cfg.RabbitURL, direct, cfg.AuditLogDir)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("confirmation consumer stopped", "err", err)
			}
		}()
	}

	manager := booking.NewManager(
		repository.NewSessionRepo(db),
		repository.NewRegistrationRepo(db, cfg.DBDriver),
		notifier,
		policy,
	)

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(requestLogger())

	router.Register(e, router.Deps{
		DB:               db,
		JWTSecret:        cfg.JWTSecret,
		Auth:             handler.NewAuthHandler(cfg, repository.NewUserRepo(db), repository.NewRefreshTokenStore(db)),
		Student:          handler.NewStudentHandler(manager),
		Faculty:          handler.NewFacultyHandler(manager),
		Redis:            rdb,
		RateLimit:        config.LoadRateLimitConfig(),
		BookingRateLimit: config.LoadBookingRateLimitConfig(),
		Cache:            config.LoadCacheConfig(),
	})

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", addr, "driver", cfg.DBDriver, "relay", cfg.RabbitURL != "")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func requestLogger() echo.MiddlewareFunc {
	log := slog.Default().With("component", "http")
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"request_id", v.RequestID,
				"remote_ip", v.RemoteIP,
			}
			if v.Error != nil {
				log.Error("request", append(attrs, "err", v.Error)...)
				return nil
			}
			log.Info("request", attrs...)
			return nil
		},
	})
}
