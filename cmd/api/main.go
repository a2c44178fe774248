package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/clublane/membership/internal/handlers"
	"github.com/clublane/membership/internal/mailer"
	"github.com/clublane/membership/internal/repository"
	"github.com/clublane/membership/internal/service"
	"github.com/clublane/membership/pkg/config"
	"github.com/clublane/membership/pkg/database"
	"github.com/clublane/membership/pkg/events"
	"github.com/clublane/membership/pkg/logger"
	mw "github.com/clublane/membership/pkg/middleware"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to database
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Connect to event bus
	eventBus, err := events.NewNATSEventBus(cfg.NATS.URL)
	if err != nil {
		logger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer eventBus.Close()

	// Redis backs the attempt limiter; the limiter fails open so a redis
	// outage is not fatal
	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		logger.Error("Invalid redis URL", "error", err)
		os.Exit(1)
	}
	redisOpts.Password = cfg.Redis.Password
	redisOpts.DB = cfg.Redis.DB
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("Redis unreachable, attempt limiting disabled", "error", err)
	}

	// Initialize repositories
	memberRepo := repository.NewMemberRepository(pool)
	confirmationRepo := repository.NewConfirmationRepository(pool)
	limiter := repository.NewAttemptLimiter(redisClient)

	// Initialize notifier
	var notifier mailer.Service
	switch {
	case cfg.Email.DevMode:
		notifier = mailer.NewDevMailer()
	case cfg.Email.MailerSendKey != "":
		notifier = mailer.NewMailerSend(cfg.Email.MailerSendKey, cfg.Email.SMTPFromName, cfg.Email.SMTPFrom)
	default:
		notifier = mailer.NewSMTPMailer(cfg.Email.SMTPHost, cfg.Email.SMTPPort, cfg.Email.SMTPFrom, cfg.Email.SMTPUser, cfg.Email.SMTPPass, cfg.Email.SMTPUseTLS)
	}

	// Initialize service
	tokenIssuer := service.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.SetupTokenTTL)
	svc := service.NewLoggingService(service.NewConfirmationService(
		memberRepo,
		confirmationRepo,
		service.NewCodeGenerator(),
		notifier,
		tokenIssuer,
		eventBus,
		cfg,
	))

	// Initialize handlers
	h := handlers.New(svc, limiter, cfg)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("membership"))
	r.Use(mw.Logging)
	r.Use(mw.Health)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Routes
	r.Route("/", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.With(h.AttemptLimit("confirm", 10, time.Minute)).Post("/members/{id}/confirm", h.Confirm)
		r.With(h.AttemptLimit("resend", 3, time.Minute)).Post("/resend-code", h.ResendCode)
		r.Post("/activate-password", h.ActivatePassword)

		// Admin routes (require admin JWT)
		r.Route("/admin", func(r chi.Router) {
			r.Use(h.RequireJWT("admin"))
			r.Get("/members", h.ListMembers)
			r.Get("/members/{id}", h.GetMember)
			r.Patch("/members/{id}", h.UpdateMember)
			r.Delete("/members/{id}", h.DeleteMember)
		})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting membership service", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down membership service...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		return srv.Shutdown(shutdownCtx)
	})

	// Periodic sweep of expired confirmation records
	g.Go(func() error {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()

		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				removed, err := confirmationRepo.DeleteExpired(gctx)
				if err != nil {
					logger.Error("Expiry sweep failed", "error", err)
					continue
				}
				if removed > 0 {
					logger.Info("Expiry sweep removed records", "count", removed)
				}
			}
		}
	})

	if err := g.Wait(); err != nil {
		logger.Error("Membership service error", "error", err)
		os.Exit(1)
	}
}
