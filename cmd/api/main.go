package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"github.com/diagnosis/cardlink/internal/database"
	"github.com/diagnosis/cardlink/internal/http/handlers"
	authmw "github.com/diagnosis/cardlink/internal/http/middleware"
	"github.com/diagnosis/cardlink/internal/http/response"
	"github.com/diagnosis/cardlink/internal/platform/mailer"
	"github.com/diagnosis/cardlink/internal/platform/ratelimit"
	"github.com/diagnosis/cardlink/internal/platform/session"
	"github.com/diagnosis/cardlink/internal/platform/storage"
	"github.com/diagnosis/cardlink/internal/repo/postgres"
	"github.com/diagnosis/cardlink/internal/service"
	"github.com/diagnosis/cardlink/pkg/config"
	"github.com/diagnosis/cardlink/pkg/events"
	"github.com/diagnosis/cardlink/pkg/logger"
	mw "github.com/diagnosis/cardlink/pkg/middleware"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	ctx := context.Background()

	if err := database.Migrate(ctx, cfg.Database.URL); err != nil {
		logger.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	var eventBus events.Publisher = events.NopPublisher{}
	if cfg.NATS.Enabled {
		bus, err := events.NewNATSPublisher(cfg.NATS.URL)
		if err != nil {
			logger.Error("Failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer bus.Close()
		eventBus = bus
	}

	// Shared in-memory components, constructed once and passed by handle.
	sessions := session.NewRegistry(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL)
	loginLimiter := ratelimit.New(ratelimit.Config{
		MaxRequests: cfg.Auth.LoginMaxRequests,
		Window:      cfg.Auth.LoginWindow,
		MaxFailures: cfg.Auth.MaxLoginAttempts,
		Lockout:     cfg.Auth.LockoutDuration,
	})
	recoverLimiter := ratelimit.New(ratelimit.Config{
		MaxRequests: cfg.Auth.RecoverMaxRequests,
		Window:      cfg.Auth.RecoverWindow,
		MaxFailures: cfg.Auth.MaxLoginAttempts,
		Lockout:     cfg.Auth.LockoutDuration,
	})

	var mail mailer.Service
	switch {
	case cfg.Email.DevMode:
		mail = mailer.NewDevMailer()
	case cfg.Email.MailerSendKey != "":
		mail = mailer.NewMailerSend(cfg.Email.MailerSendKey, "Cardlink", cfg.Email.SMTPFrom)
	default:
		mail = mailer.NewSMTPMailer(cfg.Email.SMTPHost, cfg.Email.SMTPPort, cfg.Email.SMTPFrom, cfg.Email.SMTPUser, cfg.Email.SMTPPass, cfg.Email.SMTPUseTLS)
	}

	accountRepo := postgres.NewAccountRepository(pool)
	profileRepo := postgres.NewProfileRepository(pool)
	avatars := storage.NewAvatarStore(cfg.Storage)

	authService := service.NewAuthService(accountRepo, sessions, loginLimiter, recoverLimiter, mail, eventBus, cfg)
	userService := service.NewUserService(accountRepo, profileRepo, sessions, mail, avatars, eventBus, cfg)

	authHandler := handlers.NewAuthHandler(authService)
	userHandler := handlers.NewUserHandler(userService)
	guard := authmw.NewAuth(cfg.Auth.JWTSecret, sessions)

	r := chi.NewRouter()

	r.Use(mw.RequestID)
	r.Use(mw.Logging)
	r.Use(mw.Recoverer)
	r.Use(mw.CORS())

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		response.OK(w, "ok", nil)
	})

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", authHandler.Login)
		r.Post("/recover", authHandler.Recover)
		r.Patch("/verify", authHandler.Verify)

		r.Group(func(r chi.Router) {
			r.Use(guard.RequireAuth)
			r.Post("/logout", authHandler.Logout)
			r.Get("/sessions", authHandler.Sessions)
		})
	})

	r.Route("/users", func(r chi.Router) {
		r.Get("/slug-available", userHandler.SlugAvailability)
		r.Get("/by-id/{id}", userHandler.GetByID)
		r.Get("/{slug}", userHandler.GetBySlug)

		r.Group(func(r chi.Router) {
			r.Use(guard.RequireAuth)
			r.Put("/edit", userHandler.Edit)
			r.Delete("/delete", userHandler.Delete)
			r.Post("/avatar-upload", userHandler.AvatarUpload)

			r.Group(func(r chi.Router) {
				r.Use(guard.RequireAdmin)
				r.Post("/create", userHandler.Create)
				r.Get("/list", userHandler.List)
			})
		})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Shutdown error", "error", err)
		}
	}()

	logger.Info("Starting cardlink API", "port", cfg.Server.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
}
