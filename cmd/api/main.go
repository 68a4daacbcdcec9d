package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/lumenai/lumen-api/internal/config"
	"github.com/lumenai/lumen-api/internal/domain/admin"
	"github.com/lumenai/lumen-api/internal/domain/auth"
	"github.com/lumenai/lumen-api/internal/domain/generation"
	"github.com/lumenai/lumen-api/internal/domain/ledger"
	"github.com/lumenai/lumen-api/internal/domain/payment"
	"github.com/lumenai/lumen-api/internal/domain/plan"
	"github.com/lumenai/lumen-api/internal/domain/subscription"
	"github.com/lumenai/lumen-api/internal/domain/user"
	"github.com/lumenai/lumen-api/internal/middleware"
	"github.com/lumenai/lumen-api/internal/pkg/database"
	"github.com/lumenai/lumen-api/internal/pkg/email"
	"github.com/lumenai/lumen-api/internal/pkg/jwt"
	"github.com/lumenai/lumen-api/internal/pkg/payline"
	pkgresponse "github.com/lumenai/lumen-api/internal/pkg/response"
)

func main() {
	cfg := config.Load()
	setupLogger(cfg)

	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Msg("Starting Lumen API")

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	redis, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer database.CloseRedis(redis)

	jwtService := jwt.NewService(cfg.JWTSecret, cfg.JWTAccessTTL, cfg.JWTRefreshTTL)

	emails := email.NewService(email.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.EmailFrom,
		FromName:  cfg.EmailFromName,
	})
	defer emails.Close()

	// ---------- Repositories ----------
	userRepo := user.NewRepository(db)
	ledgerRepo := ledger.NewRepository(db)
	planRepo := plan.NewRepository(db)
	paymentRepo := payment.NewRepository(db)
	subscriptionRepo := subscription.NewRepository(db)
	generationRepo := generation.NewRepository(db)
	adminRepo := admin.NewRepository(db)

	// ---------- WebSocket hub ----------
	hub := generation.NewHub(redis)
	go hub.Run()
	defer hub.Stop()

	// ---------- Services ----------
	ledgerService := ledger.NewService(ledgerRepo)
	authService := auth.NewService(userRepo, ledgerService, jwtService, redis, emails)
	planService := plan.NewService(planRepo, ledgerService)

	paymentService := payment.NewService(paymentRepo, planService, userRepo, ledgerService, payline.Config{
		MerchantID: cfg.PayLineMerchantID,
		Secret1:    cfg.PayLineSecret1,
		Secret2:    cfg.PayLineSecret2,
		TestMode:   cfg.PayLineTestMode,
	}, emails)

	subscriptionService := subscription.NewService(subscriptionRepo, planService, paymentService, ledgerService)
	paymentService.SetSubscriptionActivator(subscriptionService)

	generationQueue := generation.NewQueue(redis, cfg.GenerationQueueKey)
	generationService := generation.NewService(generationRepo, generationQueue, ledgerService, userRepo, emails, hub, generation.ServiceConfig{
		MaxQueuedPerUser:    cfg.GenerationMaxQueued,
		LowBalanceThreshold: cfg.LowBalanceThreshold,
		FrontendURL:         cfg.FrontendURL,
	})

	adminService := admin.NewService(adminRepo, userRepo, ledgerService)

	// ---------- Handlers ----------
	authHandler := auth.NewHandler(authService)
	planHandler := plan.NewHandler(planService)
	ledgerHandler := ledger.NewHandler(ledgerService)
	paymentHandler := payment.NewHandler(paymentService)
	subscriptionHandler := subscription.NewHandler(subscriptionService)
	generationHandler := generation.NewHandler(generationService, hub, cfg.AllowedOrigins)
	adminHandler := admin.NewHandler(adminService)

	authMiddleware := middleware.Auth(jwtService)
	adminOnly := middleware.RequireAdmin()

	// ---------- Router ----------
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORSHandler(cfg.AllowedOrigins))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		pkgresponse.OK(w, map[string]string{
			"status":  "ok",
			"version": "1.0.0",
		})
	})

	// WebSocket endpoint keeps token-in-query support for browser clients
	r.Get("/api/v1/generations/ws", func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token != "" {
			r.Header.Set("Authorization", "Bearer "+token)
		}
		authMiddleware(http.HandlerFunc(generationHandler.WebSocket)).ServeHTTP(w, r)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/auth", authHandler.Routes(authMiddleware))
		r.Mount("/catalog", planHandler.Routes(authMiddleware))
		r.Mount("/credits", ledgerHandler.Routes(authMiddleware))
		r.Mount("/payments", paymentHandler.Routes(authMiddleware))
		r.Mount("/subscriptions", subscriptionHandler.Routes(authMiddleware))
		r.Mount("/generations", generationHandler.Routes(authMiddleware))

		r.Mount("/admin", adminHandler.Routes(authMiddleware, adminOnly))
		r.Route("/admin/catalog", func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(adminOnly)
			r.Mount("/", planHandler.AdminRoutes())
		})
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited properly")
}

func setupLogger(cfg *config.Config) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.IsDevelopment() {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: "15:04:05",
		})
	}
}
