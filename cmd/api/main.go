package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BradenHooton/vectradex/internal/auth"
	"github.com/BradenHooton/vectradex/internal/background"
	"github.com/BradenHooton/vectradex/internal/clock"
	"github.com/BradenHooton/vectradex/internal/config"
	"github.com/BradenHooton/vectradex/internal/database"
	"github.com/BradenHooton/vectradex/internal/handlers"
	"github.com/BradenHooton/vectradex/internal/metrics"
	middlewareCustom "github.com/BradenHooton/vectradex/internal/middleware"
	"github.com/BradenHooton/vectradex/internal/repositories"
	"github.com/BradenHooton/vectradex/internal/routes"
	"github.com/BradenHooton/vectradex/internal/services"
	pkgauth "github.com/BradenHooton/vectradex/pkg/auth"
	pkghttp "github.com/BradenHooton/vectradex/pkg/http"
	pkglogger "github.com/BradenHooton/vectradex/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Server.SlogLevel()}))
	slog.SetDefault(logger)

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := db.Migrate(ctx)
		cancel()
		if err != nil {
			logger.Error("failed to apply migrations", slog.Any("error", err))
			os.Exit(1)
		}
	}

	clk := clock.Real{}
	m := metrics.New()
	auditLogger := pkglogger.NewAuditLogger(logger)

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	machineRepo := repositories.NewMachineRepository(db)
	eventRepo := repositories.NewEventRepository(db)
	productRepo := repositories.NewProductRepository(db)

	// Initialize token manager
	tokenManager := auth.NewTokenManager(
		cfg.Auth.JWTSecret,
		cfg.Auth.PasswordResetSecret,
		cfg.Auth.AccessTokenExpiry,
		cfg.Auth.PasswordResetExpiry,
		clk,
	)

	// Timing delay for auth security
	timingDelay := auth.NewTimingDelay(auth.TimingConfig{
		BaseDelayMs:    cfg.Auth.TimingDelayBaseMs,
		RandomDelayMs:  cfg.Auth.TimingDelayRandomMs,
		DelayOnSuccess: true,
	})

	// Password reset delivery: SES when a region is configured, the log otherwise
	var mailer services.Mailer
	if cfg.Email.AWSRegion != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		sesMailer, err := services.NewSESMailer(ctx, cfg.Email.AWSRegion, cfg.Email.FromAddress, cfg.Email.ResetURLBase, logger)
		cancel()
		if err != nil {
			logger.Error("failed to initialize email service", slog.Any("error", err))
			os.Exit(1)
		}
		mailer = sesMailer
	} else {
		logger.Warn("EMAIL_AWS_REGION not set, password reset links will be logged")
		mailer = services.NewLogMailer(cfg.Email.ResetURLBase, logger)
	}

	// Initialize services
	authService, err := services.NewAuthService(
		userRepo,
		pkgauth.NewBcryptHasher(cfg.Auth.BcryptCost),
		tokenManager,
		mailer,
		services.ThrottlePolicy{
			Window:      cfg.Throttle.Window,
			MaxAttempts: cfg.Throttle.MaxAttempts,
			Lockout:     cfg.Throttle.Lockout,
		},
		clk,
		timingDelay,
		m,
		logger,
		auditLogger,
	)
	if err != nil {
		logger.Error("failed to initialize auth service", slog.Any("error", err))
		os.Exit(1)
	}
	machineService := services.NewMachineService(machineRepo, eventRepo, clk, m, auditLogger, logger)
	metricsService := services.NewMetricsService(eventRepo, productRepo, clk, cfg.Metrics.SummaryWindow, logger)

	// Bootstrap first admin user if configured
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	created, err := authService.EnsureAdmin(ctx, os.Getenv("ADMIN_EMAIL"), os.Getenv("ADMIN_PASSWORD"))
	cancel()
	if err != nil {
		logger.Error("failed to ensure admin user", slog.Any("error", err))
	} else if created {
		logger.Info("admin user created successfully")
	}

	// Initialize handlers
	ipConfig := pkghttp.NewIPConfig(cfg.Server.TrustedProxies)
	authHandler := handlers.NewAuthHandler(authService, ipConfig, auth.CookieConfig{
		Secure: cfg.Server.Env == "production",
	})
	machineHandler := handlers.NewMachineHandler(machineService)
	dashboardHandler := handlers.NewDashboardHandler(metricsService)

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(middlewareCustom.DefaultCORSConfig(cfg.Server.AllowedOrigins)))
	router.Use(middlewareCustom.SecureLogger(logger, ipConfig, cfg.Server.Env))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(cfg.Server.RequestTimeout))

	// Register routes
	router.Route("/api", func(r chi.Router) {
		routes.RegisterRoutes(r, authHandler, machineHandler, dashboardHandler, tokenManager, userRepo,
			middlewareCustom.RateLimitConfig{
				RequestsPerMinute: cfg.Auth.LoginRequestsPerMinute,
				IPConfig:          ipConfig,
			})
	})

	// Health check with database
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.HealthCheck(r.Context()); err != nil {
			pkghttp.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "database": "down"})
			return
		}
		pkghttp.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy", "database": "up"})
	})
	router.Handle("/metrics", m.Handler())

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start throttle sweeper
	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	defer sweepCancel()

	sweeper := background.NewThrottleSweeper(authService, logger, cfg.Throttle.SweepInterval)
	go sweeper.Start(sweepCtx)

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	sweepCancel()
	sweeper.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}
