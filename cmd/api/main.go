package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BradenHooton/irdebg/internal/auth"
	"github.com/BradenHooton/irdebg/internal/background"
	"github.com/BradenHooton/irdebg/internal/config"
	"github.com/BradenHooton/irdebg/internal/database"
	"github.com/BradenHooton/irdebg/internal/handlers"
	"github.com/BradenHooton/irdebg/internal/lockout"
	middlewareCustom "github.com/BradenHooton/irdebg/internal/middleware"
	"github.com/BradenHooton/irdebg/internal/provider"
	"github.com/BradenHooton/irdebg/internal/repositories"
	"github.com/BradenHooton/irdebg/internal/routes"
	"github.com/BradenHooton/irdebg/internal/services"
	pkghttp "github.com/BradenHooton/irdebg/pkg/http"
	pkglogger "github.com/BradenHooton/irdebg/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Server.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	logger.Info("configuration loaded",
		slog.String("env", cfg.Server.Env),
		slog.String("lockout_store", cfg.Lockout.Store),
		pkglogger.RedactedAttr("provider_url", cfg.Provider.URL, cfg.Server.Env),
	)

	auditLogger := pkglogger.NewAuditLogger(logger)
	ipConfig := &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}

	// Identity provider
	idp := provider.NewClient(cfg.Provider.URL, cfg.Provider.AnonKey, cfg.Provider.Timeout)

	lockoutConfig := lockout.Config{
		MaxAttempts:     cfg.Lockout.MaxAttempts,
		LockoutDuration: cfg.Lockout.Duration,
	}

	healthChecks := map[string]handlers.HealthChecker{}

	// Start cleanup task
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()

	var (
		store          lockout.Store
		cleanupManager *background.CleanupManager
	)

	switch cfg.Lockout.Store {
	case config.StorePostgres:
		db, err := database.NewConnection(&cfg.Database, logger)
		if err != nil {
			logger.Error("failed to connect to database", slog.Any("error", err))
			os.Exit(1)
		}
		defer db.Close()

		migrateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err = db.Migrate(migrateCtx)
		cancel()
		if err != nil {
			logger.Error("failed to apply migrations", slog.Any("error", err))
			os.Exit(1)
		}

		loginAttemptRepo, err := repositories.NewLoginAttemptRepository(db, []byte(cfg.Lockout.HashKey), lockoutConfig)
		if err != nil {
			logger.Error("failed to initialize lockout store", slog.Any("error", err))
			os.Exit(1)
		}

		store = loginAttemptRepo
		healthChecks["database"] = db
		cleanupManager = background.NewCleanupManager(loginAttemptRepo, logger, cfg.Lockout.CleanupInterval)
		go cleanupManager.Start(cleanupCtx)
	default:
		// Per-process state: every replica enforces its own window
		store = lockout.NewMemoryStore(lockout.NewTracker(lockoutConfig))
	}

	lockoutService := lockout.NewService(store, logger, auditLogger)

	if cfg.Email.Enabled {
		notifierCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		notifier, err := services.NewSESLockoutNotifier(notifierCtx, cfg.Email.AWSRegion, cfg.Email.FromAddress, cfg.Email.SupportURL, logger)
		cancel()
		if err != nil {
			logger.Error("failed to initialize email notifier", slog.Any("error", err))
			os.Exit(1)
		}
		lockoutService.SetNotifier(notifier)
	}

	// Timing delay for auth security
	timingDelay := auth.NewTimingDelay(auth.TimingConfig{
		BaseDelay:      cfg.Auth.TimingBaseDelay,
		RandomDelay:    cfg.Auth.TimingRandomDelay,
		DelayOnSuccess: cfg.Auth.TimingDelayOnSuccess,
	})

	// Initialize services and handlers
	authService := services.NewAuthService(idp, lockoutService, timingDelay, logger, auditLogger)
	authHandler := handlers.NewAuthHandler(authService, ipConfig, cfg.Auth.PasswordResetRedirectURL, logger)
	lockoutHandler := handlers.NewLockoutHandler(lockoutService, logger)
	healthHandler := handlers.NewHealthHandler(healthChecks, logger)
	tokenVerifier := auth.NewTokenVerifier(cfg.Auth.JWTSecret, cfg.Auth.JWTAudience)

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(middlewareCustom.DefaultCORSConfig(cfg.Server.AllowedOrigins)))
	router.Use(middlewareCustom.SecureLogger(logger, ipConfig))
	router.Use(middlewareCustom.Metrics)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	// Register routes
	routes.RegisterRoutes(router, authHandler, lockoutHandler, healthHandler, tokenVerifier, idp, ipConfig, logger)

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	cleanupCancel()
	if cleanupManager != nil {
		cleanupManager.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}
