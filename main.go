// Package main provides the main entry point for the Magic QR Flows service
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"
	"github.com/torresguilherme/magic-qr-flows/app/handlers"
	"github.com/torresguilherme/magic-qr-flows/app/middleware"
	"github.com/torresguilherme/magic-qr-flows/app/router"
	"github.com/torresguilherme/magic-qr-flows/app/services"
	businessflow "github.com/torresguilherme/magic-qr-flows/business_flow"
	"github.com/torresguilherme/magic-qr-flows/config"
	"github.com/torresguilherme/magic-qr-flows/models"
	"github.com/torresguilherme/magic-qr-flows/repository"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Application represents the main application structure
type Application struct {
	router    *router.FiberRouter
	config    *config.ProductionConfig
	server    *fiber.App
	stopFuncs []func()
}

func main() {
	log.Println("Starting Magic QR Flows...")

	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	closeLog := setupLogging(cfg.Logging)
	defer closeLog()

	app, err := initializeApplication(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	app.router.SetupRoutes()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		log.Printf("Server starting on %s", address)

		if err := app.server.Listen(address, fiber.ListenConfig{DisableStartupMessage: true}); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-sigChan
	log.Println("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	// Stop accepting scans first so the scan logger only has to drain
	if err := app.server.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	// Stop background workers in reverse start order
	for i := len(app.stopFuncs) - 1; i >= 0; i-- {
		app.stopFuncs[i]()
	}

	log.Println("Server stopped")
}

// setupLogging points the standard logger at stdout, a rotating file, or both
func setupLogging(cfg config.LoggingConfig) func() {
	log.SetFlags(log.LstdFlags | log.LUTC | log.Lmicroseconds)
	if cfg.Output == "stdout" {
		return func() {}
	}

	rotator := &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}

	var out io.Writer = rotator
	if cfg.Output == "both" {
		out = io.MultiWriter(os.Stdout, rotator)
	}
	log.SetOutput(out)

	return func() {
		log.SetOutput(os.Stdout)
		if err := rotator.Close(); err != nil {
			log.Printf("Failed to close log file: %v", err)
		}
	}
}

// initializeDatabase initializes the database connection with connection pooling
func initializeDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if cfg.AutoMigrate {
		if err := db.AutoMigrate(models.AllModels()...); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	log.Printf("Database connection established with %d max open connections, %d max idle connections",
		cfg.MaxOpenConns, cfg.MaxIdleConns)

	return db, nil
}

// initializeCache initializes the Cache client and verifies connectivity.
// A nil client means the in-memory fallbacks are used.
func initializeCache(cfg config.CacheConfig) (*redis.Client, error) {
	if !cfg.Enabled || cfg.Provider != "redis" {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	opt.DB = cfg.RedisDB

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Printf("Redis connection established (db=%d)", cfg.RedisDB)
	return rc, nil
}

// startCacheHealthMonitor periodically pings Redis to surface connectivity issues.
// The returned function stops the monitor.
func startCacheHealthMonitor(parent context.Context, client *redis.Client, interval time.Duration) func() {
	monitorCtx, cancel := context.WithCancel(parent)
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				ctx, c := context.WithTimeout(context.Background(), 3*time.Second)
				if err := client.Ping(ctx).Err(); err != nil {
					log.Printf("Redis healthcheck failed: %v", err)
				}
				c()
			}
		}
	}()
	return cancel
}

// startSessionCleanup closes sessions whose expiry passed without a logout
func startSessionCleanup(parent context.Context, sessionRepo repository.CustomerSessionRepository, interval time.Duration) func() {
	ctx, cancel := context.WithCancel(parent)
	if interval <= 0 {
		interval = time.Hour
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				runCtx, c := context.WithTimeout(ctx, time.Minute)
				affected, err := sessionRepo.CleanupExpiredSessions(runCtx)
				c()
				if err != nil {
					log.Printf("Session cleanup failed: %v", err)
				} else if affected > 0 {
					log.Printf("Session cleanup closed %d expired sessions", affected)
				}
			}
		}
	}()
	return cancel
}

// initializeApplication initializes the main application components
func initializeApplication(cfg *config.ProductionConfig) (*Application, error) {
	var stopFuncs []func()

	db, err := initializeDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}

	rc, err := initializeCache(cfg.Cache)
	if err != nil {
		return nil, err
	}

	// Redis-backed stores when available, in-memory otherwise
	var (
		lookupCache    services.QRLookupCache
		revocations    services.RevocationStore
		challengeStore services.ChallengeStore
	)
	if rc != nil {
		stopFuncs = append(stopFuncs, func() { _ = rc.Close() })
		stopFuncs = append(stopFuncs, startCacheHealthMonitor(context.Background(), rc, cfg.Cache.HealthInterval))
		lookupCache = services.NewRedisQRLookupCache(rc, cfg.Cache.RedisPrefix+"qr:", cfg.QR.LookupCacheTTL)
		revocations = services.NewRedisRevocationStore(rc, cfg.Cache.RedisPrefix+"revoked:")
		challengeStore = services.NewRedisChallengeStore(rc, cfg.Cache.RedisPrefix+"captcha:")
	} else {
		storeCtx, stopStores := context.WithCancel(context.Background())
		stopFuncs = append(stopFuncs, stopStores)
		lookupCache = services.NewMemoryQRLookupCache(cfg.QR.LookupCacheTTL)
		revocations = services.NewMemoryRevocationStore()
		challengeStore = services.NewMemoryChallengeStore(storeCtx)
	}

	// Initialize repositories
	customerRepo := repository.NewCustomerRepository(db)
	sessionRepo := repository.NewCustomerSessionRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)
	qrRepo := repository.NewQRCodeRepository(db)
	scanRepo := repository.NewQRScanRepository(db)

	// Initialize services
	tokenService, err := services.NewTokenService(
		cfg.JWT.AccessTokenTTL,
		cfg.JWT.RefreshTokenTTL,
		cfg.JWT.Issuer,
		cfg.JWT.Audience,
		cfg.JWT.UseRSAKeys,
		cfg.JWT.PrivateKey,
		cfg.JWT.PublicKey,
		cfg.JWT.SecretKey,
		revocations,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}
	log.Printf("Token service initialized with issuer: %s, audience: %s", cfg.JWT.Issuer, cfg.JWT.Audience)

	captchaSvc, err := services.NewCaptchaServiceRotate(challengeStore, cfg.Security.CaptchaTTL, 15, 300)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize captcha service: %w", err)
	}

	imageService := services.NewQRImageService(cfg.QR.ImageDefaultSize)

	// Session events fan out to the audit log
	events := businessflow.NewSessionEventBus(0)
	stopAudit := businessflow.StartSessionAuditSubscriber(events, auditRepo, log.New(log.Writer(), "[session-audit] ", log.LstdFlags|log.LUTC))
	stopFuncs = append(stopFuncs, events.Close, stopAudit)
	stopFuncs = append(stopFuncs, startSessionCleanup(context.Background(), sessionRepo, cfg.Security.SessionCleanupInterval))

	scanLogger := businessflow.NewScanLogger(
		scanRepo,
		qrRepo,
		cfg.QR.ScanLogTimeout,
		cfg.QR.ScanLogMaxInFlight,
		log.New(log.Writer(), "[scan-logger] ", log.LstdFlags|log.LUTC),
	)
	stopFuncs = append(stopFuncs, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.QR.ScanLogTimeout*2)
		defer cancel()
		if err := scanLogger.Shutdown(ctx); err != nil {
			log.Printf("Scan logger did not drain: %v", err)
		}
	})

	// Initialize flows
	identityFlow := businessflow.NewIdentityFlow(
		customerRepo,
		sessionRepo,
		auditRepo,
		tokenService,
		captchaSvc,
		events,
		businessflow.IdentityConfig{
			BcryptCost:     cfg.Security.BcryptCost,
			DefaultCredits: cfg.QR.DefaultCredits,
			RequireCaptcha: cfg.Security.RequireCaptcha,
		},
		db,
	)
	qrFlow := businessflow.NewQRCodeFlow(qrRepo, scanRepo, auditRepo, lookupCache, imageService, cfg.QR.PublicBaseURL)
	redirectFlow := businessflow.NewRedirectFlow(qrRepo, lookupCache, scanLogger, cfg.QR.IPHashSalt)
	profileFlow := businessflow.NewProfileFlow(customerRepo, qrRepo)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(identityFlow)
	qrCodeHandler := handlers.NewQRCodeHandler(qrFlow)
	redirectHandler := handlers.NewRedirectHandler(redirectFlow)
	profileHandler := handlers.NewProfileHandler(profileFlow)

	authMiddleware := middleware.NewAuthMiddleware(tokenService)

	appRouter := router.NewFiberRouter(
		cfg,
		authHandler,
		qrCodeHandler,
		redirectHandler,
		profileHandler,
		authMiddleware,
	)

	fiberRouter := appRouter.(*router.FiberRouter)
	return &Application{
		router:    fiberRouter,
		config:    cfg,
		server:    fiberRouter.GetApp(),
		stopFuncs: stopFuncs,
	}, nil
}
