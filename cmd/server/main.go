package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"audit-backend/internal/auth"
	"audit-backend/internal/cache"
	"audit-backend/internal/config"
	"audit-backend/internal/database"
	"audit-backend/internal/db"
	"audit-backend/internal/handlers"
	"audit-backend/internal/health"
	h "audit-backend/internal/http"
	"audit-backend/internal/middleware"
	"audit-backend/internal/ratelimit"
	"audit-backend/internal/repositories"
	"audit-backend/internal/services"
	"audit-backend/internal/storage"
	"audit-backend/internal/timeutil"
	"audit-backend/migrations"
)

func main() {
	cfg := config.Load()
	logCloser := config.SetupLogging(cfg)
	defer logCloser.Close()

	timeutil.SetLocation(cfg.Timezone)

	pool := db.Connect(cfg)
	defer pool.Close()

	// Run database migrations
	log.Println("Running database migrations...")
	migrator := database.NewMigratorWithFS(pool, migrations.FS, ".")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := migrator.RunMigrations(ctx); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	cancel()

	// Initialize Redis cache (optional - graceful fallback if unavailable)
	if cfg.Redis.Enabled {
		if err := cache.Init(cfg.Redis.Addr, cfg.Redis.Password); err != nil {
			log.Printf("[Redis] Cache unavailable: %v (bin lists served from database)", err)
		} else {
			log.Println("[Redis] Cache connected successfully")
			defer cache.Close()
		}
	}

	jwtManager := auth.NewJWTManager(cfg)

	// Initialize repositories
	userRepo := repositories.NewUserRepository(pool)
	binRepo := repositories.NewBinRepository(pool)
	otpRepo := repositories.NewOTPRepository(pool)
	sessionRepo := repositories.NewSessionRepository(pool)
	recordRepo := repositories.NewRecordRepository(pool)
	efficiencyRepo := repositories.NewEfficiencyRepository(pool)
	totpRepo := repositories.NewTOTPRepository(pool)
	loginLogRepo := repositories.NewLoginLogRepository(pool)

	// Initialize services
	userService := services.NewUserService(userRepo, jwtManager)
	otpService := services.NewOTPService(otpRepo, userRepo)
	if client := cache.GetClient(); client != nil {
		limiter, err := ratelimit.NewFixedWindowLimiter(client, "audit:otp-verify",
			cfg.OTP.VerifyAttempts, time.Duration(cfg.OTP.VerifyWindowMinutes)*time.Minute)
		if err != nil {
			log.Printf("[OTP] Verification limiter disabled: %v", err)
		} else {
			otpService.SetLimiter(limiter)
		}
	}
	binService := services.NewBinService(binRepo)
	countingService := services.NewCountingService(sessionRepo, recordRepo, binRepo, userRepo)
	reportService := services.NewReportService(recordRepo, efficiencyRepo, sessionRepo, binRepo, userService)
	totpService := services.NewTOTPService(userRepo, totpRepo)

	healthChecker := health.NewHealthChecker(pool)

	// Report archive (optional)
	if cfg.Storage.Bucket != "" {
		store, err := storage.NewS3Store(context.Background(), cfg)
		if err != nil {
			log.Printf("[Storage] Report archive disabled: %v", err)
		} else {
			reportService.SetArchive(store)
			healthChecker.SetStorage(store)
			log.Printf("[Storage] Archiving reports to bucket %s", store.Bucket())
		}
	}

	bootCtx, bootCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := userService.EnsureBootstrapAdmin(bootCtx, cfg.Bootstrap.AdminEmail, cfg.Bootstrap.AdminName, cfg.Bootstrap.AdminPassword); err != nil {
		log.Fatalf("Failed to create bootstrap admin: %v", err)
	}
	bootCancel()

	router := h.NewRouter(
		handlers.NewAuthHandler(userService, totpService, jwtManager, loginLogRepo),
		handlers.NewUserHandler(userService),
		handlers.NewOTPHandler(otpService),
		handlers.NewBinHandler(binService),
		handlers.NewSessionHandler(countingService),
		handlers.NewReportHandler(reportService),
		handlers.NewTOTPHandler(totpService),
		handlers.NewLoginLogHandler(loginLogRepo),
		handlers.NewHealthHandler(healthChecker),
		middleware.NewAuthMiddleware(jwtManager, userRepo),
	)
	corsMiddleware := middleware.NewCORS(cfg)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           corsMiddleware(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	stop, stopCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stopCancel()

	go func() {
		log.Printf("Server running on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	<-stop.Done()
	log.Println("Shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Graceful shutdown failed: %v", err)
	}
}
