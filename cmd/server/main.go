package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/tutorhub/class-engine/internal/cache"
	"github.com/tutorhub/class-engine/internal/config"
	"github.com/tutorhub/class-engine/internal/database"
	"github.com/tutorhub/class-engine/internal/handler"
	"github.com/tutorhub/class-engine/internal/logger"
	"github.com/tutorhub/class-engine/internal/middleware"
	"github.com/tutorhub/class-engine/internal/notify"
	"github.com/tutorhub/class-engine/internal/repository"
	"github.com/tutorhub/class-engine/internal/router"
	"github.com/tutorhub/class-engine/internal/service"
	"github.com/tutorhub/class-engine/internal/validator"
	"github.com/tutorhub/class-engine/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat, "class-engine")
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Str("timezone", cfg.Timezone).
		Msg("Starting class engine")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	classRepo := repository.NewClassRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)
	holidayRepo := repository.NewHolidayRepository(pool)
	makeupRepo := repository.NewMakeupRepository(pool)
	settingRepo := repository.NewSettingRepository(pool)
	auditRepo := repository.NewAuditRepository(pool)

	// ─── Caches & Outbound Queues ─────────────────────────────────────
	store := cache.NewRedisStore(rdb)
	holidayCache := cache.New(store, cfg.HolidayCacheTTL, log)
	policyCache := cache.New(store, cfg.PolicyCacheTTL, log)
	holidaysDirty := cache.NewFlag(store, config.CacheKey.HolidaysDirtyKey())

	clock := service.SystemClock(cfg.Location())
	notifier := notify.NewRedisNotifier(rdb, clock, log)
	auditLog := notify.NewQueueAuditLog(rdb, auditRepo, log)

	// ─── Initialize Services ──────────────────────────────────────────
	holidayService := service.NewHolidayService(holidayRepo, holidayCache, holidaysDirty, log)
	policyService := service.NewPolicyService(settingRepo, policyCache, service.DefaultPolicy(cfg), log)
	availabilityService := service.NewAvailabilityService(classRepo, makeupRepo)
	scheduleService := service.NewScheduleService(classRepo, sessionRepo, holidayService, notifier, cfg.GenerationMaxDays, clock, log)
	classService := service.NewClassService(classRepo, sessionRepo, scheduleService, availabilityService, notifier, clock, log)
	makeupService := service.NewMakeupService(
		makeupRepo, sessionRepo, classRepo, policyService, holidayService,
		availabilityService, auditLog, notifier, clock, log,
	)
	attendanceService := service.NewAttendanceService(sessionRepo, classRepo, makeupRepo, makeupService, notifier, clock, log)
	boardService := service.NewBoardService(sessionRepo, makeupRepo)

	// Reject a broken policy at startup rather than on the first makeup request.
	if _, err := policyService.GetMakeupPolicy(ctx); err != nil {
		log.Fatal().Err(err).Msg("Invalid makeup policy")
	}

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Class:        handler.NewClassHandler(classService, scheduleService, attendanceService, clock),
		Session:      handler.NewSessionHandler(scheduleService, attendanceService),
		Availability: handler.NewAvailabilityHandler(availabilityService),
		Holiday:      handler.NewHolidayHandler(holidayService, clock),
		Makeup:       handler.NewMakeupHandler(makeupService, auditRepo),
		Setting:      handler.NewSettingHandler(policyService),
		WS:           handler.NewWSHandler(rdb, boardService, clock, log, cfg.AllowedOrigins),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	var workers sync.WaitGroup

	limiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute, time.Minute)
	auditWorker := worker.NewAuditWorker(rdb, auditRepo, log)
	sweeper := worker.NewSweeper(
		classService, scheduleService, holidayService,
		worker.SweeperSchedule{
			Lifecycle:  cfg.SweepCron,
			Regenerate: cfg.RegenerateCron,
			Reminders:  cfg.ReminderCron,
		},
		cfg.Location(), clock, log,
	)

	workers.Add(3)
	go func() {
		defer workers.Done()
		limiter.RunCleanup(workerCtx)
	}()
	go func() {
		defer workers.Done()
		auditWorker.Start(workerCtx)
	}()
	go func() {
		defer workers.Done()
		if err := sweeper.Start(workerCtx); err != nil {
			log.Fatal().Err(err).Msg("Failed to start sweeper")
		}
	}()

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(middleware.NewTokenVerifier(cfg.JWTSecret), limiter, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop background workers: running sweeps finish, queued audit events flush.
	workerCancel()
	workers.Wait()

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
