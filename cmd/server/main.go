// Package main - точка входа сервера Learning Journey.
//
// Сервер поднимает REST API прогресса обучения:
// - завершение активностей и оценка ответов
// - серии с заморозками и восстановлением
// - прохождение плана (открытие активностей, XP, уровни)
// - обратная связь и тренды по предметам
//
// Каталог планов читается из YAML и периодически перечитывается планировщиком.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alem-hub/learning-journey/config"
	"github.com/alem-hub/learning-journey/internal/application/command"
	"github.com/alem-hub/learning-journey/internal/application/eventhandler"
	"github.com/alem-hub/learning-journey/internal/application/query"
	"github.com/alem-hub/learning-journey/internal/application/saga"
	"github.com/alem-hub/learning-journey/internal/domain/completion"
	"github.com/alem-hub/learning-journey/internal/domain/journey"
	"github.com/alem-hub/learning-journey/internal/domain/shared"
	"github.com/alem-hub/learning-journey/internal/domain/streak"
	"github.com/alem-hub/learning-journey/internal/infrastructure/catalog"
	"github.com/alem-hub/learning-journey/internal/infrastructure/messaging"
	"github.com/alem-hub/learning-journey/internal/infrastructure/persistence/memory"
	"github.com/alem-hub/learning-journey/internal/infrastructure/persistence/postgres"
	"github.com/alem-hub/learning-journey/internal/infrastructure/persistence/redis"
	"github.com/alem-hub/learning-journey/internal/infrastructure/scheduler"
	"github.com/alem-hub/learning-journey/internal/infrastructure/scheduler/jobs"
	httpapi "github.com/alem-hub/learning-journey/internal/interface/http"
	"github.com/alem-hub/learning-journey/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

// backends holds the storage chosen by STORAGE_DRIVER.
type backends struct {
	records  completion.Repository
	mistakes completion.MistakeStore
	streaks  streak.Repository
	journeys journey.Repository
	locker   completion.Locker

	// journeySource is the authoritative journey store. Commands read from it
	// under the journey lock; journeys may be a cache in front of it.
	journeySource journey.Repository
	closers  []func()
}

func (b *backends) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. ЗАГРУЗКА КОНФИГУРАЦИИ
	// ─────────────────────────────────────────────────────────────────────────
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	cfg, err := config.Load(envFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. НАСТРОЙКА ЛОГИРОВАНИЯ
	// ─────────────────────────────────────────────────────────────────────────
	opts := logger.DefaultOptions()
	opts.Level = logger.ParseLevel(cfg.Observability.LogLevel)
	log := logger.New(opts).With(
		logger.String("app", cfg.App.Name),
		logger.String("version", cfg.App.Version),
	)
	defer func() { _ = log.Sync() }()

	log.Info("starting learning journey server",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("storage", string(cfg.Storage.Driver)),
		logger.String("timezone", cfg.App.Timezone),
	)

	health := httpapi.NewHealthChecker(cfg.App.Version)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. КАТАЛОГ ПЛАНОВ
	// ─────────────────────────────────────────────────────────────────────────
	cat := catalog.NewLoader(log)
	if err := cat.LoadFromDir(cfg.Catalog.Dir); err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}
	health.AddCheck("catalog", func(context.Context) error {
		if plans, _ := cat.Stats(); plans == 0 {
			return errors.New("no plans loaded")
		}
		return nil
	})

	// ─────────────────────────────────────────────────────────────────────────
	// 4. ХРАНИЛИЩЕ (memory | postgres [+ redis])
	// ─────────────────────────────────────────────────────────────────────────
	store, err := openBackends(ctx, cfg, health, log)
	if err != nil {
		return err
	}
	defer store.close()

	// ─────────────────────────────────────────────────────────────────────────
	// 5. EVENT BUS И ОБРАБОТЧИКИ
	// ─────────────────────────────────────────────────────────────────────────
	busCfg := messaging.DefaultInMemoryEventBusConfig()
	busCfg.Logger = log
	bus := messaging.NewInMemoryEventBus(busCfg)
	defer func() { _ = bus.Close() }()

	clock := shared.SystemClock{}
	policy := streak.Policy{Location: cfg.App.Location, RecoveryWindow: cfg.Progression.RecoveryWindow}
	enrollment := saga.NewEnrollmentSaga(cat, cat, store.journeySource, clock, log)

	registerActivity := command.NewRegisterActivityHandler(store.streaks, store.locker, bus, clock, policy, log)
	recordJourney := command.NewRecordJourneyCompletionHandler(enrollment, store.journeys, store.locker, bus, cfg.App.Location, log)

	if err := eventhandler.NewOnActivityCompletedHandler(recordJourney, registerActivity, log).Subscribe(bus); err != nil {
		return fmt.Errorf("failed to subscribe completion handler: %w", err)
	}
	if err := eventhandler.NewAuditHandler(log).Subscribe(bus); err != nil {
		return fmt.Errorf("failed to subscribe audit handler: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. HTTP СЕРВЕР
	// ─────────────────────────────────────────────────────────────────────────
	httpCfg := httpapi.DefaultConfig()
	httpCfg.Host = cfg.HTTP.Host
	httpCfg.Port = cfg.HTTP.Port
	httpCfg.ReadTimeout = cfg.HTTP.ReadTimeout
	httpCfg.WriteTimeout = cfg.HTTP.WriteTimeout
	httpCfg.IdleTimeout = cfg.HTTP.IdleTimeout
	httpCfg.RequestTimeout = cfg.HTTP.RequestTimeout
	httpCfg.AllowedOrigins = cfg.HTTP.AllowedOrigins
	httpCfg.RateLimitPerMinute = cfg.HTTP.RateLimit
	httpCfg.Version = cfg.App.Version

	server := httpapi.NewServer(httpCfg, httpapi.Dependencies{
		StartActivity:     command.NewStartActivityHandler(cat, store.records, store.locker, bus, clock, log),
		SubmitAnswer:      command.NewSubmitAnswerHandler(cat, store.records, store.mistakes, store.locker, clock, log),
		CompleteActivity:  command.NewCompleteActivityHandler(cat, store.records, store.locker, bus, clock, log),
		ReviewMistake:     command.NewReviewMistakeHandler(store.records, store.mistakes, store.locker, clock, log),
		RegisterActivity:  registerActivity,
		ManageFreeze:      command.NewManageFreezeHandler(store.streaks, store.locker, bus, clock, policy, log),
		UnlockNext:        command.NewUnlockNextHandler(enrollment, store.journeys, store.locker, bus, clock, log),
		SetDailyGoal:      command.NewSetDailyGoalHandler(enrollment, store.journeys, store.locker, clock, log),
		SwitchJourneyType: command.NewSwitchJourneyTypeHandler(enrollment, store.journeys, store.locker, bus, clock, log),

		GetActivitySummary:  query.NewGetActivitySummaryHandler(store.records),
		GetMistakes:         query.NewGetMistakesHandler(store.mistakes, clock),
		GetProgressFeedback: query.NewGetProgressFeedbackHandler(store.records, clock),
		GetStreak:           query.NewGetStreakHandler(store.streaks, clock, cfg.App.Location),
		GetJourney:          query.NewGetJourneyHandler(store.journeys, enrollment),
		GetJourneyPath:      query.NewGetJourneyPathHandler(store.journeys, cat, store.records),

		Health: health,
		Logger: log,
	})

	// ─────────────────────────────────────────────────────────────────────────
	// 7. ПЛАНИРОВЩИК
	// ─────────────────────────────────────────────────────────────────────────
	sched := scheduler.NewScheduler(scheduler.SchedulerConfig{
		Logger:     log,
		Timezone:   cfg.App.Location,
		JobTimeout: time.Minute,
	})
	if cfg.Catalog.ReloadInterval > 0 {
		if err := sched.Register(jobs.NewReloadCatalogJob(cat, log), cfg.Catalog.ReloadInterval); err != nil {
			return fmt.Errorf("failed to register catalog reload: %w", err)
		}
	}
	health.AddStats("scheduler", func() any { return sched.Stats() })
	health.AddStats("event_bus", func() any { return bus.Metrics().Snapshot() })

	// ─────────────────────────────────────────────────────────────────────────
	// 8. ЗАПУСК И GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	g, gctx := errgroup.WithContext(ctx)

	g.Go(server.Start)

	g.Go(func() error {
		if err := sched.Start(gctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		<-gctx.Done()
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
		defer cancel()

		if err := sched.Stop(); err != nil && !errors.Is(err, scheduler.ErrSchedulerNotRunning) {
			log.Warn("scheduler stop failed", logger.Err(err))
		}
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}

// openBackends wires the repositories for the configured storage driver.
func openBackends(ctx context.Context, cfg *config.Config, health *httpapi.HealthChecker, log *logger.Logger) (*backends, error) {
	if cfg.Storage.Driver == config.StorageMemory {
		log.Warn("using in-memory storage, data is lost on restart")
		journeys := memory.NewJourneyRepository()
		return &backends{
			records:       memory.NewCompletionRepository(),
			mistakes:      memory.NewReviewStore(),
			streaks:       memory.NewStreakRepository(),
			journeys:      journeys,
			journeySource: journeys,
			locker:        memory.NewKeyedLocker(),
		}, nil
	}

	b := &backends{}

	pgCfg := postgres.DefaultConfig()
	pgCfg.URL = cfg.Database.URL
	pgCfg.MaxConns = cfg.Database.MaxConns
	pgCfg.MinConns = cfg.Database.MinConns
	pgCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	pgCfg.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime

	log.Info("connecting to database...")
	conn, err := postgres.NewConnection(ctx, pgCfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	b.closers = append(b.closers, conn.Close)
	health.AddCheck("postgres", conn.Ping)

	if cfg.Database.AutoMigrate {
		if err := postgres.NewMigrator(conn).Migrate(ctx); err != nil {
			b.close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Info("database schema is up to date")
	}

	b.records = postgres.NewCompletionRepository(conn)
	b.mistakes = postgres.NewReviewStore(conn)
	b.streaks = postgres.NewStreakRepository(conn)
	b.journeySource = postgres.NewJourneyRepository(conn)
	b.journeys = b.journeySource
	b.locker = memory.NewKeyedLocker()

	if !cfg.Redis.Enabled {
		return b, nil
	}

	redisCfg := redis.DefaultConfig()
	redisCfg.Host = cfg.Redis.Host
	redisCfg.Port = cfg.Redis.Port
	redisCfg.Password = cfg.Redis.Password
	redisCfg.DB = cfg.Redis.DB
	redisCfg.PoolSize = cfg.Redis.PoolSize
	redisCfg.MinIdleConns = cfg.Redis.MinIdleConns
	redisCfg.DialTimeout = cfg.Redis.DialTimeout
	redisCfg.ReadTimeout = cfg.Redis.ReadTimeout
	redisCfg.WriteTimeout = cfg.Redis.WriteTimeout

	log.Info("connecting to Redis...", logger.String("addr", redisCfg.Addr()))
	cache, err := redis.NewCache(ctx, redisCfg, log)
	if err != nil {
		b.close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	b.closers = append(b.closers, func() { _ = cache.Close() })
	health.AddCheck("redis", cache.Ping)

	b.locker = redis.NewRecordLocker(cache, cfg.Redis.LockTTL)
	b.journeys = redis.NewJourneyCache(b.journeySource, cache, cfg.Redis.JourneyCacheTTL, nil, log)
	return b, nil
}
