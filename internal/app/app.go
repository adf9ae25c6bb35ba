package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"NewsAlerts/internal/api"
	"NewsAlerts/internal/config"
	"NewsAlerts/internal/infrastructure/ledger"
	"NewsAlerts/internal/infrastructure/llm"
	"NewsAlerts/internal/infrastructure/scheduler"
	"NewsAlerts/internal/infrastructure/source"
	"NewsAlerts/internal/infrastructure/storage"
	"NewsAlerts/internal/infrastructure/telegram"
	"NewsAlerts/internal/logging"
	"NewsAlerts/internal/ports"
	"NewsAlerts/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg    config.Config
	logger *slog.Logger

	db        *sql.DB
	redis     *redis.Client
	runner    *usecase.Runner
	scheduler *usecase.Scheduler
	bot       *telegram.Bot
	httpSrv   *http.Server
}

// New constructs every collaborator explicitly, outermost adapters first.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	subscriptions := storage.NewSubscriptionRepository(db)
	if err := subscriptions.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	sentLedger := ledger.NewRedisLedger(redisClient, cfg.Pipeline.LedgerTTL.Std())

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := sentLedger.Ping(pingCtx); err != nil {
		// the service can start without the ledger; health stays degraded
		baseLogger.Warn("ledger unreachable at startup", "error", err)
	}

	sources, err := buildSources(cfg, baseLogger)
	if err != nil {
		return nil, err
	}

	if cfg.OpenAI.APIKey == "" {
		baseLogger.Warn("openai api key is empty, all items will score neutral")
	}
	scorer := llm.NewSentimentClient(cfg.OpenAI)

	notifier := telegram.NewNotifier(cfg.Telegram.BotToken, cfg.Telegram.APIBase)
	bot := telegram.NewBot(cfg.Telegram.BotToken, cfg.Telegram.APIBase,
		baseLogger.With("component", "telegram.bot"))

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Sources:       sources,
		Scorer:        scorer,
		SourceTimeout: cfg.Pipeline.SourceTimeout.Std(),
		ScorerTimeout: cfg.Pipeline.ScorerTimeout.Std(),
		Logger:        baseLogger.With("component", "pipeline"),
	})

	dispatcher := usecase.NewDispatcher(usecase.DispatcherDeps{
		Subscriptions: subscriptions,
		Ledger:        sentLedger,
		Channel:       notifier,
		Floor:         cfg.Pipeline.HighImpactFloor,
		Logger:        baseLogger.With("component", "dispatcher"),
	})

	runner := usecase.NewRunner(usecase.RunnerDeps{
		Pipeline:    pipeline,
		Dispatcher:  dispatcher,
		FetchLimit:  cfg.Pipeline.FetchLimit,
		PassTimeout: cfg.Pipeline.PassTimeout.Std(),
		Logger:      baseLogger.With("component", "runner"),
	})

	driver := scheduler.NewCronDriver(cfg.Scheduler.CronSpec, cfg.Scheduler.Location())

	router := api.NewRouter(api.RouterDeps{
		Subscriptions:    subscriptions,
		Ledger:           sentLedger,
		News:             pipeline,
		DefaultThreshold: cfg.Pipeline.DefaultThreshold,
		NewsLimit:        cfg.Pipeline.FetchLimit,
		Logger:           baseLogger.With("component", "api"),
	})

	return &Application{
		cfg:       cfg,
		logger:    baseLogger,
		db:        db,
		redis:     redisClient,
		runner:    runner,
		scheduler: usecase.NewScheduler(driver, runner),
		bot:       bot,
		httpSrv:   &http.Server{Addr: cfg.HTTP.Addr, Handler: router},
	}, nil
}

func buildSources(cfg config.Config, baseLogger *slog.Logger) ([]ports.NewsSource, error) {
	registry := source.DefaultRegistry()
	client := &http.Client{Timeout: cfg.Pipeline.SourceTimeout.Std()}

	sources := make([]ports.NewsSource, 0, len(cfg.Sources))
	for _, sc := range cfg.Sources {
		src, err := registry.Build(sc, client, baseLogger.With("component", "source."+sc.Name))
		if err != nil {
			return nil, fmt.Errorf("build source %s: %w", sc.Name, err)
		}
		sources = append(sources, src)
	}

	return sources, nil
}

// Run starts the scheduler, bot, and API server, then blocks until the
// context is cancelled and shuts everything down.
func (a *Application) Run(ctx context.Context) error {
	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	if a.cfg.Telegram.BotToken != "" {
		if err := a.bot.Start(ctx); err != nil {
			return fmt.Errorf("start bot: %w", err)
		}
	} else {
		a.logger.Warn("telegram bot token is empty, inbound commands disabled")
	}

	go func() {
		a.logger.Info("api listening", "addr", a.cfg.HTTP.Addr)
		if err := a.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("api server stopped", "error", err)
		}
	}()

	// one pass right away so a fresh deployment alerts without waiting
	// for the first cron tick
	go a.runner.RunPass(ctx)

	<-ctx.Done()
	return a.shutdown()
}

func (a *Application) shutdown() error {
	a.logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.scheduler.Stop(shutdownCtx); err != nil {
		a.logger.Warn("scheduler stop", "error", err)
	}
	if err := a.bot.Stop(shutdownCtx); err != nil {
		a.logger.Warn("bot stop", "error", err)
	}
	if err := a.httpSrv.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("api shutdown", "error", err)
	}

	if err := a.redis.Close(); err != nil {
		a.logger.Warn("redis close", "error", err)
	}
	if err := a.db.Close(); err != nil {
		a.logger.Warn("postgres close", "error", err)
	}

	return nil
}
