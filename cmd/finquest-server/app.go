package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"finquest/adapters/jsonfile"
	mem "finquest/adapters/memory"
	mongoAdapter "finquest/adapters/mongo"
	redisAdapter "finquest/adapters/redis"
	sqlxAdapter "finquest/adapters/sqlx"
	"finquest/analytics"
	"finquest/api/httpapi"
	"finquest/config"
	"finquest/core"
	"finquest/engine"
	"finquest/finquest"
	"finquest/integrations/webhook"
	"finquest/jobs"
	"finquest/leaderboard"
	"finquest/realtime"
)

// configPathEnv points the server at a JSON config file instead of the profile defaults.
const configPathEnv = "FINQUEST_CONFIG"

// App aggregates the assembled server components.
type App struct {
	Config    *config.Config
	Logger    *slog.Logger
	Hub       *realtime.Hub
	Ladder    *leaderboard.Ladder
	Activity  *analytics.Activity
	Service   *engine.Service
	Scheduler *jobs.Scheduler
	Handler   http.Handler
	Server    *http.Server
}

func provideConfig(ctx context.Context) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	switch {
	case os.Getenv(configPathEnv) != "":
		cfg, err = config.LoadFromFile(os.Getenv(configPathEnv))
	case os.Getenv("FINQUEST_PROFILE") != "":
		cfg, err = config.LoadProfile(os.Getenv("FINQUEST_PROFILE"))
	default:
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	config.ApplySecrets(ctx, cfg, config.NewEnvironmentSecretStore())
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration after secrets: %w", err)
	}
	return cfg, nil
}

func provideLogger(cfg *config.Config) *slog.Logger {
	return setupLogging(cfg)
}

func provideHub() *realtime.Hub {
	return realtime.NewHub()
}

// ladderSeedSize bounds how many persisted users are ranked at startup.
const ladderSeedSize = 1000

func provideLadder(ctx context.Context, storage engine.Persistence, logger *slog.Logger) *leaderboard.Ladder {
	ladder := leaderboard.NewLadder(nil)
	n, err := seedLadder(ctx, ladder, storage)
	if err != nil {
		logger.Warn("leaderboard seed failed", "error", err)
	} else if n > 0 {
		logger.Info("leaderboard seeded", "users", n)
	}
	return ladder
}

// seedLadder ranks persisted users from adapters that keep an XP index.
// Other adapters start with an empty ladder that fills as sessions open.
func seedLadder(ctx context.Context, ladder *leaderboard.Ladder, storage engine.Persistence) (int, error) {
	switch s := storage.(type) {
	case *redisAdapter.Store:
		rows, err := s.TopXP(ctx, ladderSeedSize)
		if err != nil {
			return 0, err
		}
		for _, r := range rows {
			level, _, _, _ := core.ApplyXP(1, 0, core.BaseLevelXP, r.TotalXP)
			ladder.Seed(r.User, string(r.User), level, "", r.TotalXP)
		}
		return len(rows), nil
	case *sqlxAdapter.Store:
		rows, err := s.TopXP(ctx, ladderSeedSize)
		if err != nil {
			return 0, err
		}
		for _, r := range rows {
			ladder.Seed(core.UserID(r.UserID), r.UserID, r.Level, "", r.TotalXP)
		}
		return len(rows), nil
	}
	return 0, nil
}

func provideActivity(cfg *config.Config) *analytics.Activity {
	return analytics.NewActivity(cfg.Game.Location())
}

func provideWebhooks(cfg *config.Config, logger *slog.Logger) (*webhook.Sink, func()) {
	if len(cfg.Game.Webhooks) == 0 {
		return nil, func() {}
	}
	types := make([]core.EventType, len(cfg.Game.WebhookEvents))
	for i, t := range cfg.Game.WebhookEvents {
		types[i] = core.EventType(t)
	}
	sink := webhook.New(cfg.Game.Webhooks,
		webhook.WithTypes(types...),
		webhook.WithLogger(logger.With("component", "webhook")),
	)
	return sink, sink.Close
}

func provideStorage(ctx context.Context, cfg *config.Config) (engine.Persistence, func(), error) {
	return setupStorage(ctx, cfg)
}

func provideService(
	cfg *config.Config,
	logger *slog.Logger,
	storage engine.Persistence,
	hub *realtime.Hub,
	ladder *leaderboard.Ladder,
	activity *analytics.Activity,
	sink *webhook.Sink,
) (*engine.Service, func()) {
	svc := finquest.New(
		finquest.WithStorage(storage),
		finquest.WithDispatchMode(engine.DispatchAsync),
		finquest.WithLogger(logger),
		finquest.WithTimezone(cfg.Game.Location()),
		finquest.WithStartingCoins(cfg.Game.StartingCoins),
		finquest.WithStrictEquip(cfg.Game.StrictEquip),
		finquest.WithQuestCounts(cfg.Game.DailyQuests, cfg.Game.WeeklyQuests, cfg.Game.MonthlyQuests),
		finquest.WithRealtime(hub),
		finquest.WithLeaderboard(ladder),
		finquest.WithWebhooks(sink),
		finquest.WithHooks(activity),
	)
	return svc, svc.Close
}

// provideScheduler returns nil when quest rotation is disabled.
func provideScheduler(cfg *config.Config, svc *engine.Service, logger *slog.Logger) *jobs.Scheduler {
	if cfg.Game.QuestRotationCron == "" {
		return nil
	}
	return jobs.NewScheduler(svc,
		jobs.WithLocation(cfg.Game.Location()),
		jobs.WithLogger(logger.With("component", "scheduler")),
		jobs.WithRotationSpec(cfg.Game.QuestRotationCron),
		jobs.WithFlush(svc, cfg.Game.FlushCron),
	)
}

func provideHandler(
	svc *engine.Service,
	hub *realtime.Hub,
	ladder *leaderboard.Ladder,
	activity *analytics.Activity,
	cfg *config.Config,
	logger *slog.Logger,
) http.Handler {
	return httpapi.NewMux(svc, hub, ladder, httpapi.Options{
		PathPrefix:       cfg.Server.PathPrefix,
		AllowCORSOrigin:  cfg.Server.CORSOrigin,
		APIKeys:          cfg.Security.APIKeys,
		RateLimitEnabled: cfg.Security.EnableRateLimit,
		RateLimitRPM:     cfg.Security.RateLimit.RequestsPerMinute,
		RateLimitBurst:   cfg.Security.RateLimit.BurstSize,
		RateLimitCleanup: cfg.Security.RateLimit.CleanupInterval,
		Activity:         activity,
		Logger:           logger.With("component", "http"),
	})
}

func provideServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           handler,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}
}

// setupLogging configures the logger based on configuration.
func setupLogging(cfg *config.Config) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Logging.Level),
	}

	var out io.Writer = os.Stdout
	if cfg.Logging.Output == "stderr" {
		out = os.Stderr
	}

	switch cfg.Logging.Format {
	case "text":
		handler = slog.NewTextHandler(out, opts)
	default:
		handler = slog.NewJSONHandler(out, opts)
	}

	if len(cfg.Logging.Attributes) > 0 {
		handler = handler.WithAttrs(convertAttributes(cfg.Logging.Attributes))
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func convertAttributes(attrs map[string]string) []slog.Attr {
	result := make([]slog.Attr, 0, len(attrs))
	for k, v := range attrs {
		result = append(result, slog.String(k, v))
	}
	return result
}

// setupStorage opens the configured adapter. The returned cleanup releases its connections.
func setupStorage(ctx context.Context, cfg *config.Config) (engine.Persistence, func(), error) {
	noop := func() {}
	switch cfg.Storage.Adapter {
	case "memory":
		return mem.New(), noop, nil
	case "file":
		s, err := jsonfile.New(cfg.Storage.File.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open file storage: %w", err)
		}
		return s, noop, nil
	case "redis":
		s, err := redisAdapter.New(cfg.Storage.Redis)
		if err != nil {
			return nil, nil, fmt.Errorf("open redis storage: %w", err)
		}
		return s, func() { _ = s.Close() }, nil
	case "sql":
		s, err := sqlxAdapter.New(ctx, cfg.Storage.SQL)
		if err != nil {
			return nil, nil, fmt.Errorf("open sql storage: %w", err)
		}
		return s, func() { _ = s.Close() }, nil
	case "mongo":
		s, err := mongoAdapter.New(ctx, cfg.Storage.Mongo)
		if err != nil {
			return nil, nil, fmt.Errorf("open mongo storage: %w", err)
		}
		return s, func() { _ = s.Close(context.Background()) }, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage adapter: %s", cfg.Storage.Adapter)
	}
}
