// Package finquest assembles an engine.Service with its optional fan-out
// collaborators: realtime hub, leaderboard, webhooks and analytics hooks.
package finquest

import (
	"log/slog"
	"time"

	mem "finquest/adapters/memory"
	"finquest/analytics"
	"finquest/catalog"
	"finquest/engine"
	"finquest/integrations/webhook"
	"finquest/leaderboard"
	"finquest/realtime"
)

// Option configures the service builder.
type Option func(*config)

type config struct {
	storage  engine.Persistence
	catalog  *catalog.Catalog
	mode     engine.DispatchMode
	log      *slog.Logger
	loc      *time.Location
	clock    func() time.Time
	coins    int64
	strict   bool
	quests   [3]int
	hub      *realtime.Hub
	ladder   *leaderboard.Ladder
	webhooks *webhook.Sink
	hooks    []analytics.Hook
}

// WithStorage sets the persistence adapter.
func WithStorage(s engine.Persistence) Option { return func(c *config) { c.storage = s } }

// WithCatalog replaces the built-in content catalogs.
func WithCatalog(cat *catalog.Catalog) Option { return func(c *config) { c.catalog = cat } }

// WithDispatchMode selects sync or async event dispatch.
func WithDispatchMode(m engine.DispatchMode) Option { return func(c *config) { c.mode = m } }

func WithLogger(l *slog.Logger) Option { return func(c *config) { c.log = l } }

// WithTimezone sets the zone calendar days are computed in.
func WithTimezone(loc *time.Location) Option { return func(c *config) { c.loc = loc } }

func WithClock(clock func() time.Time) Option { return func(c *config) { c.clock = clock } }

// WithStartingCoins sets the balance of new accounts.
func WithStartingCoins(n int64) Option { return func(c *config) { c.coins = n } }

// WithStrictEquip only lets players equip unlocked rewards.
func WithStrictEquip(strict bool) Option { return func(c *config) { c.strict = strict } }

// WithQuestCounts sets how many quests are issued per period. All zero disables rotation.
func WithQuestCounts(daily, weekly, monthly int) Option {
	return func(c *config) { c.quests = [3]int{daily, weekly, monthly} }
}

// WithRealtime wires a realtime hub to receive all engine events.
func WithRealtime(h *realtime.Hub) Option { return func(c *config) { c.hub = h } }

// WithLeaderboard keeps the ladder in sync with every committed state.
func WithLeaderboard(l *leaderboard.Ladder) Option { return func(c *config) { c.ladder = l } }

// WithWebhooks forwards engine events to the sink.
func WithWebhooks(s *webhook.Sink) Option { return func(c *config) { c.webhooks = s } }

// WithHooks registers analytics hooks, e.g. an *analytics.Activity.
func WithHooks(hooks ...analytics.Hook) Option {
	return func(c *config) { c.hooks = append(c.hooks, hooks...) }
}

// New builds a configured Service. If not provided, defaults are used:
//   - storage: in-memory
//   - catalog: catalog.Default()
//   - dispatch: async
//   - quests: 3 daily, 2 weekly, 1 monthly
func New(opts ...Option) *engine.Service {
	cfg := &config{mode: engine.DispatchAsync, quests: [3]int{3, 2, 1}}
	for _, o := range opts {
		o(cfg)
	}
	if cfg.storage == nil {
		cfg.storage = mem.New()
	}
	if cfg.catalog == nil {
		cfg.catalog = catalog.Default()
	}

	bus := engine.NewEventBus(cfg.mode)
	if cfg.hub != nil {
		bus.Subscribe(engine.AnyEvent, cfg.hub.Broadcast)
	}
	if cfg.webhooks != nil {
		bus.Subscribe(engine.AnyEvent, cfg.webhooks.OnEvent)
	}
	if len(cfg.hooks) > 0 {
		bus.Subscribe(engine.AnyEvent, analytics.NewBridge(cfg.hooks...).OnEvent)
	}

	var rotator *engine.QuestRotator
	if cfg.quests != [3]int{} {
		rotator = engine.NewQuestRotator(cfg.catalog, cfg.quests[0], cfg.quests[1], cfg.quests[2])
	}
	svcOpts := []engine.ServiceOption{
		engine.WithLogger(cfg.log),
		engine.WithTimezone(cfg.loc),
		engine.WithStartingCoins(cfg.coins),
		engine.WithRotator(rotator),
	}
	if cfg.clock != nil {
		svcOpts = append(svcOpts, engine.WithServiceClock(cfg.clock))
	}
	if cfg.ladder != nil {
		svcOpts = append(svcOpts, engine.WithStateObserver(cfg.ladder.Observe))
	}

	reducer := engine.NewReducer(cfg.catalog, engine.WithStrictEquip(cfg.strict))
	return engine.NewService(cfg.storage, bus, reducer, svcOpts...)
}
