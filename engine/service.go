package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"finquest/catalog"
	"finquest/core"
)

// StateObserver sees a user's state after mount and after every applied transition.
type StateObserver func(ctx context.Context, st core.State)

// Service multiplexes per-user stores over one persistence collaborator and one event bus.
type Service struct {
	persist Persistence
	bus     *EventBus
	reducer *Reducer
	log     *slog.Logger

	clock         func() time.Time
	loc           *time.Location
	rotator       *QuestRotator
	startingCoins int64
	observers     []StateObserver

	mu     sync.Mutex
	stores map[core.UserID]*Store
	// opening collapses concurrent first loads of one user; persistence I/O never holds mu.
	opening singleflight.Group
	saver   *saver
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

func WithServiceClock(clock func() time.Time) ServiceOption {
	return func(s *Service) { s.clock = clock }
}

func WithTimezone(loc *time.Location) ServiceOption {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithRotator sets the quest rotator used by every session; nil disables rotation.
func WithRotator(r *QuestRotator) ServiceOption {
	return func(s *Service) { s.rotator = r }
}

// WithStartingCoins sets the coin balance of new accounts.
func WithStartingCoins(n int64) ServiceOption {
	return func(s *Service) { s.startingCoins = n }
}

func WithStateObserver(fn StateObserver) ServiceOption {
	return func(s *Service) { s.observers = append(s.observers, fn) }
}

// NewService wires persistence, event bus, and reducer into a cohesive API.
func NewService(persist Persistence, bus *EventBus, reducer *Reducer, opts ...ServiceOption) *Service {
	if persist == nil || bus == nil || reducer == nil {
		panic("NewService requires non-nil persistence, bus, and reducer")
	}
	s := &Service{
		persist: persist,
		bus:     bus,
		reducer: reducer,
		log:     slog.Default(),
		clock:   time.Now,
		loc:     time.UTC,
		stores:  make(map[core.UserID]*Store),
	}
	s.rotator = DefaultQuestRotator(reducer.Catalog())
	for _, o := range opts {
		o(s)
	}
	s.saver = newSaver(persist, s.log, func(ctx context.Context, ev core.Event) { bus.Publish(ctx, ev) })
	return s
}

func (s *Service) Catalog() *catalog.Catalog { return s.reducer.Catalog() }

func (s *Service) Location() *time.Location { return s.loc }

func (s *Service) Now() time.Time { return s.clock() }

// Subscribe convenience method.
func (s *Service) Subscribe(typ core.EventType, handler EventHandler) func() {
	return s.bus.Subscribe(typ, handler)
}

// Session returns the user's store, loading and mounting it on first access.
// Later calls re-run the session policy when the calendar day has rolled over.
func (s *Service) Session(ctx context.Context, user core.UserID) (*Store, error) {
	id, err := core.NormalizeUserID(user)
	if err != nil {
		return nil, err
	}
	if err := core.ValidateID(string(id)); err != nil {
		return nil, fmt.Errorf("user id: %w", err)
	}

	if store := s.cached(id); store != nil {
		store.Mount(ctx)
		return store, nil
	}
	v, err, _ := s.opening.Do(string(id), func() (any, error) {
		return s.open(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	store := v.(*Store)
	store.Mount(ctx)
	return store, nil
}

func (s *Service) cached(id core.UserID) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stores[id]
}

// open loads the user's snapshot and mounts a new store for it.
func (s *Service) open(ctx context.Context, id core.UserID) (*Store, error) {
	if store := s.cached(id); store != nil {
		return store, nil
	}
	initial, found, err := s.persist.Load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", id, err)
	}
	if !found {
		initial = s.reducer.NewState(id, string(id), s.startingCoins)
		initial.Updated = s.clock().UTC()
	}
	initial.UserID = id

	store := NewStore(initial, s.reducer,
		WithClock(s.clock),
		WithLocation(s.loc),
		WithQuestRotator(s.rotator),
		WithCommit(s.onCommit),
	)
	s.mu.Lock()
	s.stores[id] = store
	s.mu.Unlock()

	mounted, out := store.Mount(ctx)
	if !out.Changed {
		if !found {
			s.saver.enqueue(mounted)
		}
		s.observe(ctx, mounted)
	}
	s.log.Debug("session mounted", "user_id", id, "found", found, "version", mounted.Version)
	return store, nil
}

// Dispatch applies an action to the user's session.
func (s *Service) Dispatch(ctx context.Context, user core.UserID, a Action) (core.State, Outcome, error) {
	store, err := s.Session(ctx, user)
	if err != nil {
		return core.State{}, Outcome{}, err
	}
	st, out := store.Dispatch(ctx, a)
	if out.Rejected != nil {
		s.log.Debug("action rejected", "user_id", st.UserID, "action", string(a.Type()), "reason", out.Rejected.Error())
	}
	return st, out, nil
}

// GetState returns the user's current state.
func (s *Service) GetState(ctx context.Context, user core.UserID) (core.State, error) {
	store, err := s.Session(ctx, user)
	if err != nil {
		return core.State{}, err
	}
	return store.State(), nil
}

// Users lists users with an open session, sorted.
func (s *Service) Users() []core.UserID {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.UserID, 0, len(s.stores))
	for id := range s.stores {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// RotateQuests refreshes quest boards of all open sessions and reports how many changed.
func (s *Service) RotateQuests(ctx context.Context) int {
	s.mu.Lock()
	stores := make([]*Store, 0, len(s.stores))
	for _, st := range s.stores {
		stores = append(stores, st)
	}
	s.mu.Unlock()

	n := 0
	for _, st := range stores {
		if ctx.Err() != nil {
			break
		}
		if _, out := st.RotateQuests(ctx); out.Changed {
			n++
		}
	}
	return n
}

// healthCheckUser is never a valid session id, so health checks cannot create state.
const healthCheckUser core.UserID = "healthcheck.ping"

// Health checks the persistence collaborator with a read that touches no session.
func (s *Service) Health(ctx context.Context) error {
	if _, _, err := s.persist.Load(ctx, healthCheckUser); err != nil {
		return fmt.Errorf("persistence: %w", err)
	}
	return nil
}

// Flush waits until every queued save has been attempted.
func (s *Service) Flush(ctx context.Context) error {
	return s.saver.flush(ctx)
}

// Close flushes pending saves and stops the event bus.
func (s *Service) Close() {
	s.saver.close()
	s.bus.Close()
}

func (s *Service) onCommit(ctx context.Context, st core.State, events []core.Event) {
	s.saver.enqueue(st)
	s.bus.PublishAll(ctx, events)
	s.observe(ctx, st)
}

func (s *Service) observe(ctx context.Context, st core.State) {
	for _, fn := range s.observers {
		fn(ctx, st)
	}
}

// ErrClosed is returned by Flush after Close.
var ErrClosed = errors.New("service closed")

// saver persists snapshots from one goroutine. Pending saves coalesce per user
// so only the newest version is written; Dispatch never waits on it.
type saver struct {
	persist Persistence
	log     *slog.Logger
	report  EventHandler

	mu      sync.Mutex
	pending map[core.UserID]core.State
	saved   map[core.UserID]int64
	waiters []chan struct{}
	closed  bool

	wake chan struct{}
	done chan struct{}
}

func newSaver(p Persistence, log *slog.Logger, report EventHandler) *saver {
	sv := &saver{
		persist: p,
		log:     log,
		report:  report,
		pending: make(map[core.UserID]core.State),
		saved:   make(map[core.UserID]int64),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go sv.run()
	return sv
}

func (sv *saver) enqueue(st core.State) {
	sv.mu.Lock()
	if sv.closed {
		sv.mu.Unlock()
		return
	}
	if cur, ok := sv.pending[st.UserID]; !ok || cur.Version <= st.Version {
		sv.pending[st.UserID] = st
	}
	sv.mu.Unlock()
	sv.signal()
}

func (sv *saver) signal() {
	select {
	case sv.wake <- struct{}{}:
	default:
	}
}

func (sv *saver) run() {
	defer close(sv.done)
	for range sv.wake {
		for {
			sv.mu.Lock()
			batch := sv.pending
			sv.pending = make(map[core.UserID]core.State)
			var waiters []chan struct{}
			if len(batch) == 0 {
				waiters, sv.waiters = sv.waiters, nil
			}
			closed := sv.closed
			sv.mu.Unlock()

			if len(batch) == 0 {
				for _, w := range waiters {
					close(w)
				}
				if closed {
					return
				}
				break
			}
			sv.write(batch)
		}
	}
}

func (sv *saver) write(batch map[core.UserID]core.State) {
	ids := make([]core.UserID, 0, len(batch))
	for id := range batch {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		st := batch[id]
		if v, ok := sv.saved[id]; ok && v > st.Version {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := sv.persist.Save(ctx, id, st)
		cancel()
		if err != nil {
			sv.log.Warn("persist snapshot failed", "user_id", id, "version", st.Version, "error", err)
			sv.report(context.Background(), core.NewPersistFailed(id, err))
			continue
		}
		sv.saved[id] = st.Version
	}
}

func (sv *saver) flush(ctx context.Context) error {
	w := make(chan struct{})
	sv.mu.Lock()
	if sv.closed {
		sv.mu.Unlock()
		return ErrClosed
	}
	sv.waiters = append(sv.waiters, w)
	sv.mu.Unlock()
	sv.signal()
	select {
	case <-w:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (sv *saver) close() {
	sv.mu.Lock()
	if sv.closed {
		sv.mu.Unlock()
		return
	}
	sv.closed = true
	sv.mu.Unlock()
	sv.signal()
	<-sv.done
}
