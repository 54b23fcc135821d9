// Package httpapi exposes the engine over REST and streams its events over WebSocket.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	wsadapter "finquest/adapters/websocket"
	"finquest/analytics"
	"finquest/catalog"
	"finquest/core"
	"finquest/engine"
	"finquest/leaderboard"
	"finquest/progress"
	"finquest/realtime"
)

// maxBodyBytes bounds action payloads.
const maxBodyBytes = 1 << 20

const (
	defaultTopN = 10
	maxTopN     = 100
)

// Options configures the HTTP API surface.
type Options struct {
	// PathPrefix, if set, is prepended to all routes (e.g., "/api").
	PathPrefix string
	// AllowCORSOrigin, if non-empty, enables CORS for the given origin (use "*" for any).
	AllowCORSOrigin string
	// APIKeys, if non-empty, enables static API key auth via Authorization: Bearer or X-API-Key.
	APIKeys []string
	// RateLimitEnabled toggles rate limiting.
	RateLimitEnabled bool
	// RateLimitRPM is the allowed requests per minute per client key.
	RateLimitRPM int
	// RateLimitBurst defines burst capacity.
	RateLimitBurst int
	// RateLimitCleanup evicts idle client buckets; zero keeps them forever.
	RateLimitCleanup time.Duration
	// Activity, if set, serves aggregate activity reports.
	Activity *analytics.Activity
	// Logger receives request and panic logs; nil uses slog.Default().
	Logger *slog.Logger
}

type api struct {
	svc      *engine.Service
	hub      *realtime.Hub
	ladder   *leaderboard.Ladder
	activity *analytics.Activity
	log      *slog.Logger
}

// NewMux builds an http.Handler exposing the finquest REST API and WebSocket stream.
// Routes, relative to PathPrefix:
//   - GET  /healthz
//   - GET  /catalog
//   - GET  /leaderboard?n=10
//   - GET  /analytics/activity?period=daily|weekly|monthly
//   - GET  /users/{id}
//   - POST /users/{id}/actions
//   - GET  /users/{id}/summary?range=week|month|year|all
//   - GET  /users/{id}/rewards
//   - GET  /users/{id}/progress
//   - GET  /users/{id}/leaderboard
//   - WS   /ws?user=&types=
//
// hub, ladder and opts.Activity are optional; their routes are omitted when nil.
func NewMux(svc *engine.Service, hub *realtime.Hub, ladder *leaderboard.Ladder, opts Options) http.Handler {
	a := &api{svc: svc, hub: hub, ladder: ladder, activity: opts.Activity, log: opts.Logger}
	if a.log == nil {
		a.log = slog.Default()
	}

	root := mux.NewRouter()
	r := root
	if opts.PathPrefix != "" && opts.PathPrefix != "/" {
		r = root.PathPrefix(trimSlash(opts.PathPrefix)).Subrouter()
	}

	r.HandleFunc("/healthz", a.health).Methods(http.MethodGet)
	r.HandleFunc("/catalog", a.catalog).Methods(http.MethodGet)
	if hub != nil {
		r.Handle("/ws", wsadapter.Handler(hub))
	}
	if ladder != nil {
		r.HandleFunc("/leaderboard", a.globalLeaderboard).Methods(http.MethodGet)
	}
	if opts.Activity != nil {
		r.HandleFunc("/analytics/activity", a.activityReports).Methods(http.MethodGet)
	}

	users := r.PathPrefix("/users/{id}").Subrouter()
	users.HandleFunc("", a.withUser(a.getState)).Methods(http.MethodGet)
	users.HandleFunc("/actions", a.withUser(a.dispatch)).Methods(http.MethodPost)
	users.HandleFunc("/summary", a.withUser(a.summary)).Methods(http.MethodGet)
	users.HandleFunc("/rewards", a.withUser(a.rewards)).Methods(http.MethodGet)
	users.HandleFunc("/progress", a.withUser(a.progress)).Methods(http.MethodGet)
	if ladder != nil {
		users.HandleFunc("/leaderboard", a.withUser(a.friendsLeaderboard)).Methods(http.MethodGet)
	}

	root.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "route not found", nil)
	})
	root.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed", nil)
	})

	var handler http.Handler = root
	if opts.RateLimitEnabled && opts.RateLimitRPM > 0 && opts.RateLimitBurst > 0 {
		handler = withRateLimit(handler, newRateLimiter(opts.RateLimitRPM, opts.RateLimitBurst, opts.RateLimitCleanup))
	}
	if len(opts.APIKeys) > 0 {
		handler = withAPIKeyAuth(handler, opts.APIKeys)
	}
	if opts.AllowCORSOrigin != "" {
		handler = handlers.CORS(
			handlers.AllowedOrigins([]string{opts.AllowCORSOrigin}),
			handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
			handlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-API-Key"}),
		)(handler)
	}
	return handlers.RecoveryHandler(handlers.RecoveryLogger(recoveryLogger{a.log}))(handler)
}

type userHandler func(w http.ResponseWriter, r *http.Request, user core.UserID)

// withUser resolves and validates the {id} path variable.
func (a *api) withUser(next userHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := core.NormalizeUserID(core.UserID(mux.Vars(r)["id"]))
		if err == nil {
			err = core.ValidateID(string(user))
		}
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_user", err.Error(), nil)
			return
		}
		next(w, r, user)
	}
}

// state loads the user's session state, writing a 500 on failure.
func (a *api) state(w http.ResponseWriter, r *http.Request, user core.UserID) (core.State, bool) {
	st, err := a.svc.GetState(r.Context(), user)
	if err != nil {
		a.log.Error("load state", "user_id", user, "error", err)
		writeError(w, http.StatusInternalServerError, "internal", err.Error(), nil)
		return core.State{}, false
	}
	return st, true
}

// health verifies the persistence collaborator answers.
func (a *api) health(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"status": "healthy",
		"checks": map[string]any{"storage": "ok"},
	}
	code := http.StatusOK
	if err := a.svc.Health(r.Context()); err != nil {
		code = http.StatusServiceUnavailable
		status["status"] = "unhealthy"
		status["checks"] = map[string]any{"storage": "failed"}
	}
	writeJSONStatus(w, code, status)
}

// catalogView is the JSON form of the content catalogs.
type catalogView struct {
	Lessons    []catalog.Lesson        `json:"lessons"`
	Challenges []catalog.Challenge     `json:"challenges"`
	Quests     []catalog.QuestTemplate `json:"quests"`
	Categories []catalog.Category      `json:"categories"`
	Rewards    []catalog.RewardItem    `json:"rewards"`
}

func (a *api) catalog(w http.ResponseWriter, _ *http.Request) {
	cat := a.svc.Catalog()
	writeJSON(w, catalogView{
		Lessons:    cat.Lessons(),
		Challenges: cat.Challenges(),
		Quests:     cat.QuestTemplates(),
		Categories: cat.Categories(),
		Rewards:    cat.Rewards(),
	})
}

func (a *api) getState(w http.ResponseWriter, r *http.Request, user core.UserID) {
	if st, ok := a.state(w, r, user); ok {
		writeJSON(w, st)
	}
}

// ActionResponse is the result of POST /users/{id}/actions.
type ActionResponse struct {
	Changed  bool       `json:"changed"`
	Rejected string     `json:"rejected,omitempty"`
	State    core.State `json:"state"`
}

func (a *api) dispatch(w http.ResponseWriter, r *http.Request, user core.UserID) {
	var env engine.Envelope
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&env); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "body must be an action envelope", err.Error())
		return
	}
	act, err := env.Decode()
	if err != nil {
		code := "invalid_action"
		if errors.Is(err, engine.ErrUnknownAction) {
			code = "unknown_action"
		}
		writeError(w, http.StatusBadRequest, code, err.Error(), map[string]any{"known": engine.ActionTypes()})
		return
	}

	st, out, err := a.svc.Dispatch(r.Context(), user, assignIDs(act))
	if err != nil {
		a.log.Error("dispatch", "user_id", user, "action", string(env.Type), "error", err)
		writeError(w, http.StatusInternalServerError, "internal", err.Error(), nil)
		return
	}
	resp := ActionResponse{Changed: out.Changed, State: st}
	if out.Rejected != nil {
		resp.Rejected = out.Rejected.Error()
	}
	writeJSON(w, resp)
}

// assignIDs gives new goals and expenses an id when the client sent none.
func assignIDs(act engine.Action) engine.Action {
	switch v := act.(type) {
	case engine.AddGoal:
		if v.Goal.ID == "" {
			v.Goal.ID = uuid.NewString()
		}
		return v
	case engine.AddExpense:
		if v.Transaction.ID == "" {
			v.Transaction.ID = uuid.NewString()
		}
		return v
	}
	return act
}

func (a *api) summary(w http.ResponseWriter, r *http.Request, user core.UserID) {
	rng, err := analytics.ParseTimeRange(r.URL.Query().Get("range"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_range", err.Error(), nil)
		return
	}
	st, ok := a.state(w, r, user)
	if !ok {
		return
	}
	now := a.svc.Now().In(a.svc.Location())
	writeJSON(w, analytics.Summarize(st.Expenses, rng, a.svc.Catalog(), now))
}

// activityReports writes every report of the requested period, oldest first.
func (a *api) activityReports(w http.ResponseWriter, r *http.Request) {
	p, err := analytics.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_period", err.Error(), nil)
		return
	}
	body, err := a.activity.ExportJSON(p)
	if err != nil {
		a.log.Error("export activity", "period", string(p), "error", err)
		writeError(w, http.StatusInternalServerError, "internal", err.Error(), nil)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}

func (a *api) rewards(w http.ResponseWriter, r *http.Request, user core.UserID) {
	st, ok := a.state(w, r, user)
	if !ok {
		return
	}
	writeJSON(w, progress.Rewards(a.svc.Catalog(), st.User, progress.SnapshotOf(st)))
}

func (a *api) progress(w http.ResponseWriter, r *http.Request, user core.UserID) {
	st, ok := a.state(w, r, user)
	if !ok {
		return
	}
	writeJSON(w, progress.ViewOf(a.svc.Catalog(), st))
}

func (a *api) friendsLeaderboard(w http.ResponseWriter, r *http.Request, user core.UserID) {
	st, ok := a.state(w, r, user)
	if !ok {
		return
	}
	ids := make([]core.UserID, 0, len(st.User.Friends)+1)
	ids = append(ids, user)
	for _, f := range st.User.Friends {
		ids = append(ids, f.ID)
	}
	writeJSON(w, a.ladder.Among(ids))
}

func (a *api) globalLeaderboard(w http.ResponseWriter, r *http.Request) {
	n := defaultTopN
	if raw := r.URL.Query().Get("n"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_n", "n must be a positive integer", nil)
			return
		}
		n = min(v, maxTopN)
	}
	writeJSON(w, a.ladder.Top(n))
}

func trimSlash(p string) string {
	for len(p) > 1 && p[len(p)-1] == '/' {
		p = p[:len(p)-1]
	}
	return p
}

func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, msg string, details any) {
	writeJSONStatus(w, status, apiError{Code: code, Message: msg, Details: details})
}
