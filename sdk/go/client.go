// Package sdk is a typed Go client for the finquest REST and WebSocket API.
package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"finquest/analytics"
	"finquest/core"
	"finquest/engine"
	"finquest/leaderboard"
	"finquest/progress"
)

// Option configures the Client.
type Option func(*Client)

// Client provides typed access to the finquest HTTP + WebSocket API.
type Client struct {
	baseURL    string
	wsURL      string
	httpClient *http.Client
	headers    http.Header
}

// NewClient constructs a new SDK client targeting the given baseURL (e.g., http://localhost:8080/api).
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("baseURL is required")
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	c := &Client{
		baseURL:    baseURL,
		wsURL:      deriveWSURL(baseURL),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		headers:    make(http.Header),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithAuthToken adds an Authorization: Bearer token header to all requests (HTTP + WS).
func WithAuthToken(token string) Option {
	return func(c *Client) {
		if strings.TrimSpace(token) != "" {
			c.headers.Set("Authorization", "Bearer "+token)
		}
	}
}

// WithAPIKey adds an X-API-Key header.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		if strings.TrimSpace(key) != "" {
			c.headers.Set("X-API-Key", key)
		}
	}
}

// WithHeader sets an arbitrary header applied to HTTP and WS calls.
func WithHeader(k, v string) Option {
	return func(c *Client) {
		if k != "" {
			c.headers.Set(k, v)
		}
	}
}

// GetState fetches the user's current state. The server creates the account on first access.
func (c *Client) GetState(ctx context.Context, userID string) (core.State, error) {
	var st core.State
	err := c.userCall(ctx, http.MethodGet, userID, "", nil, nil, &st)
	return st, err
}

// Dispatch sends an action and returns the server's outcome.
// A rejected action is not an error; inspect ActionResult.Rejected.
func (c *Client) Dispatch(ctx context.Context, userID string, a engine.Action) (ActionResult, error) {
	env, err := engine.EncodeAction(a)
	if err != nil {
		return ActionResult{}, fmt.Errorf("encode %s: %w", a.Type(), err)
	}
	var res ActionResult
	err = c.userCall(ctx, http.MethodPost, userID, "/actions", nil, env, &res)
	return res, err
}

func (c *Client) CompleteLesson(ctx context.Context, userID string, lesson core.LessonID) (ActionResult, error) {
	return c.Dispatch(ctx, userID, engine.CompleteLesson{LessonID: lesson})
}

// AddExpense records a transaction; an empty ID is assigned by the server.
func (c *Client) AddExpense(ctx context.Context, userID string, tx core.Transaction) (ActionResult, error) {
	return c.Dispatch(ctx, userID, engine.AddExpense{Transaction: tx})
}

func (c *Client) DepositToPiggyBank(ctx context.Context, userID string, amount int64) (ActionResult, error) {
	return c.Dispatch(ctx, userID, engine.DepositToPiggyBank{Amount: amount})
}

func (c *Client) PurchaseReward(ctx context.Context, userID string, reward core.RewardID) (ActionResult, error) {
	return c.Dispatch(ctx, userID, engine.PurchaseReward{RewardID: reward})
}

// Summary fetches the expense summary for a range; an empty range means all time.
func (c *Client) Summary(ctx context.Context, userID string, rng analytics.TimeRange) (analytics.Summary, error) {
	q := url.Values{}
	if rng != "" {
		q.Set("range", string(rng))
	}
	var s analytics.Summary
	err := c.userCall(ctx, http.MethodGet, userID, "/summary", q, nil, &s)
	return s, err
}

func (c *Client) Rewards(ctx context.Context, userID string) ([]progress.RewardStatus, error) {
	var rs []progress.RewardStatus
	err := c.userCall(ctx, http.MethodGet, userID, "/rewards", nil, nil, &rs)
	return rs, err
}

func (c *Client) Progress(ctx context.Context, userID string) (progress.View, error) {
	var v progress.View
	err := c.userCall(ctx, http.MethodGet, userID, "/progress", nil, nil, &v)
	return v, err
}

// FriendsLeaderboard ranks the user among their friends.
func (c *Client) FriendsLeaderboard(ctx context.Context, userID string) ([]leaderboard.Standing, error) {
	var out []leaderboard.Standing
	err := c.userCall(ctx, http.MethodGet, userID, "/leaderboard", nil, nil, &out)
	return out, err
}

// Leaderboard returns the global top n; n <= 0 uses the server default.
func (c *Client) Leaderboard(ctx context.Context, n int) ([]leaderboard.Standing, error) {
	q := url.Values{}
	if n > 0 {
		q.Set("n", strconv.Itoa(n))
	}
	var out []leaderboard.Standing
	err := c.call(ctx, http.MethodGet, "/leaderboard", q, nil, &out)
	return out, err
}

// Activity returns the server's aggregate activity reports for a period.
func (c *Client) Activity(ctx context.Context, period analytics.Period) ([]analytics.Report, error) {
	q := url.Values{}
	if period != "" {
		q.Set("period", string(period))
	}
	var out []analytics.Report
	err := c.call(ctx, http.MethodGet, "/analytics/activity", q, nil, &out)
	return out, err
}

// Catalog fetches the content catalogs.
func (c *Client) Catalog(ctx context.Context) (Catalog, error) {
	var cat Catalog
	err := c.call(ctx, http.MethodGet, "/catalog", nil, nil, &cat)
	return cat, err
}

// Health calls /healthz. An unhealthy server answers 503 with a status body,
// which is returned together with an *APIError.
func (c *Client) Health(ctx context.Context) (HealthStatus, error) {
	var hs HealthStatus
	err := c.call(ctx, http.MethodGet, "/healthz", nil, nil, &hs)
	return hs, err
}

// SubscribeOptions narrows the event stream.
type SubscribeOptions struct {
	UserID string
	Types  []core.EventType
}

// SubscribeEvents connects to the WebSocket stream and emits core.Event values.
// The returned channel closes when ctx is done or the connection drops.
func (c *Client) SubscribeEvents(ctx context.Context, opts SubscribeOptions) (<-chan core.Event, error) {
	if c.wsURL == "" {
		return nil, errors.New("wsURL is not set; ensure baseURL is http/https")
	}
	u, err := url.Parse(c.wsURL)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	if opts.UserID != "" {
		q.Set("user", opts.UserID)
	}
	if len(opts.Types) > 0 {
		types := make([]string, len(opts.Types))
		for i, t := range opts.Types {
			types[i] = string(t)
		}
		q.Set("types", strings.Join(types, ","))
	}
	u.RawQuery = q.Encode()

	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	conn, _, err := dialer.DialContext(ctx, u.String(), c.headers)
	if err != nil {
		return nil, err
	}

	// unblock ReadJSON when ctx ends
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })

	out := make(chan core.Event, 32)
	go func() {
		defer close(out)
		defer stop()
		defer conn.Close()
		for {
			var evt core.Event
			if err := conn.ReadJSON(&evt); err != nil {
				return
			}
			select {
			case out <- evt:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (c *Client) userCall(ctx context.Context, method, userID, suffix string, q url.Values, body, out any) error {
	if strings.TrimSpace(userID) == "" {
		return ErrEmptyUserID
	}
	return c.call(ctx, method, "/users/"+url.PathEscape(userID)+suffix, q, body, out)
}

func (c *Client) call(ctx context.Context, method, path string, q url.Values, body, out any) error {
	target := c.baseURL + path
	if len(q) > 0 {
		target += "?" + q.Encode()
	}

	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, rd)
	if err != nil {
		return err
	}
	c.applyHeaders(req)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeJSON(resp, out)
}

func (c *Client) applyHeaders(r *http.Request) {
	for k, vals := range c.headers {
		for _, v := range vals {
			r.Header.Add(k, v)
		}
	}
}

func deriveWSURL(httpBase string) string {
	u, err := url.Parse(httpBase)
	if err != nil {
		return ""
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	default:
		// leave as-is for custom schemes
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	return u.String()
}
