package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"finquest/core"
)

// Sink posts domain events to configured HTTP endpoints from a background worker.
// Delivery is best effort: a full queue drops events and failures are logged.
type Sink struct {
	client    *http.Client
	endpoints []string
	types     map[core.EventType]struct{}
	log       *slog.Logger
	retries   int

	queue     chan core.Event
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// Option configures a Sink.
type Option func(*Sink)

// WithClient overrides the HTTP client (defaults to 2s timeout).
func WithClient(c *http.Client) Option {
	return func(s *Sink) {
		if c != nil {
			s.client = c
		}
	}
}

// WithTypes restricts delivery to the listed event types.
func WithTypes(types ...core.EventType) Option {
	return func(s *Sink) {
		if len(types) == 0 {
			return
		}
		s.types = make(map[core.EventType]struct{}, len(types))
		for _, t := range types {
			s.types[t] = struct{}{}
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Sink) {
		if l != nil {
			s.log = l
		}
	}
}

// WithRetries sets how many extra attempts a failed post gets.
func WithRetries(n int) Option {
	return func(s *Sink) {
		if n >= 0 {
			s.retries = n
		}
	}
}

// New creates a webhook sink and starts its worker.
func New(endpoints []string, opts ...Option) *Sink {
	s := &Sink{
		client:  &http.Client{Timeout: 2 * time.Second},
		log:     slog.Default(),
		retries: 1,
		queue:   make(chan core.Event, 256),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.endpoints = append([]string{}, endpoints...)
	s.wg.Add(1)
	go s.run()
	return s
}

// OnEvent queues the event for delivery. It matches engine.EventHandler.
func (s *Sink) OnEvent(_ context.Context, e core.Event) {
	if len(s.endpoints) == 0 {
		return
	}
	if s.types != nil {
		if _, ok := s.types[e.Type]; !ok {
			return
		}
	}
	select {
	case s.queue <- e:
	default:
		s.log.Warn("webhook queue full, dropping event", "type", string(e.Type), "user_id", string(e.UserID))
	}
}

// Close delivers queued events and stops the worker.
func (s *Sink) Close() {
	s.closeOnce.Do(func() {
		close(s.queue)
		s.wg.Wait()
	})
}

func (s *Sink) run() {
	defer s.wg.Done()
	for e := range s.queue {
		body, err := json.Marshal(e)
		if err != nil {
			continue
		}
		for _, ep := range s.endpoints {
			if err := s.post(ep, body); err != nil {
				s.log.Warn("webhook delivery failed", "endpoint", ep, "type", string(e.Type), "error", err)
			}
		}
	}
}

func (s *Sink) post(endpoint string, body []byte) error {
	var lastErr error
	for attempt := 0; attempt <= s.retries; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(attempt) * 100 * time.Millisecond)
		}
		req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := s.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		_ = resp.Body.Close()
		if resp.StatusCode < 300 {
			return nil
		}
		lastErr = fmt.Errorf("unexpected status %d", resp.StatusCode)
		if resp.StatusCode < 500 {
			return lastErr
		}
	}
	return lastErr
}
