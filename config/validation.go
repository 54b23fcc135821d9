package config

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"finquest/adapters/sqlx"
	"finquest/core"
)

var (
	validAdapters = []string{"memory", "file", "redis", "sql", "mongo"}
	validLevels   = []string{"debug", "info", "warn", "error"}
	validFormats  = []string{"json", "text"}
	validOutputs  = []string{"stdout", "stderr"}
)

func joinErrs(errs []string) error {
	if len(errs) == 0 {
		return nil
	}
	return errors.New(strings.Join(errs, "; "))
}

func oneOf(field, v string, valid []string) string {
	if slices.Contains(valid, v) {
		return ""
	}
	return fmt.Sprintf("%s must be one of: %s", field, strings.Join(valid, ", "))
}

// Validate validates server configuration
func (s *ServerConfig) Validate() error {
	var errs []string

	if s.Address == "" {
		errs = append(errs, "address cannot be empty")
	}
	if s.PathPrefix != "" && !strings.HasPrefix(s.PathPrefix, "/") {
		errs = append(errs, "path_prefix must start with /")
	}

	timeouts := []struct {
		name string
		d    time.Duration
	}{
		{"read_timeout", s.ReadTimeout},
		{"write_timeout", s.WriteTimeout},
		{"idle_timeout", s.IdleTimeout},
		{"read_header_timeout", s.ReadHeaderTimeout},
		{"shutdown_timeout", s.ShutdownTimeout},
	}
	for _, t := range timeouts {
		if t.d <= 0 {
			errs = append(errs, t.name+" must be positive")
		}
	}

	return joinErrs(errs)
}

// Validate validates storage configuration
func (s *StorageConfig) Validate() error {
	var errs []string

	if msg := oneOf("adapter", s.Adapter, validAdapters); msg != "" {
		errs = append(errs, msg)
	}

	switch s.Adapter {
	case "file":
		if s.File.Path == "" {
			errs = append(errs, "file config: path cannot be empty")
		}
	case "redis":
		if s.Redis.Addr == "" {
			errs = append(errs, "redis config: addr cannot be empty")
		}
		if s.Redis.PoolSize < 0 {
			errs = append(errs, "redis config: pool_size cannot be negative")
		}
	case "sql":
		if s.SQL.Driver != sqlx.DriverPostgres && s.SQL.Driver != sqlx.DriverMySQL {
			errs = append(errs, fmt.Sprintf("sql config: driver must be one of: %s, %s", sqlx.DriverPostgres, sqlx.DriverMySQL))
		}
		if s.SQL.DSN == "" {
			errs = append(errs, "sql config: dsn cannot be empty")
		}
	case "mongo":
		if !strings.HasPrefix(s.Mongo.URI, "mongodb://") && !strings.HasPrefix(s.Mongo.URI, "mongodb+srv://") {
			errs = append(errs, "mongo config: uri must use the mongodb:// or mongodb+srv:// scheme")
		}
		if s.Mongo.Database == "" {
			errs = append(errs, "mongo config: database cannot be empty")
		}
	}

	return joinErrs(errs)
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	var errs []string
	for _, msg := range []string{
		oneOf("level", l.Level, validLevels),
		oneOf("format", l.Format, validFormats),
		oneOf("output", l.Output, validOutputs),
	} {
		if msg != "" {
			errs = append(errs, msg)
		}
	}
	return joinErrs(errs)
}

// Validate validates game rules and job schedules
func (g *GameConfig) Validate() error {
	var errs []string

	if g.Timezone != "" {
		if _, err := time.LoadLocation(g.Timezone); err != nil {
			errs = append(errs, fmt.Sprintf("timezone %q: %v", g.Timezone, err))
		}
	}
	if g.StartingCoins < 0 {
		errs = append(errs, "starting_coins cannot be negative")
	}
	if g.DailyQuests < 0 || g.WeeklyQuests < 0 || g.MonthlyQuests < 0 {
		errs = append(errs, "quest counts cannot be negative")
	}

	if g.QuestRotationCron != "" {
		if _, err := cron.ParseStandard(g.QuestRotationCron); err != nil {
			errs = append(errs, fmt.Sprintf("quest_rotation_cron: %v", err))
		}
	}
	if g.FlushCron != "" {
		if _, err := cron.ParseStandard(g.FlushCron); err != nil {
			errs = append(errs, fmt.Sprintf("flush_cron: %v", err))
		}
	}

	for _, hook := range g.Webhooks {
		u, err := url.Parse(hook)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Sprintf("webhook %q must be an http(s) URL", hook))
		}
	}
	for _, name := range g.WebhookEvents {
		if !slices.Contains(core.AllEventTypes, core.EventType(name)) {
			errs = append(errs, fmt.Sprintf("unknown webhook event %q", name))
		}
	}

	return joinErrs(errs)
}

// Validate validates security configuration
func (s *SecurityConfig) Validate() error {
	var errs []string

	if s.EnableRateLimit {
		if s.RateLimit.RequestsPerMinute <= 0 {
			errs = append(errs, "rate_limit.requests_per_minute must be positive when rate limiting is enabled")
		}
		if s.RateLimit.BurstSize <= 0 {
			errs = append(errs, "rate_limit.burst_size must be positive when rate limiting is enabled")
		}
		if s.RateLimit.CleanupInterval <= 0 {
			errs = append(errs, "rate_limit.cleanup_interval must be positive when rate limiting is enabled")
		}
	}
	for i, k := range s.APIKeys {
		if strings.TrimSpace(k) == "" {
			errs = append(errs, fmt.Sprintf("api_keys[%d] cannot be blank", i))
		}
	}

	return joinErrs(errs)
}
