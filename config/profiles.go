package config

import (
	"fmt"
	"sort"
	"time"
)

// profile mutates a default config into a named deployment shape.
type profile func(*Config)

var profiles = map[string]profile{
	"development": func(c *Config) {
		c.Environment = EnvDevelopment
		c.Logging.Level = "debug"
		c.Logging.Format = "text"
	},
	"testing": func(c *Config) {
		c.Environment = EnvTesting
		c.Storage.Adapter = "memory"
		c.Logging.Level = "debug"
		c.Logging.Format = "text"
		c.Game.QuestRotationCron = ""
		c.Game.FlushCron = ""
	},
	"staging": func(c *Config) {
		c.Environment = EnvStaging
		c.Storage.Adapter = "redis"
		c.Security.EnableRateLimit = true
	},
	"production": func(c *Config) {
		c.Environment = EnvProduction
		c.Storage.Adapter = "redis"
		c.Logging.Level = "warn"
		c.Logging.Format = "json"
		c.Server.ReadTimeout = 15 * time.Second
		c.Server.WriteTimeout = 15 * time.Second
		c.Server.CORSOrigin = ""
		c.Security.EnableRateLimit = true
		c.Security.RateLimit.RequestsPerMinute = 120
		c.Security.RateLimit.BurstSize = 20
	},
}

// Profiles lists the known profile names.
func Profiles() []string {
	names := make([]string, 0, len(profiles))
	for n := range profiles {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// LoadProfile builds the named profile, overlays the environment and validates.
func LoadProfile(name string) (*Config, error) {
	apply, ok := profiles[name]
	if !ok {
		return nil, fmt.Errorf("unknown profile %q (known: %v)", name, Profiles())
	}

	cfg := DefaultConfig()
	apply(cfg)
	cfg.Profile = name

	if err := loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s profile: %w", name, err)
	}
	return cfg, nil
}
