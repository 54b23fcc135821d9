package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrSecretNotFound is returned when a secret key is not set.
var ErrSecretNotFound = errors.New("secret not found")

// SecretStore resolves named secrets.
type SecretStore interface {
	Get(ctx context.Context, key string) (string, error)
	GetWithDefault(ctx context.Context, key, def string) string
}

// EnvironmentSecretStore reads secrets from process environment variables.
type EnvironmentSecretStore struct {
	lookup lookupFunc
}

func NewEnvironmentSecretStore() *EnvironmentSecretStore {
	return &EnvironmentSecretStore{lookup: os.LookupEnv}
}

// Get returns the value of key or ErrSecretNotFound.
func (s *EnvironmentSecretStore) Get(_ context.Context, key string) (string, error) {
	v, ok := s.lookup(key)
	if !ok || v == "" {
		return "", fmt.Errorf("%w: %s", ErrSecretNotFound, key)
	}
	return v, nil
}

func (s *EnvironmentSecretStore) GetWithDefault(ctx context.Context, key, def string) string {
	v, err := s.Get(ctx, key)
	if err != nil {
		return def
	}
	return v
}

// Secret names read by ApplySecrets.
const (
	SecretRedisPassword = "FINQUEST_SECRET_REDIS_PASSWORD"
	SecretSQLDSN        = "FINQUEST_SECRET_SQL_DSN"
	SecretMongoURI      = "FINQUEST_SECRET_MONGO_URI"
	SecretAPIKeys       = "FINQUEST_SECRET_API_KEYS"
)

// ApplySecrets fills credentials from store, overriding plain config values.
// Missing secrets leave the config untouched.
func ApplySecrets(ctx context.Context, cfg *Config, store SecretStore) {
	cfg.Storage.Redis.Password = store.GetWithDefault(ctx, SecretRedisPassword, cfg.Storage.Redis.Password)
	cfg.Storage.SQL.DSN = store.GetWithDefault(ctx, SecretSQLDSN, cfg.Storage.SQL.DSN)
	cfg.Storage.Mongo.URI = store.GetWithDefault(ctx, SecretMongoURI, cfg.Storage.Mongo.URI)
	if keys, err := store.Get(ctx, SecretAPIKeys); err == nil {
		cfg.Security.APIKeys = splitList(keys)
	}
}

// MapSecretStore serves secrets from memory, for tests and local tooling.
type MapSecretStore map[string]string

func (m MapSecretStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := m[key]; ok && strings.TrimSpace(v) != "" {
		return v, nil
	}
	return "", fmt.Errorf("%w: %s", ErrSecretNotFound, key)
}

func (m MapSecretStore) GetWithDefault(ctx context.Context, key, def string) string {
	if v, err := m.Get(ctx, key); err == nil {
		return v
	}
	return def
}
