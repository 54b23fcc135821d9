package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"finquest/core"

	"github.com/redis/go-redis/v9"
)

// Config holds Redis connection configuration
type Config struct {
	Addr         string        `json:"addr" env:"FINQUEST_STORAGE_REDIS_ADDR"`
	Password     string        `json:"password" env:"FINQUEST_STORAGE_REDIS_PASSWORD"`
	DB           int           `json:"db" env:"FINQUEST_STORAGE_REDIS_DB"`
	PoolSize     int           `json:"pool_size" env:"FINQUEST_STORAGE_REDIS_POOL_SIZE"`
	MinIdleConns int           `json:"min_idle_conns" env:"FINQUEST_STORAGE_REDIS_MIN_IDLE"`
	DialTimeout  time.Duration `json:"dial_timeout" env:"FINQUEST_STORAGE_REDIS_DIAL_TIMEOUT"`
	ReadTimeout  time.Duration `json:"read_timeout" env:"FINQUEST_STORAGE_REDIS_READ_TIMEOUT"`
	WriteTimeout time.Duration `json:"write_timeout" env:"FINQUEST_STORAGE_REDIS_WRITE_TIMEOUT"`
	// KeyPrefix namespaces every key written by the store.
	KeyPrefix string `json:"key_prefix" env:"FINQUEST_STORAGE_REDIS_KEY_PREFIX"`
}

// DefaultConfig returns sensible defaults for Redis configuration
func DefaultConfig() Config {
	return Config{
		Addr:         "localhost:6379",
		Password:     "",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		KeyPrefix:    "finquest",
	}
}

// Store persists user snapshots in Redis.
// Data structure:
// - {prefix}:user:{user_id}:state -> hash {version, state (JSON snapshot)}
// - {prefix}:xp -> sorted set of user ids scored by lifetime XP
type Store struct {
	client *redis.Client
	prefix string
}

// New creates a new Redis-backed storage with the provided configuration
func New(config Config) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,
		DialTimeout:  config.DialTimeout,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Store{client: client, prefix: prefixOr(config.KeyPrefix)}, nil
}

// NewWithClient creates a Store using an existing Redis client (useful for testing)
func NewWithClient(client *redis.Client, prefix string) *Store {
	return &Store{client: client, prefix: prefixOr(prefix)}
}

func prefixOr(p string) string {
	if p == "" {
		return "finquest"
	}
	return p
}

// Close closes the Redis connection
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) stateKey(userID core.UserID) string {
	return fmt.Sprintf("%s:user:%s:state", s.prefix, userID)
}

func (s *Store) xpKey() string {
	return s.prefix + ":xp"
}

// Lua script that writes a snapshot only if it is not older than the stored one
var saveScript = redis.NewScript(`
	local current = tonumber(redis.call('HGET', KEYS[1], 'version') or '-1')
	local incoming = tonumber(ARGV[1])
	if current > incoming then
		return 0
	end
	redis.call('HSET', KEYS[1], 'version', ARGV[1], 'state', ARGV[2])
	redis.call('ZADD', KEYS[2], ARGV[3], ARGV[4])
	return 1
`)

// Save writes the snapshot. A snapshot older than the stored one is ignored.
func (s *Store) Save(ctx context.Context, userID core.UserID, st core.State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	keys := []string{s.stateKey(userID), s.xpKey()}
	if err := saveScript.Run(ctx, s.client, keys, st.Version, data, st.User.TotalXP, string(userID)).Err(); err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	return nil
}

// Load reads the user's snapshot.
func (s *Store) Load(ctx context.Context, userID core.UserID) (core.State, bool, error) {
	data, err := s.client.HGet(ctx, s.stateKey(userID), "state").Bytes()
	if errors.Is(err, redis.Nil) {
		return core.State{}, false, nil
	}
	if err != nil {
		return core.State{}, false, fmt.Errorf("failed to load state: %w", err)
	}
	var st core.State
	if err := json.Unmarshal(data, &st); err != nil {
		return core.State{}, false, fmt.Errorf("failed to decode state: %w", err)
	}
	st.Normalize()
	return st, true, nil
}

// XPEntry is one row of the lifetime XP index.
type XPEntry struct {
	User    core.UserID
	TotalXP int64
}

// TopXP returns up to n users ordered by lifetime XP, highest first.
func (s *Store) TopXP(ctx context.Context, n int) ([]XPEntry, error) {
	if n <= 0 {
		return nil, nil
	}
	zs, err := s.client.ZRevRangeWithScores(ctx, s.xpKey(), 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read xp index: %w", err)
	}
	out := make([]XPEntry, 0, len(zs))
	for _, z := range zs {
		member, ok := z.Member.(string)
		if !ok {
			continue
		}
		out = append(out, XPEntry{User: core.UserID(member), TotalXP: int64(z.Score)})
	}
	return out, nil
}
