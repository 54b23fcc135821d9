// Package sqlx persists user snapshots in PostgreSQL or MySQL through jmoiron/sqlx.
package sqlx

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"finquest/core"
)

// Driver selects the SQL dialect.
type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverMySQL    Driver = "mysql"
)

// Config holds SQL connection configuration
type Config struct {
	Driver          Driver        `json:"driver" env:"FINQUEST_STORAGE_SQL_DRIVER"`
	DSN             string        `json:"dsn" env:"FINQUEST_STORAGE_SQL_DSN"`
	MaxOpenConns    int           `json:"max_open_conns" env:"FINQUEST_STORAGE_SQL_MAX_OPEN"`
	MaxIdleConns    int           `json:"max_idle_conns" env:"FINQUEST_STORAGE_SQL_MAX_IDLE"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" env:"FINQUEST_STORAGE_SQL_CONN_MAX_LIFETIME"`
	// AutoMigrate creates the snapshot table on startup.
	AutoMigrate bool `json:"auto_migrate" env:"FINQUEST_STORAGE_SQL_AUTO_MIGRATE"`
}

// DefaultConfig returns sensible defaults for the driver.
func DefaultConfig(driver Driver) Config {
	return Config{
		Driver:          driver,
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
		AutoMigrate:     true,
	}
}

// Store is a snapshot store over a single user_snapshots table.
type Store struct {
	db     *sqlx.DB
	driver Driver
}

// New opens a connection pool and optionally migrates the schema.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Driver != DriverPostgres && cfg.Driver != DriverMySQL {
		return nil, fmt.Errorf("unsupported sql driver %q", cfg.Driver)
	}
	db, err := sqlx.ConnectContext(ctx, string(cfg.Driver), cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Driver, err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	s := NewWithDB(db, cfg.Driver)
	if cfg.AutoMigrate {
		if err := s.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return s, nil
}

// NewWithDB wraps an existing connection (useful for testing)
func NewWithDB(db *sqlx.DB, driver Driver) *Store {
	return &Store{db: db, driver: driver}
}

func (s *Store) Close() error { return s.db.Close() }

const schemaPostgres = `CREATE TABLE IF NOT EXISTS user_snapshots (
	user_id    TEXT PRIMARY KEY,
	version    BIGINT NOT NULL,
	level      INTEGER NOT NULL,
	total_xp   BIGINT NOT NULL,
	state      JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)`

const schemaMySQL = `CREATE TABLE IF NOT EXISTS user_snapshots (
	user_id    VARCHAR(128) PRIMARY KEY,
	version    BIGINT NOT NULL,
	level      INT NOT NULL,
	total_xp   BIGINT NOT NULL,
	state      JSON NOT NULL,
	updated_at DATETIME(6) NOT NULL
)`

// Migrate creates the snapshot table if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	schema := schemaPostgres
	if s.driver == DriverMySQL {
		schema = schemaMySQL
	}
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate user_snapshots: %w", err)
	}
	return nil
}

// The WHERE/IF guards keep an older snapshot from overwriting a newer one.
const upsertPostgres = `INSERT INTO user_snapshots (user_id, version, level, total_xp, state, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (user_id) DO UPDATE SET
	version = EXCLUDED.version,
	level = EXCLUDED.level,
	total_xp = EXCLUDED.total_xp,
	state = EXCLUDED.state,
	updated_at = EXCLUDED.updated_at
WHERE user_snapshots.version <= EXCLUDED.version`

// MySQL evaluates assignments left to right, so version is updated last.
const upsertMySQL = `INSERT INTO user_snapshots (user_id, version, level, total_xp, state, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
	level = IF(VALUES(version) >= version, VALUES(level), level),
	total_xp = IF(VALUES(version) >= version, VALUES(total_xp), total_xp),
	state = IF(VALUES(version) >= version, VALUES(state), state),
	updated_at = IF(VALUES(version) >= version, VALUES(updated_at), updated_at),
	version = GREATEST(version, VALUES(version))`

// Save upserts the user's snapshot.
func (s *Store) Save(ctx context.Context, user core.UserID, st core.State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	q := upsertPostgres
	if s.driver == DriverMySQL {
		q = upsertMySQL
	}
	updated := st.Updated
	if updated.IsZero() {
		updated = time.Now().UTC()
	}
	if _, err := s.db.ExecContext(ctx, q, string(user), st.Version, st.User.Level, st.User.TotalXP, string(data), updated); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// Load reads the user's snapshot.
func (s *Store) Load(ctx context.Context, user core.UserID) (core.State, bool, error) {
	var raw string
	err := s.db.GetContext(ctx, &raw, s.db.Rebind(`SELECT state FROM user_snapshots WHERE user_id = ?`), string(user))
	if errors.Is(err, sql.ErrNoRows) {
		return core.State{}, false, nil
	}
	if err != nil {
		return core.State{}, false, fmt.Errorf("failed to load snapshot: %w", err)
	}
	var st core.State
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return core.State{}, false, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	st.Normalize()
	return st, true, nil
}

// Ranked is one row of the lifetime XP ranking.
type Ranked struct {
	UserID  string `db:"user_id"`
	Level   int    `db:"level"`
	TotalXP int64  `db:"total_xp"`
}

// TopXP returns up to n users ordered by lifetime XP.
func (s *Store) TopXP(ctx context.Context, n int) ([]Ranked, error) {
	var rows []Ranked
	q := s.db.Rebind(`SELECT user_id, level, total_xp FROM user_snapshots ORDER BY total_xp DESC, user_id ASC LIMIT ?`)
	if err := s.db.SelectContext(ctx, &rows, q, n); err != nil {
		return nil, fmt.Errorf("failed to rank snapshots: %w", err)
	}
	return rows, nil
}
