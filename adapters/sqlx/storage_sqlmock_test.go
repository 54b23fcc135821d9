package sqlx_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	libsqlx "github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	storage "finquest/adapters/sqlx"
	"finquest/core"
)

func newMockStore(t *testing.T, driver storage.Driver) (*storage.Store, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	xdb := storage.NewWithDB(libsqlx.NewDb(db, string(driver)), driver)
	cleanup := func() {
		_ = db.Close()
	}
	return xdb, mock, cleanup
}

func TestSQLMock_Save_Postgres(t *testing.T) {
	store, mock, cleanup := newMockStore(t, storage.DriverPostgres)
	defer cleanup()

	st := core.NewState("u1", "U1", 5)
	st.Version = 7
	st.User.TotalXP = 120

	mock.ExpectExec(`(?s)INSERT INTO user_snapshots .*ON CONFLICT \(user_id\) DO UPDATE`).
		WithArgs("u1", int64(7), 1, int64(120), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, store.Save(context.Background(), "u1", st))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_Save_MySQL(t *testing.T) {
	store, mock, cleanup := newMockStore(t, storage.DriverMySQL)
	defer cleanup()

	st := core.NewState("u1", "U1", 0)
	mock.ExpectExec(`(?s)INSERT INTO user_snapshots .*ON DUPLICATE KEY UPDATE`).
		WithArgs("u1", int64(0), 1, int64(0), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, store.Save(context.Background(), "u1", st))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_Load(t *testing.T) {
	store, mock, cleanup := newMockStore(t, storage.DriverPostgres)
	defer cleanup()

	st := core.NewState("u1", "U1", 42)
	st.User.CompletedChallenges["no-spend-day"] = struct{}{}
	raw, err := json.Marshal(st)
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT state FROM user_snapshots WHERE user_id = \$1`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"state"}).AddRow(string(raw)))

	got, found, err := store.Load(context.Background(), "u1")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, int64(42), got.User.Coins)
	require.Contains(t, got.User.CompletedChallenges, core.ChallengeID("no-spend-day"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_Load_Missing(t *testing.T) {
	store, mock, cleanup := newMockStore(t, storage.DriverMySQL)
	defer cleanup()

	mock.ExpectQuery(`SELECT state FROM user_snapshots WHERE user_id = \?`).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, found, err := store.Load(context.Background(), "ghost")
	require.NoError(t, err)
	require.False(t, found)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_Migrate(t *testing.T) {
	store, mock, cleanup := newMockStore(t, storage.DriverPostgres)
	defer cleanup()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS user_snapshots`).WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, store.Migrate(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_TopXP(t *testing.T) {
	store, mock, cleanup := newMockStore(t, storage.DriverPostgres)
	defer cleanup()

	mock.ExpectQuery(`SELECT user_id, level, total_xp FROM user_snapshots ORDER BY total_xp DESC`).
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "level", "total_xp"}).
			AddRow("ann", 4, 500).
			AddRow("ben", 2, 150))

	rows, err := store.TopXP(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "ann", rows[0].UserID)
	require.Equal(t, int64(150), rows[1].TotalXP)
	require.NoError(t, mock.ExpectationsWereMet())
}
