package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/schoolhealth/core/prefs"
)

const createPrefsTable = `CREATE TABLE IF NOT EXISTS preferences (
	name  VARCHAR(255) PRIMARY KEY,
	value TEXT NOT NULL
)`

// PrefsStore keeps preferences in the preferences table of a SQLite or Postgres database.
type PrefsStore struct {
	db *sqlx.DB
}

var _ prefs.Store = (*PrefsStore)(nil)

func NewPrefsStore(db *sqlx.DB) *PrefsStore {
	return &PrefsStore{db: db}
}

// Migrate creates the preferences table.
func (s *PrefsStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, createPrefsTable)
	return errors.Wrap(err, "creating preferences table")
}

func (s *PrefsStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value string
	err := s.db.GetContext(ctx, &value, s.db.Rebind(`SELECT value FROM preferences WHERE name = ?`), key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, prefs.ErrNotFound
		}
		return nil, errors.Wrapf(err, "getting preference %q", key)
	}
	return []byte(value), nil
}

func (s *PrefsStore) Set(ctx context.Context, key string, value []byte) error {
	q := s.db.Rebind(`INSERT INTO preferences (name, value) VALUES (?, ?)
		ON CONFLICT (name) DO UPDATE SET value = excluded.value`)
	_, err := s.db.ExecContext(ctx, q, key, string(value))
	return errors.Wrapf(err, "setting preference %q", key)
}

func (s *PrefsStore) Delete(ctx context.Context, key string) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM preferences WHERE name = ?`), key)
	if err != nil {
		return errors.Wrapf(err, "deleting preference %q", key)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return prefs.ErrNotFound
	}
	return nil
}
