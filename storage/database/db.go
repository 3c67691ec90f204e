// Package database opens the local database holding the dashboard preferences.
package database

import (
	"context"
	"io"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/trezcool/schoolhealth/core"
	"github.com/trezcool/schoolhealth/core/prefs"
	inmemdb "github.com/trezcool/schoolhealth/storage/database/inmem"
	sqlxrepos "github.com/trezcool/schoolhealth/storage/database/sqlx"
)

// Storage engines
const (
	EngineSQLite   = "sqlite"
	EnginePostgres = "postgres"
	EngineMemory   = "memory"
)

var ErrUnknownEngine = errors.New("unknown storage engine")

// Open connects to the configured SQL database.
func Open(conf *core.Config) (*sqlx.DB, error) {
	switch conf.Storage.Engine {
	case EngineSQLite:
		db, err := sqlx.Open(EngineSQLite, conf.Storage.DSN)
		if err != nil {
			return nil, errors.Wrap(err, "opening sqlite database")
		}
		// one connection: writes are serialized and ":memory:" databases are per connection
		db.SetMaxOpenConns(1)
		return db, nil
	case EnginePostgres:
		db, err := sqlx.Open(EnginePostgres, conf.Storage.DSN)
		return db, errors.Wrap(err, "opening postgres database")
	default:
		return nil, errors.Wrap(ErrUnknownEngine, conf.Storage.Engine)
	}
}

// Ping waits for the database to be ready. Waits 100ms longer between each attempt.
func Ping(ctx context.Context, db core.DB, maxAttempts int) error {
	var err error
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		if err = db.PingContext(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "DB ping cancelled")
		case <-time.After(time.Duration(attempts) * 100 * time.Millisecond):
		}
	}
	return errors.Wrap(err, "DB ping timeout")
}

// NewPrefsStore returns the preference store of the configured engine and its closer.
func NewPrefsStore(ctx context.Context, conf *core.Config) (prefs.Store, io.Closer, error) {
	if conf.Storage.Engine == EngineMemory {
		return inmemdb.NewPrefsStore(), nopCloser{}, nil
	}

	db, err := Open(conf)
	if err != nil {
		return nil, nil, err
	}
	if err := Ping(ctx, db, 30); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	store := sqlxrepos.NewPrefsStore(db)
	if err := store.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return store, db, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
