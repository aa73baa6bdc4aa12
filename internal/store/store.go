// Package store opens and initializes the Stockbook SQLite database. All
// access goes through a single serialized connection; the importer relies on
// SQLite's native transaction mechanism for atomicity rather than any
// application-level locking.
package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	apperrors "stockbook-backup/internal/errors"
)

// ddl creates the six backed-up tables. Foreign keys are declared so that a
// snapshot containing an orphaned child row is rejected inside the restore
// transaction instead of being silently accepted.
const ddl = `
CREATE TABLE IF NOT EXISTS items (
	id       INTEGER PRIMARY KEY,
	name     TEXT NOT NULL,
	category TEXT,
	price    INTEGER,
	stock    INTEGER,
	barcode  TEXT
);

CREATE TABLE IF NOT EXISTS purchase_orders (
	id         INTEGER PRIMARY KEY,
	supplier   TEXT,
	order_date TEXT,
	status     TEXT,
	total      INTEGER
);

CREATE TABLE IF NOT EXISTS purchase_order_items (
	id         INTEGER PRIMARY KEY,
	order_id   INTEGER NOT NULL REFERENCES purchase_orders(id),
	item_id    INTEGER,
	quantity   INTEGER,
	unit_price INTEGER
);

CREATE TABLE IF NOT EXISTS bookkeeping_entries (
	id          INTEGER PRIMARY KEY,
	entry_date  TEXT,
	description TEXT,
	amount      INTEGER,
	entry_type  TEXT
);

CREATE TABLE IF NOT EXISTS bookkeeping_entry_history (
	id         INTEGER PRIMARY KEY,
	entry_id   INTEGER NOT NULL REFERENCES bookkeeping_entries(id),
	changed_at TEXT,
	field      TEXT,
	old_value  TEXT,
	new_value  TEXT
);

CREATE TABLE IF NOT EXISTS stock_history (
	id          INTEGER PRIMARY KEY,
	item_id     INTEGER NOT NULL REFERENCES items(id),
	recorded_at TEXT,
	delta       INTEGER,
	reason      TEXT
);
`

// Open opens the Stockbook database, applies the schema, and returns a
// handle restricted to a single connection.
func Open(ctx context.Context, config Config) (*sql.DB, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(%d)",
		config.Path, config.BusyTimeout.Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, apperrors.NewDatabaseError("failed to open database", err)
	}

	// One connection only. Export and import are never concurrent, and a
	// single connection keeps every statement on the serialized path.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, apperrors.NewDatabaseError("failed to connect to database", err)
	}

	if _, err := db.ExecContext(ctx, ddl); err != nil {
		db.Close()
		return nil, apperrors.NewDatabaseError("failed to initialize schema", err)
	}

	return db, nil
}
