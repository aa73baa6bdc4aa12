package backup

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "stockbook-backup/internal/errors"
	"stockbook-backup/internal/schema"
	"stockbook-backup/internal/snapshot"
	"stockbook-backup/internal/store"
)

func openTestStore(t *testing.T) *sql.DB {
	t.Helper()
	db, err := store.Open(context.Background(), store.DefaultConfig(filepath.Join(t.TempDir(), "stockbook.db")))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func seedTestData(t *testing.T, db *sql.DB) {
	t.Helper()
	statements := []string{
		`INSERT INTO items (id, name, category, price, stock, barcode) VALUES
			(1, 'Hammer', 'tools', 1299, 5, NULL),
			(2, 'Saw', 'tools', 2499, 2, '4006381333931')`,
		`INSERT INTO purchase_orders (id, supplier, order_date, status, total) VALUES
			(1, 'Acme Supply', '2025-01-05', 'received', 14990)`,
		`INSERT INTO purchase_order_items (id, order_id, item_id, quantity, unit_price) VALUES
			(1, 1, 1, 10, 999),
			(2, 1, 2, 2, 2250)`,
		`INSERT INTO bookkeeping_entries (id, entry_date, description, amount, entry_type) VALUES
			(1, '2025-01-06', 'stock purchase', -14990, 'expense')`,
		`INSERT INTO bookkeeping_entry_history (id, entry_id, changed_at, field, old_value, new_value) VALUES
			(1, 1, '2025-01-07T10:00:00Z', 'amount', '-14000', '-14990')`,
		`INSERT INTO stock_history (id, item_id, recorded_at, delta, reason) VALUES
			(1, 1, '2025-01-05T09:00:00Z', 10, 'purchase order 1'),
			(2, 1, '2025-01-08T14:00:00Z', -5, 'sale')`,
	}
	for _, stmt := range statements {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}
}

func countRows(t *testing.T, db *sql.DB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func exportToFile(t *testing.T, db *sql.DB, compressor snapshot.Compressor) string {
	t.Helper()
	internalDir := filepath.Join(t.TempDir(), "backups")
	exporter := NewExporter(db, schema.NewRegistry(), newInternalResolver(internalDir), compressor, nil, t.TempDir())

	result, err := exporter.Export(context.Background())
	require.NoError(t, err)
	return filepath.Join(internalDir, result.FileName)
}

func TestExportRestoreRoundTrip(t *testing.T) {
	source := openTestStore(t)
	seedTestData(t, source)

	exported := exportToFile(t, source, nil)

	// Restore into a second store that already holds different data.
	target := openTestStore(t)
	_, err := target.Exec(`INSERT INTO items (id, name, category, price, stock, barcode) VALUES
		(99, 'Stale item', 'junk', 1, 1, NULL)`)
	require.NoError(t, err)

	importer := NewImporter(target, schema.NewRegistry(), nil)
	require.NoError(t, importer.Import(context.Background(), exported))

	// Restore replaces, so the stale row is gone.
	var stale int
	require.NoError(t, target.QueryRow("SELECT COUNT(*) FROM items WHERE id = 99").Scan(&stale))
	assert.Zero(t, stale)

	registry := schema.NewRegistry()
	for _, table := range registry.InsertOrder() {
		assert.Equal(t, countRows(t, source, table), countRows(t, target, table), "table %s", table)
	}

	var name string
	var barcode sql.NullString
	require.NoError(t, target.QueryRow("SELECT name, barcode FROM items WHERE id = 1").Scan(&name, &barcode))
	assert.Equal(t, "Hammer", name)
	assert.False(t, barcode.Valid)

	var reason string
	require.NoError(t, target.QueryRow("SELECT reason FROM stock_history WHERE id = 2").Scan(&reason))
	assert.Equal(t, "sale", reason)
}

func TestExportRestoreRoundTripCompressed(t *testing.T) {
	source := openTestStore(t)
	seedTestData(t, source)

	compressor, err := snapshot.NewCompressor(snapshot.AlgorithmLZ4)
	require.NoError(t, err)
	exported := exportToFile(t, source, compressor)
	assert.True(t, strings.HasSuffix(exported, ".json.lz4"))

	target := openTestStore(t)
	importer := NewImporter(target, schema.NewRegistry(), nil)
	require.NoError(t, importer.Import(context.Background(), exported))

	assert.Equal(t, 2, countRows(t, target, "items"))
	assert.Equal(t, 2, countRows(t, target, "stock_history"))
}

func TestRestoreRollsBackOnForeignKeyViolation(t *testing.T) {
	db := openTestStore(t)
	seedTestData(t, db)

	// The child row references a purchase order the document does not contain.
	path := writeDocument(t, `{
		"version": 2,
		"tables": {
			"items": [{"id": 1, "name": "Hammer", "category": "tools", "price": 1299, "stock": 5, "barcode": null}],
			"purchase_order_items": [{"id": 1, "order_id": 777, "item_id": 1, "quantity": 1, "unit_price": 100}]
		}
	}`)

	importer := NewImporter(db, schema.NewRegistry(), nil)
	err := importer.Import(context.Background(), path)

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeTransaction))

	// Rollback left the original data intact, stock_history included.
	assert.Equal(t, 2, countRows(t, db, "items"))
	assert.Equal(t, 1, countRows(t, db, "purchase_orders"))
	assert.Equal(t, 2, countRows(t, db, "purchase_order_items"))
	assert.Equal(t, 2, countRows(t, db, "stock_history"))
}

func TestRestoreFailureInLastTableLeavesAllTablesUntouched(t *testing.T) {
	db := openTestStore(t)
	seedTestData(t, db)

	// stock_history is populated last; its bad row must undo everything,
	// including the tables that restored cleanly before it.
	path := writeDocument(t, `{
		"version": 2,
		"tables": {
			"items": [{"id": 3, "name": "Chisel", "category": "tools", "price": 899, "stock": 1, "barcode": null}],
			"stock_history": [{"id": 1, "item_id": 999, "recorded_at": "2025-01-10", "delta": 1, "reason": "broken"}]
		}
	}`)

	importer := NewImporter(db, schema.NewRegistry(), nil)
	err := importer.Import(context.Background(), path)

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeTransaction))

	registry := schema.NewRegistry()
	for _, table := range registry.InsertOrder() {
		switch table {
		case "items", "purchase_order_items", "stock_history":
			assert.Equal(t, 2, countRows(t, db, table), "table %s", table)
		default:
			assert.Equal(t, 1, countRows(t, db, table), "table %s", table)
		}
	}

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM items WHERE id = 3").Scan(&count))
	assert.Zero(t, count)
}

func TestRestoreRejectsNewerVersionWithoutTouchingData(t *testing.T) {
	db := openTestStore(t)
	seedTestData(t, db)

	registry := schema.NewRegistry()
	path := writeDocument(t, fmt.Sprintf(`{"version": %d, "tables": {"items": []}}`, registry.Version()+1))

	importer := NewImporter(db, registry, nil)
	err := importer.Import(context.Background(), path)

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUnsupportedVersion))
	assert.Equal(t, 2, countRows(t, db, "items"))
}

func TestRestoreRejectsNullTablesWithoutTouchingData(t *testing.T) {
	db := openTestStore(t)
	seedTestData(t, db)

	path := writeDocument(t, `{"version": 2, "tables": null}`)

	importer := NewImporter(db, schema.NewRegistry(), nil)
	err := importer.Import(context.Background(), path)

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInvalidFormat))
	assert.Equal(t, 2, countRows(t, db, "items"))
	assert.Equal(t, 2, countRows(t, db, "stock_history"))
}

func TestRestoreSanitizesRows(t *testing.T) {
	db := openTestStore(t)

	path := writeDocument(t, `{
		"version": 2,
		"tables": {
			"items": [{"id": 7, "name": "Wrench", "color": "red", "discontinued": true}]
		}
	}`)

	importer := NewImporter(db, schema.NewRegistry(), nil)
	require.NoError(t, importer.Import(context.Background(), path))

	var name string
	var category, barcode sql.NullString
	require.NoError(t, db.QueryRow("SELECT name, category, barcode FROM items WHERE id = 7").Scan(&name, &category, &barcode))
	assert.Equal(t, "Wrench", name)
	assert.False(t, category.Valid)
	assert.False(t, barcode.Valid)
}

func TestRestoreAbsentTablesAreCleared(t *testing.T) {
	db := openTestStore(t)
	seedTestData(t, db)

	// A document that only carries items still clears every other table.
	path := writeDocument(t, `{
		"version": 2,
		"tables": {"items": [{"id": 1, "name": "Hammer", "category": "tools", "price": 1299, "stock": 5, "barcode": null}]}
	}`)

	importer := NewImporter(db, schema.NewRegistry(), nil)
	require.NoError(t, importer.Import(context.Background(), path))

	assert.Equal(t, 1, countRows(t, db, "items"))
	for _, table := range []string{"purchase_orders", "purchase_order_items", "bookkeeping_entries", "bookkeeping_entry_history", "stock_history"} {
		assert.Zero(t, countRows(t, db, table), "table %s", table)
	}
}

func TestExportedDocumentIsStableAcrossRoundTrip(t *testing.T) {
	source := openTestStore(t)
	seedTestData(t, source)

	first := exportToFile(t, source, nil)

	target := openTestStore(t)
	importer := NewImporter(target, schema.NewRegistry(), nil)
	require.NoError(t, importer.Import(context.Background(), first))

	second := exportToFile(t, target, nil)

	firstDoc, err := os.ReadFile(first)
	require.NoError(t, err)
	secondDoc, err := os.ReadFile(second)
	require.NoError(t, err)

	registry := schema.NewRegistry()
	parsedFirst, err := snapshot.Parse(firstDoc, registry)
	require.NoError(t, err)
	parsedSecond, err := snapshot.Parse(secondDoc, registry)
	require.NoError(t, err)

	assert.Equal(t, parsedFirst.Tables, parsedSecond.Tables)
}

func TestSingleItemExportImport(t *testing.T) {
	source := openTestStore(t)
	_, err := source.Exec(`INSERT INTO items (id, name, category, price, stock) VALUES
		(1, 'Box', 'Packaging', 1000, 5)`)
	require.NoError(t, err)

	exported := exportToFile(t, source, nil)

	data, err := os.ReadFile(exported)
	require.NoError(t, err)

	registry := schema.NewRegistry()
	doc, err := snapshot.Parse(data, registry)
	require.NoError(t, err)
	assert.Equal(t, registry.Version(), doc.Version)

	rows := doc.Rows("items")
	require.Len(t, rows, 1)
	// The column the insert omitted exports as an explicit null, so every
	// declared column is present.
	require.Len(t, rows[0], len(registry.Columns("items")))
	assert.Equal(t, "Box", rows[0]["name"])
	assert.Nil(t, rows[0]["barcode"])

	target := openTestStore(t)
	importer := NewImporter(target, registry, nil)
	require.NoError(t, importer.Import(context.Background(), exported))

	var name, category string
	var price, stock int64
	require.NoError(t, target.QueryRow("SELECT name, category, price, stock FROM items WHERE id = 1").
		Scan(&name, &category, &price, &stock))
	assert.Equal(t, "Box", name)
	assert.Equal(t, "Packaging", category)
	assert.Equal(t, int64(1000), price)
	assert.Equal(t, int64(5), stock)
	assert.Equal(t, 1, countRows(t, target, "items"))
}

func TestOpenRejectsInvalidConfig(t *testing.T) {
	_, err := store.Open(context.Background(), store.Config{Path: "", BusyTimeout: time.Second})

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}
