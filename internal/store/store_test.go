package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "stockbook-backup/internal/errors"
	"stockbook-backup/internal/schema"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig("stockbook.db")

	assert.Equal(t, "stockbook.db", config.Path)
	assert.Equal(t, 5*time.Second, config.BusyTimeout)
	assert.NoError(t, config.Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"valid", Config{Path: "stockbook.db", BusyTimeout: time.Second}, false},
		{"zero timeout", Config{Path: "stockbook.db"}, false},
		{"missing path", Config{BusyTimeout: time.Second}, true},
		{"negative timeout", Config{Path: "stockbook.db", BusyTimeout: -time.Second}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestOpenCreatesSchema(t *testing.T) {
	db, err := Open(context.Background(), DefaultConfig(filepath.Join(t.TempDir(), "stockbook.db")))
	require.NoError(t, err)
	defer db.Close()

	registry := schema.NewRegistry()
	for _, table := range registry.InsertOrder() {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&count)
		require.NoError(t, err, "table %s", table)
		assert.Zero(t, count)
	}
}

func TestOpenEnforcesForeignKeys(t *testing.T) {
	db, err := Open(context.Background(), DefaultConfig(filepath.Join(t.TempDir(), "stockbook.db")))
	require.NoError(t, err)
	defer db.Close()

	var enabled int
	require.NoError(t, db.QueryRow("PRAGMA foreign_keys").Scan(&enabled))
	assert.Equal(t, 1, enabled)

	_, err = db.Exec("INSERT INTO stock_history (id, item_id, recorded_at, delta, reason) VALUES (1, 42, '2025-01-10', 1, 'orphan')")
	assert.Error(t, err)
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stockbook.db")

	db, err := Open(context.Background(), DefaultConfig(path))
	require.NoError(t, err)
	_, err = db.Exec("INSERT INTO items (id, name) VALUES (1, 'Hammer')")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	// Reopening an existing database keeps its contents.
	db, err = Open(context.Background(), DefaultConfig(path))
	require.NoError(t, err)
	defer db.Close()

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM items").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestOpenInvalidConfig(t *testing.T) {
	_, err := Open(context.Background(), Config{})

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}
