package backup

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	apperrors "stockbook-backup/internal/errors"
	"stockbook-backup/internal/logging"
	"stockbook-backup/internal/schema"
	"stockbook-backup/internal/snapshot"
)

// Importer validates a snapshot document and replaces the entire contents of
// every backed-up table inside a single transaction.
type Importer struct {
	db       *sql.DB
	registry *schema.Registry
	logger   *logging.Logger
}

// NewImporter creates an importer
func NewImporter(db *sql.DB, registry *schema.Registry, logger *logging.Logger) *Importer {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Importer{
		db:       db,
		registry: registry,
		logger:   logger,
	}
}

// Import restores the database from the snapshot document at documentPath.
//
// Parsing and version validation happen before the store is touched. The
// restore itself runs as one transaction: every table is cleared in reverse
// dependency order, then repopulated in dependency order with sanitized rows.
// On any failure the transaction rolls back and the tables are left exactly
// as they were. Import is a full replace, not a merge: rows absent from the
// snapshot are gone afterwards. Once the transaction begins it runs to
// commit or rollback; there is no cancel path.
func (i *Importer) Import(ctx context.Context, documentPath string) error {
	done := i.logger.LogOperationStart("restore", map[string]interface{}{"file": documentPath})
	err := i.restore(ctx, documentPath)
	done(err)
	return err
}

func (i *Importer) restore(ctx context.Context, documentPath string) error {
	raw, err := os.ReadFile(documentPath)
	if err != nil {
		return apperrors.NewValidationError(fmt.Sprintf("cannot read snapshot file %s", documentPath), err)
	}

	data, err := snapshot.Decode(raw)
	if err != nil {
		return err
	}

	doc, err := snapshot.Parse(data, i.registry)
	if err != nil {
		return err
	}

	return i.replaceAll(ctx, doc)
}

// replaceAll executes the single all-or-nothing restore transaction
func (i *Importer) replaceAll(ctx context.Context, doc *snapshot.Document) error {
	start := time.Now()

	tx, err := i.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewDatabaseError("failed to begin restore transaction", err)
	}

	rowCount, err := i.replaceAllInTx(ctx, tx, doc)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			i.logger.WithField("error", rbErr.Error()).Error("Rollback failed")
		}
		i.logger.LogRestoreTransaction(i.registry.TableCount(), rowCount, time.Since(start), err)
		return err
	}

	if err := tx.Commit(); err != nil {
		commitErr := apperrors.NewTransactionError("failed to commit restore transaction", err)
		i.logger.LogRestoreTransaction(i.registry.TableCount(), rowCount, time.Since(start), commitErr)
		return commitErr
	}

	i.logger.LogRestoreTransaction(i.registry.TableCount(), rowCount, time.Since(start), nil)
	return nil
}

func (i *Importer) replaceAllInTx(ctx context.Context, tx *sql.Tx, doc *snapshot.Document) (int, error) {
	// Clear children before parents so foreign keys never dangle.
	for _, table := range i.registry.DeleteOrder() {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return 0, apperrors.NewTransactionError(fmt.Sprintf("failed to clear table %s", table), err)
		}
	}

	rowCount := 0
	for _, table := range i.registry.InsertOrder() {
		columns := i.registry.Columns(table)

		stmt, err := tx.PrepareContext(ctx, upsertStatement(table, columns))
		if err != nil {
			return rowCount, apperrors.NewTransactionError(fmt.Sprintf("failed to prepare insert for %s", table), err)
		}

		for _, row := range doc.Rows(table) {
			sanitized := snapshot.SanitizeRow(columns, row)
			args := make([]interface{}, len(columns))
			for n, col := range columns {
				args[n] = sanitized[col]
			}
			if _, err := stmt.ExecContext(ctx, args...); err != nil {
				stmt.Close()
				return rowCount, apperrors.NewTransactionError(fmt.Sprintf("failed to insert row into %s", table), err)
			}
			rowCount++
		}
		stmt.Close()
	}
	return rowCount, nil
}

// upsertStatement builds the keyed-on-primary-key insert for one table
func upsertStatement(table string, columns []string) string {
	placeholders := make([]string, len(columns))
	updates := make([]string, 0, len(columns)-1)
	for i, col := range columns {
		placeholders[i] = "?"
		if col != "id" {
			updates = append(updates, fmt.Sprintf("%s = excluded.%s", col, col))
		}
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT(id) DO UPDATE SET %s",
		table,
		strings.Join(columns, ", "),
		strings.Join(placeholders, ", "),
		strings.Join(updates, ", "))
}
