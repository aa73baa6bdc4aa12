// Package backup implements the full-database snapshot export and the
// all-or-nothing restore for the Stockbook inventory data.
package backup

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	apperrors "stockbook-backup/internal/errors"
	"stockbook-backup/internal/logging"
	"stockbook-backup/internal/schema"
	"stockbook-backup/internal/snapshot"
	"stockbook-backup/internal/storage"
)

// FileBase is the fixed project token used in exported file names
const FileBase = "stockbook"

// snapshotMIMEType is reported to the storage layer for scoped-API writes
const snapshotMIMEType = "application/json"

// ExportResult is the storage resolver's placement result together with the
// computed snapshot file name.
type ExportResult struct {
	storage.StoredFile
	FileName string
}

// Exporter walks every backed-up table in dependency order and serializes a
// versioned snapshot document to durable storage.
type Exporter struct {
	db         *sql.DB
	registry   *schema.Registry
	resolver   *storage.Resolver
	compressor snapshot.Compressor
	logger     *logging.Logger
	tempDir    string
	now        func() time.Time
}

// NewExporter creates an exporter. compressor may be nil for uncompressed
// output; tempDir may be empty to use the system temp directory.
func NewExporter(db *sql.DB, registry *schema.Registry, resolver *storage.Resolver, compressor snapshot.Compressor, logger *logging.Logger, tempDir string) *Exporter {
	if compressor == nil {
		compressor, _ = snapshot.NewCompressor(snapshot.AlgorithmNone)
	}
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &Exporter{
		db:         db,
		registry:   registry,
		resolver:   resolver,
		compressor: compressor,
		logger:     logger,
		tempDir:    tempDir,
		now:        time.Now,
	}
}

// Export reads every row of every table, serializes the snapshot document,
// and hands it to the storage resolver for durable placement.
//
// Any read or serialization error aborts the export before anything reaches
// the durable location; the transient file is written first and placement
// happens only on full success. Deleting the transient copy afterwards is
// best-effort and never fails the export.
func (e *Exporter) Export(ctx context.Context) (*ExportResult, error) {
	done := e.logger.LogOperationStart("export", nil)

	result, err := e.export(ctx)
	done(err)
	return result, err
}

func (e *Exporter) export(ctx context.Context) (*ExportResult, error) {
	exportedAt := e.now()
	doc := snapshot.NewDocument(e.registry, exportedAt)

	for _, table := range e.registry.InsertOrder() {
		start := time.Now()
		rows, err := e.scanTable(ctx, table)
		e.logger.LogTableScan(table, len(rows), time.Since(start), err)
		if err != nil {
			return nil, err
		}
		doc.Tables[table] = rows
	}

	data, err := doc.Marshal()
	if err != nil {
		return nil, err
	}

	payload, err := e.compressor.Compress(data)
	if err != nil {
		return nil, err
	}

	fileName := fmt.Sprintf("%s_%s.json%s", FileBase, exportedAt.Format("20060102-150405"), e.compressor.Extension())
	tempPath := filepath.Join(e.tempDir, fileName)

	if err := os.WriteFile(tempPath, payload, 0600); err != nil {
		return nil, apperrors.NewValidationError("failed to write transient snapshot file", err)
	}
	defer func() {
		e.logger.LogNonCriticalCleanup(tempPath, os.Remove(tempPath))
	}()

	stored, err := e.resolver.Persist(ctx, tempPath, fileName, snapshotMIMEType)
	result := &ExportResult{FileName: fileName}
	if stored != nil {
		result.StoredFile = *stored
	}
	if err != nil {
		return result, err
	}
	return result, nil
}

// scanTable reads every row of one table, ordered by id for determinism, and
// restricts each row to the table's declared columns.
func (e *Exporter) scanTable(ctx context.Context, table string) ([]snapshot.Row, error) {
	columns := e.registry.Columns(table)

	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY id ASC", strings.Join(columns, ", "), table)
	rows, err := e.db.QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.NewDatabaseError(fmt.Sprintf("failed to scan table %s", table), err)
	}
	defer rows.Close()

	out := make([]snapshot.Row, 0)
	for rows.Next() {
		values := make([]interface{}, len(columns))
		pointers := make([]interface{}, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, apperrors.NewDatabaseError(fmt.Sprintf("failed to read row from %s", table), err)
		}

		row := make(snapshot.Row, len(columns))
		for i, col := range columns {
			row[col] = normalizeValue(values[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDatabaseError(fmt.Sprintf("failed to read rows from %s", table), err)
	}
	return out, nil
}

// normalizeValue maps driver byte slices onto strings so they serialize as
// JSON text instead of base64.
func normalizeValue(v interface{}) interface{} {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
