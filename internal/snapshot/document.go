// Package snapshot defines the versioned backup document exchanged between
// export and restore, its JSON wire format, and the row sanitization rules
// that keep every row aligned with the schema registry.
package snapshot

import (
	"encoding/json"
	"time"

	apperrors "stockbook-backup/internal/errors"
	"stockbook-backup/internal/schema"
)

// Row is a single table row keyed by column name. Values are whatever the
// JSON decoder produced; null columns are nil.
type Row map[string]interface{}

// Document is the exported snapshot artifact: the full contents of every
// backed-up table plus the schema version that produced it.
type Document struct {
	Version    int              `json:"version"`
	ExportedAt time.Time        `json:"exportedAt"`
	Tables     map[string][]Row `json:"tables"`
}

// NewDocument returns an empty document stamped with the registry's version
func NewDocument(registry *schema.Registry, exportedAt time.Time) *Document {
	return &Document{
		Version:    registry.Version(),
		ExportedAt: exportedAt,
		Tables:     make(map[string][]Row, registry.TableCount()),
	}
}

// Marshal serializes the document as pretty-printed UTF-8 JSON
func (d *Document) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, apperrors.NewInvalidFormatError("failed to serialize snapshot document", err)
	}
	return data, nil
}

// Rows returns the row list for a table, treating an absent key as an empty
// table rather than an error.
func (d *Document) Rows(table string) []Row {
	return d.Tables[table]
}

// rawDocument is the parse-side shape. Tables stays raw so a missing key can
// be told apart from an empty or malformed object.
type rawDocument struct {
	Version    int             `json:"version"`
	ExportedAt time.Time       `json:"exportedAt"`
	Tables     json.RawMessage `json:"tables"`
}

// Parse decodes and validates a snapshot document against the registry.
//
// A document that cannot be decoded, or whose tables field is missing or not
// an object, fails with an invalid-format error. A document whose version
// exceeds the registry's fails with an unsupported-version error; older
// versions are accepted and rely on row sanitization to absorb column
// differences. The store is never touched here.
func Parse(data []byte, registry *schema.Registry) (*Document, error) {
	var raw rawDocument
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, apperrors.NewInvalidFormatError("snapshot document is not valid JSON", err)
	}

	if len(raw.Tables) == 0 {
		return nil, apperrors.NewInvalidFormatError("snapshot document has no tables field", nil)
	}

	var tables map[string][]Row
	if err := json.Unmarshal(raw.Tables, &tables); err != nil {
		return nil, apperrors.NewInvalidFormatError("snapshot tables field is not an object of row lists", err)
	}
	// A JSON null decodes without error but leaves the map nil; it is not an
	// object and must not restore as an empty database.
	if tables == nil {
		return nil, apperrors.NewInvalidFormatError("snapshot tables field is null", nil)
	}

	if raw.Version > registry.Version() {
		return nil, apperrors.NewUnsupportedVersionError(raw.Version, registry.Version())
	}

	return &Document{
		Version:    raw.Version,
		ExportedAt: raw.ExportedAt,
		Tables:     tables,
	}, nil
}

// SanitizeRow reduces or pads a row to exactly the declared column set:
// unknown keys are dropped, missing columns become null. The input row is not
// modified.
func SanitizeRow(columns []string, row Row) Row {
	sanitized := make(Row, len(columns))
	for _, col := range columns {
		sanitized[col] = row[col] // absent -> nil
	}
	return sanitized
}
