package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(t *testing.T, level LogLevel, format string) (*Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger, err := NewLogger(Config{Level: level, Output: &buf, Format: format})
	require.NoError(t, err)
	return logger, &buf
}

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		level      LogLevel
		debugShown bool
		infoShown  bool
	}{
		{LogLevelQuiet, false, false},
		{LogLevelNormal, false, true},
		{LogLevelVerbose, true, true},
		{LogLevelDebug, true, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			logger, buf := newBufferLogger(t, tt.level, "text")

			logger.Debug("debug line")
			assert.Equal(t, tt.debugShown, bytes.Contains(buf.Bytes(), []byte("debug line")))

			logger.Info("info line")
			assert.Equal(t, tt.infoShown, bytes.Contains(buf.Bytes(), []byte("info line")))

			logger.Error("error line")
			assert.Contains(t, buf.String(), "error line")
		})
	}
}

func TestJSONFormat(t *testing.T) {
	logger, buf := newBufferLogger(t, LogLevelNormal, "json")

	logger.WithField("table", "items").Info("scan done")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "scan done", entry["msg"])
	assert.Equal(t, "items", entry["table"])
}

func TestLogFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stockbook.log")
	var buf bytes.Buffer
	logger, err := NewLogger(Config{Level: LogLevelNormal, Output: &buf, Format: "text", LogFile: path})
	require.NoError(t, err)

	logger.Info("written twice")

	assert.Contains(t, buf.String(), "written twice")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written twice")
}

func TestLogFileOpenFailure(t *testing.T) {
	_, err := NewLogger(Config{Level: LogLevelNormal, LogFile: filepath.Join(t.TempDir(), "missing", "dir", "x.log")})
	assert.Error(t, err)
}

func TestSetLevel(t *testing.T) {
	logger, buf := newBufferLogger(t, LogLevelNormal, "text")
	assert.Equal(t, LogLevelNormal, logger.GetLevel())

	logger.Debug("hidden")
	assert.NotContains(t, buf.String(), "hidden")

	logger.SetLevel(LogLevelVerbose)
	assert.Equal(t, LogLevelVerbose, logger.GetLevel())

	logger.Debug("visible")
	assert.Contains(t, buf.String(), "visible")
}

func TestLogTableScan(t *testing.T) {
	logger, buf := newBufferLogger(t, LogLevelDebug, "json")

	logger.LogTableScan("items", 42, 15*time.Millisecond, nil)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "table_scan", entry["operation"])
	assert.Equal(t, "items", entry["table"])
	assert.Equal(t, float64(42), entry["rows"])

	buf.Reset()
	logger.LogTableScan("items", 0, time.Millisecond, errors.New("disk error"))
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "disk error", entry["error"])
}

func TestLogRestoreTransaction(t *testing.T) {
	logger, buf := newBufferLogger(t, LogLevelNormal, "json")

	logger.LogRestoreTransaction(6, 120, 50*time.Millisecond, nil)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "restore_transaction", entry["operation"])
	assert.Equal(t, float64(6), entry["tables"])
	assert.Equal(t, float64(120), entry["rows"])
	assert.Contains(t, entry["msg"], "committed")

	buf.Reset()
	logger.LogRestoreTransaction(6, 10, time.Millisecond, errors.New("constraint"))
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Contains(t, entry["msg"], "rolled back")
}

func TestLogStoragePlacement(t *testing.T) {
	logger, buf := newBufferLogger(t, LogLevelNormal, "json")

	logger.LogStoragePlacement("backup.json", "internal", "file:///backups/backup.json", true)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "storage_placement", entry["operation"])
	assert.Equal(t, true, entry["fallback"])
	assert.Equal(t, "warning", entry["level"])
}

func TestLogNonCriticalCleanup(t *testing.T) {
	logger, buf := newBufferLogger(t, LogLevelNormal, "json")

	logger.LogNonCriticalCleanup("/tmp/x", nil)
	assert.Empty(t, buf.String())

	logger.LogNonCriticalCleanup("/tmp/x", errors.New("busy"))
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "cleanup", entry["operation"])
}

func TestLogOperationStart(t *testing.T) {
	logger, buf := newBufferLogger(t, LogLevelDebug, "json")

	done := logger.LogOperationStart("export", map[string]interface{}{"file": "backup.json"})
	done(nil)

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var started, completed map[string]interface{}
	require.NoError(t, json.Unmarshal(lines[0], &started))
	require.NoError(t, json.Unmarshal(lines[1], &completed))

	assert.Equal(t, "started", started["status"])
	assert.Equal(t, "export", started["operation"])
	assert.NotEmpty(t, started["operation_id"])
	assert.Equal(t, started["operation_id"], completed["operation_id"])
}
