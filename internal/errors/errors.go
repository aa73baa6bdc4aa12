package errors

import (
	"errors"
	"fmt"
	"os"
	"syscall"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	// ErrorTypeInvalidFormat represents snapshot documents that cannot be parsed
	// or lack the required structure
	ErrorTypeInvalidFormat ErrorType = "invalid_format"
	// ErrorTypeUnsupportedVersion represents snapshot documents newer than the
	// running schema version
	ErrorTypeUnsupportedVersion ErrorType = "unsupported_version"
	// ErrorTypeTransaction represents failures inside the restore transaction
	ErrorTypeTransaction ErrorType = "transaction_failure"
	// ErrorTypePermission represents a declined directory grant
	ErrorTypePermission ErrorType = "permission_denied"
	// ErrorTypeStorageWrite represents a failed write to a previously granted directory
	ErrorTypeStorageWrite ErrorType = "storage_write_failure"
	// ErrorTypeTotalStorage represents a write failure with no remaining fallback
	ErrorTypeTotalStorage ErrorType = "total_storage_failure"
	// ErrorTypeDatabase represents store access errors outside the restore transaction
	ErrorTypeDatabase ErrorType = "database"
	// ErrorTypeValidation represents configuration or input validation errors
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeUnknown represents unclassified errors
	ErrorTypeUnknown ErrorType = "unknown"
)

// AppError represents an application-specific error with context
type AppError struct {
	Type        ErrorType
	Message     string
	Cause       error
	Context     map[string]interface{}
	Recoverable bool
	UserMessage string
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// GetUserMessage returns a user-friendly error message
func (e *AppError) GetUserMessage() string {
	if e.UserMessage != "" {
		return e.UserMessage
	}
	return e.Message
}

// IsRecoverable returns whether the operation can continue through a fallback
func (e *AppError) IsRecoverable() bool {
	return e.Recoverable
}

// WithContext adds context information to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithUserMessage sets the message shown to the user in place of Message
func (e *AppError) WithUserMessage(msg string) *AppError {
	e.UserMessage = msg
	return e
}

// NewAppError creates a new application error
func NewAppError(errorType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errorType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// Constructors for the backup/restore error taxonomy.
//
// The two storage placement errors are recoverable: the resolver falls back to
// internal storage instead of failing the export. Everything else aborts the
// operation that raised it.

// NewInvalidFormatError reports a snapshot document that cannot be parsed or
// is structurally invalid. The store is never touched.
func NewInvalidFormatError(message string, cause error) *AppError {
	return NewAppError(ErrorTypeInvalidFormat, message, cause)
}

// NewUnsupportedVersionError reports a snapshot document produced by a newer
// schema version than this build supports.
func NewUnsupportedVersionError(documentVersion, supportedVersion int) *AppError {
	e := NewAppError(ErrorTypeUnsupportedVersion,
		fmt.Sprintf("snapshot version %d is newer than supported version %d", documentVersion, supportedVersion), nil)
	e.UserMessage = "This backup was created by a newer version of the app. Update the app and try again."
	return e.WithContext("document_version", documentVersion).
		WithContext("supported_version", supportedVersion)
}

// NewTransactionError reports a failure inside the restore transaction. The
// transaction has been rolled back and the store is unchanged.
func NewTransactionError(message string, cause error) *AppError {
	e := NewAppError(ErrorTypeTransaction, message, cause)
	e.UserMessage = "Restore failed. No data was changed."
	return e
}

// NewPermissionDeniedError reports a declined directory grant. Recoverable:
// the resolver falls back to internal storage.
func NewPermissionDeniedError(message string, cause error) *AppError {
	e := NewAppError(ErrorTypePermission, message, cause)
	e.Recoverable = true
	return e
}

// NewStorageWriteError reports a failed write to a previously granted
// directory. Recoverable: the cached grant is invalidated and the resolver
// falls back to internal storage.
func NewStorageWriteError(message string, cause error) *AppError {
	e := NewAppError(ErrorTypeStorageWrite, message, cause)
	e.Recoverable = true
	return e
}

// NewTotalStorageError reports that no writable location remains, including
// the internal fallback. Fatal for the export that raised it.
func NewTotalStorageError(message string, cause error) *AppError {
	e := NewAppError(ErrorTypeTotalStorage, message, cause)
	e.UserMessage = "The backup file could not be saved to any location."
	return e
}

// NewDatabaseError reports a store access failure outside the restore transaction
func NewDatabaseError(message string, cause error) *AppError {
	return NewAppError(ErrorTypeDatabase, message, cause)
}

// NewValidationError reports invalid configuration or input
func NewValidationError(message string, cause error) *AppError {
	return NewAppError(ErrorTypeValidation, message, cause)
}

// GetErrorType returns the error type of an error
func GetErrorType(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrorTypeUnknown
}

// IsType reports whether err carries the given taxonomy type
func IsType(err error, t ErrorType) bool {
	return GetErrorType(err) == t
}

// IsRecoverableError checks if an error is recoverable
func IsRecoverableError(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.IsRecoverable()
	}
	return false
}

// FormatUserError formats an error for display to users
func FormatUserError(err error) string {
	if err == nil {
		return ""
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.GetUserMessage()
	}

	return err.Error()
}

// ClassifyFileError maps common file system failures onto the taxonomy so
// storage placement code can decide between fallback and abort.
func ClassifyFileError(err error, path string) *AppError {
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		switch {
		case errors.Is(pathErr.Err, syscall.EACCES):
			return NewStorageWriteError(fmt.Sprintf("permission denied: %s", path), err)
		case errors.Is(pathErr.Err, syscall.ENOSPC):
			return NewStorageWriteError("no space left on device", err)
		case errors.Is(pathErr.Err, syscall.ENOENT):
			return NewStorageWriteError(fmt.Sprintf("directory no longer exists: %s", path), err)
		}
	}
	return NewStorageWriteError(fmt.Sprintf("write failed: %s", path), err)
}
