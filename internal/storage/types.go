// Package storage resolves where generated files permanently live. It models
// the permission-scoped external directory chain of the mobile app: a cached
// directory grant, a user prompt when no grant is cached, and an internal
// app-storage fallback whenever the external path is denied or fails.
package storage

// Location describes where a stored file ended up
type Location string

const (
	// LocationInternal is the app's private directory
	LocationInternal Location = "internal"
	// LocationExternal is a user-granted external directory
	LocationExternal Location = "external"
	// LocationUnknown means no durable location accepted the file; the URI
	// points at the transient source and callers must present this as a
	// failure, not a success.
	LocationUnknown Location = "unknown"
)

// StoredFile is the result of persisting a generated file. It is created once
// per persist call and immutable afterward; ownership passes to the caller.
type StoredFile struct {
	// URI locates the stored file: a file:// URI, a grant:// URI, or on total
	// failure the original transient path.
	URI string `json:"uri"`
	// Location classifies where the file landed
	Location Location `json:"location"`
	// Notice carries a human explanation when placement deviated from the
	// preferred location; empty otherwise.
	Notice string `json:"notice,omitempty"`
	// DisplayPath is a short human-readable rendering of the destination
	DisplayPath string `json:"displayPath,omitempty"`
}
