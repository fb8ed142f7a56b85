// Package ports defines interfaces for external dependencies.
// Usecases depend on these abstractions; adapters implement them.
package ports

import (
	"context"

	"github.com/0xcro3dile/medicai-go/internal/domain/entities"
)

// UploadTransport sends a report to the backend.
type UploadTransport interface {
	// Upload starts sending the file and returns its event stream.
	// The stream carries non-decreasing progress values and ends with exactly
	// one terminal event (Done or Err) before it is closed.
	Upload(ctx context.Context, file entities.CandidateFile) (<-chan UploadEvent, error)
}

// UploadEvent is one notification of an upload stream.
type UploadEvent struct {
	Progress int   // 0-100
	Done     bool  // terminal: success
	Err      error // terminal: failure
}

// Terminal reports whether the event ends the stream.
func (e UploadEvent) Terminal() bool {
	return e.Done || e.Err != nil
}

// QueryDispatcher asks the backend a question about the uploaded report.
type QueryDispatcher interface {
	Query(ctx context.Context, text string) (string, error)
}

// FileLoader turns a local path into a candidate file.
type FileLoader interface {
	// Load stats the file and detects its type without reading it fully.
	Load(ctx context.Context, path string) (entities.CandidateFile, error)

	// SupportedExtensions returns file extensions this loader recognises.
	SupportedExtensions() []string
}

// TranscriptStore archives appended chat messages.
type TranscriptStore interface {
	// Record appends one message to the session's transcript.
	Record(ctx context.Context, sessionID string, msg entities.Message) error

	// Transcript returns the archived messages of a session in append order.
	Transcript(ctx context.Context, sessionID string) ([]entities.Message, error)

	// Sessions lists archived session IDs, most recent first.
	Sessions(ctx context.Context) ([]string, error)
}

// FileWatcher monitors a directory for changes.
type FileWatcher interface {
	// Watch starts monitoring the directory and emits events.
	Watch(ctx context.Context, dir string) (<-chan FileEvent, error)

	// Stop stops the watcher.
	Stop() error
}

// FileEvent represents a file system change.
type FileEvent struct {
	Path      string
	Operation FileOperation
}

// FileOperation is the type of file change.
type FileOperation int

const (
	FileCreated FileOperation = iota
	FileModified
	FileDeleted
)
