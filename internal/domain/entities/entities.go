// Package entities contains core business entities.
// These are the enterprise business rules - pure domain objects with no external dependencies.
package entities

import (
	"io"
	"time"
)

// Supported report formats.
const (
	MimePDF  = "application/pdf"
	MimeDOC  = "application/msword"
	MimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimeText = "text/plain"
)

// MaxUploadBytes is the largest report the backend accepts (5 MB).
const MaxUploadBytes int64 = 5 * 1024 * 1024

// Validation reasons.
const (
	ReasonUnsupportedFormat = "unsupported format"
	ReasonTooLarge          = "too large"
)

// FileMeta is everything the validation policy is allowed to see about a file.
type FileMeta struct {
	Name      string
	MimeType  string
	SizeBytes int64
}

// ValidationStatus is the outcome class of validating a candidate file.
type ValidationStatus int

const (
	Unvalidated ValidationStatus = iota
	Valid
	Invalid
)

func (s ValidationStatus) String() string {
	switch s {
	case Valid:
		return "valid"
	case Invalid:
		return "invalid"
	default:
		return "unvalidated"
	}
}

// ValidationState is a status plus, for Invalid, the reason.
type ValidationState struct {
	Status ValidationStatus
	Reason string
}

// IsValid reports whether the state is Valid.
func (v ValidationState) IsValid() bool { return v.Status == Valid }

// CandidateFile is the single document held for upload.
// Open yields the file contents; validation never calls it.
type CandidateFile struct {
	FileMeta
	Validation ValidationState
	Open       func() (io.ReadCloser, error)
}

// UploadPhase is the state of the intake upload.
type UploadPhase int

const (
	UploadIdle UploadPhase = iota
	UploadInProgress
	UploadSucceeded
	UploadFailed
)

func (p UploadPhase) String() string {
	switch p {
	case UploadInProgress:
		return "in_progress"
	case UploadSucceeded:
		return "succeeded"
	case UploadFailed:
		return "failed"
	default:
		return "idle"
	}
}

// UploadState is owned by the intake controller.
// Percent only moves forward within one attempt.
type UploadState struct {
	Phase   UploadPhase
	Percent int
	Reason  string
}

// Document describes a report the backend has accepted.
type Document struct {
	Name       string
	MimeType   string
	SizeBytes  int64
	UploadedAt time.Time
}

// Sender identifies who authored a chat message.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// Message is one entry of the chat log. Immutable once appended.
type Message struct {
	ID        string
	Content   string
	Sender    Sender
	CreatedAt time.Time
}

// SessionRequestState tracks the single in-flight query of a chat session.
type SessionRequestState struct {
	Pending   bool
	LastError string
}
