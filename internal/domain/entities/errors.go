package entities

import (
	"errors"
	"fmt"
)

// Refusals and local validation failures.
var (
	ErrNoFileSelected   = errors.New("no file selected")
	ErrEmptyInput       = errors.New("empty input")
	ErrRequestInFlight  = errors.New("request already in flight")
	ErrUploadInProgress = errors.New("upload already in progress")
)

// User-facing fallbacks when no server message is available.
const (
	MsgNoFileSelected = "Please select a file before uploading"
	MsgEmptyInput     = "Please enter a question."
	MsgUploadFailed   = "Error uploading file. Please try again."
	MsgQueryFailed    = "An error occurred while querying AI."
)

// ValidationError is returned by submit when the candidate failed validation.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Reason
}

// NetworkError means no response was received from the backend.
type NetworkError struct {
	Op      string
	Timeout bool
	Err     error
}

func (e *NetworkError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("%s: request timed out: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ServerError means the backend answered with an error response.
// Message is the backend's own text and may be empty.
type ServerError struct {
	Op      string
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: server returned status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: server returned status %d: %s", e.Op, e.Status, e.Message)
}

// DisplayReason maps a validation reason to the text shown to the user.
func DisplayReason(reason string) string {
	switch reason {
	case ReasonUnsupportedFormat:
		return "Unsupported file format. Please upload a PDF, DOCX, DOC, or TXT file."
	case ReasonTooLarge:
		return "File size must be less than 5MB"
	default:
		return reason
	}
}

// UserMessage renders err for display. Server messages are shown verbatim;
// anything else falls back to the given generic text.
func UserMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}

	var serverErr *ServerError
	if errors.As(err, &serverErr) && serverErr.Message != "" {
		return serverErr.Message
	}

	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return DisplayReason(validationErr.Reason)
	}

	switch {
	case errors.Is(err, ErrNoFileSelected):
		return MsgNoFileSelected
	case errors.Is(err, ErrEmptyInput):
		return MsgEmptyInput
	}
	return fallback
}
