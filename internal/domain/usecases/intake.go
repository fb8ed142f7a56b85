// Package usecases - intake.go handles report selection and upload.
package usecases

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/0xcro3dile/medicai-go/internal/domain/entities"
	"github.com/0xcro3dile/medicai-go/internal/domain/ports"
)

// IntakeListener observes the intake state machine.
type IntakeListener interface {
	UploadStateChanged(state entities.UploadState)
	ReadyForChat(doc entities.Document)
}

// IntakeListenerFuncs adapts plain functions to IntakeListener. Nil fields are skipped.
type IntakeListenerFuncs struct {
	OnState func(entities.UploadState)
	OnReady func(entities.Document)
}

func (f IntakeListenerFuncs) UploadStateChanged(state entities.UploadState) {
	if f.OnState != nil {
		f.OnState(state)
	}
}

func (f IntakeListenerFuncs) ReadyForChat(doc entities.Document) {
	if f.OnReady != nil {
		f.OnReady(doc)
	}
}

// IntakeState is a snapshot of the controller.
type IntakeState struct {
	Candidate  *entities.FileMeta // nil when no file is held
	Validation entities.ValidationState
	Upload     entities.UploadState
	ChatReady  bool
}

// IntakeController owns the candidate file and its upload.
// A second Submit while an upload is in progress is rejected.
type IntakeController struct {
	transport ports.UploadTransport
	now       func() time.Time

	mu        sync.Mutex
	candidate *entities.CandidateFile
	upload    entities.UploadState
	attempt   uint64
	chatReady bool
	listeners []IntakeListener
}

// NewIntakeController creates an IntakeController with injected dependencies.
func NewIntakeController(transport ports.UploadTransport, now func() time.Time) *IntakeController {
	if now == nil {
		now = time.Now
	}
	return &IntakeController{
		transport: transport,
		now:       now,
	}
}

// Subscribe registers a listener for upload transitions and the ready-for-chat signal.
func (c *IntakeController) Subscribe(l IntakeListener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, l)
}

// SelectFile replaces the candidate and validates it.
// An invalid selection still replaces the previous candidate.
// While an upload is in progress the selection is refused with
// ErrUploadInProgress so the file being sent never changes underneath it.
func (c *IntakeController) SelectFile(file entities.CandidateFile) (entities.ValidationState, error) {
	c.mu.Lock()
	if c.upload.Phase == entities.UploadInProgress {
		c.mu.Unlock()
		return entities.ValidationState{}, entities.ErrUploadInProgress
	}

	file.Validation = Validate(file.FileMeta)
	c.candidate = &file

	reset := c.upload.Phase != entities.UploadIdle
	c.upload = entities.UploadState{Phase: entities.UploadIdle}
	listeners := c.listenersLocked()
	c.mu.Unlock()

	if reset {
		notifyState(listeners, entities.UploadState{Phase: entities.UploadIdle})
	}
	return file.Validation, nil
}

// Clear drops the candidate and returns to Idle.
func (c *IntakeController) Clear() error {
	c.mu.Lock()
	if c.upload.Phase == entities.UploadInProgress {
		c.mu.Unlock()
		return entities.ErrUploadInProgress
	}
	c.candidate = nil
	c.upload = entities.UploadState{Phase: entities.UploadIdle}
	listeners := c.listenersLocked()
	c.mu.Unlock()

	notifyState(listeners, entities.UploadState{Phase: entities.UploadIdle})
	return nil
}

// Submit uploads the candidate and blocks until the transport reports an outcome.
func (c *IntakeController) Submit(ctx context.Context) error {
	c.mu.Lock()
	switch {
	case c.upload.Phase == entities.UploadInProgress:
		c.mu.Unlock()
		return entities.ErrUploadInProgress
	case c.candidate == nil:
		c.mu.Unlock()
		return entities.ErrNoFileSelected
	case !c.candidate.Validation.IsValid():
		reason := c.candidate.Validation.Reason
		c.mu.Unlock()
		return &entities.ValidationError{Reason: reason}
	}

	file := *c.candidate
	c.attempt++
	attempt := c.attempt
	c.upload = entities.UploadState{Phase: entities.UploadInProgress}
	listeners := c.listenersLocked()
	c.mu.Unlock()

	notifyState(listeners, entities.UploadState{Phase: entities.UploadInProgress})

	events, err := c.transport.Upload(ctx, file)
	if err != nil {
		return c.fail(attempt, file.Name, err)
	}

	for ev := range events {
		switch {
		case ev.Err != nil:
			return c.fail(attempt, file.Name, ev.Err)
		case ev.Done:
			c.succeed(attempt, file)
			return nil
		default:
			c.progress(attempt, ev.Progress)
		}
	}

	return c.fail(attempt, file.Name, &entities.NetworkError{
		Op:  "upload",
		Err: errors.New("stream closed without a result"),
	})
}

// State returns a snapshot of the controller.
func (c *IntakeController) State() IntakeState {
	c.mu.Lock()
	defer c.mu.Unlock()

	state := IntakeState{Upload: c.upload, ChatReady: c.chatReady}
	if c.candidate != nil {
		meta := c.candidate.FileMeta
		state.Candidate = &meta
		state.Validation = c.candidate.Validation
	}
	return state
}

func (c *IntakeController) progress(attempt uint64, percent int) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	c.mu.Lock()
	if attempt != c.attempt || c.upload.Phase != entities.UploadInProgress || percent <= c.upload.Percent {
		c.mu.Unlock()
		return
	}
	c.upload.Percent = percent
	state := c.upload
	listeners := c.listenersLocked()
	c.mu.Unlock()

	notifyState(listeners, state)
}

func (c *IntakeController) succeed(attempt uint64, file entities.CandidateFile) {
	c.mu.Lock()
	if attempt != c.attempt {
		c.mu.Unlock()
		return
	}
	c.upload = entities.UploadState{Phase: entities.UploadSucceeded, Percent: 100}
	c.candidate = nil
	c.chatReady = true
	state := c.upload
	listeners := c.listenersLocked()
	c.mu.Unlock()

	doc := entities.Document{
		Name:       file.Name,
		MimeType:   file.MimeType,
		SizeBytes:  file.SizeBytes,
		UploadedAt: c.now(),
	}
	notifyState(listeners, state)
	for _, l := range listeners {
		l.ReadyForChat(doc)
	}
}

func (c *IntakeController) fail(attempt uint64, name string, err error) error {
	wrapped := fmt.Errorf("uploading %s: %w", name, err)

	c.mu.Lock()
	if attempt != c.attempt {
		c.mu.Unlock()
		return wrapped
	}
	c.upload = entities.UploadState{
		Phase:   entities.UploadFailed,
		Percent: c.upload.Percent,
		Reason:  entities.UserMessage(err, entities.MsgUploadFailed),
	}
	state := c.upload
	listeners := c.listenersLocked()
	c.mu.Unlock()

	notifyState(listeners, state)
	return wrapped
}

func (c *IntakeController) listenersLocked() []IntakeListener {
	return append([]IntakeListener(nil), c.listeners...)
}

func notifyState(listeners []IntakeListener, state entities.UploadState) {
	for _, l := range listeners {
		l.UploadStateChanged(state)
	}
}
