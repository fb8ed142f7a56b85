// Package app wires adapters and usecases into one client session.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/0xcro3dile/medicai-go/internal/adapters/backend"
	"github.com/0xcro3dile/medicai-go/internal/adapters/loader"
	"github.com/0xcro3dile/medicai-go/internal/adapters/transcript"
	"github.com/0xcro3dile/medicai-go/internal/config"
	"github.com/0xcro3dile/medicai-go/internal/domain/entities"
	"github.com/0xcro3dile/medicai-go/internal/domain/ports"
	"github.com/0xcro3dile/medicai-go/internal/domain/usecases"
)

const recordTimeout = 5 * time.Second

type transcriptStore interface {
	ports.TranscriptStore
	Close() error
}

// App is one intake + chat session against a backend.
type App struct {
	SessionID  string
	Loader     *loader.LocalLoader
	Intake     *usecases.IntakeController
	Chat       *usecases.ChatSession
	Transcript ports.TranscriptStore

	store  transcriptStore
	logger *zap.Logger
}

// Options lets tests replace the backend adapters.
type Options struct {
	Transport  ports.UploadTransport
	Dispatcher ports.QueryDispatcher
}

// New builds the session. Every appended message is archived to the
// transcript store (SQLite when configured, memory otherwise).
func New(cfg *config.Config, logger *zap.Logger, opts Options) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	transport := opts.Transport
	if transport == nil {
		transport = backend.NewUploadTransport(cfg.BackendURL, cfg.UploadTimeout, logger)
	}
	dispatcher := opts.Dispatcher
	if dispatcher == nil {
		dispatcher = backend.NewQueryDispatcher(cfg.BackendURL, cfg.QueryTimeout, logger)
	}

	var store transcriptStore
	if cfg.TranscriptDB != "" {
		s, err := transcript.NewSQLiteStore(cfg.TranscriptDB)
		if err != nil {
			return nil, fmt.Errorf("opening transcript archive: %w", err)
		}
		store = s
	} else {
		store = transcript.NewInMemoryStore()
	}

	a := &App{
		SessionID:  uuid.NewString(),
		Loader:     loader.NewLocalLoader(),
		Intake:     usecases.NewIntakeController(transport, time.Now),
		Chat:       usecases.NewChatSession(dispatcher, usecases.ChatOptions{NewID: uuid.NewString}),
		Transcript: store,
		store:      store,
		logger:     logger.Named("session"),
	}
	a.Chat.Subscribe(a.archive)
	a.Intake.Subscribe(usecases.IntakeListenerFuncs{
		OnState: func(s entities.UploadState) {
			a.logger.Debug("upload state", zap.Stringer("phase", s.Phase), zap.Int("percent", s.Percent), zap.String("reason", s.Reason))
		},
		OnReady: func(doc entities.Document) {
			a.logger.Info("report ready for chat", zap.String("file", doc.Name), zap.Int64("bytes", doc.SizeBytes))
		},
	})

	a.logger.Debug("session started", zap.String("session_id", a.SessionID), zap.String("backend", cfg.BackendURL))
	return a, nil
}

// SelectPath loads a local file and makes it the intake candidate.
func (a *App) SelectPath(ctx context.Context, path string) (entities.CandidateFile, error) {
	file, err := a.Loader.Load(ctx, path)
	if err != nil {
		return entities.CandidateFile{}, err
	}
	state, err := a.Intake.SelectFile(file)
	if err != nil {
		return entities.CandidateFile{}, err
	}
	file.Validation = state
	return file, nil
}

// UploadPath selects and submits a local file in one step.
func (a *App) UploadPath(ctx context.Context, path string) error {
	file, err := a.SelectPath(ctx, path)
	if err != nil {
		return err
	}
	if !file.Validation.IsValid() {
		return &entities.ValidationError{Reason: file.Validation.Reason}
	}
	return a.Intake.Submit(ctx)
}

// Close releases the transcript archive.
func (a *App) Close() error {
	return a.store.Close()
}

func (a *App) archive(msg entities.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	if err := a.Transcript.Record(ctx, a.SessionID, msg); err != nil {
		a.logger.Warn("archiving message failed", zap.String("message_id", msg.ID), zap.Error(err))
	}
}

// IsRefusal reports errors that mean "not now" rather than failure.
func IsRefusal(err error) bool {
	return errors.Is(err, entities.ErrRequestInFlight) || errors.Is(err, entities.ErrUploadInProgress)
}
