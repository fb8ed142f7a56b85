package http

import (
	"time"

	"github.com/0xcro3dile/medicai-go/internal/domain/entities"
	"github.com/0xcro3dile/medicai-go/internal/domain/usecases"
)

type uploadView struct {
	Phase   string `json:"phase"`
	Percent int    `json:"percent"`
	Reason  string `json:"reason,omitempty"`
}

func newUploadView(s entities.UploadState) uploadView {
	return uploadView{Phase: s.Phase.String(), Percent: s.Percent, Reason: s.Reason}
}

type candidateView struct {
	Name       string `json:"name"`
	MimeType   string `json:"mime_type"`
	SizeBytes  int64  `json:"size_bytes"`
	Validation string `json:"validation"`
	Reason     string `json:"reason,omitempty"`
}

type documentView struct {
	Name       string    `json:"name"`
	MimeType   string    `json:"mime_type"`
	SizeBytes  int64     `json:"size_bytes"`
	UploadedAt time.Time `json:"uploaded_at"`
}

type messageView struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Sender    string    `json:"sender"`
	CreatedAt time.Time `json:"created_at"`
}

func newMessageView(m entities.Message) messageView {
	return messageView{ID: m.ID, Content: m.Content, Sender: string(m.Sender), CreatedAt: m.CreatedAt}
}

type chatView struct {
	Pending   bool   `json:"pending"`
	LastError string `json:"last_error,omitempty"`
}

type stateView struct {
	Candidate *candidateView `json:"candidate"`
	Upload    uploadView     `json:"upload"`
	ChatReady bool           `json:"chat_ready"`
	Chat      chatView       `json:"chat"`
	Messages  []messageView  `json:"messages"`
}

func newCandidateView(meta entities.FileMeta, v entities.ValidationState) *candidateView {
	view := &candidateView{
		Name:       meta.Name,
		MimeType:   meta.MimeType,
		SizeBytes:  meta.SizeBytes,
		Validation: v.Status.String(),
	}
	if v.Reason != "" {
		view.Reason = entities.DisplayReason(v.Reason)
	}
	return view
}

func newStateView(intake usecases.IntakeState, chat entities.SessionRequestState, msgs []entities.Message) stateView {
	view := stateView{
		Upload:    newUploadView(intake.Upload),
		ChatReady: intake.ChatReady,
		Chat:      chatView{Pending: chat.Pending, LastError: chat.LastError},
		Messages:  newMessageViews(msgs),
	}
	if intake.Candidate != nil {
		view.Candidate = newCandidateView(*intake.Candidate, intake.Validation)
	}
	return view
}

func newMessageViews(msgs []entities.Message) []messageView {
	views := make([]messageView, 0, len(msgs))
	for _, m := range msgs {
		views = append(views, newMessageView(m))
	}
	return views
}
