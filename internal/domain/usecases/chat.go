// Package usecases - chat.go owns the question/answer log.
package usecases

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/0xcro3dile/medicai-go/internal/domain/entities"
	"github.com/0xcro3dile/medicai-go/internal/domain/ports"
)

// LogListener is called after every append to the message log.
type LogListener func(msg entities.Message)

// ChatOptions configures a ChatSession. Zero values get defaults.
type ChatOptions struct {
	Now   func() time.Time
	NewID func() string
}

// ChatSession owns the ordered message log and allows one query at a time.
// A failed query keeps the user's question in the log; nothing is rolled back.
type ChatSession struct {
	dispatcher ports.QueryDispatcher
	now        func() time.Time
	newID      func() string

	mu        sync.Mutex
	log       []entities.Message
	state     entities.SessionRequestState
	listeners []LogListener
}

// NewChatSession creates a ChatSession with injected dependencies.
func NewChatSession(dispatcher ports.QueryDispatcher, opts ChatOptions) *ChatSession {
	s := &ChatSession{
		dispatcher: dispatcher,
		now:        opts.Now,
		newID:      opts.NewID,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		var seq int
		s.newID = func() string {
			seq++ // always called under s.mu
			return "msg-" + strconv.Itoa(seq)
		}
	}
	return s
}

// Subscribe registers a "log changed" listener.
func (s *ChatSession) Subscribe(l LogListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// Send appends the question, dispatches it and appends the answer.
// It returns the assistant message on success.
func (s *ChatSession) Send(ctx context.Context, text string) (entities.Message, error) {
	content := strings.TrimSpace(text)
	if content == "" {
		return entities.Message{}, entities.ErrEmptyInput
	}

	s.mu.Lock()
	if s.state.Pending {
		s.mu.Unlock()
		return entities.Message{}, entities.ErrRequestInFlight
	}
	question := s.appendLocked(entities.SenderUser, content)
	s.state = entities.SessionRequestState{Pending: true}
	listeners := s.listenersLocked()
	s.mu.Unlock()

	notifyLog(listeners, question)

	answer, err := s.dispatcher.Query(ctx, content)

	s.mu.Lock()
	if err != nil {
		s.state = entities.SessionRequestState{
			Pending:   false,
			LastError: entities.UserMessage(err, entities.MsgQueryFailed),
		}
		s.mu.Unlock()
		return entities.Message{}, fmt.Errorf("querying: %w", err)
	}
	reply := s.appendLocked(entities.SenderAssistant, answer)
	s.state.Pending = false
	listeners = s.listenersLocked()
	s.mu.Unlock()

	notifyLog(listeners, reply)
	return reply, nil
}

// Messages returns a copy of the log in display order.
func (s *ChatSession) Messages() []entities.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]entities.Message(nil), s.log...)
}

// State returns the request state.
func (s *ChatSession) State() entities.SessionRequestState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *ChatSession) appendLocked(sender entities.Sender, content string) entities.Message {
	msg := entities.Message{
		ID:        s.newID(),
		Content:   content,
		Sender:    sender,
		CreatedAt: s.now(),
	}
	s.log = append(s.log, msg)
	return msg
}

func (s *ChatSession) listenersLocked() []LogListener {
	return append([]LogListener(nil), s.listeners...)
}

func notifyLog(listeners []LogListener, msg entities.Message) {
	for _, l := range listeners {
		l(msg)
	}
}
