package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zhouzirui/z-tavern/webchat/internal/model/chat"
)

var ErrEmptyReply = errors.New("responder returned an empty reply")

// Responder produces the bot's reply to input given the prior turns.
type Responder interface {
	Respond(ctx context.Context, history []chat.Message, input string) (string, error)
}

// EchoResponder repeats the input back, the default when no model is
// configured.
type EchoResponder struct{}

// Respond implements Responder.
func (EchoResponder) Respond(_ context.Context, _ []chat.Message, input string) (string, error) {
	return "You said: " + input, nil
}

// Service keeps a bounded in-memory history and delegates replies to a
// Responder. Nothing is persisted.
type Service struct {
	mu        sync.RWMutex
	responder Responder
	limit     int
	history   []chat.Message
}

// NewService keeps at most historyLimit messages, trimmed a whole turn at a
// time; zero disables history.
func NewService(responder Responder, historyLimit int) *Service {
	if responder == nil {
		responder = EchoResponder{}
	}
	if historyLimit < 0 {
		historyLimit = 0
	}
	return &Service{
		responder: responder,
		limit:     historyLimit,
		history:   make([]chat.Message, 0, historyLimit),
	}
}

// Reply asks the responder for an answer to input and records both turns.
// On failure nothing is recorded.
func (s *Service) Reply(ctx context.Context, input string) (chat.Message, error) {
	prior := s.History(ctx)

	text, err := s.responder.Respond(ctx, prior, input)
	if err != nil {
		return chat.Message{}, fmt.Errorf("generate reply: %w", err)
	}
	if text == "" {
		return chat.Message{}, ErrEmptyReply
	}

	now := time.Now().UTC()
	user := chat.Message{ID: uuid.NewString(), Role: chat.RoleUser, Text: input, CreatedAt: now}
	bot := chat.Message{ID: uuid.NewString(), Role: chat.RoleBot, Text: text, CreatedAt: now}

	s.mu.Lock()
	s.history = append(s.history, user, bot)
	if overflow := len(s.history) - s.limit; overflow > 0 {
		// Trim whole user/bot pairs; retained history always opens with a user turn.
		overflow += overflow % 2
		s.history = append(s.history[:0:0], s.history[overflow:]...)
	}
	s.mu.Unlock()

	return bot, nil
}

// History returns a copy of the retained messages, oldest first.
func (s *Service) History(_ context.Context) []chat.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	copied := make([]chat.Message, len(s.history))
	copy(copied, s.history)
	return copied
}

// Reset drops the retained history.
func (s *Service) Reset(_ context.Context) {
	s.mu.Lock()
	s.history = s.history[:0]
	s.mu.Unlock()
}
