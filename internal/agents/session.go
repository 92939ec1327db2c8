package agents

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "stockdesk/internal/errors"
	"stockdesk/internal/models"
)

// DefaultMaxHistory bounds a session's conversation when none is configured.
const DefaultMaxHistory = 20

// ChatSession is one assistant conversation. It is created when the user
// opens a chat, cleared on Reset, and never written to the store.
type ChatSession struct {
	ID string

	client     ChatClient
	system     string
	maxHistory int
	now        func() time.Time

	mu      sync.Mutex
	history []models.ChatMessage
}

// NewChatSession starts an empty session. maxHistory below 2 falls back to
// DefaultMaxHistory so a question and its answer always fit.
func NewChatSession(client ChatClient, systemPrompt string, maxHistory int) *ChatSession {
	if maxHistory < 2 {
		maxHistory = DefaultMaxHistory
	}
	if systemPrompt == "" {
		systemPrompt = SystemPrompt
	}
	return &ChatSession{
		ID:         uuid.New().String(),
		client:     client,
		system:     systemPrompt,
		maxHistory: maxHistory,
		now:        time.Now,
	}
}

// Send appends message to the history, asks the model for a reply and
// records it. On failure the user's message is dropped again so a retry
// does not duplicate it.
func (s *ChatSession) Send(ctx context.Context, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", apperrors.NewValidationError("message", message, "message cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = append(s.history, models.ChatMessage{Role: models.RoleUser, Content: message, Timestamp: s.now()})
	s.trim()

	reply, err := s.client.Chat(ctx, s.system, append([]models.ChatMessage(nil), s.history...))
	if err != nil {
		s.history = s.history[:len(s.history)-1]
		return "", err
	}

	s.history = append(s.history, models.ChatMessage{Role: models.RoleAssistant, Content: reply, Timestamp: s.now()})
	s.trim()
	return reply, nil
}

// Focus pins a stock's resolved view into the system prompt so follow-up
// questions are answered about that stock.
func (s *ChatSession) Focus(prompt string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	base := s.system
	if i := strings.Index(base, focusMarker); i >= 0 {
		base = base[:i]
	}
	s.system = base + focusMarker + prompt
}

const focusMarker = "\n\nCurrent stock context:\n"

// Reset clears the conversation.
func (s *ChatSession) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
}

// History returns a copy of the conversation so far, oldest first.
func (s *ChatSession) History() []models.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.ChatMessage(nil), s.history...)
}

// trim drops the oldest messages beyond maxHistory. Callers hold mu.
func (s *ChatSession) trim() {
	if over := len(s.history) - s.maxHistory; over > 0 {
		s.history = append([]models.ChatMessage(nil), s.history[over:]...)
	}
}
