package chat

import (
	"iter"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Session is one ongoing conversation: a stable id, a display title and the
// ordered message history. MaxTokens is the per-session generation cap sent
// to the backend.
type Session struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	MaxTokens int       `json:"max_tokens"`
	CreatedAt time.Time `json:"created_at"`
}

// NewSession creates an empty session. An empty session is valid; messages
// arrive only after the first exchange.
func NewSession(title string, maxTokens int) *Session {
	id, _ := gonanoid.New()
	return &Session{
		ID:        id,
		Title:     title,
		Messages:  []Message{},
		MaxTokens: maxTokens,
		CreatedAt: time.Now().UTC(),
	}
}

// Append adds a message to the history, stamping CreatedAt when unset.
func (s *Session) Append(m Message) {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	s.Messages = append(s.Messages, m)
}

// History returns a restartable iteration over the messages in creation
// order. The sequence can be ranged over any number of times.
func (s *Session) History() iter.Seq[Message] {
	return func(yield func(Message) bool) {
		for _, m := range s.Messages {
			if !yield(m) {
				return
			}
		}
	}
}

// Rename sets the display title.
func (s *Session) Rename(title string) {
	s.Title = title
}

// Len returns the number of messages in the history.
func (s *Session) Len() int { return len(s.Messages) }

// Last returns the most recent message, if any.
func (s *Session) Last() (Message, bool) {
	if len(s.Messages) == 0 {
		return Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}
