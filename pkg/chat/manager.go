package chat

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gigatui/gigatui/pkg/provider"
)

// Sender is the outbound capability the manager needs from a chat backend.
// It is satisfied by any provider.ChatClient.
type Sender interface {
	Send(ctx context.Context, req provider.Request) (*provider.Reply, error)
}

// Options configures a Manager.
type Options struct {
	// DefaultMaxTokens is the generation cap for new sessions. Bounds cost,
	// not model quality.
	DefaultMaxTokens int
	// SystemPrompt, when non-empty, is appended as the first message of
	// every new session.
	SystemPrompt string
	// Watcher, when non-nil, is notified before every save so it can tell
	// our writes apart from external ones.
	Watcher *StoreWatcher
}

// Manager coordinates sessions, the chat backend and persistence. Every
// mutation is written through to the repository; a crash loses at most the
// in-flight exchange.
type Manager struct {
	mu       sync.Mutex
	client   Sender
	repo     *Repository
	store    Store
	opts     Options
	inflight map[string]bool
}

// NewManager wraps an already-loaded store. Loading stays with the caller so
// it can decide what to do with a corrupt file; the manager never discards
// data on its own.
func NewManager(client Sender, repo *Repository, store Store, opts Options) *Manager {
	if store == nil {
		store = Store{}
	}
	if opts.DefaultMaxTokens <= 0 {
		opts.DefaultMaxTokens = 100
	}
	return &Manager{
		client:   client,
		repo:     repo,
		store:    store,
		opts:     opts,
		inflight: make(map[string]bool),
	}
}

// CreateSession creates, registers and persists an empty session.
func (m *Manager) CreateSession(title string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := NewSession(title, m.opts.DefaultMaxTokens)
	if m.opts.SystemPrompt != "" {
		s.Append(Message{Role: RoleSystem, Content: m.opts.SystemPrompt})
	}
	m.store[s.ID] = s
	if err := m.persistLocked(); err != nil {
		return nil, err
	}

	log.Info().Str("session", s.ID).Str("title", title).Msg("session created")
	return s, nil
}

// SessionSummary is a read-only view of a session for display. Summaries
// are safe to hold across exchanges; live sessions are not.
type SessionSummary struct {
	ID        string
	Title     string
	Messages  int
	CreatedAt time.Time
}

// ListSessions returns summaries of all sessions ordered by creation time.
func (m *Manager) ListSessions() []SessionSummary {
	m.mu.Lock()
	defer m.mu.Unlock()

	sessions := make([]*Session, 0, len(m.store))
	for _, s := range m.store {
		sessions = append(sessions, s)
	}
	slices.SortStableFunc(sessions, func(a, b *Session) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})

	summaries := make([]SessionSummary, len(sessions))
	for i, s := range sessions {
		summaries[i] = SessionSummary{
			ID:        s.ID,
			Title:     s.Title,
			Messages:  s.Len(),
			CreatedAt: s.CreatedAt,
		}
	}
	return summaries
}

// History returns a copy of a session's message history in creation order.
// The copy is taken under the manager lock, so it is safe to read while an
// exchange is appending to the same session.
func (m *Manager) History(sessionID string) ([]Message, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.store[sessionID]
	if !ok {
		return nil, false
	}
	return slices.Clone(s.Messages), true
}

// Session returns the session with the given id.
func (m *Manager) Session(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.store[id]
	return s, ok
}

// RenameSession retitles a session and persists the store.
func (m *Manager) RenameSession(id, title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.store[id]
	if !ok {
		return fmt.Errorf("unknown session %q", id)
	}
	s.Rename(title)
	return m.persistLocked()
}

// DeleteSession removes a session and persists the store. Deletion is the
// only way a session is destroyed.
func (m *Manager) DeleteSession(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.store[id]; !ok {
		return fmt.Errorf("unknown session %q", id)
	}
	delete(m.store, id)
	if err := m.persistLocked(); err != nil {
		return err
	}

	log.Info().Str("session", id).Msg("session deleted")
	return nil
}

// SendUserMessage runs one exchange: the user message is appended first,
// the backend is called with the pre-append history snapshot plus the new
// text, and on success the assistant message is appended and the store
// persisted. On failure the user message stays in memory and is persisted
// by the next successful save; it is never silently discarded, and no retry
// happens here.
//
// The call blocks until the backend responds or fails. At most one exchange
// per session may be outstanding; the lock is not held across the network
// call.
func (m *Manager) SendUserMessage(ctx context.Context, sessionID, text string) (Message, error) {
	m.mu.Lock()
	s, ok := m.store[sessionID]
	if !ok {
		m.mu.Unlock()
		return Message{}, fmt.Errorf("unknown session %q", sessionID)
	}
	if m.inflight[sessionID] {
		m.mu.Unlock()
		return Message{}, fmt.Errorf("session %q already has a message in flight", sessionID)
	}
	m.inflight[sessionID] = true

	history := make([]provider.Message, 0, s.Len()+1)
	for msg := range s.History() {
		history = append(history, provider.Message{Role: provider.Role(msg.Role), Content: msg.Content})
	}
	history = append(history, provider.Message{Role: provider.RoleUser, Content: text})

	s.Append(Message{Role: RoleUser, Content: text})
	maxTokens := s.MaxTokens
	if maxTokens <= 0 {
		maxTokens = m.opts.DefaultMaxTokens
	}
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.inflight, sessionID)
		m.mu.Unlock()
	}()

	reply, err := m.client.Send(ctx, provider.Request{Messages: history, MaxTokens: maxTokens})
	if err != nil {
		log.Warn().Err(err).Str("session", sessionID).Msg("send failed, user message kept")
		return Message{}, err
	}

	assistant := Message{Role: Role(reply.Message.Role), Content: reply.Message.Content}
	if !assistant.Role.Valid() {
		assistant.Role = RoleAssistant
	}

	m.mu.Lock()
	s.Append(assistant)
	err = m.persistLocked()
	m.mu.Unlock()
	if err != nil {
		return assistant, err
	}
	return assistant, nil
}

// persistLocked writes the whole store through the repository. Callers hold
// m.mu, so saves are serialized.
func (m *Manager) persistLocked() error {
	if m.opts.Watcher != nil {
		m.opts.Watcher.MarkSelfWrite()
	}
	return m.repo.SaveAll(m.store)
}
