package tui

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gigatui/gigatui/pkg/chat"
	"github.com/gigatui/gigatui/pkg/provider"
)

// slowSender answers after a delay, keeping the exchange in flight long
// enough for the UI loop to run concurrently with it.
type slowSender struct {
	delay time.Duration
}

func (s *slowSender) Send(ctx context.Context, req provider.Request) (*provider.Reply, error) {
	time.Sleep(s.delay)
	return &provider.Reply{
		Message: provider.Message{Role: provider.RoleAssistant, Content: "Hi there"},
	}, nil
}

func newTestManager(t *testing.T, client chat.Sender) *chat.Manager {
	t.Helper()
	repo, err := chat.NewRepository(filepath.Join(t.TempDir(), "chats.json"))
	require.NoError(t, err)
	return chat.NewManager(client, repo, chat.Store{}, chat.Options{DefaultMaxTokens: 100})
}

func newTestModel(t *testing.T) Model {
	t.Helper()
	manager := newTestManager(t, nil)
	_, err := manager.CreateSession("alpha")
	require.NoError(t, err)
	_, err = manager.CreateSession("beta")
	require.NoError(t, err)
	return NewModel(manager, "gigachat", nil)
}

func TestRenderMessage(t *testing.T) {
	user := renderMessage(chat.Message{Role: chat.RoleUser, Content: "hello"}, "gigachat")
	assert.Contains(t, user, "You")
	assert.Contains(t, user, "hello")

	assistant := renderMessage(chat.Message{Role: chat.RoleAssistant, Content: "hi"}, "gigachat")
	assert.Contains(t, assistant, "gigachat")
	assert.Contains(t, assistant, "hi")

	system := renderMessage(chat.Message{Role: chat.RoleSystem, Content: "rules"}, "gigachat")
	assert.Contains(t, system, "system")
}

func TestModelStartsOnPicker(t *testing.T) {
	m := newTestModel(t)
	assert.Len(t, m.sessions, 2)

	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	m = next.(Model)
	view := m.View()
	assert.Contains(t, view, "alpha")
	assert.Contains(t, view, "beta")
}

func TestModelPickerNavigation(t *testing.T) {
	m := newTestModel(t)
	require.Equal(t, 0, m.cursor)

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = next.(Model)
	assert.Equal(t, 1, m.cursor)

	// Cursor never runs past the last session.
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = next.(Model)
	assert.Equal(t, 1, m.cursor)

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	m = next.(Model)
	assert.Equal(t, 0, m.cursor)
}

func TestModelOpensChatOnEnter(t *testing.T) {
	m := newTestModel(t)

	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	m = next.(Model)
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)

	require.NotEmpty(t, m.currentID)
	assert.Equal(t, "alpha", m.currentTitle)
	assert.Equal(t, viewChat, m.view)
}

func TestModelDeleteSession(t *testing.T) {
	m := newTestModel(t)

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'d'}})
	m = next.(Model)

	assert.Len(t, m.sessions, 1)
	assert.Equal(t, "beta", m.sessions[0].Title)
}

func TestModelResizeDuringSend(t *testing.T) {
	manager := newTestManager(t, &slowSender{delay: 50 * time.Millisecond})
	s, err := manager.CreateSession("t")
	require.NoError(t, err)

	m := NewModel(manager, "gigachat", nil)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	m = next.(Model)
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)

	// Resize (and thus re-render the history) continuously while the
	// exchange appends to the same session from its own goroutine.
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := manager.SendUserMessage(context.Background(), s.ID, "hello")
		assert.NoError(t, err)
	}()
	for {
		select {
		case <-done:
			next, _ = m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
			m = next.(Model)
			assert.Contains(t, m.View(), "Hi there")
			return
		default:
			next, _ = m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
			m = next.(Model)
		}
	}
}

func TestModelPendingEchoNotDuplicated(t *testing.T) {
	manager := newTestManager(t, &slowSender{})
	s, err := manager.CreateSession("t")
	require.NoError(t, err)

	m := NewModel(manager, "gigachat", nil)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	m = next.(Model)
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)

	// The user turn is both locally echoed and already appended, as it is
	// while a send is in flight.
	m.pending = "hello"
	_, err = manager.SendUserMessage(context.Background(), s.ID, "hello")
	require.NoError(t, err)

	m.refreshViewport()
	assert.Empty(t, m.pending, "the echo is dropped once the turn is in the history")
	assert.Equal(t, 1, strings.Count(m.viewport.View(), "hello"))
}

func TestModelBalance(t *testing.T) {
	manager := newTestManager(t, nil)
	m := NewModel(manager, "gigachat", func(ctx context.Context) ([]provider.BalanceItem, error) {
		return []provider.BalanceItem{{Usage: "GigaChat", Value: 4250}}, nil
	})
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	m = next.(Model)

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'b'}})
	m = next.(Model)
	require.NotNil(t, cmd)

	next, _ = m.Update(cmd())
	m = next.(Model)
	assert.Contains(t, m.View(), "GigaChat: 4250 tokens")
}

func TestModelBalanceUnavailable(t *testing.T) {
	manager := newTestManager(t, nil)
	m := NewModel(manager, "openai", nil)

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'b'}})
	m = next.(Model)

	assert.Nil(t, cmd)
	assert.Contains(t, m.errText, "balance")
}
