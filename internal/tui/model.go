// Package tui renders the terminal interface: a session picker and a chat
// view over the session manager. All state changes go through the manager;
// the TUI is a consumer of session state.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/gigatui/gigatui/pkg/chat"
	"github.com/gigatui/gigatui/pkg/provider"
)

// BalanceFunc queries the remaining token balance. Nil when the backend has
// no balance endpoint.
type BalanceFunc func(ctx context.Context) ([]provider.BalanceItem, error)

type view int

const (
	viewPicker view = iota
	viewTitle
	viewChat
)

// titleMode distinguishes what the title prompt is for.
type titleMode int

const (
	titleCreate titleMode = iota
	titleRename
)

// ---------- messages sent from the send goroutine ----------

type sendDoneMsg struct {
	sessionID string
	msg       chat.Message
}

type sendErrMsg struct {
	sessionID string
	err       error
}

type balanceMsg struct {
	items []provider.BalanceItem
	err   error
}

// ---------- styles ----------

var (
	headerStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("252")).
			Padding(0, 1)

	cursorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)

	assistantStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("2")).
			Bold(true)

	systemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Italic(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8"))
)

// Model is the bubbletea model for the whole application.
type Model struct {
	manager *chat.Manager
	backend string

	view     view
	titleFor titleMode
	sessions []chat.SessionSummary
	cursor   int

	// The open session is referenced by id only; history is read through
	// Manager.History so rendering never touches live session state.
	currentID    string
	currentTitle string

	input    textinput.Model
	viewport viewport.Model
	spin     spinner.Model

	balance     BalanceFunc
	balanceText string

	waiting bool
	pending string
	errText string

	width  int
	height int
	ready  bool
}

// NewModel creates the initial model showing the session picker. balance may
// be nil when the backend has no balance endpoint.
func NewModel(manager *chat.Manager, backend string, balance BalanceFunc) Model {
	input := textinput.New()
	input.Placeholder = "Type a message"
	input.CharLimit = 0

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	return Model{
		manager:  manager,
		backend:  backend,
		sessions: manager.ListSessions(),
		input:    input,
		spin:     spin,
		balance:  balance,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		vpHeight := msg.Height - 4
		if vpHeight < 1 {
			vpHeight = 1
		}
		if !m.ready {
			m.viewport = viewport.New(msg.Width, vpHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = vpHeight
		}
		m.input.Width = msg.Width - 4
		m.refreshViewport()
		return m, nil

	case spinner.TickMsg:
		if !m.waiting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case sendDoneMsg:
		m.waiting = false
		m.pending = ""
		m.errText = ""
		m.refreshViewport()
		m.viewport.GotoBottom()
		return m, nil

	case sendErrMsg:
		m.waiting = false
		m.pending = ""
		m.errText = msg.err.Error()
		m.refreshViewport()
		m.viewport.GotoBottom()
		return m, nil

	case balanceMsg:
		if msg.err != nil {
			m.errText = msg.err.Error()
			return m, nil
		}
		parts := make([]string, 0, len(msg.items))
		for _, item := range msg.items {
			parts = append(parts, fmt.Sprintf("%s: %.0f tokens", item.Usage, item.Value))
		}
		m.balanceText = strings.Join(parts, " · ")
		if m.balanceText == "" {
			m.balanceText = "no balance information returned"
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case viewPicker:
			return m.updatePicker(msg)
		case viewTitle:
			return m.updateTitle(msg)
		case viewChat:
			return m.updateChat(msg)
		}
	}

	return m, nil
}

func (m Model) updatePicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.sessions)-1 {
			m.cursor++
		}
	case "n":
		m.view = viewTitle
		m.titleFor = titleCreate
		m.input.Placeholder = "New chat title"
		m.input.SetValue("")
		m.input.Focus()
	case "r":
		if len(m.sessions) > 0 {
			m.view = viewTitle
			m.titleFor = titleRename
			m.input.Placeholder = "New title"
			m.input.SetValue(m.sessions[m.cursor].Title)
			m.input.Focus()
		}
	case "d":
		if len(m.sessions) > 0 {
			if err := m.manager.DeleteSession(m.sessions[m.cursor].ID); err != nil {
				m.errText = err.Error()
			} else {
				m.errText = ""
			}
			m.sessions = m.manager.ListSessions()
			if m.cursor >= len(m.sessions) && m.cursor > 0 {
				m.cursor--
			}
		}
	case "b":
		if m.balance == nil {
			m.errText = "balance is only available for the gigachat backend"
			return m, nil
		}
		return m, balanceCmd(m.balance)
	case "enter":
		if len(m.sessions) > 0 {
			m.currentID = m.sessions[m.cursor].ID
			m.currentTitle = m.sessions[m.cursor].Title
			m.view = viewChat
			m.errText = ""
			m.input.Placeholder = "Type a message"
			m.input.SetValue("")
			m.input.Focus()
			m.refreshViewport()
			m.viewport.GotoBottom()
		}
	}
	return m, nil
}

func (m Model) updateTitle(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.view = viewPicker
		return m, nil
	case "enter":
		title := strings.TrimSpace(m.input.Value())
		if title == "" {
			return m, nil
		}
		switch m.titleFor {
		case titleCreate:
			s, err := m.manager.CreateSession(title)
			if err != nil {
				m.errText = err.Error()
				m.view = viewPicker
				return m, nil
			}
			m.currentID = s.ID
			m.currentTitle = s.Title
			m.view = viewChat
			m.errText = ""
			m.input.Placeholder = "Type a message"
			m.input.SetValue("")
			m.refreshViewport()
		case titleRename:
			if err := m.manager.RenameSession(m.sessions[m.cursor].ID, title); err != nil {
				m.errText = err.Error()
			}
			m.view = viewPicker
		}
		m.sessions = m.manager.ListSessions()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateChat(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.view = viewPicker
		m.sessions = m.manager.ListSessions()
		m.errText = ""
		return m, nil
	case "up", "down", "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	case "enter":
		text := strings.TrimSpace(m.input.Value())
		// One outstanding exchange per session: input is ignored while a
		// send is in flight.
		if text == "" || m.waiting {
			return m, nil
		}
		m.waiting = true
		m.pending = text
		m.errText = ""
		m.input.SetValue("")
		m.refreshViewport()
		m.viewport.GotoBottom()
		return m, tea.Batch(m.spin.Tick, sendCmd(m.manager, m.currentID, text))
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// sendCmd runs the blocking exchange off the UI loop.
func sendCmd(manager *chat.Manager, sessionID, text string) tea.Cmd {
	return func() tea.Msg {
		reply, err := manager.SendUserMessage(context.Background(), sessionID, text)
		if err != nil {
			return sendErrMsg{sessionID: sessionID, err: err}
		}
		return sendDoneMsg{sessionID: sessionID, msg: reply}
	}
}

// balanceCmd runs the blocking balance query off the UI loop.
func balanceCmd(balance BalanceFunc) tea.Cmd {
	return func() tea.Msg {
		items, err := balance(context.Background())
		return balanceMsg{items: items, err: err}
	}
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "loading..."
	}
	switch m.view {
	case viewPicker:
		return m.viewPickerScreen()
	case viewTitle:
		return m.viewTitleScreen()
	default:
		return m.viewChatScreen()
	}
}

func (m Model) viewPickerScreen() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("gigatui — chats") + "\n\n")

	if len(m.sessions) == 0 {
		b.WriteString(helpStyle.Render("no chats yet") + "\n")
	}
	for i, s := range m.sessions {
		line := fmt.Sprintf("%s (%d messages)", s.Title, s.Messages)
		if i == m.cursor {
			line = cursorStyle.Render("> " + line)
		} else {
			line = "  " + line
		}
		b.WriteString(line + "\n")
	}

	if m.balanceText != "" {
		b.WriteString("\n" + helpStyle.Render("balance: "+m.balanceText) + "\n")
	}
	if m.errText != "" {
		b.WriteString("\n" + errorStyle.Render(m.errText) + "\n")
	}
	b.WriteString("\n" + helpStyle.Render("enter open · n new · r rename · d delete · b balance · q quit"))
	return b.String()
}

func (m Model) viewTitleScreen() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("gigatui — chat title") + "\n\n")
	b.WriteString(m.input.View() + "\n\n")
	b.WriteString(helpStyle.Render("enter confirm · esc cancel"))
	return b.String()
}

func (m Model) viewChatScreen() string {
	header := headerStyle.Render(fmt.Sprintf("gigatui — %s [%s]", m.currentTitle, m.backend))

	status := ""
	if m.waiting {
		status = m.spin.View() + " waiting for reply"
	} else if m.errText != "" {
		status = errorStyle.Render(m.errText)
	}

	return header + "\n" + m.viewport.View() + "\n" + status + "\n" + m.input.View()
}

// refreshViewport rebuilds the history rendering for the open session from a
// locked snapshot, so it never reads session state an in-flight exchange may
// be appending to.
func (m *Model) refreshViewport() {
	if m.currentID == "" || !m.ready {
		return
	}
	history, ok := m.manager.History(m.currentID)
	if !ok {
		return
	}

	// Once the in-flight user turn shows up in the snapshot, the local echo
	// is redundant.
	if n := len(history); m.pending != "" && n > 0 &&
		history[n-1].Role == chat.RoleUser && history[n-1].Content == m.pending {
		m.pending = ""
	}

	var b strings.Builder
	for _, msg := range history {
		b.WriteString(renderMessage(msg, m.backend))
		b.WriteString("\n")
	}
	if m.pending != "" {
		b.WriteString(renderMessage(chat.Message{Role: chat.RoleUser, Content: m.pending}, m.backend))
		b.WriteString("\n")
	}
	m.viewport.SetContent(b.String())
}

// renderMessage formats one history entry with its role label.
func renderMessage(msg chat.Message, backend string) string {
	switch msg.Role {
	case chat.RoleUser:
		return userStyle.Render("You") + "\n" + msg.Content + "\n"
	case chat.RoleAssistant:
		return assistantStyle.Render(backend) + "\n" + msg.Content + "\n"
	default:
		return systemStyle.Render("system: " + msg.Content + "\n")
	}
}
