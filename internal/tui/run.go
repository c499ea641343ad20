package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/gigatui/gigatui/pkg/chat"
)

// Run starts the interface in alt-screen mode and blocks until the user
// quits. balance may be nil when the backend has no balance endpoint.
func Run(manager *chat.Manager, backend string, balance BalanceFunc) error {
	p := tea.NewProgram(NewModel(manager, backend, balance), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
