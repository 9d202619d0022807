package monitor

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/wifiapp/internal/portal"
)

// Run subscribes to the portal and shows the dashboard until the user quits
// or ctx is done.
func Run(ctx context.Context, client *portal.Client) error {
	sub, err := client.Subscribe(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = sub.Close() }()

	model := NewModel(client.BaseURL, sub, client)
	model.width = GetTerminalWidth()

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("monitor failed: %w", err)
	}
	return nil
}
