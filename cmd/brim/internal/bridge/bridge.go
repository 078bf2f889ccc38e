// Package bridge wakes the bubbletea program whenever the owner loop has
// queued work, so that the work runs inside Update.
package bridge

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/germanamz/brim/cmd/brim/internal/msgs"
)

// Sender is the part of *tea.Program the bridge needs.
type Sender interface {
	Send(msg tea.Msg)
}

// Run forwards every readiness signal from ready to s as a msgs.DrainMsg
// until ctx is done. It only calls s.Send and never touches model state.
func Run(ctx context.Context, ready <-chan struct{}, s Sender) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ready:
			s.Send(msgs.DrainMsg{})
		}
	}
}
