// Package tui is the interactive dashboard: a task table with live push
// updates, filter and edit forms, and a delete confirmation overlay. All
// state changes flow through the board controller; the TUI only renders the
// cache and translates keys into board calls.
package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"taskdeck/internal/api"
	"taskdeck/internal/board"
	"taskdeck/internal/push"
	"taskdeck/internal/session"
)

// Options wires the dashboard to a signed-in session.
type Options struct {
	Client  *api.Client
	Session *session.Session
	PushURL string
}

// Run blocks until the user quits or ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	b := board.New(opts.Client, opts.Session.Resolver())

	notices := make(chan board.Notice, 16)
	b.OnNotice(func(n board.Notice) {
		select {
		case notices <- n:
		default:
		}
	})

	m := newModel(ctx, b, opts.Session, notices)

	// A dead push channel degrades to manual refresh, it does not block the
	// dashboard from opening.
	listener, err := push.Dial(ctx, opts.PushURL, opts.Session.AccessToken)
	if err != nil {
		m.pushErr = err
	} else {
		m.listener = listener
		defer listener.Close()
	}

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}
