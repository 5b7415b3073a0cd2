package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/mediax/internal/shared"
	"github.com/desertthunder/mediax/internal/stores"
	"github.com/desertthunder/mediax/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive terminal UI over a live app.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(r.config.Log.TUIPath)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	fileLogger.SetLevel(shared.ParseLogLevel(r.config.Log.Level))
	r.SetLogger(fileLogger)

	queue := stores.NewToastQueue(32)
	app, done, err := r.open(ctx, true, stores.MultiNotifier{queue, stores.NewLogNotifier(fileLogger)})
	if err != nil {
		return err
	}
	defer done()

	model := ui.NewModel(ctx, app, queue)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
