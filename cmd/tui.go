package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/folio/internal/services"
	"github.com/desertthunder/folio/internal/shared"
	"github.com/desertthunder/folio/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the now-playing viewer against a running server.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	api := r.api
	if url := cmd.String("url"); url != "" {
		api = services.NewAPIService(url, r.httpClient)
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(cmd.String("log-file"))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	if err := api.Health(ctx); err != nil {
		r.logger.Warn("server not reachable yet", "url", api.BaseURL(), "error", err)
	}

	model := ui.NewModel(ctx, api, cmd.Duration("interval"))
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
