// Package viewer is a terminal consumer of a hoover server. It shows one stream
// live, refreshing while open, and can copy the text or ask for a snapshot.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	log "github.com/go-pkgz/lgr"

	"github.com/leynos/hoover/app/logcache"
)

// Config defines what to view and how
type Config struct {
	Client  *Client
	Stream  string // empty picks the first stream with captured lines
	Options logcache.Options
	Refresh time.Duration
}

// Run shows the stream in a full screen terminal ui until the user closes it or ctx is done
func Run(ctx context.Context, cfg Config) error {
	stream, err := cfg.Client.ResolveStream(ctx, cfg.Stream)
	if err != nil {
		return fmt.Errorf("can't pick stream: %w", err)
	}
	log.Printf("[DEBUG] viewing %s at %s", stream, cfg.Client.URL)

	m := newModel(ctx, cfg.Client, clipboard.WriteAll, stream, cfg.Options, cfg.Refresh)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}

// Dump writes a single materialization of the stream, for use when stdout is not a terminal
func Dump(ctx context.Context, w io.Writer, cfg Config) error {
	stream, err := cfg.Client.ResolveStream(ctx, cfg.Stream)
	if err != nil {
		return fmt.Errorf("can't pick stream: %w", err)
	}
	page, err := cfg.Client.Text(ctx, stream, cfg.Options)
	if err != nil {
		return fmt.Errorf("can't get %s: %w", stream, err)
	}
	if _, err := io.WriteString(w, page.Text); err != nil {
		return fmt.Errorf("can't write %s: %w", stream, err)
	}
	log.Printf("[DEBUG] dumped %s, %d lines", stream, page.Lines)
	return nil
}
