package viewer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/leynos/hoover/app/logcache"
)

const (
	defaultRefresh = 500 * time.Millisecond
	statusTTL      = 1500 * time.Millisecond
)

// fetcher is the part of Client the model needs
type fetcher interface {
	Text(ctx context.Context, stream string, opts logcache.Options) (Page, error)
	Snapshot(ctx context.Context, stream string, opts logcache.Options) (int64, error)
}

// message types

type tickMsg struct{}

type fetchedMsg struct {
	opts logcache.Options
	page Page
	err  error
	poll bool // part of the refresh loop, schedules the next tick
}

type snapshotMsg struct {
	id  int64
	err error
}

type statusClearMsg struct {
	seq int
}

// model

type model struct {
	ctx     context.Context
	client  fetcher
	copy    func(string) error
	stream  string
	opts    logcache.Options
	refresh time.Duration

	page     Page
	pageOpts logcache.Options // options page was fetched with
	fetchErr error
	loaded   bool

	status    string
	statusErr bool
	statusSeq int

	viewport viewport.Model
	width    int
	height   int
	ready    bool
}

func newModel(ctx context.Context, client fetcher, copyFn func(string) error, stream string,
	opts logcache.Options, refresh time.Duration) model {
	if refresh <= 0 {
		refresh = defaultRefresh
	}
	return model{
		ctx:      ctx,
		client:   client,
		copy:     copyFn,
		stream:   stream,
		opts:     opts,
		pageOpts: opts,
		refresh:  refresh,
		viewport: viewport.New(0, 0),
	}
}

// Init fetches the stream right away, the refresh loop continues from fetchedMsg
func (m model) Init() tea.Cmd {
	return m.fetch()
}

// Update handles messages.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.viewport.Width = max(msg.Width-2, 0)
		m.viewport.Height = max(msg.Height-4, 0) // header, help and the panel border
		m.ready = true
		m.setContent()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, keys.Numbers):
			m.opts.Index = !m.opts.Index
			return m, m.refetch()

		case key.Matches(msg, keys.Timestamps):
			m.opts.Timestamp = !m.opts.Timestamp
			return m, m.refetch()

		case key.Matches(msg, keys.Copy):
			if m.pageOpts != m.opts {
				return m, m.setStatus("refreshing...", false)
			}
			if err := m.copy(m.page.Text); err != nil {
				return m, m.setStatus("Error Copying", true)
			}
			return m, m.setStatus("Copied!", false)

		case key.Matches(msg, keys.Snapshot):
			return m, m.snapshot()
		}

		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case tickMsg:
		return m, m.fetch()

	case fetchedMsg:
		var next tea.Cmd
		if msg.poll {
			next = tea.Tick(m.refresh, func(time.Time) tea.Msg { return tickMsg{} })
		}
		// options toggled while the request was in flight, a newer fetch carries them
		if msg.opts != m.opts {
			return m, next
		}
		m.fetchErr = msg.err
		if msg.err != nil {
			return m, next
		}
		m.page, m.pageOpts = msg.page, msg.opts
		m.loaded = true
		m.setContent()
		return m, next

	case snapshotMsg:
		if msg.err != nil {
			return m, m.setStatus("Error saving snapshot", true)
		}
		return m, m.setStatus(fmt.Sprintf("Snapshot #%d saved", msg.id), false)

	case statusClearMsg:
		if msg.seq == m.statusSeq {
			m.status = ""
		}
		return m, nil
	}

	return m, nil
}

// View renders the header, the captured text and the key help
func (m model) View() string {
	if !m.ready {
		return "loading..."
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.header(),
		stylePanel.Render(m.viewport.View()),
		m.help(),
	)
}

func (m model) header() string {
	parts := []string{
		styleTitle.Render(m.stream),
		"Lines captured: " + styleCount.Render(fmt.Sprintf("%d", m.page.Lines)),
		toggle("numbers", m.opts.Index),
		toggle("timestamps", m.opts.Timestamp),
	}
	switch {
	case m.status != "" && m.statusErr:
		parts = append(parts, styleStatusErr.Render(m.status))
	case m.status != "":
		parts = append(parts, styleStatusOK.Render(m.status))
	case m.fetchErr != nil:
		parts = append(parts, styleStatusErr.Render("error: "+m.fetchErr.Error()))
	}
	return strings.Join(parts, "  ")
}

func (m model) help() string {
	items := make([]string, 0, len(keys.help()))
	for _, b := range keys.help() {
		h := b.Help()
		items = append(items, h.Key+" "+h.Desc)
	}
	return styleHelp.Render(strings.Join(items, " • "))
}

func toggle(name string, on bool) string {
	if on {
		return styleToggleOn.Render(name + " on")
	}
	return styleToggleOff.Render(name + " off")
}

// setContent refreshes the viewport, following the tail when it was at the bottom
func (m *model) setContent() {
	follow := m.viewport.AtBottom() || !m.loaded
	text := m.page.Text
	if !m.loaded {
		text = "waiting for " + m.stream + "..."
	}
	m.viewport.SetContent(text)
	if follow {
		m.viewport.GotoBottom()
	}
}

// setStatus shows a transient status and schedules its removal
func (m *model) setStatus(text string, isErr bool) tea.Cmd {
	m.statusSeq++
	m.status, m.statusErr = text, isErr
	seq := m.statusSeq
	return tea.Tick(statusTTL, func(time.Time) tea.Msg { return statusClearMsg{seq: seq} })
}

// fetch is one step of the refresh loop
func (m model) fetch() tea.Cmd {
	return m.fetchText(true)
}

// refetch loads the text for changed options right away, outside the refresh loop
func (m model) refetch() tea.Cmd {
	return m.fetchText(false)
}

func (m model) fetchText(poll bool) tea.Cmd {
	ctx, client, stream, opts := m.ctx, m.client, m.stream, m.opts
	return func() tea.Msg {
		page, err := client.Text(ctx, stream, opts)
		return fetchedMsg{opts: opts, page: page, err: err, poll: poll}
	}
}

func (m model) snapshot() tea.Cmd {
	ctx, client, stream, opts := m.ctx, m.client, m.stream, m.opts
	return func() tea.Msg {
		id, err := client.Snapshot(ctx, stream, opts)
		return snapshotMsg{id: id, err: err}
	}
}
