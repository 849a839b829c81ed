// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"

	"github.com/bureau-foundation/xyv/lib/clock"
	"github.com/bureau-foundation/xyv/lib/hostlink"
)

const refreshInterval = 100 * time.Millisecond

type dashboardKeys struct {
	Pause key.Binding
	Quit  key.Binding
}

var defaultDashboardKeys = dashboardKeys{
	Pause: key.NewBinding(
		key.WithKeys("p", " "),
		key.WithHelp("p", "pause"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c", "esc"),
		key.WithHelp("q", "quit"),
	),
}

type dashboardStyles struct {
	title   lipgloss.Style
	live    lipgloss.Style
	stale   lipgloss.Style
	paused  lipgloss.Style
	key     lipgloss.Style
	faint   lipgloss.Style
	section lipgloss.Style
	plain   lipgloss.Style
}

func newDashboardStyles(renderer *lipgloss.Renderer) dashboardStyles {
	return dashboardStyles{
		title:   renderer.NewStyle().Bold(true),
		live:    renderer.NewStyle().Foreground(lipgloss.Color("2")).Bold(true),
		stale:   renderer.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		paused:  renderer.NewStyle().Foreground(lipgloss.Color("3")).Bold(true),
		key:     renderer.NewStyle().Foreground(lipgloss.Color("6")),
		faint:   renderer.NewStyle().Faint(true),
		section: renderer.NewStyle().Underline(true),
		plain:   renderer.NewStyle(),
	}
}

// newRenderer returns a renderer for w, forced to plain text when color
// is false.
func newRenderer(w io.Writer, color bool) *lipgloss.Renderer {
	if !color {
		renderer := lipgloss.NewRenderer(w, termenv.WithProfile(termenv.Ascii))
		renderer.SetColorProfile(termenv.Ascii)
		return renderer
	}
	return lipgloss.NewRenderer(w)
}

// refreshMsg asks the dashboard to re-read the board.
type refreshMsg time.Time

// sourceDoneMsg reports that the input ended, with the error that ended
// it if any.
type sourceDoneMsg struct{ err error }

// dashboard renders a Board. The board is filled by another goroutine;
// the dashboard only takes snapshots of it.
type dashboard struct {
	board  *hostlink.Board
	clock  clock.Clock
	keys   dashboardKeys
	styles dashboardStyles
	title  string
	replay bool

	width  int
	height int

	snapshot hostlink.Snapshot
	stale    bool
	paused   bool
	ended    bool
	err      error
}

func newDashboard(board *hostlink.Board, clk clock.Clock, renderer *lipgloss.Renderer, title string, replay bool) dashboard {
	return dashboard{
		board:  board,
		clock:  clk,
		keys:   defaultDashboardKeys,
		styles: newDashboardStyles(renderer),
		title:  title,
		replay: replay,
		width:  80,
		height: 24,
	}
}

func (d dashboard) Init() tea.Cmd {
	return d.scheduleRefresh()
}

func (d dashboard) scheduleRefresh() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return refreshMsg(t) })
}

func (d *dashboard) refresh() {
	d.snapshot = d.board.Snapshot()
	d.stale = d.board.Stale(d.clock.Now())
}

func (d dashboard) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case tea.WindowSizeMsg:
		d.width = message.Width
		d.height = message.Height
		return d, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(message, d.keys.Quit):
			return d, tea.Quit
		case key.Matches(message, d.keys.Pause):
			d.paused = !d.paused
			if !d.paused {
				d.refresh()
			}
		}
		return d, nil

	case refreshMsg:
		if !d.paused {
			d.refresh()
		}
		return d, d.scheduleRefresh()

	case sourceDoneMsg:
		d.ended = true
		d.err = message.err
		d.refresh()
		return d, nil
	}
	return d, nil
}

func (d dashboard) status() string {
	switch {
	case d.err != nil:
		return d.styles.stale.Render("FAILED")
	case d.paused:
		return d.styles.paused.Render("PAUSED")
	case d.ended:
		return d.styles.faint.Render("ENDED")
	case d.replay:
		return d.styles.live.Render("REPLAY")
	case d.stale:
		return d.styles.stale.Render("STALE")
	default:
		return d.styles.live.Render("LIVE")
	}
}

func (d dashboard) View() string {
	snapshot := d.snapshot
	var lines []string

	header := fmt.Sprintf("%s  %s  t=%.3fs  frames %d  heartbeats %d  restarts %d  malformed %d",
		d.styles.title.Render(ansi.Strip(d.title)), d.status(), snapshot.NowSec,
		snapshot.Frames, snapshot.Heartbeats, snapshot.Restarts, snapshot.Malformed)
	lines = append(lines, header)
	if d.err != nil {
		lines = append(lines, d.styles.stale.Render("error: "+ansi.Strip(d.err.Error())))
	}
	lines = append(lines, "")

	lines = append(lines, d.styles.section.Render("Values"))
	keyWidth := 0
	for _, value := range snapshot.Values {
		keyWidth = max(keyWidth, ansi.StringWidth(ansi.Strip(value.Key)))
	}
	if len(snapshot.Values) == 0 {
		lines = append(lines, d.styles.faint.Render("  (none yet)"))
	}
	for _, value := range snapshot.Values {
		name := ansi.Strip(value.Key)
		padding := strings.Repeat(" ", keyWidth-ansi.StringWidth(name))
		lines = append(lines, fmt.Sprintf("  %s  %s  %s",
			d.styles.key.Render(name+padding),
			ansi.Strip(string(value.Raw)),
			d.styles.faint.Render(fmt.Sprintf("@%.3fs", value.NowSec))))
	}
	lines = append(lines, "")

	lines = append(lines, d.styles.section.Render("Console"))
	footer := d.styles.faint.Render(fmt.Sprintf("%s %s • %s %s",
		d.keys.Pause.Help().Key, d.keys.Pause.Help().Desc,
		d.keys.Quit.Help().Key, d.keys.Quit.Help().Desc))

	// Whatever height is left after the values and the footer goes to
	// the newest console lines.
	room := d.height - len(lines) - 2
	console := snapshot.Console
	if room < 1 {
		room = 1
	}
	if len(console) > room {
		console = console[len(console)-room:]
	}
	for _, line := range console {
		lines = append(lines, "  "+ansi.Strip(line))
	}

	lines = append(lines, "", footer)

	clip := d.styles.plain.MaxWidth(d.width)
	for i, line := range lines {
		lines[i] = clip.Render(line)
	}
	return strings.Join(lines, "\n")
}
