// Package tui is the terminal interface for browsing composition runs.
// It uses bubbletea, which follows The Elm Architecture:
//
// 1. Model: Your application state
// 2. Update: A function that updates state based on messages
// 3. View: A function that renders state to a string
//
// The flow is: User Input -> Message -> Update -> New Model -> View -> Screen
package tui

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kestrelworks/loom/internal/compose"
	"github.com/kestrelworks/loom/internal/history"
	"github.com/kestrelworks/loom/internal/logbook"
)

// appState represents which "screen" we're on
type appState int

const (
	stateRunList appState = iota // Recent runs
	stateRunDetail               // One run's findings
)

const runListLimit = 50

// RunLister is the slice of the history store the TUI needs.
type RunLister interface {
	ListRuns(limit int) ([]*history.Run, error)
	Get(runID string) (*history.Run, error)
}

type runsLoadedMsg struct {
	runs []*history.Run
	err  error
}

type runDetailMsg struct {
	run *history.Run
	err error
}

// App is the main application model.
type App struct {
	state   appState
	store   RunLister
	logbook *logbook.Logbook

	runMenu  list.Model
	selected *history.Run

	statusMsg string
	width     int
	height    int
}

// runItem implements list.Item for one history entry.
type runItem struct {
	run *history.Run
}

func (i runItem) Title() string {
	return fmt.Sprintf("%s · %s", statusGlyph(i.run.Status), i.run.BaseTemplate)
}

func (i runItem) Description() string {
	parts := []string{
		fmt.Sprintf("strategy %s", i.run.Strategy),
		i.run.ID,
	}
	if !i.run.CreatedAt.IsZero() {
		parts = append(parts, i.run.CreatedAt.Format(time.RFC3339))
	}
	return strings.Join(parts, " · ")
}

func (i runItem) FilterValue() string { return i.run.BaseTemplate }

// NewApp creates the run browser over a history store. The logbook is
// optional and feeds the log panel at the bottom of the screen.
func NewApp(store RunLister, lb *logbook.Logbook) *App {
	menu := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	menu.Title = "⬡ LOOM RUNS"
	menu.SetShowStatusBar(false)
	menu.SetFilteringEnabled(false)

	return &App{
		state:   stateRunList,
		store:   store,
		logbook: lb,
		runMenu: menu,
	}
}

// Init is called once when the program starts.
func (a *App) Init() tea.Cmd {
	return a.fetchRuns()
}

// Update is called when a message is received.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.runMenu.SetSize(max(0, msg.Width-6), max(0, msg.Height-12))
		return a, nil

	case runsLoadedMsg:
		if msg.err != nil {
			a.statusMsg = fmt.Sprintf("History unavailable: %v", msg.err)
			return a, nil
		}
		items := make([]list.Item, len(msg.runs))
		for i, run := range msg.runs {
			items[i] = runItem{run: run}
		}
		a.runMenu.SetItems(items)
		a.statusMsg = fmt.Sprintf("%d run(s)", len(msg.runs))
		return a, nil

	case runDetailMsg:
		if msg.err != nil {
			a.statusMsg = fmt.Sprintf("Run unavailable: %v", msg.err)
			return a, nil
		}
		a.selected = msg.run
		a.state = stateRunDetail
		return a, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return a, tea.Quit
		case "q":
			if a.state == stateRunList {
				return a, tea.Quit
			}
		case "esc":
			if a.state == stateRunDetail {
				a.state = stateRunList
				a.selected = nil
				return a, nil
			}
		case "r":
			a.statusMsg = "Refreshing..."
			return a, a.fetchRuns()
		case "enter":
			if a.state == stateRunList {
				if item, ok := a.runMenu.SelectedItem().(runItem); ok {
					return a, a.fetchDetail(item.run.ID)
				}
			}
		}
	}

	var cmd tea.Cmd
	if a.state == stateRunList {
		a.runMenu, cmd = a.runMenu.Update(msg)
	}
	return a, cmd
}

// View renders the current state to a string.
func (a *App) View() string {
	width := a.width
	if width <= 0 {
		width = 100
	}

	header := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FF6B6B")).
		MarginBottom(1).
		Render("⬡ LOOM")

	var content string
	switch a.state {
	case stateRunList:
		content = a.runMenu.View()
	case stateRunDetail:
		content = a.renderRunDetail(width - 6)
	}

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444444")).
		Padding(0, 1).
		Width(max(20, width-2)).
		Render(content)

	sections := []string{header, box}
	if logPanel := a.renderLogPanel(); logPanel != "" {
		sections = append(sections, logPanel)
	}
	footer := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#888888")).
		MarginTop(1).
		Render(a.footerText())
	sections = append(sections, footer)
	return strings.Join(sections, "\n")
}

func (a *App) footerText() string {
	hint := "Enter → inspect run    r → refresh    q → quit"
	if a.state == stateRunDetail {
		hint = "Esc → back to run list"
	}
	if a.statusMsg == "" {
		return hint
	}
	return fmt.Sprintf("%s    %s", a.statusMsg, hint)
}

func (a *App) renderRunDetail(width int) string {
	run := a.selected
	if run == nil {
		return "No run selected"
	}

	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#5B8DEF")).
		Render(fmt.Sprintf("%s %s", statusGlyph(run.Status), run.ID))

	lines := []string{
		title,
		fmt.Sprintf("Template: %s", run.BaseTemplate),
		fmt.Sprintf("Strategy: %s", run.Strategy),
	}
	if !run.CreatedAt.IsZero() {
		lines = append(lines, fmt.Sprintf("When: %s", run.CreatedAt.Format(time.RFC3339)))
	}
	lines = append(lines, "")

	if len(run.Errors) == 0 && len(run.Warnings) == 0 {
		lines = append(lines, "No findings. Composition passed cleanly.")
	}
	for _, issue := range run.Errors {
		lines = append(lines, renderIssue("✗", "#FF6B6B", issue))
	}
	for _, issue := range run.Warnings {
		lines = append(lines, renderIssue("⚠", "#E5C07B", issue))
	}

	return lipgloss.NewStyle().Width(max(20, width)).Render(strings.Join(lines, "\n"))
}

func renderIssue(glyph, color string, issue compose.Issue) string {
	head := lipgloss.NewStyle().
		Foreground(lipgloss.Color(color)).
		Render(fmt.Sprintf("%s [%s] %s", glyph, issue.Code, issue.Message))
	if issue.Suggestion == "" {
		return head
	}
	hint := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#AAAAAA")).
		Render(fmt.Sprintf("    → %s", issue.Suggestion))
	return head + "\n" + hint
}

func (a *App) renderLogPanel() string {
	if a.logbook == nil {
		return ""
	}
	lines := a.logbook.Tail(6)
	if len(lines) == 0 {
		return ""
	}
	fileName := filepath.Base(a.logbook.Path())
	if fileName == "." || fileName == "" {
		fileName = "log"
	}
	head := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#5B8DEF")).
		Render(fmt.Sprintf("LOG · %s", fileName))
	body := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#AAAAAA")).
		Render(strings.Join(lines, "\n"))
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444444")).
		Padding(0, 1).
		Render(fmt.Sprintf("%s\n%s", head, body))
}

func (a *App) fetchRuns() tea.Cmd {
	return func() tea.Msg {
		runs, err := a.store.ListRuns(runListLimit)
		return runsLoadedMsg{runs: runs, err: err}
	}
}

func (a *App) fetchDetail(runID string) tea.Cmd {
	return func() tea.Msg {
		run, err := a.store.Get(runID)
		return runDetailMsg{run: run, err: err}
	}
}

func statusGlyph(status compose.Status) string {
	switch status {
	case compose.StatusPass:
		return "✓"
	case compose.StatusWarning:
		return "⚠"
	default:
		return "✗"
	}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
