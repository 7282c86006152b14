package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kestrelworks/loom/internal/compose"
	"github.com/kestrelworks/loom/internal/history"
)

type stubLister struct {
	runs []*history.Run
}

func (s *stubLister) ListRuns(limit int) ([]*history.Run, error) {
	if limit < len(s.runs) {
		return s.runs[:limit], nil
	}
	return s.runs, nil
}

func (s *stubLister) Get(runID string) (*history.Run, error) {
	for _, run := range s.runs {
		if run.ID == runID {
			return run, nil
		}
	}
	return nil, nil
}

func sampleRuns() []*history.Run {
	return []*history.Run{
		{
			ID:           "run-fail",
			BaseTemplate: "assistant-base",
			Strategy:     "error",
			Status:       compose.StatusFail,
			Errors: []compose.Issue{{
				Code:       compose.CodeBehaviorOverlap,
				Message:    "behavior step_back declared by both analysis and synthesis",
				Suggestion: "Pick a different strategy",
			}},
		},
		{
			ID:           "run-pass",
			BaseTemplate: "researcher-base",
			Strategy:     "merge",
			Status:       compose.StatusPass,
		},
	}
}

func runCommands(t *testing.T, model tea.Model, cmd tea.Cmd) *App {
	t.Helper()
	app, ok := model.(*App)
	if !ok {
		t.Fatalf("unexpected model type: %T", model)
	}
	for cmd != nil {
		msg := cmd()
		if msg == nil {
			break
		}
		nextModel, nextCmd := app.Update(msg)
		app, ok = nextModel.(*App)
		if !ok {
			t.Fatalf("unexpected model type: %T", nextModel)
		}
		cmd = nextCmd
	}
	return app
}

func TestInitLoadsRunList(t *testing.T) {
	app := NewApp(&stubLister{runs: sampleRuns()}, nil)
	app = runCommands(t, app, app.Init())

	if got := len(app.runMenu.Items()); got != 2 {
		t.Fatalf("menu items = %d, want 2", got)
	}
	view := app.View()
	if !strings.Contains(view, "assistant-base") {
		t.Fatalf("run list should show the base template:\n%s", view)
	}
}

func TestEnterOpensRunDetail(t *testing.T) {
	app := NewApp(&stubLister{runs: sampleRuns()}, nil)
	app = runCommands(t, app, app.Init())

	model, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	app = runCommands(t, model, cmd)

	if app.state != stateRunDetail {
		t.Fatalf("state = %d, want detail", app.state)
	}
	view := app.View()
	if !strings.Contains(view, string(compose.CodeBehaviorOverlap)) {
		t.Fatalf("detail view should show the error code:\n%s", view)
	}
	if !strings.Contains(view, "Pick a different strategy") {
		t.Fatalf("detail view should show the suggestion:\n%s", view)
	}
}

func TestEscReturnsToRunList(t *testing.T) {
	app := NewApp(&stubLister{runs: sampleRuns()}, nil)
	app = runCommands(t, app, app.Init())

	model, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	app = runCommands(t, model, cmd)
	model, _ = app.Update(tea.KeyMsg{Type: tea.KeyEsc})
	app = model.(*App)

	if app.state != stateRunList {
		t.Fatalf("esc should return to the run list, state = %d", app.state)
	}
	if app.selected != nil {
		t.Fatalf("esc should clear the selected run")
	}
}
