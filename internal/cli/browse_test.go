package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/matzehuels/tracegraph/pkg/pipeline"
	"github.com/matzehuels/tracegraph/pkg/trace"
)

func browseFixture(t *testing.T) BrowseModel {
	t.Helper()
	positions := trace.Parse(sampleTrace, trace.DelimiterIndex)
	if len(positions) != 2 {
		t.Fatalf("fixture has %d positions, want 2", len(positions))
	}
	return NewBrowseModel(positions, pipeline.NewLayout(t.TempDir()), "png")
}

func press(m BrowseModel, keys ...string) BrowseModel {
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "right":
			msg = tea.KeyMsg{Type: tea.KeyRight}
		case "left":
			msg = tea.KeyMsg{Type: tea.KeyLeft}
		case "down":
			msg = tea.KeyMsg{Type: tea.KeyDown}
		case "up":
			msg = tea.KeyMsg{Type: tea.KeyUp}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		next, _ := m.Update(msg)
		m = next.(BrowseModel)
	}
	return m
}

func TestBrowseModelNavigation(t *testing.T) {
	tests := []struct {
		name     string
		keys     []string
		pos, tck int
	}{
		{"start", nil, 0, 0},
		{"next tick", []string{"right"}, 0, 1},
		{"cross into next position", []string{"right", "right"}, 1, 0},
		{"stop at last tick", []string{"l", "l", "l", "l"}, 1, 0},
		{"back across positions", []string{"down", "left"}, 0, 1},
		{"stop at first tick", []string{"left", "h"}, 0, 0},
		{"position down resets tick", []string{"right", "j"}, 1, 0},
		{"position up clamps", []string{"up", "k"}, 0, 0},
		{"last and first", []string{"G", "g"}, 0, 0},
		{"last", []string{"G"}, 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := press(browseFixture(t), tt.keys...)
			if m.Position != tt.pos || m.Tick != tt.tck {
				t.Errorf("at %d/%d, want %d/%d", m.Position, m.Tick, tt.pos, tt.tck)
			}
			if doc := m.Current(); doc.Position != tt.pos || doc.Tick != tt.tck {
				t.Errorf("Current() = %s", doc)
			}
		})
	}
}

func TestBrowseModelQuit(t *testing.T) {
	m := browseFixture(t)
	for _, key := range []tea.KeyMsg{
		{Type: tea.KeyRunes, Runes: []rune("q")},
		{Type: tea.KeyEsc},
		{Type: tea.KeyCtrlC},
	} {
		_, cmd := m.Update(key)
		if cmd == nil {
			t.Errorf("%s should quit", key)
			continue
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Errorf("%s returned %T, want QuitMsg", key, cmd())
		}
	}
}

func TestBrowseModelWindowSize(t *testing.T) {
	m := browseFixture(t)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 40})
	if got := next.(BrowseModel).Height; got != 28 {
		t.Errorf("Height = %d, want 28", got)
	}
	next, _ = m.Update(tea.WindowSizeMsg{Width: 80, Height: 8})
	if got := next.(BrowseModel).Height; got != 5 {
		t.Errorf("Height = %d, want minimum 5", got)
	}
}

func TestBrowseModelScroll(t *testing.T) {
	var src strings.Builder
	src.WriteString("digraph{\n")
	for i := 0; i < 30; i++ {
		src.WriteString("n -> m\n")
	}
	src.WriteString("}\n// End of index\n")
	m := NewBrowseModel(trace.Parse(src.String(), trace.DelimiterIndex), pipeline.NewLayout(t.TempDir()), "png")
	m.Height = 10

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyPgDown})
	m = next.(BrowseModel)
	if m.Scroll != 5 {
		t.Errorf("Scroll after pgdown = %d, want 5", m.Scroll)
	}
	for i := 0; i < 10; i++ {
		next, _ = m.Update(tea.KeyMsg{Type: tea.KeyPgDown})
		m = next.(BrowseModel)
	}
	if want := m.sourceLines() - m.Height; m.Scroll != want {
		t.Errorf("Scroll = %d, want clamped to %d", m.Scroll, want)
	}
	_ = m.View()

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyPgUp})
	m = next.(BrowseModel)
	if m.Scroll != m.sourceLines()-m.Height-5 {
		t.Errorf("Scroll after pgup = %d", m.Scroll)
	}
}

func TestBrowseModelView(t *testing.T) {
	m := press(browseFixture(t), "right")

	view := m.View()
	for _, want := range []string{"Position 1/2", "tick 2/2", "digraph{b->c}", "0_1.dot", "0_1.png", "not rendered"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q", want)
		}
	}

	img := m.Layout.TickImagePath(0, 1, "png")
	if err := os.MkdirAll(filepath.Dir(img), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(img, []byte("png"), 0o644); err != nil {
		t.Fatal(err)
	}
	if view := m.View(); !strings.Contains(view, iconSuccess) {
		t.Error("View() should mark rendered files")
	}
}
