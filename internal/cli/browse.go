package cli

import (
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	apperrors "github.com/matzehuels/tracegraph/pkg/errors"
	"github.com/matzehuels/tracegraph/pkg/pipeline"
	"github.com/matzehuels/tracegraph/pkg/trace"
)

// Browser styles
var (
	browseSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	browseNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	browseDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
	browseSourceStyle   = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(colorDim).
				Padding(0, 1)
)

// browseCommand creates the browse command.
func (c *CLI) browseCommand() *cobra.Command {
	var flags renderFlags

	cmd := &cobra.Command{
		Use:   "browse <trace-file|->",
		Short: "Step through the positions and ticks of a trace",
		Long: `Browse opens an interactive view of a trace. It shows the DOT source of the
selected tick and the image files render writes for it under --target-dir.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig(flags.apply(cmd))
			if err != nil {
				return err
			}
			delimiter, err := cfg.ResolvedDelimiter()
			if err != nil {
				return err
			}
			raw, err := readTrace(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}

			positions := trace.NewParser(delimiter, c.Logger).Parse(raw)
			if len(positions) == 0 {
				return apperrors.New(apperrors.ErrCodeInvalidInput, "no complete positions in trace (marker %q)", delimiter.Marker)
			}

			m := NewBrowseModel(positions, pipeline.NewLayout(cfg.TargetDir), cfg.Format)
			_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
			return err
		},
	}

	flags.register(cmd)
	return cmd
}

// =============================================================================
// BrowseModel - Interactive position/tick stepper
// =============================================================================

// BrowseModel is the bubbletea model for stepping through a trace.
type BrowseModel struct {
	Positions []trace.Position
	Layout    pipeline.Layout
	Format    string

	Position int // Selected position index into Positions
	Tick     int // Selected tick within the position
	Scroll   int // First visible source line
	Height   int // Visible source lines
}

// NewBrowseModel creates a model positioned on the first tick.
func NewBrowseModel(positions []trace.Position, layout pipeline.Layout, format string) BrowseModel {
	return BrowseModel{
		Positions: positions,
		Layout:    layout,
		Format:    format,
		Height:    20,
	}
}

func (m BrowseModel) Init() tea.Cmd {
	return nil
}

func (m BrowseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "right", "l", "n":
			m = m.step(1)
		case "left", "h", "p":
			m = m.step(-1)
		case "down", "j":
			m = m.jump(m.Position + 1)
		case "up", "k":
			m = m.jump(m.Position - 1)
		case "g", "home":
			m = m.jump(0)
		case "G", "end":
			m = m.jump(len(m.Positions) - 1)
		case "pgdown", "ctrl+d":
			m.Scroll = min(m.Scroll+m.Height/2, max(m.sourceLines()-m.Height, 0))
		case "pgup", "ctrl+u":
			m.Scroll = max(m.Scroll-m.Height/2, 0)
		}
	case tea.WindowSizeMsg:
		m.Height = msg.Height - 12
		if m.Height < 5 {
			m.Height = 5
		}
	}
	return m, nil
}

// step moves by delta ticks, crossing into neighbouring positions.
func (m BrowseModel) step(delta int) BrowseModel {
	tick := m.Tick + delta
	switch {
	case tick < 0:
		if m.Position == 0 {
			return m
		}
		m.Position--
		m.Tick = len(m.Positions[m.Position].Ticks) - 1
	case tick >= len(m.Positions[m.Position].Ticks):
		if m.Position == len(m.Positions)-1 {
			return m
		}
		m.Position++
		m.Tick = 0
	default:
		m.Tick = tick
	}
	m.Scroll = 0
	return m
}

// jump selects the first tick of position p, clamped to the valid range.
func (m BrowseModel) jump(p int) BrowseModel {
	p = max(0, min(p, len(m.Positions)-1))
	if p != m.Position {
		m.Position, m.Tick, m.Scroll = p, 0, 0
	}
	return m
}

// Current returns the selected graph.
func (m BrowseModel) Current() trace.GraphDocument {
	return m.Positions[m.Position].Ticks[m.Tick]
}

func (m BrowseModel) sourceLines() int {
	return strings.Count(m.Current().Source, "\n") + 1
}

func (m BrowseModel) View() string {
	var b strings.Builder
	doc := m.Current()
	pos := m.Positions[m.Position]

	b.WriteString(StyleTitle.Render(fmt.Sprintf("Position %d/%d", m.Position+1, len(m.Positions))))
	b.WriteString(browseDimStyle.Render(fmt.Sprintf("  tick %d/%d", m.Tick+1, len(pos.Ticks))))
	b.WriteString("\n")
	b.WriteString(browseDimStyle.Render("←/→ tick  ↑/↓ position  pgup/pgdn scroll  q quit"))
	b.WriteString("\n\n")

	b.WriteString(m.positionTable())
	b.WriteString("\n")

	lines := strings.Split(doc.Source, "\n")
	end := min(m.Scroll+m.Height, len(lines))
	b.WriteString(browseSourceStyle.Render(strings.Join(lines[m.Scroll:end], "\n")))
	b.WriteString("\n")

	b.WriteString(m.fileLine("graph", m.Layout.TickGraphPath(doc.Position, doc.Tick)))
	b.WriteString(m.fileLine("image", m.Layout.TickImagePath(doc.Position, doc.Tick, m.Format)))
	b.WriteString(m.fileLine("composite", m.Layout.CompositePath(doc.Position, m.Format)))
	return b.String()
}

// positionTable shows the positions around the selection.
func (m BrowseModel) positionTable() string {
	const window = 5
	start := max(0, m.Position-window/2)
	end := min(len(m.Positions), start+window)

	rows := [][]string{}
	for i := start; i < end; i++ {
		p := m.Positions[i]
		cursor := "  "
		if i == m.Position {
			cursor = "▸ "
		}
		rows = append(rows, []string{cursor + fmt.Sprint(p.Index), fmt.Sprint(p.TickCount())})
	}

	selected := m.Position - start
	t := table.New().
		Border(lipgloss.HiddenBorder()).
		Headers("POSITION", "TICKS").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == -1:
				return browseDimStyle
			case row == selected:
				return browseSelectedStyle
			}
			return browseNormalStyle
		})
	return t.Render()
}

// fileLine labels path and marks whether it exists on disk.
func (m BrowseModel) fileLine(label, path string) string {
	state := StyleSuccess.Render(iconSuccess)
	if _, err := os.Stat(path); err != nil {
		state = browseDimStyle.Render("not rendered")
	}
	return fmt.Sprintf("%s %s %s\n", browseDimStyle.Render(fmt.Sprintf("%-10s", label)), StyleValue.Render(path), state)
}
