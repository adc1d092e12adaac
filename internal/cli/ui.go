package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - warnings
	colorRed    = lipgloss.Color("167") // Soft red - errors
	colorBlue   = lipgloss.Color("75")  // Light blue - links
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Public Styles
// =============================================================================

var (
	// StyleTitle for main headings.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	// StyleHighlight for emphasized values.
	StyleHighlight = lipgloss.NewStyle().Foreground(colorCyan)

	// StyleDim for secondary/muted text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleValue for data values.
	StyleValue = lipgloss.NewStyle().Foreground(colorWhite)

	// StyleSuccess for success messages.
	StyleSuccess = lipgloss.NewStyle().Foreground(colorGreen)

	// StyleWarning for warning messages.
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)

	// StyleError for tool output of failed runs.
	StyleError = lipgloss.NewStyle().Foreground(colorRed)
)

// =============================================================================
// Internal Styles
// =============================================================================

var (
	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)

	styleCached   = lipgloss.NewStyle().Foreground(colorGreen)
	styleComputed = lipgloss.NewStyle().Foreground(colorGray)

	styleCommand = lipgloss.NewStyle().Foreground(colorBlue)
)

// =============================================================================
// Icons
// =============================================================================

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
)

// =============================================================================
// Status Output
// =============================================================================

// printSuccess prints a success message.
func printSuccess(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconSuccess.Render(iconSuccess) + " " + msg)
}

// printError prints an error message.
func printError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconError.Render(iconError) + " " + msg)
}

// printWarning prints a warning message.
func printWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconWarning.Render(iconWarning) + " " + StyleWarning.Render(msg))
}

// printInfo prints an info/status message.
func printInfo(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconInfo.Render(iconInfo) + " " + msg)
}

// printDetail prints a detail line (indented).
func printDetail(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println("  " + StyleDim.Render(msg))
}

// printOutput prints captured tool output verbatim, indented.
func printOutput(out string) {
	out = strings.TrimRight(out, "\n")
	if out == "" {
		return
	}
	for _, line := range strings.Split(out, "\n") {
		fmt.Println("    " + StyleError.Render(line))
	}
}

// =============================================================================
// File Output
// =============================================================================

// printFile prints a file output line.
func printFile(path string) {
	fmt.Println("  " + StyleDim.Render(iconArrow) + " " + StyleValue.Render(path))
}

// =============================================================================
// Key-Value Output
// =============================================================================

// printKeyValue prints a labeled value.
func printKeyValue(key, value string) {
	keyStyle := lipgloss.NewStyle().Foreground(colorGray).Width(12)
	fmt.Println(keyStyle.Render(key) + " " + StyleValue.Render(value))
}

// =============================================================================
// Stats Display
// =============================================================================

// printRunStats prints tick counts and timing on a single line.
func printRunStats(ticks int, counts runCounts, elapsed time.Duration) {
	fmt.Println("  " + runStatsLine(ticks, counts, elapsed))
}

func runStatsLine(ticks int, counts runCounts, elapsed time.Duration) string {
	parts := []string{StyleDim.Render(fmt.Sprintf("%d ticks", ticks))}
	if counts.CacheHits > 0 {
		parts = append(parts, styleCached.Render(fmt.Sprintf("%d cached", counts.CacheHits)))
	}
	if fresh := counts.Rendered - counts.CacheHits; fresh > 0 {
		parts = append(parts, styleComputed.Render(fmt.Sprintf("%d rendered", fresh)))
	}
	parts = append(parts, StyleDim.Render(elapsed.Round(time.Millisecond).String()))
	return strings.Join(parts, StyleDim.Render(" · "))
}

// formatPositions lists position indices as "0, 1, 2".
func formatPositions(indices []int) string {
	s := make([]string, len(indices))
	for i, idx := range indices {
		s[i] = strconv.Itoa(idx)
	}
	return strings.Join(s, ", ")
}

// =============================================================================
// Commands & Next Steps
// =============================================================================

// printNextStep prints a suggested next command.
func printNextStep(description, cmd string) {
	fmt.Println(StyleDim.Render(description+":") + " " + styleCommand.Render(cmd))
}

// printNewline prints an empty line.
func printNewline() {
	fmt.Println()
}
