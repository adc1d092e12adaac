package trace

import "fmt"

// CloseToken is the DOT block-close token that terminates every graph.
const CloseToken = "}"

// GraphDocument is one self-contained DOT graph describing the matcher state
// at a single tick.
type GraphDocument struct {
	Position int    // Zero-based index of the owning position
	Tick     int    // Zero-based index within the position
	Source   string // Exact DOT text, closing brace included
}

// String returns "<position>_<tick>", the stem used for the document's files.
func (d GraphDocument) String() string {
	return fmt.Sprintf("%d_%d", d.Position, d.Tick)
}

// Position is the trace segment covering all ticks at one input-scan step.
// Ticks is never empty for positions returned by [Parse].
type Position struct {
	Index int
	Ticks []GraphDocument
}

// TickCount returns the number of ticks in the position.
func (p Position) TickCount() int {
	return len(p.Ticks)
}

// CountTicks returns the total number of ticks across positions.
func CountTicks(positions []Position) int {
	n := 0
	for _, p := range positions {
		n += len(p.Ticks)
	}
	return n
}
