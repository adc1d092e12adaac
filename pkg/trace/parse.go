package trace

import (
	"io"
	"strings"

	"github.com/charmbracelet/log"
)

// Parse splits a raw trace into positions using the delimiter's marker.
//
// Only text terminated by a marker forms a position: the engine writes the
// marker after each position's data, so text after the last marker belongs to
// a position that was cut off and is dropped (see [Tail]). Positions are
// numbered in trace order starting at zero. A chunk that contains no graph
// (whitespace between consecutive markers) produces no position and does not
// consume an index.
func Parse(raw string, d Delimiter) []Position {
	if d.Marker == "" {
		d = DefaultDelimiter
	}
	chunks := strings.Split(raw, d.Marker)
	// The last element is the text after the final marker.
	chunks = chunks[:len(chunks)-1]

	positions := make([]Position, 0, len(chunks))
	for _, chunk := range chunks {
		sources := SplitGraphs(chunk)
		if len(sources) == 0 {
			continue
		}
		index := len(positions)
		ticks := make([]GraphDocument, len(sources))
		for i, src := range sources {
			ticks[i] = GraphDocument{Position: index, Tick: i, Source: src}
		}
		positions = append(positions, Position{Index: index, Ticks: ticks})
	}
	return positions
}

// Tail returns the non-blank text following the last marker, which [Parse]
// drops. It returns "" when the trace ends with a marker.
func Tail(raw string, d Delimiter) string {
	if d.Marker == "" {
		d = DefaultDelimiter
	}
	rest := raw
	if i := strings.LastIndex(raw, d.Marker); i >= 0 {
		rest = raw[i+len(d.Marker):]
	}
	if isBlank(rest) {
		return ""
	}
	return rest
}

// SplitGraphs cuts a chunk into DOT blocks after each top-level closing
// brace. Braces inside double-quoted strings are ignored. A trailing blank
// fragment is discarded; a trailing non-blank fragment (a block cut short) is
// closed with [CloseToken] so every returned piece ends with it.
func SplitGraphs(chunk string) []string {
	var (
		graphs  []string
		depth   int
		inQuote bool
		escaped bool
		start   int
	)
	for i := 0; i < len(chunk); i++ {
		c := chunk[i]
		if inQuote {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inQuote = false
			}
			continue
		}
		switch c {
		case '"':
			inQuote = true
		case '{':
			depth++
		case '}':
			if depth > 0 {
				depth--
			}
			if depth == 0 {
				graphs = append(graphs, chunk[start:i+1])
				start = i + 1
			}
		}
	}
	if rest := chunk[start:]; !isBlank(rest) {
		graphs = append(graphs, rest+CloseToken)
	}
	return graphs
}

// Parser parses traces with a fixed delimiter and logs what it finds.
type Parser struct {
	Delimiter Delimiter
	Logger    *log.Logger
}

// NewParser creates a parser for the given delimiter.
// If logger is nil, log output is discarded.
func NewParser(d Delimiter, logger *log.Logger) *Parser {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Parser{Delimiter: d, Logger: logger}
}

// Parse splits raw into positions. See [Parse].
func (p *Parser) Parse(raw string) []Position {
	positions := Parse(raw, p.Delimiter)
	for _, pos := range positions {
		p.Logger.Debug("parsed position", "position", pos.Index, "ticks", pos.TickCount())
	}
	if tail := Tail(raw, p.Delimiter); tail != "" {
		p.Logger.Warn("dropping unterminated position at end of trace",
			"marker", p.Delimiter.Marker, "bytes", len(tail))
	}
	return positions
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
