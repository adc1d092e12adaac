package trace

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

const indexMarker = "// End of index"

func TestParseScenario(t *testing.T) {
	raw := "digraph{a->b}\n// End of index\ndigraph{a->c}\n// End of index\n"

	positions := Parse(raw, DelimiterIndex)
	if len(positions) != 2 {
		t.Fatalf("len(positions) = %d, want 2", len(positions))
	}

	want := []string{"digraph{a->b}", "\ndigraph{a->c}"}
	for i, p := range positions {
		if p.Index != i {
			t.Errorf("positions[%d].Index = %d", i, p.Index)
		}
		if p.TickCount() != 1 {
			t.Fatalf("positions[%d] ticks = %d, want 1", i, p.TickCount())
		}
		doc := p.Ticks[0]
		if doc.Source != want[i] {
			t.Errorf("positions[%d].Ticks[0].Source = %q, want %q", i, doc.Source, want[i])
		}
		if doc.Position != i || doc.Tick != 0 {
			t.Errorf("positions[%d].Ticks[0] coordinates = (%d, %d)", i, doc.Position, doc.Tick)
		}
	}
}

func TestParseCounts(t *testing.T) {
	block := "digraph regexp {\n  0 -> 1 [label=\"a\"];\n}\n"
	tests := []struct {
		name      string
		raw       string
		positions int
		ticks     []int
	}{
		{"empty", "", 0, nil},
		{"whitespace only", " \n\t\n", 0, nil},
		{"no marker", block, 0, nil},
		{"single position", block + indexMarker + "\n", 1, []int{1}},
		{"no trailing newline", block + indexMarker, 1, []int{1}},
		{"multiple ticks", block + block + block + indexMarker + "\n", 1, []int{3}},
		{"three positions", block + indexMarker + block + block + indexMarker + block + indexMarker, 3, []int{1, 2, 1}},
		{"unterminated tail dropped", block + indexMarker + "\n" + block, 1, []int{1}},
		{"blank between markers", block + indexMarker + "\n  \n" + indexMarker + "\n" + block + indexMarker, 2, []int{1, 1}},
		{"leading marker", indexMarker + "\n" + block + indexMarker, 1, []int{1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			positions := Parse(tt.raw, DelimiterIndex)
			if len(positions) != tt.positions {
				t.Fatalf("len(positions) = %d, want %d", len(positions), tt.positions)
			}
			for i, p := range positions {
				if p.Index != i {
					t.Errorf("positions[%d].Index = %d, want %d", i, p.Index, i)
				}
				if p.TickCount() != tt.ticks[i] {
					t.Errorf("positions[%d] ticks = %d, want %d", i, p.TickCount(), tt.ticks[i])
				}
				for j, doc := range p.Ticks {
					if doc.Tick != j || doc.Position != i {
						t.Errorf("tick %d of position %d has coordinates (%d, %d)", j, i, doc.Position, doc.Tick)
					}
					if !strings.HasSuffix(doc.Source, CloseToken) {
						t.Errorf("tick %d of position %d does not end with %q: %q", j, i, CloseToken, doc.Source)
					}
				}
			}
		})
	}
}

func TestParsePositionCountMatchesMarkers(t *testing.T) {
	block := "digraph{x->y}\n"
	for n := 0; n < 6; n++ {
		raw := strings.Repeat(block+indexMarker+"\n", n)
		if got := len(Parse(raw, DelimiterIndex)); got != n {
			t.Errorf("%d markers: len(positions) = %d", n, got)
		}
	}
}

func TestParseUsesOnlySelectedMarker(t *testing.T) {
	raw := "digraph{a}\n// End of offset\ndigraph{b}\n// End of offset\n"

	if got := len(Parse(raw, DelimiterOffset)); got != 2 {
		t.Errorf("offset delimiter: len(positions) = %d, want 2", got)
	}
	// The index marker never appears, so nothing is terminated.
	if got := len(Parse(raw, DelimiterIndex)); got != 0 {
		t.Errorf("index delimiter: len(positions) = %d, want 0", got)
	}
}

func TestParseZeroDelimiterFallsBackToDefault(t *testing.T) {
	raw := "digraph{a}\n" + DefaultDelimiter.Marker + "\n"
	if got := len(Parse(raw, Delimiter{})); got != 1 {
		t.Errorf("len(positions) = %d, want 1", got)
	}
}

func TestParseRoundTrip(t *testing.T) {
	chunks := []string{
		"digraph regexp {\n  0 -> 1 [label=\"a{2}\"];\n}\ndigraph regexp {\n  1 -> 2;\n}\n",
		"\ndigraph G { subgraph cluster_0 { a -> b } c -> d }\n",
		"digraph{a}digraph{b}   \n\t",
	}

	var raw strings.Builder
	for _, c := range chunks {
		raw.WriteString(c)
		raw.WriteString(indexMarker)
	}

	positions := Parse(raw.String(), DelimiterIndex)
	if len(positions) != len(chunks) {
		t.Fatalf("len(positions) = %d, want %d", len(positions), len(chunks))
	}
	for i, p := range positions {
		var joined strings.Builder
		for _, doc := range p.Ticks {
			joined.WriteString(doc.Source)
		}
		want := strings.TrimRight(chunks[i], " \t\n")
		if joined.String() != want {
			t.Errorf("position %d round trip = %q, want %q", i, joined.String(), want)
		}
	}
}

func TestSplitGraphs(t *testing.T) {
	tests := []struct {
		name  string
		chunk string
		want  []string
	}{
		{
			name:  "single",
			chunk: "digraph{a->b}\n",
			want:  []string{"digraph{a->b}"},
		},
		{
			name:  "two graphs",
			chunk: "digraph{a}\ndigraph{b}\n",
			want:  []string{"digraph{a}", "\ndigraph{b}"},
		},
		{
			name:  "brace in quoted label",
			chunk: "digraph{0 -> 1 [label=\"a{1,3}\"]}",
			want:  []string{"digraph{0 -> 1 [label=\"a{1,3}\"]}"},
		},
		{
			name:  "escaped quote in label",
			chunk: "digraph{0 -> 1 [label=\"\\\"}\"]}",
			want:  []string{"digraph{0 -> 1 [label=\"\\\"}\"]}"},
		},
		{
			name:  "nested subgraph",
			chunk: "digraph{subgraph s{a} b}",
			want:  []string{"digraph{subgraph s{a} b}"},
		},
		{
			name:  "whitespace only",
			chunk: " \n\t",
			want:  nil,
		},
		{
			name:  "unclosed block is closed",
			chunk: "digraph{a}\ndigraph{b",
			want:  []string{"digraph{a}", "\ndigraph{b}"},
		},
		{
			name:  "stray closing brace",
			chunk: "}digraph{a}",
			want:  []string{"}", "digraph{a}"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitGraphs(tt.chunk)
			if len(got) != len(tt.want) {
				t.Fatalf("SplitGraphs(%q) = %q, want %q", tt.chunk, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("SplitGraphs(%q)[%d] = %q, want %q", tt.chunk, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestTail(t *testing.T) {
	if got := Tail("digraph{a}\n"+indexMarker+"\n", DelimiterIndex); got != "" {
		t.Errorf("Tail() = %q, want empty", got)
	}
	if got := Tail("digraph{a}\n"+indexMarker+"\ndigraph{b}", DelimiterIndex); got != "\ndigraph{b}" {
		t.Errorf("Tail() = %q, want %q", got, "\ndigraph{b}")
	}
	if got := Tail("digraph{a}", DelimiterIndex); got != "digraph{a}" {
		t.Errorf("Tail() without marker = %q", got)
	}
}

func TestParserWarnsOnUnterminatedTail(t *testing.T) {
	var buf bytes.Buffer
	logger := log.NewWithOptions(&buf, log.Options{Level: log.DebugLevel})
	p := NewParser(DelimiterIndex, logger)

	positions := p.Parse("digraph{a}\n" + indexMarker + "\ndigraph{b}\n")
	if len(positions) != 1 {
		t.Fatalf("len(positions) = %d, want 1", len(positions))
	}
	if !strings.Contains(buf.String(), "unterminated") {
		t.Errorf("expected warning about unterminated position, got %q", buf.String())
	}
	if !strings.Contains(buf.String(), "parsed position") {
		t.Errorf("expected debug line per position, got %q", buf.String())
	}
}

func TestNewParserNilLogger(t *testing.T) {
	p := NewParser(DelimiterOffset, nil)
	if p.Logger == nil {
		t.Fatal("NewParser(nil logger) left Logger nil")
	}
	if got := p.Parse(""); len(got) != 0 {
		t.Errorf("Parse(\"\") = %v, want empty", got)
	}
}

func TestCountTicks(t *testing.T) {
	raw := "digraph{a}digraph{b}" + indexMarker + "digraph{c}" + indexMarker
	if got := CountTicks(Parse(raw, DelimiterIndex)); got != 3 {
		t.Errorf("CountTicks() = %d, want 3", got)
	}
}

func TestGraphDocumentString(t *testing.T) {
	doc := GraphDocument{Position: 12, Tick: 3}
	if doc.String() != "12_3" {
		t.Errorf("String() = %q, want %q", doc.String(), "12_3")
	}
}
