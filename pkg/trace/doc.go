// Package trace splits the textual trace of a matching run into positions
// and ticks.
//
// A trace is the output of the matching engine when tracing is enabled. It is
// a sequence of DOT graph blocks, one per algorithmic step ("tick"), grouped by
// input position. Each group is terminated by a marker comment line:
//
//	digraph regexp {
//	  0 -> 1 [label="a"];
//	}
//	// End of index
//	digraph regexp {
//	  1 -> 2 [label="b{2}"];
//	}
//	// End of index
//
// # Delimiters
//
// The marker text differs between versions of the trace producer, and nothing
// inside the trace identifies the version. The marker is therefore chosen
// explicitly through a [Delimiter]: [DelimiterIndex] (the default) or
// [DelimiterOffset]. A run uses exactly one marker; the parser never tries
// both.
//
// # Parsing
//
// [Parse] splits the trace on the marker, keeps only marker-terminated chunks
// that hold at least one graph, and cuts every chunk after each top-level
// closing brace. Braces inside quoted
// strings (edge labels hold the printed regular expression, which may contain
// "{" and "}") do not count. The closing brace is kept, so each
// [GraphDocument] is a complete block and concatenating a position's
// documents gives back the chunk text without its trailing whitespace.
//
// The parser never fails: malformed input degrades into fewer or odder
// documents, and syntax problems surface when the documents are rendered.
// Use a [Validator] to check documents up front.
package trace
