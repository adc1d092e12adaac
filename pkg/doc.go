// Package pkg provides the core libraries for tracegraph trace visualization.
//
// # Overview
//
// tracegraph turns the execution trace of a regular-expression matching
// engine into images of the engine's state machine. A trace is a sequence of
// DOT graphs grouped into positions by a marker line. Every graph (a tick) is
// rendered to an image, and the ticks of each position are stacked into one
// strip image.
//
// # Architecture
//
// The typical data flow through tracegraph:
//
//	Trace text (file, stdin, or [engine] driver)
//	         ↓
//	    [trace] package (split into positions and ticks)
//	         ↓
//	    [render] package (dot or go-graphviz, optionally cached)
//	         ↓
//	    [render] compositor (convert -append)
//	         ↓
//	    <target>/<p>_0.<fmt> + manifest.json
//
// # Quick Start
//
//	import (
//	    "context"
//	    "github.com/matzehuels/tracegraph/pkg/pipeline"
//	    "github.com/matzehuels/tracegraph/pkg/trace"
//	)
//
//	p, _ := pipeline.New(pipeline.Options{
//	    Format:    "png",
//	    TargetDir: "trace",
//	    Delimiter: trace.DelimiterIndex,
//	})
//	result, err := p.Run(context.Background(), raw)
//	// result.Composites lists <target>/0_0.png, <target>/1_0.png, ...
//
// # Main Packages
//
// [trace] - Parses raw traces into positions and ticks. Delimiter profiles
// select the marker line; the parser never fails and drops an unterminated
// tail.
//
// [render] - Renderer and Compositor interfaces. DotRenderer shells out to
// Graphviz, EmbeddedRenderer uses go-graphviz in process, CachingRenderer
// stores tick images in a [cache], ConvertCompositor stacks images with
// ImageMagick.
//
// [pipeline] - Preflight, directory layout, bounded parallel renders per
// position, compositing and the run manifest. Used by the CLI and the server.
//
// [engine] - Runs the matching engine with tracing enabled, building it first
// when the binary is missing.
//
// [toolexec] - Runs external tools with timeouts and checks they are on PATH.
//
// [cache] - File, Redis and null caches for rendered images.
//
// [config] - TOML configuration with defaults, normalization and validation.
//
// [server] - HTTP API that runs the pipeline per request.
//
// [errors] - Structured errors with codes, plus render, composite and tool
// errors carrying coordinates and tool output.
//
// [observability] - Hooks for progress reporting and metrics.
//
// # Testing
//
//	go test ./pkg/...
//
// Most tests replace external tools with a fake [toolexec.Runner] or with
// shell scripts placed on PATH.
//
// [trace]: https://pkg.go.dev/github.com/matzehuels/tracegraph/pkg/trace
// [render]: https://pkg.go.dev/github.com/matzehuels/tracegraph/pkg/render
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/tracegraph/pkg/pipeline
// [engine]: https://pkg.go.dev/github.com/matzehuels/tracegraph/pkg/engine
// [toolexec]: https://pkg.go.dev/github.com/matzehuels/tracegraph/pkg/toolexec
// [toolexec.Runner]: https://pkg.go.dev/github.com/matzehuels/tracegraph/pkg/toolexec#Runner
// [cache]: https://pkg.go.dev/github.com/matzehuels/tracegraph/pkg/cache
// [config]: https://pkg.go.dev/github.com/matzehuels/tracegraph/pkg/config
// [server]: https://pkg.go.dev/github.com/matzehuels/tracegraph/pkg/server
// [errors]: https://pkg.go.dev/github.com/matzehuels/tracegraph/pkg/errors
// [observability]: https://pkg.go.dev/github.com/matzehuels/tracegraph/pkg/observability
package pkg
