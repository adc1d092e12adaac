package config

import (
	"time"

	"github.com/matzehuels/tracegraph/pkg/engine"
)

const (
	appName = "tracegraph"

	defaultFormat        = "png"
	defaultTargetDir     = "trace"
	defaultDelimiter     = "index"
	defaultRenderer      = RendererDot
	defaultDotBinary     = "dot"
	defaultConvertBinary = "convert"
	defaultToolTimeout   = 30 * time.Second

	defaultEngineBinary = "tools/compinfo"
	defaultMatchType    = MatchFull

	defaultCacheEnabled = true
	defaultCacheTTL     = 7 * 24 * time.Hour

	defaultServerAddr = "127.0.0.1:7480"
)

// defaultBuildCommand builds the engine binary. "{root}" is replaced with
// the project root.
var defaultBuildCommand = []string{"scons", "-C", "{root}", "tools/compinfo"}

// Renderer names.
const (
	RendererDot      = "dot"
	RendererEmbedded = "embedded"
)

// Engine match types.
const (
	MatchFull  = engine.MatchFull
	MatchFirst = engine.MatchFirst
)

// Default returns a Config populated with built-in defaults.
func Default() Config {
	return Config{
		Format:        defaultFormat,
		TargetDir:     defaultTargetDir,
		Delimiter:     defaultDelimiter,
		Renderer:      defaultRenderer,
		DotBinary:     defaultDotBinary,
		ConvertBinary: defaultConvertBinary,
		ToolTimeout:   Duration{defaultToolTimeout},
		Engine: Engine{
			Binary:       defaultEngineBinary,
			BuildCommand: append([]string(nil), defaultBuildCommand...),
			MatchType:    defaultMatchType,
		},
		Cache: Cache{
			Enabled: defaultCacheEnabled,
			TTL:     Duration{defaultCacheTTL},
		},
		Server: Server{
			Addr: defaultServerAddr,
		},
	}
}
