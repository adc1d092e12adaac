package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/tracegraph/pkg/trace"
)

// Engine configures the regexp engine that produces traces.
type Engine struct {
	// Binary is the engine executable, relative to Config.Root unless absolute.
	Binary string `toml:"binary"`
	// BuildCommand builds Binary when it is missing. "{root}" expands to Config.Root.
	BuildCommand []string `toml:"build_command"`
	// MatchType is "full" or "first".
	MatchType string `toml:"match_type"`
}

// Cache configures the rendered image cache.
type Cache struct {
	Enabled  bool     `toml:"enabled"`
	Dir      string   `toml:"dir"`       // File cache directory; default $XDG_CACHE_HOME/tracegraph
	RedisURL string   `toml:"redis_url"` // When set, Redis replaces the file cache
	Prefix   string   `toml:"prefix"`    // Key namespace
	TTL      Duration `toml:"ttl"`
}

// Server configures the HTTP API.
type Server struct {
	Addr string `toml:"addr"`
}

// Config holds every setting of the CLI and server.
type Config struct {
	Format        string   `toml:"format"`
	TargetDir     string   `toml:"target_dir"`
	Delimiter     string   `toml:"delimiter"`
	Marker        string   `toml:"marker"`
	Renderer      string   `toml:"renderer"`
	DotBinary     string   `toml:"dot_binary"`
	ConvertBinary string   `toml:"convert_binary"`
	Jobs          int      `toml:"jobs"`
	ToolTimeout   Duration `toml:"tool_timeout"`
	Root          string   `toml:"root"`

	Engine Engine `toml:"engine"`
	Cache  Cache  `toml:"cache"`
	Server Server `toml:"server"`
}

// Duration is a time.Duration written as a string ("30s") in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText parses a duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText formats the duration.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// DefaultConfigPath returns the user configuration file path.
func DefaultConfigPath() (string, error) {
	if base := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); base != "" {
		return filepath.Join(base, appName, "config.toml"), nil
	}
	return expandPath("~/.config/" + appName + "/config.toml")
}

// Load locates, parses, normalizes and validates a configuration file.
// It returns the config, the resolved path, and whether the file existed.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		md, err := toml.DecodeFile(resolvedPath, &cfg)
		if err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, "", false, fmt.Errorf("parse config: unknown key %q", undecoded[0].String())
		}
	}

	if err := cfg.Normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return "", false, fmt.Errorf("config file %s does not exist", expanded)
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs(appName + ".toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// Encode writes the configuration as TOML.
func (c *Config) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}

// ResolvedDelimiter returns the position marker selected by Delimiter and
// Marker. A non-empty Marker wins over the named profile.
func (c *Config) ResolvedDelimiter() (trace.Delimiter, error) {
	return trace.ResolveDelimiter(c.Delimiter, c.Marker)
}

// EngineBinary returns the engine executable path.
func (c *Config) EngineBinary() string {
	if filepath.IsAbs(c.Engine.Binary) || c.Root == "" {
		return c.Engine.Binary
	}
	return filepath.Join(c.Root, c.Engine.Binary)
}

// EngineBuildCommand returns the build command with "{root}" expanded.
func (c *Config) EngineBuildCommand() []string {
	out := make([]string, len(c.Engine.BuildCommand))
	for i, arg := range c.Engine.BuildCommand {
		out[i] = strings.ReplaceAll(arg, "{root}", c.Root)
	}
	return out
}

// CacheDir returns the file cache directory.
func (c *Config) CacheDir() (string, error) {
	if c.Cache.Dir != "" {
		return c.Cache.Dir, nil
	}
	return defaultCacheDir()
}

// defaultCacheDir returns the cache directory using XDG standard (~/.cache/tracegraph/).
func defaultCacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	expanded, err := expandHome(pathValue)
	if err != nil {
		return "", err
	}
	cleaned := filepath.Clean(expanded)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

func expandHome(pathValue string) (string, error) {
	if !strings.HasPrefix(pathValue, "~") {
		return pathValue, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	if pathValue == "~" {
		return home, nil
	}
	if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
		return filepath.Join(home, pathValue[2:]), nil
	}
	return pathValue, nil
}

// ExpandPath exposes the path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}
