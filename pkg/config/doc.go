// Package config loads, normalizes, and validates tracegraph configuration.
//
// Settings come from a TOML file, located in this order:
//
//  1. the path given with --config
//  2. $XDG_CONFIG_HOME/tracegraph/config.toml (or ~/.config/tracegraph/config.toml)
//  3. tracegraph.toml in the working directory
//
// Missing files are not an error: [Default] values apply. Command-line flags
// override file values after loading. The engine project root is always an
// explicit setting; it is never discovered by searching parent directories.
package config
