package config

import (
	"fmt"
	"strings"
)

// Normalize trims values, fills empty fields with defaults and expands paths.
func (c *Config) Normalize() error {
	if err := c.normalizeOutput(); err != nil {
		return err
	}
	c.normalizeTools()
	if err := c.normalizeEngine(); err != nil {
		return err
	}
	if err := c.normalizeCache(); err != nil {
		return err
	}
	c.Server.Addr = strings.TrimSpace(c.Server.Addr)
	if c.Server.Addr == "" {
		c.Server.Addr = defaultServerAddr
	}
	return nil
}

func (c *Config) normalizeOutput() error {
	c.Format = strings.ToLower(strings.TrimSpace(c.Format))
	if c.Format == "" {
		c.Format = defaultFormat
	}
	c.TargetDir = strings.TrimSpace(c.TargetDir)
	if c.TargetDir == "" {
		c.TargetDir = defaultTargetDir
	}
	var err error
	if c.TargetDir, err = expandHome(c.TargetDir); err != nil {
		return fmt.Errorf("target_dir: %w", err)
	}
	c.Delimiter = strings.ToLower(strings.TrimSpace(c.Delimiter))
	if c.Delimiter == "" && c.Marker == "" {
		c.Delimiter = defaultDelimiter
	}
	return nil
}

func (c *Config) normalizeTools() {
	c.Renderer = strings.ToLower(strings.TrimSpace(c.Renderer))
	if c.Renderer == "" {
		c.Renderer = defaultRenderer
	}
	c.DotBinary = strings.TrimSpace(c.DotBinary)
	if c.DotBinary == "" {
		c.DotBinary = defaultDotBinary
	}
	c.ConvertBinary = strings.TrimSpace(c.ConvertBinary)
	if c.ConvertBinary == "" {
		c.ConvertBinary = defaultConvertBinary
	}
	if c.ToolTimeout.Duration == 0 {
		c.ToolTimeout.Duration = defaultToolTimeout
	}
}

func (c *Config) normalizeEngine() error {
	var err error
	if c.Root, err = expandPath(strings.TrimSpace(c.Root)); err != nil {
		return fmt.Errorf("root: %w", err)
	}
	c.Engine.Binary = strings.TrimSpace(c.Engine.Binary)
	if c.Engine.Binary == "" {
		c.Engine.Binary = defaultEngineBinary
	}
	if c.Engine.BuildCommand == nil {
		c.Engine.BuildCommand = append([]string(nil), defaultBuildCommand...)
	}
	c.Engine.MatchType = strings.ToLower(strings.TrimSpace(c.Engine.MatchType))
	if c.Engine.MatchType == "" {
		c.Engine.MatchType = defaultMatchType
	}
	return nil
}

func (c *Config) normalizeCache() error {
	var err error
	if c.Cache.Dir, err = expandPath(strings.TrimSpace(c.Cache.Dir)); err != nil {
		return fmt.Errorf("cache.dir: %w", err)
	}
	c.Cache.RedisURL = strings.TrimSpace(c.Cache.RedisURL)
	if c.Cache.TTL.Duration == 0 {
		c.Cache.TTL.Duration = defaultCacheTTL
	}
	return nil
}
