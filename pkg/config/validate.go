package config

import (
	"strings"

	"github.com/matzehuels/tracegraph/pkg/errors"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := errors.ValidateFormat(c.Format); err != nil {
		return err
	}
	if _, err := c.ResolvedDelimiter(); err != nil {
		return err
	}
	if err := c.validateTools(); err != nil {
		return err
	}
	if err := c.validateEngine(); err != nil {
		return err
	}
	if c.Cache.TTL.Duration < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "cache.ttl must not be negative")
	}
	return nil
}

func (c *Config) validateTools() error {
	switch c.Renderer {
	case RendererDot, RendererEmbedded:
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "renderer must be %q or %q, got %q", RendererDot, RendererEmbedded, c.Renderer)
	}
	if c.Jobs < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "jobs must not be negative")
	}
	if c.ToolTimeout.Duration < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "tool_timeout must not be negative")
	}
	return nil
}

func (c *Config) validateEngine() error {
	if err := ValidateMatchType(c.Engine.MatchType); err != nil {
		return err
	}
	if len(c.Engine.BuildCommand) > 0 && strings.TrimSpace(c.Engine.BuildCommand[0]) == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "engine.build_command must start with a program name")
	}
	return nil
}

// ValidateMatchType checks an engine match type.
func ValidateMatchType(matchType string) error {
	switch matchType {
	case MatchFull, MatchFirst:
		return nil
	}
	return errors.New(errors.ErrCodeInvalidConfig, "match_type must be %q or %q, got %q", MatchFull, MatchFirst, matchType)
}
