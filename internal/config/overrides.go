package config

import (
	"fmt"
	"strings"
)

// Overrides carries command-line replacements for file settings. Empty
// fields leave the loaded value untouched.
type Overrides struct {
	InputDir  string
	OutputDir string
	LogLevel  string
}

// ApplyOverrides replaces settings with non-empty override values and
// re-validates the result.
func (c *Config) ApplyOverrides(o Overrides) error {
	var err error
	if value := strings.TrimSpace(o.InputDir); value != "" {
		if c.Paths.InputDir, err = expandPath(value); err != nil {
			return fmt.Errorf("--input: %w", err)
		}
	}
	if value := strings.TrimSpace(o.OutputDir); value != "" {
		if c.Paths.OutputDir, err = expandPath(value); err != nil {
			return fmt.Errorf("--output: %w", err)
		}
	}
	if value := strings.TrimSpace(o.LogLevel); value != "" {
		c.Logging.Level = strings.ToLower(value)
	}
	return c.Validate()
}
