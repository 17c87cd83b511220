// Package config loads the JSON configuration file the command line tools
// read at startup.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

// Config is a parsed configuration tree. Lookups address nested objects
// with dotted paths and fall back to the caller's default when the path is
// missing or holds the wrong type.
type Config struct {
	root map[string]any
}

// Empty returns a Config with no values; every lookup yields its default.
func Empty() *Config { return &Config{root: map[string]any{}} }

// Load reads a JSON file. A missing file is not an error; it loads as
// empty, so a tool runs on its defaults when no file was written.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Empty(), nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	c, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes a JSON object.
func Parse(b []byte) (*Config, error) {
	root := map[string]any{}
	if err := json.Unmarshal(b, &root); err != nil {
		return nil, err
	}
	return &Config{root: root}, nil
}

// Get walks a dotted path and reports whether it resolved.
func (c *Config) Get(path string) (any, bool) {
	cur := any(c.root)
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// GetString returns the string at path, or def.
func (c *Config) GetString(path, def string) string {
	if v, ok := c.Get(path); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// GetInt returns the integer at path, or def. JSON numbers decode as
// float64 and are truncated.
func (c *Config) GetInt(path string, def int) int {
	if v, ok := c.Get(path); ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		}
	}
	return def
}

// GetFloat returns the number at path, or def.
func (c *Config) GetFloat(path string, def float64) float64 {
	if v, ok := c.Get(path); ok {
		if f, ok := v.(float64); ok {
			return f
		}
	}
	return def
}

// GetBool returns the boolean at path, or def.
func (c *Config) GetBool(path string, def bool) bool {
	if v, ok := c.Get(path); ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// GetDuration returns the duration at path, or def. A number is read as
// milliseconds, a string as a Go duration such as "250ms".
func (c *Config) GetDuration(path string, def time.Duration) time.Duration {
	v, ok := c.Get(path)
	if !ok {
		return def
	}
	switch d := v.(type) {
	case float64:
		return time.Duration(d) * time.Millisecond
	case string:
		parsed, err := time.ParseDuration(d)
		if err != nil {
			return def
		}
		return parsed
	}
	return def
}
