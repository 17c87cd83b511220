package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `{
	"log": {"level": "debug", "file": "plugin.log"},
	"engine": {"delay_unit": 20, "connect_timeout": "2s"},
	"memtest": {"buffer_mb": 64, "paranoid": true, "fill": 0.25}
}`

func TestDottedLookups(t *testing.T) {
	c, err := Parse([]byte(sample))
	require.NoError(t, err)

	assert.Equal(t, "debug", c.GetString("log.level", "info"))
	assert.Equal(t, "info", c.GetString("log.missing", "info"))
	assert.Equal(t, 64, c.GetInt("memtest.buffer_mb", 16))
	assert.Equal(t, 16, c.GetInt("memtest.missing", 16))
	assert.Equal(t, 0.25, c.GetFloat("memtest.fill", 1.0))
	assert.True(t, c.GetBool("memtest.paranoid", false))
	assert.False(t, c.GetBool("memtest.missing", false))
}

func TestDurations(t *testing.T) {
	c, err := Parse([]byte(sample))
	require.NoError(t, err)

	assert.Equal(t, 20*time.Millisecond, c.GetDuration("engine.delay_unit", time.Second))
	assert.Equal(t, 2*time.Second, c.GetDuration("engine.connect_timeout", time.Second))
	assert.Equal(t, time.Second, c.GetDuration("engine.missing", time.Second))

	c, err = Parse([]byte(`{"bad": "not a duration"}`))
	require.NoError(t, err)
	assert.Equal(t, time.Second, c.GetDuration("bad", time.Second))
}

func TestWrongTypesFallBack(t *testing.T) {
	c, err := Parse([]byte(sample))
	require.NoError(t, err)

	assert.Equal(t, "x", c.GetString("memtest.buffer_mb", "x"))
	assert.Equal(t, 5, c.GetInt("log.level", 5))
	// A path through a leaf cannot resolve.
	assert.Equal(t, "x", c.GetString("log.level.deeper", "x"))
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.Equal(t, "fallback", c.GetString("anything", "fallback"))
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "burnin-plugin.json")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", c.GetString("log.level", "info"))
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "burnin-plugin.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"broken`), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEmpty(t *testing.T) {
	c := Empty()
	assert.Equal(t, 3, c.GetInt("a.b.c", 3))
	_, ok := c.Get("a")
	assert.False(t, ok)
}
