package api

import (
	"context"
	"time"
)

// PluginSpec describes one plugin instance for a Lifecycle implementation.
type PluginSpec struct {
	// Plugin is the test implementation to drive.
	Plugin Plugin
	// ShmName is the shared block to attach to, including the name prefix.
	ShmName string
	// DelayUnit overrides the engine pacing unit; zero keeps the default.
	DelayUnit time.Duration
	// ConnectTimeout bounds the attach attempt; zero keeps the default.
	ConnectTimeout time.Duration
}

// Lifecycle manages named plugin instances inside one supervising process.
type Lifecycle interface {
	// StartPlugin launches a plugin under a unique instance name.
	StartPlugin(ctx context.Context, name string, spec PluginSpec) error
	// StopPlugin asks a running plugin to exit and waits for its cleanup.
	StopPlugin(ctx context.Context, name string) error
	// ReloadPlugin stops the named plugin and starts it again with a fresh
	// spec.
	ReloadPlugin(ctx context.Context, name string, spec PluginSpec) error
}
