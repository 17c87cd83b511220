// Command burnin-plugin runs the memory pattern test against a shared memory
// block created by a test host. The host passes the block name as the only
// argument and arms the run flag when the test should begin.
//
// Configuration is read from burnin-plugin.json in the working directory, or
// from the path in BURNIN_PLUGIN_CONFIG. Missing files fall back to defaults.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/srediag/burnin-plugin/internal/memtest"
	"github.com/srediag/burnin-plugin/internal/shm"
	"github.com/srediag/burnin-plugin/pkg/config"
	"github.com/srediag/burnin-plugin/pkg/conn"
	"github.com/srediag/burnin-plugin/pkg/plugin"
)

const defaultConfigPath = "burnin-plugin.json"

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <shared-memory-name>\n", os.Args[0])
		os.Exit(1)
	}
	name := os.Args[1]

	cfg := loadConfig()
	logger := newLogger(cfg)

	test := memtest.New(memtest.Config{
		BufferMB: cfg.GetInt("memtest.buffer_mb", memtest.DefaultBufferMB),
		Logger:   logger,
	})
	c := conn.New(conn.Config{
		Transport: shm.New(),
		Timeout:   cfg.GetDuration("engine.connect_timeout", conn.DefaultTimeout),
		Logger:    logger,
	})
	runner := plugin.NewRunner(test, plugin.Config{
		Conn:      c,
		Logger:    logger,
		DelayUnit: cfg.GetDuration("engine.delay_unit", plugin.DefaultDelayUnit),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info().Str("shm", name).Str("plugin", test.Name()).Msg("starting run")
	if err := runner.Run(ctx, name); err != nil {
		logger.Error().Err(err).Msg("run failed")
		os.Exit(2)
	}
}

func loadConfig() *config.Config {
	path := os.Getenv("BURNIN_PLUGIN_CONFIG")
	if path == "" {
		path = defaultConfigPath
	}
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "burnin-plugin: %v, using defaults\n", err)
		return config.Empty()
	}
	return cfg
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.GetString("log.level", "info"))
	if err != nil {
		level = zerolog.InfoLevel
	}

	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	var out zerolog.LevelWriter = zerolog.MultiLevelWriter(console)
	if path := cfg.GetString("log.file", ""); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "burnin-plugin: open log file: %v\n", err)
		} else {
			out = zerolog.MultiLevelWriter(console, f)
		}
	}

	return zerolog.New(out).Level(level).With().
		Timestamp().
		Str("app", "burnin-plugin").
		Logger()
}
