// Command burnin-host owns a shared memory block for one plugin run: it
// creates and arms the block, optionally launches the plugin process, and
// watches the run through a terminal dashboard or headless structured logs.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/srediag/burnin-plugin/internal/monitor"
	"github.com/srediag/burnin-plugin/internal/shm"
	"github.com/srediag/burnin-plugin/pkg/host"
	"github.com/srediag/burnin-plugin/pkg/record"
)

const stopGrace = 5 * time.Second

func main() {
	var (
		name     = flag.String("name", "", "shared memory block name (default BITest_<pid>)")
		plugin   = flag.String("plugin", "", "plugin binary to launch against the block")
		duty     = flag.Uint("duty", 50, "duty cycle, 0 to 100")
		headless = flag.Bool("headless", false, "log snapshots instead of the dashboard")
		interval = flag.Duration("interval", monitor.DefaultInterval, "snapshot poll interval")
		runFor   = flag.Duration("run", 0, "stop the test after this duration (0 runs until interrupted)")
	)
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Str("app", "burnin-host").Logger()

	if *name == "" {
		*name = fmt.Sprintf("%sTest_%d", record.NamePrefix, os.Getpid())
	}

	if err := run(logger, *name, *plugin, uint32(*duty), *headless, *interval, *runFor); err != nil {
		logger.Error().Err(err).Msg("host failed")
		os.Exit(1)
	}
}

func run(logger zerolog.Logger, name, pluginPath string, duty uint32, headless bool, interval, runFor time.Duration) error {
	h, err := host.Create(host.Config{Transport: shm.New(), Logger: logger}, name)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := h.Close(); cerr != nil {
			logger.Warn().Err(cerr).Msg("close block")
		}
	}()

	if err := h.SetDutyCycle(duty); err != nil {
		return err
	}
	h.SetTestRunning(true)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if runFor > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, runFor)
		defer cancel()
	}

	var child *exec.Cmd
	if pluginPath != "" {
		child = exec.Command(pluginPath, name)
		child.Stdout = os.Stdout
		child.Stderr = os.Stderr
		if err := child.Start(); err != nil {
			return fmt.Errorf("launch plugin: %w", err)
		}
		logger.Info().Str("plugin", pluginPath).Int("pid", child.Process.Pid).Msg("plugin launched")
	}
	defer shutdown(h, child, logger)

	logger.Info().Str("shm", name).Uint32("duty", duty).Msg("block armed")
	if headless {
		return watch(ctx, h, logger, interval)
	}
	return monitor.Run(ctx, h, monitor.Options{Interval: interval})
}

// watch logs notification events as they arrive and a snapshot line every
// second, until the run stops or ctx ends.
func watch(ctx context.Context, h *host.Host, logger zerolog.Logger, interval time.Duration) error {
	events := h.Events(ctx, interval)
	tick := time.NewTicker(time.Second)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			logEvent(logger, ev)
		case <-tick.C:
			snap := h.Snapshot()
			logger.Info().Msg(snap.String())
			if snap.TestStopped {
				return nil
			}
		}
	}
}

func logEvent(logger zerolog.Logger, ev host.Event) {
	switch ev.Kind {
	case host.EventStatus:
		logger.Info().Str("status", ev.Status).Stringer("code", ev.StatusCode).Msg("status change")
	case host.EventError:
		logger.Error().Uint32("count", ev.ErrorCount).Str("text", ev.ErrorText).
			Stringer("severity", ev.Severity).Msg("plugin error")
	case host.EventUser:
		logger.Info().Int("slot", ev.Slot).Str("label", ev.Field.Label).
			Str("value", ev.Field.Value).Msg("user field")
	}
}

// shutdown lowers the run flag, waits for the plugin to acknowledge, and
// reaps the child process if one was launched.
func shutdown(h *host.Host, child *exec.Cmd, logger zerolog.Logger) {
	h.SetTestRunning(false)

	ctx, cancel := context.WithTimeout(context.Background(), stopGrace)
	defer cancel()
	if err := h.WaitStopped(ctx); err != nil {
		logger.Warn().Err(err).Msg("plugin did not acknowledge stop")
	}

	if child == nil {
		return
	}
	done := make(chan error, 1)
	go func() { done <- child.Wait() }()
	select {
	case err := <-done:
		if err != nil {
			logger.Warn().Err(err).Msg("plugin exited with error")
		} else {
			logger.Info().Msg("plugin exited")
		}
	case <-time.After(stopGrace):
		logger.Warn().Msg("killing plugin process")
		_ = child.Process.Kill()
		<-done
	}
}
