package api

import "time"

// Health probes the liveness of managed plugin instances.
type Health interface {
	// Heartbeat returns the time of the plugin's last progress mark.
	Heartbeat(name string) (time.Time, error)
	// LivenessCheck fails when the named plugin stalled or exited with an
	// error.
	LivenessCheck(name string) error
}
