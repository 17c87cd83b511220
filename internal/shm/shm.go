// Package shm is the platform shared memory transport behind the connection
// and host layers. Linux uses POSIX shared memory objects under /dev/shm;
// Windows uses named file mappings backed by the page file.
package shm

import "github.com/srediag/burnin-plugin/api"

// Transport implements api.Allocator for the running platform.
type Transport struct{}

// New returns the platform transport.
func New() *Transport { return &Transport{} }

var _ api.Allocator = (*Transport)(nil)
