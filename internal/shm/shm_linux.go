//go:build linux

package shm

import (
	"fmt"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/srediag/burnin-plugin/api"
)

const shmDir = "/dev/shm"

// Open attaches to an existing named block.
func (t *Transport) Open(name string) (api.Handle, error) {
	fd, err := unix.Open(filepath.Join(shmDir, name), unix.O_RDWR, 0o600)
	if err != nil {
		return 0, fmt.Errorf("shm open %s: %w", name, err)
	}
	return api.Handle(fd), nil
}

// Create allocates a named block of size bytes, failing if it exists.
func (t *Transport) Create(name string, size int) (api.Handle, error) {
	flags := unix.O_RDWR | unix.O_CREAT | unix.O_EXCL
	fd, err := unix.Open(filepath.Join(shmDir, name), flags, 0o600)
	if err != nil {
		return 0, fmt.Errorf("shm create %s: %w", name, err)
	}
	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		_ = unix.Close(fd)
		_ = unix.Unlink(filepath.Join(shmDir, name))
		return 0, fmt.Errorf("shm truncate %s: %w", name, err)
	}
	return api.Handle(fd), nil
}

// Map maps size bytes of an opened block into the process.
func (t *Transport) Map(h api.Handle, size int) ([]byte, error) {
	b, err := unix.Mmap(int(h), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap: %w", err)
	}
	return b, nil
}

// Unmap releases a mapping returned by Map.
func (t *Transport) Unmap(b []byte) error {
	if b == nil {
		return nil
	}
	if err := unix.Munmap(b); err != nil {
		return fmt.Errorf("munmap: %w", err)
	}
	return nil
}

// Close releases the handle.
func (t *Transport) Close(h api.Handle) error {
	if err := unix.Close(int(h)); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	return nil
}

// Unlink removes a named block from /dev/shm.
func (t *Transport) Unlink(name string) error {
	if err := unix.Unlink(filepath.Join(shmDir, name)); err != nil {
		return fmt.Errorf("shm unlink %s: %w", name, err)
	}
	return nil
}
