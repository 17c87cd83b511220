//go:build windows

package shm

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/srediag/burnin-plugin/api"
)

const mapAccess = windows.FILE_MAP_READ | windows.FILE_MAP_WRITE

// Open attaches to an existing named mapping.
func (t *Transport) Open(name string) (api.Handle, error) {
	p, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return 0, fmt.Errorf("shm name %s: %w", name, err)
	}
	h, err := windows.OpenFileMapping(mapAccess, false, p)
	if err != nil {
		return 0, fmt.Errorf("shm open %s: %w", name, err)
	}
	return api.Handle(h), nil
}

// Create allocates a named mapping of size bytes backed by the page file.
func (t *Transport) Create(name string, size int) (api.Handle, error) {
	p, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return 0, fmt.Errorf("shm name %s: %w", name, err)
	}
	// CreateFileMapping reports ERROR_ALREADY_EXISTS through err while still
	// returning a valid handle to the existing mapping.
	h, err := windows.CreateFileMapping(windows.InvalidHandle, nil,
		windows.PAGE_READWRITE, 0, uint32(size), p)
	if err != nil {
		if h != 0 {
			_ = windows.CloseHandle(h)
		}
		return 0, fmt.Errorf("shm create %s: %w", name, err)
	}
	return api.Handle(h), nil
}

// Map maps size bytes of an opened mapping into the process.
func (t *Transport) Map(h api.Handle, size int) ([]byte, error) {
	addr, err := windows.MapViewOfFile(windows.Handle(h), mapAccess, 0, 0, uintptr(size))
	if err != nil {
		return nil, fmt.Errorf("map view: %w", err)
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), size), nil
}

// Unmap releases a mapping returned by Map.
func (t *Transport) Unmap(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	if err := windows.UnmapViewOfFile(uintptr(unsafe.Pointer(&b[0]))); err != nil {
		return fmt.Errorf("unmap view: %w", err)
	}
	return nil
}

// Close releases the mapping handle.
func (t *Transport) Close(h api.Handle) error {
	if err := windows.CloseHandle(windows.Handle(h)); err != nil {
		return fmt.Errorf("close handle: %w", err)
	}
	return nil
}

// Unlink is a no-op: a Windows mapping vanishes with its last handle.
func (t *Transport) Unlink(name string) error { return nil }
