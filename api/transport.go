package api

// Handle identifies an open shared memory object. Its meaning is platform
// specific: a file descriptor on POSIX systems, an object handle on Windows.
type Handle uintptr

// Transport opens and maps named shared memory blocks from the plugin side.
// The platform implementation lives in internal/shm; tests substitute fakes.
// Failures keep their platform error text when wrapped, which is the
// diagnostic surface connection errors carry upward.
type Transport interface {
	// Open attaches to an existing named block.
	Open(name string) (Handle, error)
	// Map maps size bytes of the opened block into the process.
	Map(h Handle, size int) ([]byte, error)
	// Unmap releases a mapping returned by Map.
	Unmap(b []byte) error
	// Close releases the handle returned by Open.
	Close(h Handle) error
}

// Allocator extends Transport with the host side operations.
type Allocator interface {
	Transport
	// Create allocates a named block of size bytes, failing if it exists.
	Create(name string, size int) (Handle, error)
	// Unlink removes a named block on platforms where names persist.
	Unlink(name string) error
}
