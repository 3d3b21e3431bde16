package native

import "errors"

// Package errors for the hal-backed device.
var (
	// ErrNilDevice is returned when resources are built without a hal device or queue.
	ErrNilDevice = errors.New("native: hal device or queue is nil")

	// ErrNoAdapter is returned when the backend exposes no GPU adapter.
	ErrNoAdapter = errors.New("native: no GPU adapter available")

	// ErrBackendUnavailable is returned when the requested backend is not compiled in.
	ErrBackendUnavailable = errors.New("native: backend not available")

	// ErrNotHalProvider is returned when a device provider does not expose hal types.
	ErrNotHalProvider = errors.New("native: provider does not expose HAL device and queue")

	// ErrFenceTimeout is returned when submitted work does not finish in time.
	ErrFenceTimeout = errors.New("native: timed out waiting for GPU")

	// ErrBufferDestroyed is returned when operating on a destroyed buffer.
	ErrBufferDestroyed = errors.New("native: buffer has been destroyed")

	// ErrNotMapped is returned by MappedRange on an unmapped buffer.
	ErrNotMapped = errors.New("native: buffer is not mapped")

	// ErrInvalidRange is returned for ranges outside the buffer.
	ErrInvalidRange = errors.New("native: range out of bounds")

	// ErrForeignResource is returned for buffers or command buffers from another device.
	ErrForeignResource = errors.New("native: resource belongs to another device")

	// ErrMapped is returned when the queue touches a buffer that is still mapped.
	ErrMapped = errors.New("native: buffer is mapped")

	// ErrSubmitted is returned when a command buffer is submitted twice.
	ErrSubmitted = errors.New("native: command buffer already submitted")
)
