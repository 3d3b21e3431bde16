package backend

import (
	"errors"

	"github.com/gogpu/bufvec"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not registered.
	ErrBackendNotAvailable = errors.New("backend: not available")

	// ErrNoDevice is returned when no registered backend could open a device.
	ErrNoDevice = errors.New("backend: no device could be opened")
)

// Device is an opened device that vecs can allocate from.
//
// Devices are created via Open() or Default() from registered factories.
type Device interface {
	// Name returns a human-readable device identifier.
	Name() string

	// Resources returns the device and queue for bufvec constructors.
	Resources() bufvec.Resources

	// Close releases the device. Vecs created from it must not be used
	// afterwards.
	Close()
}
