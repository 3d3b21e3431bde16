package backend

import (
	"github.com/gogpu/bufvec"
	"github.com/gogpu/bufvec/internal/memdev"
)

// Backend name constants.
const (
	// BackendMemory is the name of the in-memory device.
	BackendMemory = "memory"
	// BackendNative is the name of the hal GPU backend (gogpu/wgpu).
	BackendNative = "native"
	// BackendNoop is the name of the hal noop backend.
	BackendNoop = "noop"
)

// MemoryDevice keeps buffers in host memory. It is always available and
// counts every allocation, write and copy.
type MemoryDevice struct {
	dev *memdev.Device
}

// init registers the memory backend on package import.
func init() {
	Register(BackendMemory, func() (Device, error) {
		return NewMemoryDevice(bufvec.Limits{}), nil
	})
}

// NewMemoryDevice creates an in-memory device with the given limits.
func NewMemoryDevice(limits bufvec.Limits) *MemoryDevice {
	return &MemoryDevice{dev: memdev.New(limits)}
}

// Name returns the backend identifier.
func (m *MemoryDevice) Name() string { return BackendMemory }

// Resources returns the device and its queue.
func (m *MemoryDevice) Resources() bufvec.Resources { return m.dev.Resources() }

// Close is a no-op; memory is reclaimed by the garbage collector.
func (m *MemoryDevice) Close() {}

// MemoryStats is a snapshot of MemoryDevice counters.
type MemoryStats = memdev.Stats

// Stats returns the allocation and traffic counters.
func (m *MemoryDevice) Stats() MemoryStats { return m.dev.Stats() }
