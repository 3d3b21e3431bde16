package bufvec

import "github.com/gogpu/gputypes"

// RequiredUsage is added to every allocation made by a vec so that growth
// and CopyNew can always copy into and out of it.
const RequiredUsage = gputypes.BufferUsageCopyDst | gputypes.BufferUsageCopySrc

// BufferDescriptor describes a buffer to create.
type BufferDescriptor struct {
	// Label is an optional debug name.
	Label string

	// Size is the buffer size in bytes.
	Size uint64

	// Usage specifies how the buffer will be used.
	Usage gputypes.BufferUsage

	// MappedAtCreation creates the buffer pre-mapped for host writes.
	// The whole buffer is mapped until Unmap is called.
	MappedAtCreation bool
}

// Limits holds the device limits a vec honors.
type Limits struct {
	// MaxBufferSize is the largest allocation in bytes. Zero means unlimited.
	MaxBufferSize uint64
}

// Device allocates buffers and command encoders.
type Device interface {
	// CreateBuffer allocates a device buffer.
	CreateBuffer(desc *BufferDescriptor) (Buffer, error)

	// CreateCommandEncoder starts recording a new command buffer.
	CreateCommandEncoder(label string) (CommandEncoder, error)

	// Limits returns the device limits.
	Limits() Limits
}

// Queue schedules work on the device in FIFO order.
type Queue interface {
	// WriteBuffer enqueues a write of data into dst at offset.
	// data may be reused by the caller as soon as WriteBuffer returns.
	WriteBuffer(dst Buffer, offset uint64, data []byte) error

	// Submit enqueues recorded command buffers. The queue takes ownership
	// of the command buffers.
	Submit(cmds ...CommandBuffer) error
}

// Readback is implemented by queues that can copy device memory back to
// the host. It is optional and only used by Download.
type Readback interface {
	ReadBuffer(src Buffer, offset uint64, dst []byte) error
}

// Buffer is a device allocation.
type Buffer interface {
	// Label returns the debug name.
	Label() string

	// Size returns the allocation size in bytes.
	Size() uint64

	// Usage returns the usage flags the buffer was created with.
	Usage() gputypes.BufferUsage

	// MappedRange returns host memory for [offset, offset+size) of a buffer
	// created with MappedAtCreation. The slice is valid until Unmap.
	MappedRange(offset, size uint64) ([]byte, error)

	// Unmap publishes host writes to the device. Unmapping an unmapped
	// buffer is a no-op.
	Unmap() error

	// Destroy releases the allocation. The device may defer the release
	// until submitted work referencing the buffer has finished.
	Destroy()
}

// CommandEncoder records device commands.
type CommandEncoder interface {
	// CopyBufferToBuffer records a device-side copy of size bytes.
	CopyBufferToBuffer(src Buffer, srcOffset uint64, dst Buffer, dstOffset, size uint64)

	// Finish ends recording.
	Finish() (CommandBuffer, error)
}

// CommandBuffer is a finished, submittable recording.
type CommandBuffer interface {
	Label() string
}

// Resources bundles the device and queue a vec allocates from and writes
// through.
type Resources struct {
	Device Device
	Queue  Queue
}

func (r Resources) valid() bool {
	return r.Device != nil && r.Queue != nil
}
