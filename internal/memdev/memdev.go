// Package memdev implements the bufvec device collaborators in host memory.
//
// Buffers are plain byte slices, queued writes and submitted copies are
// applied in FIFO order at the moment they are enqueued, and every operation
// is recorded so tests can assert on what reached the "device". Usage flags
// are enforced the way a WebGPU device validates them.
package memdev

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/gogpu/bufvec"
	"github.com/gogpu/gputypes"
)

// Device errors.
var (
	// ErrDestroyed is returned when using a destroyed buffer.
	ErrDestroyed = errors.New("memdev: buffer has been destroyed")

	// ErrNotMapped is returned by MappedRange on an unmapped buffer.
	ErrNotMapped = errors.New("memdev: buffer is not mapped")

	// ErrMapped is returned when the queue touches a mapped buffer.
	ErrMapped = errors.New("memdev: buffer is mapped")

	// ErrOutOfRange is returned for ranges outside the buffer.
	ErrOutOfRange = errors.New("memdev: range out of bounds")

	// ErrUsage is returned when a buffer lacks the usage an operation needs.
	ErrUsage = errors.New("memdev: buffer usage does not allow operation")

	// ErrForeignBuffer is returned for buffers created by another device.
	ErrForeignBuffer = errors.New("memdev: buffer belongs to another device")

	// ErrOutOfMemory is returned when allocation is forced to fail.
	ErrOutOfMemory = errors.New("memdev: out of memory")
)

// Write records a queued buffer write.
type Write struct {
	Buffer *Buffer
	Offset uint64
	Data   []byte
}

// Copy records a buffer-to-buffer copy.
type Copy struct {
	Src       *Buffer
	SrcOffset uint64
	Dst       *Buffer
	DstOffset uint64
	Size      uint64
}

// Device is an in-memory bufvec.Device. It also provides the queue.
type Device struct {
	mu sync.Mutex

	limits bufvec.Limits

	created   int
	destroyed int
	live      map[*Buffer]struct{}
	writes    []Write
	copies    []Copy
	submits   int

	// failCreate makes the next CreateBuffer calls fail.
	failCreate int
}

// New returns an empty device with the given limits.
func New(limits bufvec.Limits) *Device {
	return &Device{
		limits: limits,
		live:   make(map[*Buffer]struct{}),
	}
}

// Resources returns the device and its queue as bufvec resources.
func (d *Device) Resources() bufvec.Resources {
	return bufvec.Resources{Device: d, Queue: &Queue{dev: d}}
}

// Limits implements bufvec.Device.
func (d *Device) Limits() bufvec.Limits { return d.limits }

// CreateBuffer implements bufvec.Device.
func (d *Device) CreateBuffer(desc *bufvec.BufferDescriptor) (bufvec.Buffer, error) {
	if desc == nil {
		return nil, fmt.Errorf("memdev: buffer descriptor is nil")
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.failCreate > 0 {
		d.failCreate--
		return nil, ErrOutOfMemory
	}
	if d.limits.MaxBufferSize != 0 && desc.Size > d.limits.MaxBufferSize {
		return nil, fmt.Errorf("%w: %d bytes exceeds limit %d", ErrOutOfMemory, desc.Size, d.limits.MaxBufferSize)
	}
	if desc.Usage == 0 {
		return nil, fmt.Errorf("memdev: buffer usage is empty")
	}

	b := &Buffer{
		dev:    d,
		desc:   *desc,
		data:   make([]byte, desc.Size),
		mapped: desc.MappedAtCreation,
	}
	// Fresh device memory is not zeroed in general; make stale reads visible.
	for i := range b.data {
		b.data[i] = 0xCD
	}
	d.created++
	d.live[b] = struct{}{}
	return b, nil
}

// FailNextCreates makes the next n CreateBuffer calls return ErrOutOfMemory.
func (d *Device) FailNextCreates(n int) {
	d.mu.Lock()
	d.failCreate = n
	d.mu.Unlock()
}

// CreateCommandEncoder implements bufvec.Device.
func (d *Device) CreateCommandEncoder(label string) (bufvec.CommandEncoder, error) {
	return &CommandEncoder{dev: d, label: label}, nil
}

// Stats is a snapshot of device counters.
type Stats struct {
	Created   int
	Destroyed int
	Live      int
	Writes    int
	Copies    int
	Submits   int
}

// Stats returns the current counters.
func (d *Device) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Stats{
		Created:   d.created,
		Destroyed: d.destroyed,
		Live:      len(d.live),
		Writes:    len(d.writes),
		Copies:    len(d.copies),
		Submits:   d.submits,
	}
}

// Writes returns the queued writes applied so far.
func (d *Device) Writes() []Write {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Write(nil), d.writes...)
}

// Copies returns the copies executed so far.
func (d *Device) Copies() []Copy {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Copy(nil), d.copies...)
}

// checkRange validates b for a queue or copy access. Callers hold d.mu.
func (d *Device) checkRange(b *Buffer, offset, size uint64, need gputypes.BufferUsage) error {
	if b.dev != d {
		return ErrForeignBuffer
	}
	if b.destroyed {
		return ErrDestroyed
	}
	if b.mapped {
		return ErrMapped
	}
	if !b.desc.Usage.Contains(need) {
		return fmt.Errorf("%w: %q needs usage %v", ErrUsage, b.desc.Label, need)
	}
	if offset > b.desc.Size || size > b.desc.Size-offset {
		return fmt.Errorf("%w: [%d, +%d) of %d bytes", ErrOutOfRange, offset, size, b.desc.Size)
	}
	return nil
}

// Buffer is an in-memory bufvec.Buffer.
type Buffer struct {
	dev       *Device
	desc      bufvec.BufferDescriptor
	data      []byte
	mapped    bool
	destroyed bool
}

// Label implements bufvec.Buffer.
func (b *Buffer) Label() string { return b.desc.Label }

// Size implements bufvec.Buffer.
func (b *Buffer) Size() uint64 { return b.desc.Size }

// Usage implements bufvec.Buffer.
func (b *Buffer) Usage() gputypes.BufferUsage { return b.desc.Usage }

// MappedRange implements bufvec.Buffer.
func (b *Buffer) MappedRange(offset, size uint64) ([]byte, error) {
	b.dev.mu.Lock()
	defer b.dev.mu.Unlock()
	if b.destroyed {
		return nil, ErrDestroyed
	}
	if !b.mapped {
		return nil, ErrNotMapped
	}
	if offset > b.desc.Size || size > b.desc.Size-offset {
		return nil, fmt.Errorf("%w: [%d, +%d) of %d bytes", ErrOutOfRange, offset, size, b.desc.Size)
	}
	return b.data[offset : offset+size : offset+size], nil
}

// Unmap implements bufvec.Buffer.
func (b *Buffer) Unmap() error {
	b.dev.mu.Lock()
	defer b.dev.mu.Unlock()
	if b.destroyed {
		return ErrDestroyed
	}
	b.mapped = false
	return nil
}

// Destroy implements bufvec.Buffer.
func (b *Buffer) Destroy() {
	b.dev.mu.Lock()
	defer b.dev.mu.Unlock()
	if b.destroyed {
		return
	}
	b.destroyed = true
	b.mapped = false
	b.dev.destroyed++
	delete(b.dev.live, b)
}

// IsDestroyed reports whether Destroy was called.
func (b *Buffer) IsDestroyed() bool {
	b.dev.mu.Lock()
	defer b.dev.mu.Unlock()
	return b.destroyed
}

// Contents returns a copy of the buffer bytes, bypassing the queue.
func (b *Buffer) Contents() []byte {
	b.dev.mu.Lock()
	defer b.dev.mu.Unlock()
	return append([]byte(nil), b.data...)
}

// Queue is the in-memory bufvec.Queue. It implements bufvec.Readback.
type Queue struct {
	dev *Device
}

var (
	_ bufvec.Queue    = (*Queue)(nil)
	_ bufvec.Readback = (*Queue)(nil)
	_ bufvec.Device   = (*Device)(nil)
	_ bufvec.Buffer   = (*Buffer)(nil)
)

// WriteBuffer implements bufvec.Queue.
func (q *Queue) WriteBuffer(dst bufvec.Buffer, offset uint64, data []byte) error {
	b, ok := dst.(*Buffer)
	if !ok {
		return ErrForeignBuffer
	}
	d := q.dev
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkRange(b, offset, uint64(len(data)), gputypes.BufferUsageCopyDst); err != nil {
		return err
	}
	copy(b.data[offset:], data)
	d.writes = append(d.writes, Write{Buffer: b, Offset: offset, Data: append([]byte(nil), data...)})
	return nil
}

// Submit implements bufvec.Queue. The whole batch is validated before any
// copy is applied.
func (q *Queue) Submit(cmds ...bufvec.CommandBuffer) error {
	d := q.dev
	d.mu.Lock()
	defer d.mu.Unlock()

	batch := make([]*CommandBuffer, 0, len(cmds))
	for _, c := range cmds {
		cb, ok := c.(*CommandBuffer)
		if !ok {
			return fmt.Errorf("memdev: foreign command buffer %T", c)
		}
		if cb.submitted || slices.Contains(batch, cb) {
			return fmt.Errorf("memdev: command buffer %q submitted twice", cb.label)
		}
		for _, cp := range cb.copies {
			if err := d.checkRange(cp.Src, cp.SrcOffset, cp.Size, gputypes.BufferUsageCopySrc); err != nil {
				return fmt.Errorf("copy source: %w", err)
			}
			if err := d.checkRange(cp.Dst, cp.DstOffset, cp.Size, gputypes.BufferUsageCopyDst); err != nil {
				return fmt.Errorf("copy destination: %w", err)
			}
		}
		batch = append(batch, cb)
	}

	for _, cb := range batch {
		cb.submitted = true
		for _, cp := range cb.copies {
			copy(cp.Dst.data[cp.DstOffset:cp.DstOffset+cp.Size], cp.Src.data[cp.SrcOffset:cp.SrcOffset+cp.Size])
			d.copies = append(d.copies, cp)
		}
	}
	d.submits++
	return nil
}

// ReadBuffer implements bufvec.Readback.
func (q *Queue) ReadBuffer(src bufvec.Buffer, offset uint64, dst []byte) error {
	b, ok := src.(*Buffer)
	if !ok {
		return ErrForeignBuffer
	}
	d := q.dev
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkRange(b, offset, uint64(len(dst)), gputypes.BufferUsageCopySrc); err != nil {
		return err
	}
	copy(dst, b.data[offset:])
	return nil
}

// CommandEncoder records copies for a later Submit.
type CommandEncoder struct {
	dev      *Device
	label    string
	copies   []Copy
	finished bool
	err      error
}

// CopyBufferToBuffer implements bufvec.CommandEncoder.
func (e *CommandEncoder) CopyBufferToBuffer(src bufvec.Buffer, srcOffset uint64, dst bufvec.Buffer, dstOffset, size uint64) {
	s, ok1 := src.(*Buffer)
	t, ok2 := dst.(*Buffer)
	if !ok1 || !ok2 {
		e.err = ErrForeignBuffer
		return
	}
	e.copies = append(e.copies, Copy{Src: s, SrcOffset: srcOffset, Dst: t, DstOffset: dstOffset, Size: size})
}

// Finish implements bufvec.CommandEncoder.
func (e *CommandEncoder) Finish() (bufvec.CommandBuffer, error) {
	if e.err != nil {
		return nil, e.err
	}
	if e.finished {
		return nil, fmt.Errorf("memdev: encoder %q already finished", e.label)
	}
	e.finished = true
	return &CommandBuffer{label: e.label, copies: e.copies}, nil
}

// CommandBuffer is a finished recording.
type CommandBuffer struct {
	label     string
	copies    []Copy
	submitted bool
}

// Label implements bufvec.CommandBuffer.
func (c *CommandBuffer) Label() string { return c.label }
