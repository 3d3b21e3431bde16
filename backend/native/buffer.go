package native

import (
	"fmt"
	"sync"

	"github.com/gogpu/bufvec"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Buffer is a hal buffer seen through bufvec.Buffer.
type Buffer struct {
	mu sync.Mutex

	dev    *Device
	raw    hal.Buffer
	desc   bufvec.BufferDescriptor
	padded uint64

	// shadow holds host writes while the buffer is mapped at creation.
	// dirtyLo and dirtyHi bound the bytes handed out by MappedRange.
	shadow  []byte
	dirtyLo uint64
	dirtyHi uint64

	destroyed bool
}

var _ bufvec.Buffer = (*Buffer)(nil)

// Raw returns the underlying hal buffer for bind groups and passes.
func (b *Buffer) Raw() hal.Buffer { return b.raw }

// PaddedSize returns the size of the hal allocation.
func (b *Buffer) PaddedSize() uint64 { return b.padded }

// Label implements bufvec.Buffer.
func (b *Buffer) Label() string { return b.desc.Label }

// Size implements bufvec.Buffer.
func (b *Buffer) Size() uint64 { return b.desc.Size }

// Usage implements bufvec.Buffer.
func (b *Buffer) Usage() gputypes.BufferUsage { return b.desc.Usage }

// MappedRange implements bufvec.Buffer.
func (b *Buffer) MappedRange(offset, size uint64) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.destroyed {
		return nil, ErrBufferDestroyed
	}
	if b.shadow == nil {
		return nil, ErrNotMapped
	}
	if offset > b.desc.Size || size > b.desc.Size-offset {
		return nil, fmt.Errorf("%w: [%d, +%d) of %d bytes", ErrInvalidRange, offset, size, b.desc.Size)
	}
	if size > 0 {
		b.dirtyLo = min(b.dirtyLo, offset)
		b.dirtyHi = max(b.dirtyHi, offset+size)
	}
	return b.shadow[offset : offset+size : offset+size], nil
}

// Unmap implements bufvec.Buffer. It queues one write covering every range
// handed out by MappedRange.
func (b *Buffer) Unmap() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.destroyed {
		return ErrBufferDestroyed
	}
	if b.shadow == nil {
		return nil
	}
	shadow := b.shadow
	b.shadow = nil
	if b.dirtyLo < b.dirtyHi {
		lo, hi := alignDown(b.dirtyLo), alignUp(b.dirtyHi)
		if err := b.dev.queue.raw.WriteBuffer(b.raw, lo, shadow[lo:hi]); err != nil {
			return fmt.Errorf("native: flush mapped %q: %w", b.desc.Label, err)
		}
	}
	return nil
}

// Destroy implements bufvec.Buffer. Submissions wait for completion, so the
// hal buffer is released right away.
func (b *Buffer) Destroy() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.destroyed {
		return
	}
	b.destroyed = true
	b.shadow = nil
	b.dev.device.DestroyBuffer(b.raw)
}

// usable reports why the queue may not touch [offset, offset+size) of b.
func (b *Buffer) usable(offset, size uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.destroyed {
		return ErrBufferDestroyed
	}
	if b.shadow != nil {
		return ErrMapped
	}
	if offset > b.desc.Size || size > b.desc.Size-offset {
		return fmt.Errorf("%w: [%d, +%d) of %d bytes", ErrInvalidRange, offset, size, b.desc.Size)
	}
	return nil
}

// own returns buf as a buffer of d.
func (d *Device) own(buf bufvec.Buffer) (*Buffer, error) {
	b, ok := buf.(*Buffer)
	if !ok || b.dev != d {
		return nil, fmt.Errorf("%w: %T", ErrForeignResource, buf)
	}
	return b, nil
}
