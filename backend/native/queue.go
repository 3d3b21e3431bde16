package native

import (
	"fmt"

	"github.com/gogpu/bufvec"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Queue adapts a hal queue to bufvec.Queue and bufvec.Readback.
type Queue struct {
	dev *Device
	raw hal.Queue
}

// Raw returns the underlying hal queue.
func (q *Queue) Raw() hal.Queue { return q.raw }

// WriteBuffer implements bufvec.Queue.
func (q *Queue) WriteBuffer(dst bufvec.Buffer, offset uint64, data []byte) error {
	b, err := q.dev.own(dst)
	if err != nil {
		return err
	}
	if err := b.usable(offset, uint64(len(data))); err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	return q.write(b, offset, data)
}

// write queues data at offset, widening it to whole granules when needed.
func (q *Queue) write(b *Buffer, offset uint64, data []byte) error {
	end := offset + uint64(len(data))
	lo, hi := alignDown(offset), alignUp(end)
	if lo == offset && hi == end {
		if err := q.raw.WriteBuffer(b.raw, offset, data); err != nil {
			return fmt.Errorf("native: write %q: %w", b.desc.Label, err)
		}
		return nil
	}

	staged := make([]byte, hi-lo)
	if lo < offset {
		if err := q.read(b.raw, lo, staged[:copyAlignment]); err != nil {
			return fmt.Errorf("native: read leading granule: %w", err)
		}
	}
	// A single granule holding both edges was read above.
	if hi > end && !(lo < offset && hi-lo == copyAlignment) {
		if err := q.read(b.raw, hi-copyAlignment, staged[hi-lo-copyAlignment:]); err != nil {
			return fmt.Errorf("native: read trailing granule: %w", err)
		}
	}
	copy(staged[offset-lo:], data)
	if err := q.raw.WriteBuffer(b.raw, lo, staged); err != nil {
		return fmt.Errorf("native: write %q: %w", b.desc.Label, err)
	}

	slogger().Debug("native: widened unaligned write",
		"label", b.desc.Label, "offset", offset, "size", len(data), "lo", lo, "hi", hi)
	return nil
}

// Submit implements bufvec.Queue. It blocks until the GPU has executed the
// command buffers, then carries over the unaligned copy edges they recorded.
func (q *Queue) Submit(cmds ...bufvec.CommandBuffer) error {
	if len(cmds) == 0 {
		return nil
	}
	raws := make([]hal.CommandBuffer, 0, len(cmds))
	var edges []edgeCopy
	for _, c := range cmds {
		cb, ok := c.(*CommandBuffer)
		if !ok || cb.dev != q.dev {
			return fmt.Errorf("%w: %T", ErrForeignResource, c)
		}
		if cb.submitted {
			return fmt.Errorf("%w: %q", ErrSubmitted, cb.label)
		}
		cb.submitted = true
		raws = append(raws, cb.raw)
		edges = append(edges, cb.edges...)
	}

	if err := q.dev.submitAndWait(raws); err != nil {
		return fmt.Errorf("native: %w", err)
	}
	for _, e := range edges {
		tmp := make([]byte, e.size)
		if err := q.readRange(e.src, e.srcOffset, tmp); err != nil {
			return fmt.Errorf("native: copy edge from %q: %w", e.src.desc.Label, err)
		}
		if err := q.write(e.dst, e.dstOffset, tmp); err != nil {
			return fmt.Errorf("native: copy edge to %q: %w", e.dst.desc.Label, err)
		}
	}
	return nil
}

// ReadBuffer implements bufvec.Readback. It copies the range into a
// staging buffer, waits for the GPU and reads the staging buffer back.
func (q *Queue) ReadBuffer(src bufvec.Buffer, offset uint64, dst []byte) error {
	b, err := q.dev.own(src)
	if err != nil {
		return err
	}
	if err := b.usable(offset, uint64(len(dst))); err != nil {
		return err
	}
	if len(dst) == 0 {
		return nil
	}
	return q.readRange(b, offset, dst)
}

func (q *Queue) readRange(b *Buffer, offset uint64, dst []byte) error {
	lo, hi := alignDown(offset), alignUp(offset+uint64(len(dst)))
	if lo == offset && hi-lo == uint64(len(dst)) {
		return q.read(b.raw, offset, dst)
	}
	tmp := make([]byte, hi-lo)
	if err := q.read(b.raw, lo, tmp); err != nil {
		return err
	}
	copy(dst, tmp[offset-lo:])
	return nil
}

// read copies len(dst) bytes at offset of src to the host. offset and
// len(dst) are multiples of copyAlignment.
func (q *Queue) read(src hal.Buffer, offset uint64, dst []byte) error {
	d := q.dev
	size := uint64(len(dst))

	staging, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: d.cfg.Label + "_readback",
		Size:  size,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create staging buffer: %w", err)
	}
	defer d.device.DestroyBuffer(staging)

	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: d.cfg.Label + "_readback_encoder",
	})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding(d.cfg.Label + "_readback"); err != nil {
		return fmt.Errorf("begin encoding: %w", err)
	}
	encoder.CopyBufferToBuffer(src, staging, []hal.BufferCopy{
		{SrcOffset: offset, DstOffset: 0, Size: size},
	})
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("end encoding: %w", err)
	}

	if err := d.submitAndWait([]hal.CommandBuffer{cmdBuf}); err != nil {
		return err
	}
	if err := q.raw.ReadBuffer(staging, 0, dst); err != nil {
		return fmt.Errorf("readback: %w", err)
	}
	return nil
}
