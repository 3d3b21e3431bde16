package native

import (
	"fmt"

	"github.com/gogpu/bufvec"
	"github.com/gogpu/wgpu/hal"
)

// edgeCopy is the part of a buffer copy that does not cover whole 4-byte
// granules. It is carried over through the host after submission.
type edgeCopy struct {
	src, dst             *Buffer
	srcOffset, dstOffset uint64
	size                 uint64
}

// CommandEncoder records copies into a hal command encoder.
type CommandEncoder struct {
	dev   *Device
	raw   hal.CommandEncoder
	label string

	edges    []edgeCopy
	err      error
	finished bool
}

// CopyBufferToBuffer implements bufvec.CommandEncoder. The aligned middle of
// the range is copied on the GPU; unaligned edges are recorded for Submit.
func (e *CommandEncoder) CopyBufferToBuffer(src bufvec.Buffer, srcOffset uint64, dst bufvec.Buffer, dstOffset, size uint64) {
	if e.err != nil || size == 0 {
		return
	}
	s, err := e.dev.own(src)
	if err != nil {
		e.err = err
		return
	}
	t, err := e.dev.own(dst)
	if err != nil {
		e.err = err
		return
	}
	if srcOffset > s.desc.Size || size > s.desc.Size-srcOffset ||
		dstOffset > t.desc.Size || size > t.desc.Size-dstOffset {
		e.err = fmt.Errorf("%w: copy of %d bytes from %q@%d to %q@%d",
			ErrInvalidRange, size, s.desc.Label, srcOffset, t.desc.Label, dstOffset)
		return
	}

	end := srcOffset + size
	lo, hi := alignUp(srcOffset), alignDown(end)
	if srcOffset%copyAlignment != dstOffset%copyAlignment || lo >= hi {
		e.edges = append(e.edges, edgeCopy{src: s, dst: t, srcOffset: srcOffset, dstOffset: dstOffset, size: size})
		return
	}

	shift := lo - srcOffset
	e.raw.CopyBufferToBuffer(s.raw, t.raw, []hal.BufferCopy{
		{SrcOffset: lo, DstOffset: dstOffset + shift, Size: hi - lo},
	})
	if shift > 0 {
		e.edges = append(e.edges, edgeCopy{src: s, dst: t, srcOffset: srcOffset, dstOffset: dstOffset, size: shift})
	}
	if hi < end {
		e.edges = append(e.edges, edgeCopy{src: s, dst: t, srcOffset: hi, dstOffset: dstOffset + (hi - srcOffset), size: end - hi})
	}
}

// Finish implements bufvec.CommandEncoder.
func (e *CommandEncoder) Finish() (bufvec.CommandBuffer, error) {
	if e.finished {
		return nil, fmt.Errorf("native: encoder %q already finished", e.label)
	}
	e.finished = true
	if e.err != nil {
		e.raw.DiscardEncoding()
		return nil, e.err
	}
	raw, err := e.raw.EndEncoding()
	if err != nil {
		return nil, fmt.Errorf("native: end encoding: %w", err)
	}
	return &CommandBuffer{dev: e.dev, raw: raw, label: e.label, edges: e.edges}, nil
}

// CommandBuffer is a finished hal command buffer plus its host-side edges.
type CommandBuffer struct {
	dev       *Device
	raw       hal.CommandBuffer
	label     string
	edges     []edgeCopy
	submitted bool
}

// Label implements bufvec.CommandBuffer.
func (c *CommandBuffer) Label() string { return c.label }
