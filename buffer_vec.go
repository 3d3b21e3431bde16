// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package bufvec

import (
	"fmt"
	"math/bits"
	"unsafe"

	"github.com/gogpu/gputypes"
)

// BufferVec is a growable typed array in a single device allocation: one
// header record H followed by len densely packed element records E.
//
// The device allocation is owned by the vec. Push may replace it with a
// larger one; CopyNew makes an independent copy. A BufferVec must not be
// mutated from several goroutines at once.
type BufferVec[H, E any] struct {
	res    Resources
	buffer Buffer

	len      uint64
	capacity uint64

	// usage is the caller's usage plus RequiredUsage, fixed at creation.
	usage  gputypes.BufferUsage
	layout RecordLayout
	opts   options

	// header is the last header written from the host, nil when unknown.
	header []byte
}

// New creates an empty vec holding only header.
//
// New panics with a *LayoutError if H and E cannot share an allocation.
// The returned vec has Len() == 0 and Cap() == 0.
func New[H, E any](res Resources, usage gputypes.BufferUsage, header H, opts ...Option) (*BufferVec[H, E], error) {
	v, err := newVec[H, E](res, usage, opts)
	if err != nil {
		return nil, err
	}
	hb := Bytes(&header)
	buf, err := v.opts.uploader.Upload(res, v.descriptor(v.layout.ByteSize(0)), Region{Offset: 0, Data: hb})
	if err != nil {
		return nil, fmt.Errorf("bufvec: create %s: %w", v.name(), err)
	}
	v.buffer = buf
	v.header = append([]byte(nil), hb...)

	Logger().Debug("bufvec: created",
		"vec", v.name(),
		"bytes", buf.Size(),
		"mapped", v.opts.uploader.Mapped())
	return v, nil
}

// NewWithData creates a vec holding n elements initialized by fill.
//
// fill receives the header bytes and n element slots backed by the new
// allocation and must initialize all of them; nothing is zeroed on its
// behalf. When the uploader maps at creation fill writes straight into the
// buffer, otherwise into a host staging copy that is queued once.
//
// NewWithData panics with a *LayoutError if H and E cannot share an
// allocation. The returned vec has Len() == Cap() == n.
func NewWithData[H, E any](
	res Resources,
	usage gputypes.BufferUsage,
	n uint64,
	fill func(header []byte, elems []E),
	opts ...Option,
) (*BufferVec[H, E], error) {
	v, err := newVec[H, E](res, usage, opts)
	if err != nil {
		return nil, err
	}
	size, ok := v.layout.checkedByteSize(n)
	if !ok {
		return nil, fmt.Errorf("%w: %s with %d elements overflows", ErrBufferTooLarge, v.name(), n)
	}
	if limit := res.Device.Limits().MaxBufferSize; limit != 0 && size > limit {
		return nil, fmt.Errorf("%w: %s needs %d bytes, limit %d", ErrBufferTooLarge, v.name(), size, limit)
	}

	hsize := v.layout.Header.Size
	buf, err := v.opts.uploader.Fill(res, v.descriptor(size), func(contents []byte) {
		header, rest := contents[:hsize:hsize], contents[hsize:]
		fillElements(header, rest, n, v.layout.Element.Align, fill)
		v.header = append([]byte(nil), header...)
	})
	if err != nil {
		return nil, fmt.Errorf("bufvec: create %s with %d elements: %w", v.name(), n, err)
	}
	v.buffer = buf
	v.len = n
	v.capacity = n

	Logger().Debug("bufvec: created with data",
		"vec", v.name(),
		"len", n,
		"bytes", size,
		"mapped", v.opts.uploader.Mapped())
	return v, nil
}

// fillElements runs fill against the element region, going through an
// aligned temporary when the region is not aligned for E (possible when the
// header alignment is 1).
func fillElements[E any](header, region []byte, n, align uint64, fill func([]byte, []E)) {
	if n == 0 {
		fill(header, nil)
		return
	}
	if uint64(uintptr(unsafe.Pointer(unsafe.SliceData(region))))%align == 0 {
		fill(header, AsSlice[E](region)[:n])
		return
	}
	tmp := make([]E, n)
	fill(header, tmp)
	copy(region, SliceBytes(tmp))
}

func newVec[H, E any](res Resources, usage gputypes.BufferUsage, opts []Option) (*BufferVec[H, E], error) {
	layout := RecordLayoutOf[H, E]()
	layout.Validate()
	validatePlain[H](layout)
	validatePlain[E](layout)
	if !res.valid() {
		return nil, ErrNilResources
	}
	return &BufferVec[H, E]{
		res:    res,
		usage:  usage | RequiredUsage,
		layout: layout,
		opts:   applyOptions(opts),
	}, nil
}

// Len returns the number of elements stored in the vec. Len() <= Cap().
func (v *BufferVec[H, E]) Len() uint64 { return v.len }

// Cap returns the number of elements the current allocation can hold
// without reallocating.
func (v *BufferVec[H, E]) Cap() uint64 { return v.capacity }

// Buffer returns the current device allocation for binding. The handle is
// replaced by a reallocating Push.
func (v *BufferVec[H, E]) Buffer() Buffer { return v.buffer }

// Usage returns the usage flags of every allocation of the vec, including
// RequiredUsage.
func (v *BufferVec[H, E]) Usage() gputypes.BufferUsage { return v.usage }

// Layout returns the record layout of the vec.
func (v *BufferVec[H, E]) Layout() RecordLayout { return v.layout }

// ByteSize returns the size in bytes of the header and the committed
// elements.
func (v *BufferVec[H, E]) ByteSize() uint64 { return v.layout.ByteSize(v.len) }

// Clear marks the vec empty without reallocating or zeroing the contents.
// Stale elements stay in device memory until overwritten.
func (v *BufferVec[H, E]) Clear() { v.len = 0 }

// Destroy releases the device allocation. It is safe to call more than once.
func (v *BufferVec[H, E]) Destroy() {
	if v.buffer == nil {
		return
	}
	v.buffer.Destroy()
	v.buffer = nil
	v.len = 0
	v.capacity = 0
}

// Push appends data to the vec.
//
// While the remaining capacity fits data, the elements are queued into the
// current allocation. Otherwise the vec moves to a new allocation of
// nextPow2(max(2*Cap(), 2*len(data))) elements; the previous allocation is
// released. The result reports which of the two happened.
//
// On error the vec is left unchanged.
func (v *BufferVec[H, E]) Push(data []E) (PushResult, error) {
	if v.buffer == nil {
		return PushResult{}, ErrDestroyed
	}
	n := uint64(len(data))
	offset := v.layout.ElementOffset(v.len)

	if n <= v.capacity-v.len {
		if n > 0 {
			if err := v.res.Queue.WriteBuffer(v.buffer, offset, SliceBytes(data)); err != nil {
				return PushResult{}, fmt.Errorf("bufvec: push %d elements to %s: %w", n, v.name(), err)
			}
			v.len += n
		}
		return PushResult{kind: InPlace, buffer: v.buffer}, nil
	}

	newCap, ok := growCapacity(v.capacity, n)
	if !ok {
		return PushResult{}, fmt.Errorf("%w: %s cannot grow past %d elements", ErrBufferTooLarge, v.name(), v.capacity)
	}
	size, ok := v.layout.checkedByteSize(newCap)
	if !ok {
		return PushResult{}, fmt.Errorf("%w: %s capacity %d overflows", ErrBufferTooLarge, v.name(), newCap)
	}
	if limit := v.res.Device.Limits().MaxBufferSize; limit != 0 && size > limit {
		return PushResult{}, fmt.Errorf("%w: %s needs %d bytes for capacity %d, limit %d",
			ErrBufferTooLarge, v.name(), size, newCap, limit)
	}

	Logger().Info("bufvec: allocating new buffer",
		"vec", v.name(),
		"capacity", newCap,
		"fit", n,
		"bytes", size,
		"batch_bytes", v.layout.Header.Size+n*v.layout.Element.Size,
		"growth", v.opts.growth.String())

	regions := []Region{{Offset: offset, Data: SliceBytes(data)}}
	if v.opts.growth == DiscardContents && v.header != nil {
		regions = append(regions, Region{Offset: 0, Data: v.header})
	}
	buf, err := v.opts.uploader.Upload(v.res, v.descriptor(size), regions...)
	if err != nil {
		return PushResult{}, fmt.Errorf("bufvec: grow %s to %d elements: %w", v.name(), newCap, err)
	}
	if v.opts.growth == PreserveContents && offset > 0 {
		if err := copyBuffer(v.res, v.buffer, buf, 0, offset, v.label("grow")); err != nil {
			buf.Destroy()
			return PushResult{}, fmt.Errorf("bufvec: carry %s into new allocation: %w", v.name(), err)
		}
	}

	v.buffer.Destroy()
	v.buffer = buf
	v.capacity = newCap
	v.len += n
	return PushResult{kind: Reallocated, buffer: buf}, nil
}

// growCapacity returns nextPow2(max(2*capacity, 2*n)). The result always
// covers len+n because len <= capacity.
func growCapacity(capacity, n uint64) (uint64, bool) {
	want := max(capacity, n)
	if want > 1<<62 {
		return 0, false
	}
	return nextPowerOfTwo(want * 2), true
}

// nextPowerOfTwo returns the smallest power of two >= x, and 1 for 0.
func nextPowerOfTwo(x uint64) uint64 {
	if x <= 1 {
		return 1
	}
	return 1 << bits.Len64(x-1)
}

// WritePartial overwrites the committed elements [start, start+len(data)).
//
// WritePartial never extends the vec: writing past Len() is a programming
// error and panics with a *BoundsError.
func (v *BufferVec[H, E]) WritePartial(start uint64, data []E) error {
	n := uint64(len(data))
	if start > v.len || n > v.len-start {
		panic(&BoundsError{Start: start, Count: n, Len: v.len})
	}
	if v.buffer == nil {
		return ErrDestroyed
	}
	if n == 0 {
		return nil
	}
	if err := v.res.Queue.WriteBuffer(v.buffer, v.layout.ElementOffset(start), SliceBytes(data)); err != nil {
		return fmt.Errorf("bufvec: write %d elements at %d of %s: %w", n, start, v.name(), err)
	}
	return nil
}

// WriteHeader overwrites the header record.
func (v *BufferVec[H, E]) WriteHeader(header H) error {
	if v.buffer == nil {
		return ErrDestroyed
	}
	hb := Bytes(&header)
	if len(hb) > 0 {
		if err := v.res.Queue.WriteBuffer(v.buffer, 0, hb); err != nil {
			return fmt.Errorf("bufvec: write header of %s: %w", v.name(), err)
		}
	}
	v.header = append([]byte(nil), hb...)
	return nil
}

// CopyNew returns an independent vec holding a device-side copy of the
// header and the committed elements. The copy is sized by Len(), not Cap(),
// and is submitted on its own.
//
// With copyHeader false only the elements are copied and the header bytes of
// the result are unspecified; write one with WriteHeader before use.
func (v *BufferVec[H, E]) CopyNew(copyHeader bool) (*BufferVec[H, E], error) {
	if v.buffer == nil {
		return nil, ErrDestroyed
	}
	size := v.ByteSize()
	buf, err := v.res.Device.CreateBuffer(&BufferDescriptor{
		Label: v.label("copy"),
		Size:  size,
		Usage: v.usage,
	})
	if err != nil {
		return nil, fmt.Errorf("bufvec: copy %s: %w", v.name(), err)
	}

	var offset uint64
	if !copyHeader {
		offset = v.layout.Header.Size
	}
	if size > offset {
		if err := copyBuffer(v.res, v.buffer, buf, offset, size-offset, v.label("copy")); err != nil {
			buf.Destroy()
			return nil, fmt.Errorf("bufvec: copy %s: %w", v.name(), err)
		}
	}

	c := &BufferVec[H, E]{
		res:      v.res,
		buffer:   buf,
		len:      v.len,
		capacity: v.len,
		usage:    v.usage,
		layout:   v.layout,
		opts:     v.opts,
	}
	if copyHeader && v.header != nil {
		c.header = append([]byte(nil), v.header...)
	}

	Logger().Debug("bufvec: copied",
		"vec", v.name(),
		"len", v.len,
		"bytes", size,
		"header", copyHeader)
	return c, nil
}

// copyBuffer copies [offset, offset+size) from src to dst in its own
// command buffer and submission.
func copyBuffer(res Resources, src, dst Buffer, offset, size uint64, label string) error {
	encoder, err := res.Device.CreateCommandEncoder(label)
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	encoder.CopyBufferToBuffer(src, offset, dst, offset, size)
	cmd, err := encoder.Finish()
	if err != nil {
		return fmt.Errorf("finish encoding: %w", err)
	}
	if err := res.Queue.Submit(cmd); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	return nil
}

func (v *BufferVec[H, E]) descriptor(size uint64) BufferDescriptor {
	return BufferDescriptor{Label: v.opts.label, Size: size, Usage: v.usage}
}

func (v *BufferVec[H, E]) label(op string) string {
	if v.opts.label == "" {
		return "bufvec_" + op
	}
	return v.opts.label + "_" + op
}

// name identifies the vec in logs and errors.
func (v *BufferVec[H, E]) name() string {
	if v.opts.label != "" {
		return fmt.Sprintf("%q (%s + %s)", v.opts.label, v.layout.Header.Name, v.layout.Element.Name)
	}
	return fmt.Sprintf("`%s` + `%s`", v.layout.Header.Name, v.layout.Element.Name)
}
