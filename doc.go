// Package bufvec provides a growable, GPU-resident typed array.
//
// # Overview
//
// A [BufferVec] owns a single device allocation holding a fixed-size header
// record followed by a densely packed array of element records:
//
//	| header H | e[0] | e[1] | ... | e[len-1] | unused capacity ... |
//
// The vec is written from the host and consumed by the device. It never reads
// device memory back (see [Download] for a debugging helper that does).
//
// # Quick Start
//
//	import (
//	    "github.com/gogpu/bufvec"
//	    "github.com/gogpu/bufvec/backend/native"
//	    "github.com/gogpu/gputypes"
//	)
//
//	res := native.NewResources(device, queue, native.Config{})
//	v, err := bufvec.New[uint32, Particle](res, gputypes.BufferUsageStorage, 0)
//	if err != nil {
//	    return err
//	}
//	defer v.Destroy()
//
//	r, err := v.Push(particles)
//	if err != nil {
//	    return err
//	}
//	if r.Reallocated() {
//	    rebuildBindGroup(v.Buffer())
//	}
//
// # Layout
//
// The element array starts right after the header without padding, so the
// header alignment must be a multiple of the element alignment (or either
// alignment must be 1). The pairing is checked once at construction and a
// mismatch panics with a [*LayoutError]: it is a type-pairing bug, not a
// runtime condition.
//
// Records are viewed as their in-memory bytes, so H and E must be plain data:
// fixed-size numbers, arrays and structs of them. Types carrying pointers,
// slices, strings or maps are rejected.
//
// # Growth
//
// [BufferVec.Push] writes in place while capacity remains and otherwise
// reallocates to the next power of two of max(2*cap, 2*n). The returned
// [PushResult] tells the caller whether the device allocation changed, which
// invalidates any bind group built on the previous [Buffer].
//
// With the default [PreserveContents] policy the header and committed
// elements are copied into the new allocation on the device. [DiscardContents]
// skips that copy for callers that repopulate the whole buffer after growth.
//
// # Uploads
//
// New allocations are initialized either mapped at creation (host writes
// straight into the new buffer, then unmaps) or through a queued write. The
// choice is an [Uploader] resolved once per process by [DefaultUploader]:
// queued on js/wasm, mapped everywhere else. Both produce identical contents.
//
// # Concurrency
//
// A BufferVec is not safe for concurrent mutation. Push, WritePartial,
// WriteHeader, CopyNew, Clear and Destroy must be serialized by the owner.
// Device effects are enqueued and rely on the queue's FIFO ordering.
package bufvec
