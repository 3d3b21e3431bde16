package bufvec

import (
	"errors"
	"fmt"
)

// BufferVec errors.
var (
	// ErrNilResources is returned when a vec is created without a device or queue.
	ErrNilResources = errors.New("bufvec: resources need a device and a queue")

	// ErrDestroyed is returned when operating on a destroyed vec.
	ErrDestroyed = errors.New("bufvec: buffer vec has been destroyed")

	// ErrBufferTooLarge is returned when a reallocation would exceed the
	// device's maximum buffer size.
	ErrBufferTooLarge = errors.New("bufvec: allocation exceeds device buffer size limit")

	// ErrReadbackUnsupported is returned by Download when the queue cannot
	// read buffers back to the host.
	ErrReadbackUnsupported = errors.New("bufvec: queue does not support readback")
)

// LayoutError reports an invalid header/element pairing.
// It is raised with panic at construction time.
type LayoutError struct {
	Header  Layout
	Element Layout
	Reason  string
}

func (e *LayoutError) Error() string {
	return fmt.Sprintf("bufvec: invalid layout %s + %s: %s", e.Header, e.Element, e.Reason)
}

// BoundsError reports a partial write outside the committed elements.
// It is raised with panic by WritePartial.
type BoundsError struct {
	Start uint64
	Count uint64
	Len   uint64
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("bufvec: attempting to partially write beyond buffer bounds: [%d, %d) exceeds len %d",
		e.Start, e.Start+e.Count, e.Len)
}
