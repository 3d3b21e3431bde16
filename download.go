package bufvec

import "fmt"

// Download reads the header and the committed elements of v back from the
// device. It needs a queue implementing Readback and stalls until the
// queued work before it has finished; use it for debugging and tests, not
// per frame.
func Download[H, E any](v *BufferVec[H, E]) (H, []E, error) {
	var header H
	if v.buffer == nil {
		return header, nil, ErrDestroyed
	}
	rb, ok := v.res.Queue.(Readback)
	if !ok {
		return header, nil, ErrReadbackUnsupported
	}

	raw := make([]byte, v.ByteSize())
	if len(raw) > 0 {
		if err := rb.ReadBuffer(v.buffer, 0, raw); err != nil {
			return header, nil, fmt.Errorf("bufvec: download %s: %w", v.name(), err)
		}
	}

	hsize := v.layout.Header.Size
	header = copyRecord[H](raw[:hsize])
	elems := make([]E, v.len)
	copy(SliceBytes(elems), raw[hsize:])
	return header, elems, nil
}
