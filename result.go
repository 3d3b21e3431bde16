package bufvec

import "fmt"

// PushKind tells how a push was satisfied.
type PushKind uint8

const (
	// InPlace means the elements were written into the existing allocation.
	InPlace PushKind = iota + 1

	// Reallocated means the vec moved to a new, larger allocation. Bind
	// groups and cached handles referencing the previous buffer are stale.
	Reallocated
)

// String returns the string representation of PushKind.
func (k PushKind) String() string {
	switch k {
	case InPlace:
		return "InPlace"
	case Reallocated:
		return "Reallocated"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// PushResult is returned by Push. Callers must look at it: after a
// reallocation every handle to the previous buffer is stale.
//
//	r, err := v.Push(batch)
//	if err != nil {
//	    return err
//	}
//	r.Match(nil, func(buf bufvec.Buffer) {
//	    bindGroup = rebuild(buf)
//	})
type PushResult struct {
	kind   PushKind
	buffer Buffer
}

// Kind returns how the push was satisfied.
func (r PushResult) Kind() PushKind { return r.kind }

// Reallocated reports whether the push moved the vec to a new allocation.
func (r PushResult) Reallocated() bool { return r.kind == Reallocated }

// Buffer returns the allocation holding the vec after the push.
func (r PushResult) Buffer() Buffer { return r.buffer }

// Match calls inPlace or reallocated depending on the result kind.
// Either callback may be nil.
func (r PushResult) Match(inPlace func(), reallocated func(Buffer)) {
	switch r.kind {
	case InPlace:
		if inPlace != nil {
			inPlace()
		}
	case Reallocated:
		if reallocated != nil {
			reallocated(r.buffer)
		}
	}
}

// String implements fmt.Stringer.
func (r PushResult) String() string {
	return r.kind.String()
}
