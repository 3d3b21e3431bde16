package bufvec

import "unsafe"

// Bytes returns the in-memory bytes of *v without copying.
// The view aliases v and is valid as long as v is.
func Bytes[T any](v *T) []byte {
	n := unsafe.Sizeof(*v)
	if n == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(v)), n)
}

// SliceBytes returns the in-memory bytes of s without copying.
func SliceBytes[T any](s []T) []byte {
	if len(s) == 0 {
		return nil
	}
	n := uintptr(len(s)) * unsafe.Sizeof(s[0])
	if n == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(s))), n)
}

// AsSlice reinterprets b as a slice of T without copying. Trailing bytes
// that do not form a whole record are ignored.
//
// b must be suitably aligned for T. Mapped ranges and Go allocations of at
// least the record alignment satisfy this.
func AsSlice[T any](b []byte) []T {
	var zero T
	size := unsafe.Sizeof(zero)
	if size == 0 || len(b) < int(size) {
		return nil
	}
	return unsafe.Slice((*T)(unsafe.Pointer(unsafe.SliceData(b))), uintptr(len(b))/size)
}

// copyRecord decodes a T from the front of b.
func copyRecord[T any](b []byte) T {
	var v T
	copy(Bytes(&v), b)
	return v
}
