package bufvec

import (
	"fmt"
	"math/bits"
	"reflect"
	"unsafe"
)

// Layout describes the in-memory shape of one record kind.
type Layout struct {
	// Name is the Go type name, used in diagnostics only.
	Name string

	// Size is the record size in bytes, including trailing padding.
	Size uint64

	// Align is the required alignment in bytes.
	Align uint64
}

// String returns the layout as "name(size=N, align=A)".
func (l Layout) String() string {
	return fmt.Sprintf("%s(size=%d, align=%d)", l.Name, l.Size, l.Align)
}

// LayoutOf returns the layout of T.
func LayoutOf[T any]() Layout {
	var zero T
	return Layout{
		Name:  reflect.TypeFor[T]().String(),
		Size:  uint64(unsafe.Sizeof(zero)),
		Align: uint64(unsafe.Alignof(zero)),
	}
}

// RecordLayout pairs the header layout with the element layout of a vec.
type RecordLayout struct {
	Header  Layout
	Element Layout
}

// RecordLayoutOf returns the record layout for header H and element E.
func RecordLayoutOf[H, E any]() RecordLayout {
	return RecordLayout{Header: LayoutOf[H](), Element: LayoutOf[E]()}
}

// Compatible reports whether the element array can start right after the
// header without padding.
func (r RecordLayout) Compatible() bool {
	return r.Header.Align <= 1 ||
		r.Element.Align <= 1 ||
		r.Header.Align%r.Element.Align == 0
}

// Validate panics with a *LayoutError if the pairing cannot be stored in a
// single allocation.
func (r RecordLayout) Validate() {
	if r.Element.Size == 0 {
		panic(&LayoutError{Header: r.Header, Element: r.Element, Reason: "element records must not be zero-sized"})
	}
	if !r.Compatible() {
		panic(&LayoutError{
			Header:  r.Header,
			Element: r.Element,
			Reason: fmt.Sprintf("align of `%s` must be a multiple of the align of `%s`",
				r.Header.Name, r.Element.Name),
		})
	}
}

// ElementOffset returns the byte offset of element i.
func (r RecordLayout) ElementOffset(i uint64) uint64 {
	return r.Header.Size + i*r.Element.Size
}

// ByteSize returns the allocation size holding the header and n elements.
func (r RecordLayout) ByteSize(n uint64) uint64 {
	return r.ElementOffset(n)
}

// checkedByteSize is ByteSize that reports overflow.
func (r RecordLayout) checkedByteSize(n uint64) (uint64, bool) {
	hi, lo := bits.Mul64(n, r.Element.Size)
	sum, carry := bits.Add64(lo, r.Header.Size, 0)
	return sum, hi == 0 && carry == 0
}

// validatePlain panics with a *LayoutError if T is not plain data.
// A byte view of a pointer means nothing to the device.
func validatePlain[T any](r RecordLayout) {
	t := reflect.TypeFor[T]()
	if field, ok := findIndirect(t); !ok {
		panic(&LayoutError{
			Header:  r.Header,
			Element: r.Element,
			Reason:  fmt.Sprintf("`%s` is not plain data: %s", t, field),
		})
	}
}

// findIndirect walks t and returns the first component that is not
// plain data.
func findIndirect(t reflect.Type) (string, bool) {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return "", true
	case reflect.Array:
		return findIndirect(t.Elem())
	case reflect.Struct:
		for i := range t.NumField() {
			f := t.Field(i)
			if what, ok := findIndirect(f.Type); !ok {
				return f.Name + " " + what, false
			}
		}
		return "", true
	default:
		return t.Kind().String(), false
	}
}
