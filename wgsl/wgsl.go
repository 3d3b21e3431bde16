// Package wgsl declares and compiles the shader side of a bufvec buffer.
//
// A vec buffer is one header record followed by a runtime-sized array of
// elements. In WGSL that is a struct whose last member is array<E>:
//
//	struct Particles {
//	    header: Globals,
//	    elements: array<Particle>,
//	}
//	@group(0) @binding(0) var<storage, read> particles: Particles;
//
// WGSL aligns members by its own rules (vec3 aligns to 16, for example), so
// the Go header and element types must be laid out to match. Setting
// [StorageDecl.Layout] makes [Declare] check the pairing: the WGSL array
// must start where the vec stores element 0, and its stride must equal the
// Go element size.
package wgsl

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gogpu/bufvec"
	"github.com/gogpu/naga"
)

// Access is the access mode of a storage binding.
type Access uint8

const (
	// Read declares a read-only storage binding.
	Read Access = iota
	// ReadWrite declares a read-write storage binding.
	ReadWrite
)

// String returns the WGSL spelling of the access mode.
func (a Access) String() string {
	switch a {
	case Read:
		return "read"
	case ReadWrite:
		return "read_write"
	default:
		return fmt.Sprintf("Unknown(%d)", int(a))
	}
}

// StorageDecl describes a storage binding over a vec buffer. Type names are
// inserted verbatim and must be declared elsewhere in the shader.
type StorageDecl struct {
	Group   uint32
	Binding uint32

	// Name is the variable name of the binding.
	Name string

	// Struct is the name of the generated wrapper struct.
	// Defaults to Name with the first letter upper-cased.
	Struct string

	// HeaderType is the WGSL type of the header member.
	// Empty means the buffer has no header member.
	HeaderType string

	// ElementType is the WGSL type of the array elements.
	ElementType string

	// HeaderField and ElementsField name the members.
	// They default to "header" and "elements".
	HeaderField   string
	ElementsField string

	Access Access

	// Layout is the record layout of the Go vec behind the binding.
	// The zero value skips the layout check.
	Layout bufvec.RecordLayout

	// ElementAlign is the WGSL alignment of ElementType. Zero derives it
	// for scalar, vector, matrix and fixed-size array types; struct element
	// types must set it when Layout is set.
	ElementAlign uint64
}

var (
	// ErrEmptySPIRV is returned when the compiler produced no words.
	ErrEmptySPIRV = errors.New("wgsl: compiler produced no SPIR-V")

	// ErrLayoutMismatch is returned by Declare when WGSL would place the
	// header or elements at other offsets than the Go record layout.
	ErrLayoutMismatch = errors.New("wgsl: WGSL layout does not match record layout")
)

// Declare returns the WGSL wrapper struct and the storage binding for d.
func Declare(d StorageDecl) (string, error) {
	if d.Layout.Element.Size != 0 {
		if err := checkLayout(d); err != nil {
			return "", err
		}
	}

	structName := d.Struct
	if structName == "" && d.Name != "" {
		structName = strings.ToUpper(d.Name[:1]) + d.Name[1:]
	}
	header := d.HeaderField
	if header == "" {
		header = "header"
	}
	elements := d.ElementsField
	if elements == "" {
		elements = "elements"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "struct %s {\n", structName)
	if d.HeaderType != "" {
		fmt.Fprintf(&b, "    %s: %s,\n", header, d.HeaderType)
	}
	fmt.Fprintf(&b, "    %s: array<%s>,\n", elements, d.ElementType)
	b.WriteString("}\n")
	fmt.Fprintf(&b, "@group(%d) @binding(%d) var<storage, %s> %s: %s;\n",
		d.Group, d.Binding, d.Access, d.Name, structName)
	return b.String(), nil
}

// checkLayout compares the WGSL member offsets of d with d.Layout.
func checkLayout(d StorageDecl) error {
	r := d.Layout
	if d.HeaderType == "" && r.Header.Size != 0 {
		return fmt.Errorf("%w: %d byte header %s has no WGSL member",
			ErrLayoutMismatch, r.Header.Size, r.Header.Name)
	}
	if size, _, ok := layoutOf(d.HeaderType); ok && size != r.Header.Size {
		return fmt.Errorf("%w: header %s is %d bytes, %s is %d bytes",
			ErrLayoutMismatch, r.Header.Name, r.Header.Size, d.HeaderType, size)
	}

	size, align, known := layoutOf(d.ElementType)
	if d.ElementAlign != 0 {
		align = d.ElementAlign
	} else if !known {
		return fmt.Errorf("%w: alignment of %q is unknown, set ElementAlign",
			ErrLayoutMismatch, d.ElementType)
	}
	if known && size != r.Element.Size {
		return fmt.Errorf("%w: element %s is %d bytes, %s is %d bytes",
			ErrLayoutMismatch, r.Element.Name, r.Element.Size, d.ElementType, size)
	}

	// Structs are at least as aligned as their members, so the header keeps
	// its Go size in WGSL and the array starts at the next multiple of align.
	if offset := alignUp(r.Header.Size, align); offset != r.ElementOffset(0) {
		return fmt.Errorf("%w: array<%s> starts at byte %d, element 0 of the vec is at byte %d",
			ErrLayoutMismatch, d.ElementType, offset, r.ElementOffset(0))
	}
	if stride := alignUp(r.Element.Size, align); stride != r.Element.Size {
		return fmt.Errorf("%w: array<%s> stride is %d bytes, element %s is %d bytes",
			ErrLayoutMismatch, d.ElementType, stride, r.Element.Name, r.Element.Size)
	}
	return nil
}

// layoutOf returns the host-shareable size and alignment of a WGSL scalar,
// vector, matrix or fixed-size array type. Struct names are not known.
func layoutOf(typ string) (size, align uint64, ok bool) {
	typ = strings.ReplaceAll(typ, " ", "")
	switch typ {
	case "f32", "i32", "u32":
		return 4, 4, true
	case "f16":
		return 2, 2, true
	}

	if inner, ok := generic(typ, "array"); ok {
		i := topLevelComma(inner)
		if i < 0 {
			return 0, 0, false
		}
		es, ea, ok := layoutOf(inner[:i])
		n, err := strconv.ParseUint(strings.TrimRight(inner[i+1:], "iu"), 10, 64)
		if !ok || err != nil || n == 0 {
			return 0, 0, false
		}
		return n * alignUp(es, ea), ea, true
	}

	if strings.HasPrefix(typ, "vec") && len(typ) > 4 {
		n := uint64(typ[3] - '0')
		s, ok := componentSize(typ[4:], "fiuh")
		if !ok || n < 2 || n > 4 {
			return 0, 0, false
		}
		if n == 2 {
			return 2 * s, 2 * s, true
		}
		return n * s, 4 * s, true
	}

	if strings.HasPrefix(typ, "mat") && len(typ) > 6 && typ[4] == 'x' {
		cols, rows := uint64(typ[3]-'0'), typ[5]
		if cols < 2 || cols > 4 {
			return 0, 0, false
		}
		if _, ok := componentSize(typ[6:], "fh"); !ok {
			return 0, 0, false
		}
		// A matrix is an array of column vectors.
		cs, ca, ok := layoutOf("vec" + string(rows) + typ[6:])
		if !ok {
			return 0, 0, false
		}
		return cols * alignUp(cs, ca), ca, true
	}
	return 0, 0, false
}

// componentSize returns the scalar size named by a vector or matrix suffix,
// either "<T>" or one of the shorthand letters in allowed.
func componentSize(suffix, allowed string) (uint64, bool) {
	if inner, ok := strings.CutPrefix(suffix, "<"); ok {
		switch inner {
		case "f32>":
			return 4, true
		case "f16>":
			return 2, true
		case "i32>", "u32>":
			return 4, allowed != "fh"
		}
		return 0, false
	}
	if len(suffix) != 1 || !strings.Contains(allowed, suffix) {
		return 0, false
	}
	if suffix == "h" {
		return 2, true
	}
	return 4, true
}

// generic returns T of "name<T>".
func generic(typ, name string) (string, bool) {
	inner, ok := strings.CutPrefix(typ, name+"<")
	if !ok {
		return "", false
	}
	return strings.CutSuffix(inner, ">")
}

// topLevelComma returns the index of the first comma outside angle brackets.
func topLevelComma(s string) int {
	depth := 0
	for i, c := range s {
		switch c {
		case '<':
			depth++
		case '>':
			depth--
		case ',':
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func alignUp(x, align uint64) uint64 {
	return (x + align - 1) / align * align
}

// Compile compiles WGSL source to SPIR-V words.
func Compile(source string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("wgsl: compile: %w", err)
	}
	if len(spirvBytes) == 0 {
		return nil, ErrEmptySPIRV
	}
	if len(spirvBytes)%4 != 0 {
		return nil, fmt.Errorf("wgsl: SPIR-V length %d is not a multiple of 4", len(spirvBytes))
	}

	// SPIR-V is a stream of little-endian 32-bit words.
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(spirvBytes[i*4:])
	}
	return words, nil
}
