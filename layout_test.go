package bufvec

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

type vec3 struct {
	X, Y, Z float32
}

type padded struct {
	A uint8
	B uint64
}

func TestLayoutOf(t *testing.T) {
	tests := []struct {
		got  Layout
		want Layout
	}{
		{LayoutOf[uint8](), Layout{Name: "uint8", Size: 1, Align: 1}},
		{LayoutOf[uint32](), Layout{Name: "uint32", Size: 4, Align: 4}},
		{LayoutOf[[4]float32](), Layout{Name: "[4]float32", Size: 16, Align: 4}},
		{LayoutOf[vec3](), Layout{Name: "bufvec.vec3", Size: 12, Align: 4}},
		{LayoutOf[padded](), Layout{Name: "bufvec.padded", Size: 16, Align: 8}},
		{LayoutOf[struct{}](), Layout{Name: "struct {}", Size: 0, Align: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.want.Name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("LayoutOf = %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestRecordLayoutCompatible(t *testing.T) {
	tests := []struct {
		name   string
		header uint64
		elem   uint64
		want   bool
	}{
		{"byte header", 1, 8, true},
		{"byte element", 8, 1, true},
		{"equal", 4, 4, true},
		{"header multiple", 16, 4, true},
		{"header smaller", 4, 8, false},
		{"not a multiple", 12, 8, false},
		{"byte header, wide element", 1, 16, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := RecordLayout{
				Header:  Layout{Name: "H", Size: tt.header, Align: tt.header},
				Element: Layout{Name: "E", Size: tt.elem, Align: tt.elem},
			}
			if got := r.Compatible(); got != tt.want {
				t.Errorf("Compatible() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRecordLayoutValidate(t *testing.T) {
	validate := func(r RecordLayout) (err error) {
		defer func() {
			if p := recover(); p != nil {
				err = p.(error)
			}
		}()
		r.Validate()
		return nil
	}

	if err := validate(RecordLayoutOf[uint32, vec3]()); err != nil {
		t.Errorf("uint32 + vec3: unexpected %v", err)
	}
	if err := validate(RecordLayoutOf[struct{}, padded]()); err != nil {
		t.Errorf("struct{} + padded: unexpected %v", err)
	}

	err := validate(RecordLayoutOf[vec3, padded]())
	var lerr *LayoutError
	if !errors.As(err, &lerr) {
		t.Fatalf("vec3 + padded: got %v, want *LayoutError", err)
	}
	if !strings.Contains(lerr.Error(), "align of `bufvec.vec3` must be a multiple of the align of `bufvec.padded`") {
		t.Errorf("message = %q", lerr.Error())
	}

	if err := validate(RecordLayoutOf[uint32, struct{}]()); !errors.As(err, &lerr) {
		t.Errorf("zero-sized element: got %v, want *LayoutError", err)
	}
}

func TestRecordLayoutOffsets(t *testing.T) {
	r := RecordLayoutOf[[2]uint32, vec3]()
	if got := r.ElementOffset(0); got != 8 {
		t.Errorf("ElementOffset(0) = %d, want 8", got)
	}
	if got := r.ElementOffset(3); got != 8+36 {
		t.Errorf("ElementOffset(3) = %d, want 44", got)
	}
	if got := r.ByteSize(0); got != 8 {
		t.Errorf("ByteSize(0) = %d, want 8", got)
	}
	if got, ok := r.checkedByteSize(10); !ok || got != 128 {
		t.Errorf("checkedByteSize(10) = %d, %v; want 128, true", got, ok)
	}
	if _, ok := r.checkedByteSize(1 << 62); ok {
		t.Error("checkedByteSize(1<<62) should overflow")
	}
}

func TestFindIndirect(t *testing.T) {
	type nested struct {
		V   vec3
		Arr [2][3]int16
		C   complex64
		B   bool
	}
	type withSlice struct {
		N    uint32
		Data []byte
	}
	type withPtr struct {
		Next *withPtr
	}

	tests := []struct {
		name   string
		check  func() (string, bool)
		wantOK bool
	}{
		{"nested plain", func() (string, bool) { return findIndirect(reflect.TypeFor[nested]()) }, true},
		{"slice field", func() (string, bool) { return findIndirect(reflect.TypeFor[withSlice]()) }, false},
		{"pointer field", func() (string, bool) { return findIndirect(reflect.TypeFor[withPtr]()) }, false},
		{"array of strings", func() (string, bool) { return findIndirect(reflect.TypeFor[[2]string]()) }, false},
		{"map", func() (string, bool) { return findIndirect(reflect.TypeFor[map[int]int]()) }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			what, ok := tt.check()
			if ok != tt.wantOK {
				t.Errorf("findIndirect = %q, %v; want ok=%v", what, ok, tt.wantOK)
			}
		})
	}
}

func TestGrowCapacity(t *testing.T) {
	tests := []struct {
		capacity, n, want uint64
	}{
		{0, 1, 2},
		{0, 3, 8},
		{1, 1, 2},
		{4, 2, 8},
		{4, 5, 16},
		{5, 1, 16},
		{1024, 1, 2048},
		{1 << 62, 1, 1 << 63},
	}
	for _, tt := range tests {
		got, ok := growCapacity(tt.capacity, tt.n)
		if !ok || got != tt.want {
			t.Errorf("growCapacity(%d, %d) = %d, %v; want %d", tt.capacity, tt.n, got, ok, tt.want)
		}
	}
	if _, ok := growCapacity(1<<62+1, 1); ok {
		t.Error("growCapacity past 1<<63 should fail")
	}
}

func TestNextPowerOfTwo(t *testing.T) {
	tests := map[uint64]uint64{0: 1, 1: 1, 2: 2, 3: 4, 4: 4, 5: 8, 1000: 1024, 1 << 40: 1 << 40}
	for in, want := range tests {
		if got := nextPowerOfTwo(in); got != want {
			t.Errorf("nextPowerOfTwo(%d) = %d, want %d", in, got, want)
		}
	}
}
