package wgsl

import (
	"errors"
	"strings"
	"testing"

	"github.com/gogpu/bufvec"
)

type particle struct {
	Pos, Vel [2]float32
}

type globals struct {
	Count uint32
	_     uint32
}

func TestDeclare(t *testing.T) {
	tests := []struct {
		name string
		decl StorageDecl
		want string
	}{
		{
			name: "defaults",
			decl: StorageDecl{Name: "particles", HeaderType: "Globals", ElementType: "Particle"},
			want: "struct Particles {\n" +
				"    header: Globals,\n" +
				"    elements: array<Particle>,\n" +
				"}\n" +
				"@group(0) @binding(0) var<storage, read> particles: Particles;\n",
		},
		{
			name: "custom names",
			decl: StorageDecl{
				Group: 1, Binding: 3,
				Name: "grid", Struct: "GridBuffer",
				HeaderType: "u32", ElementType: "vec4<f32>",
				HeaderField: "count", ElementsField: "cells",
				Access: ReadWrite,
			},
			want: "struct GridBuffer {\n" +
				"    count: u32,\n" +
				"    cells: array<vec4<f32>>,\n" +
				"}\n" +
				"@group(1) @binding(3) var<storage, read_write> grid: GridBuffer;\n",
		},
		{
			name: "no header",
			decl: StorageDecl{Name: "values", ElementType: "f32"},
			want: "struct Values {\n" +
				"    elements: array<f32>,\n" +
				"}\n" +
				"@group(0) @binding(0) var<storage, read> values: Values;\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Declare(tt.decl)
			if err != nil {
				t.Fatalf("Declare failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Declare() =\n%s\nwant\n%s", got, tt.want)
			}
		})
	}
}

func TestDeclareLayout(t *testing.T) {
	tests := []struct {
		name    string
		decl    StorageDecl
		wantErr bool
	}{
		{
			name: "u32 header, f32 elements",
			decl: StorageDecl{HeaderType: "u32", ElementType: "f32", Layout: bufvec.RecordLayoutOf[uint32, float32]()},
		},
		{
			name:    "u32 header, vec2 elements",
			decl:    StorageDecl{HeaderType: "u32", ElementType: "vec2<f32>", Layout: bufvec.RecordLayoutOf[uint32, [2]float32]()},
			wantErr: true,
		},
		{
			name: "vec2 header, vec2 elements",
			decl: StorageDecl{HeaderType: "vec2u", ElementType: "vec2f", Layout: bufvec.RecordLayoutOf[[2]uint32, [2]float32]()},
		},
		{
			name:    "u32 header, struct elements",
			decl:    StorageDecl{HeaderType: "u32", ElementType: "Particle", ElementAlign: 8, Layout: bufvec.RecordLayoutOf[uint32, particle]()},
			wantErr: true,
		},
		{
			name: "padded header, struct elements",
			decl: StorageDecl{HeaderType: "Globals", ElementType: "Particle", ElementAlign: 8, Layout: bufvec.RecordLayoutOf[globals, particle]()},
		},
		{
			name:    "struct alignment unknown",
			decl:    StorageDecl{HeaderType: "Globals", ElementType: "Particle", Layout: bufvec.RecordLayoutOf[globals, particle]()},
			wantErr: true,
		},
		{
			name:    "vec3 stride",
			decl:    StorageDecl{HeaderType: "vec4<f32>", ElementType: "vec3<f32>", Layout: bufvec.RecordLayoutOf[[4]float32, [3]float32]()},
			wantErr: true,
		},
		{
			name:    "header size differs",
			decl:    StorageDecl{HeaderType: "u32", ElementType: "u32", Layout: bufvec.RecordLayoutOf[uint64, uint32]()},
			wantErr: true,
		},
		{
			name:    "header without member",
			decl:    StorageDecl{ElementType: "u32", Layout: bufvec.RecordLayoutOf[uint32, uint32]()},
			wantErr: true,
		},
		{
			name: "no header",
			decl: StorageDecl{ElementType: "mat4x4f", Layout: bufvec.RecordLayoutOf[struct{}, [16]float32]()},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.decl.Name = "data"
			got, err := Declare(tt.decl)
			if tt.wantErr {
				if !errors.Is(err, ErrLayoutMismatch) {
					t.Errorf("Declare() error = %v, want ErrLayoutMismatch", err)
				}
				if got != "" {
					t.Errorf("Declare() = %q on error, want empty", got)
				}
				return
			}
			if err != nil {
				t.Errorf("Declare() unexpected error: %v", err)
			}
		})
	}
}

func TestLayoutOf(t *testing.T) {
	tests := []struct {
		typ         string
		size, align uint64
		ok          bool
	}{
		{"f32", 4, 4, true},
		{"f16", 2, 2, true},
		{"vec2<f32>", 8, 8, true},
		{"vec2h", 4, 4, true},
		{"vec3<u32>", 12, 16, true},
		{"vec3h", 6, 8, true},
		{"vec4i", 16, 16, true},
		{"mat4x4<f32>", 64, 16, true},
		{"mat3x3f", 48, 16, true},
		{"mat2x2f", 16, 8, true},
		{"array<vec3<f32>, 2>", 32, 16, true},
		{"array<u32,4u>", 16, 4, true},
		{"mat2x2<u32>", 0, 0, false},
		{"vec5f", 0, 0, false},
		{"array<f32>", 0, 0, false},
		{"Particle", 0, 0, false},
		{"bool", 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			size, align, ok := layoutOf(tt.typ)
			if ok != tt.ok || size != tt.size || align != tt.align {
				t.Errorf("layoutOf(%q) = %d, %d, %v; want %d, %d, %v",
					tt.typ, size, align, ok, tt.size, tt.align, tt.ok)
			}
		})
	}
}

func TestAccessString(t *testing.T) {
	if Read.String() != "read" || ReadWrite.String() != "read_write" {
		t.Errorf("Access strings = %q, %q", Read, ReadWrite)
	}
	if got := Access(5).String(); got != "Unknown(5)" {
		t.Errorf("Access(5).String() = %q", got)
	}
}

const integrateShader = `
struct Globals {
    count: u32,
    flags: u32,
}

struct Particle {
    pos: vec2<f32>,
    vel: vec2<f32>,
}

%s
@compute @workgroup_size(64)
fn main(@builtin(global_invocation_id) id: vec3<u32>) {
    let i = id.x;
    if (i >= particles.header.count) {
        return;
    }
    particles.elements[i].pos = particles.elements[i].pos + particles.elements[i].vel;
}
`

func TestCompile(t *testing.T) {
	decl, err := Declare(StorageDecl{
		Name:         "particles",
		HeaderType:   "Globals",
		ElementType:  "Particle",
		Access:       ReadWrite,
		Layout:       bufvec.RecordLayoutOf[globals, particle](),
		ElementAlign: 8,
	})
	if err != nil {
		t.Fatalf("Declare failed: %v", err)
	}
	src := strings.Replace(integrateShader, "%s", decl, 1)

	words, err := Compile(src)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	const spirvMagic = 0x07230203
	if len(words) < 5 {
		t.Fatalf("Compile returned %d words, want a SPIR-V module", len(words))
	}
	if words[0] != spirvMagic {
		t.Errorf("magic = %#x, want %#x", words[0], spirvMagic)
	}
}

func TestCompileError(t *testing.T) {
	if _, err := Compile("fn main( {"); err == nil {
		t.Error("Compile of invalid WGSL should fail")
	}
}
