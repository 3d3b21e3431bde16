// Command bufvecdemo grows a bufvec buffer on an in-memory or hal device and
// prints what happened to each push.
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/gogpu/bufvec"
	"github.com/gogpu/bufvec/backend"
	"github.com/gogpu/bufvec/wgsl"
	"github.com/gogpu/gputypes"

	_ "github.com/gogpu/bufvec/backend/native"
)

func main() {
	var (
		name    = flag.String("backend", "", "device backend: memory, native or noop (default: best available)")
		pushes  = flag.Int("pushes", 6, "number of growing batches pushed after the first")
		discard = flag.Bool("discard", false, "discard contents on growth instead of copying them")
		shader  = flag.Bool("shader", false, "print and compile the WGSL view of the buffer")
		verbose = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	bufvec.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	dev, err := openDevice(*name)
	if err != nil {
		log.Fatalf("Failed to open device: %v", err)
	}
	defer dev.Close()
	log.Printf("Using device %s", dev.Name())

	policy := bufvec.PreserveContents
	if *discard {
		policy = bufvec.DiscardContents
	}
	if err := run(dev.Resources(), *pushes, policy); err != nil {
		log.Fatalf("Demo failed: %v", err)
	}
	if m, ok := dev.(*backend.MemoryDevice); ok {
		s := m.Stats()
		log.Printf("memory: %d buffers created, %d live, %d writes, %d copies", s.Created, s.Live, s.Writes, s.Copies)
	}

	if *shader {
		if err := compileView(); err != nil {
			log.Fatalf("Shader failed: %v", err)
		}
	}
}

func openDevice(name string) (backend.Device, error) {
	if name == "" {
		return backend.Default()
	}
	return backend.Open(name)
}

// run starts from header 7 and elements [1 2 3 4], pushes [5 6] and then
// batches of doubling size, writing the running length into the header.
func run(res bufvec.Resources, pushes int, policy bufvec.GrowthPolicy) error {
	v, err := bufvec.NewWithData[uint32, uint32](res, gputypes.BufferUsageStorage, 4,
		func(header []byte, elems []uint32) {
			h := uint32(7)
			copy(header, bufvec.Bytes(&h))
			copy(elems, []uint32{1, 2, 3, 4})
		},
		bufvec.WithLabel("demo"),
		bufvec.WithGrowthPolicy(policy),
	)
	if err != nil {
		return fmt.Errorf("create vec: %w", err)
	}
	defer v.Destroy()

	next := uint32(5)
	batch := 2
	for i := 0; i <= pushes; i++ {
		data := make([]uint32, batch)
		for j := range data {
			data[j] = next
			next++
		}
		r, err := v.Push(data)
		if err != nil {
			return fmt.Errorf("push %d: %w", i, err)
		}
		r.Match(
			func() { log.Printf("push %2d: %4d elements in place, len=%d cap=%d", i, batch, v.Len(), v.Cap()) },
			func(buf bufvec.Buffer) {
				log.Printf("push %2d: %4d elements reallocated, len=%d cap=%d bytes=%d", i, batch, v.Len(), v.Cap(), buf.Size())
			},
		)
		if err := v.WriteHeader(uint32(v.Len())); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
		batch *= 2
	}

	// Zero the first element through a partial write and snapshot the result.
	if err := v.WritePartial(0, []uint32{0}); err != nil {
		return fmt.Errorf("write partial: %w", err)
	}
	c, err := v.CopyNew(true)
	if err != nil {
		return fmt.Errorf("copy: %w", err)
	}
	defer c.Destroy()

	header, elems, err := bufvec.Download(c)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	log.Printf("copy: header=%d len=%d first=%v", header, len(elems), elems[:min(len(elems), 8)])
	return nil
}

// globals and particle mirror the WGSL Globals and Particle structs below.
type globals struct {
	Count uint32
	_     uint32
}

type particle struct {
	Pos, Vel [2]float32
}

func compileView() error {
	decl, err := wgsl.Declare(wgsl.StorageDecl{
		Name:         "particles",
		HeaderType:   "Globals",
		ElementType:  "Particle",
		Access:       wgsl.ReadWrite,
		Layout:       bufvec.RecordLayoutOf[globals, particle](),
		ElementAlign: 8,
	})
	if err != nil {
		return err
	}
	src := `struct Globals {
    count: u32,
    pad: u32,
}

struct Particle {
    pos: vec2<f32>,
    vel: vec2<f32>,
}
` + decl + `
@compute @workgroup_size(64)
fn main(@builtin(global_invocation_id) id: vec3<u32>) {
    let i = id.x;
    if (i >= particles.header.count) {
        return;
    }
    particles.elements[i].pos = particles.elements[i].pos + particles.elements[i].vel;
}
`
	fmt.Print(src)
	words, err := wgsl.Compile(src)
	if err != nil {
		return err
	}
	log.Printf("compiled %d SPIR-V words", len(words))
	return nil
}
