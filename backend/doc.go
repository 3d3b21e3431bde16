// Package backend selects the device bufvec allocates from.
//
// Backends register a factory under a name from init() and are opened at
// runtime. The in-memory backend is registered on import:
//
//	import _ "github.com/gogpu/bufvec/backend"
//
// GPU backends register themselves when their package is imported:
//
//	import _ "github.com/gogpu/bufvec/backend/native"
//
// # Backend Selection
//
// Use Default() to open the best available device, or Open() to request a
// specific backend by name:
//
//	d, err := backend.Default()
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer d.Close()
//
//	v, err := bufvec.New[Globals, Particle](d.Resources(), gputypes.BufferUsageStorage, globals)
//
// # Available Backends
//
//   - "memory": host memory, always available
//   - "native": first discrete or integrated GPU on Vulkan via gogpu/wgpu/hal
//   - "noop": the hal noop device, for exercising the hal path without a GPU
package backend
