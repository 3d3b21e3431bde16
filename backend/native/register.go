package native

import (
	"github.com/gogpu/bufvec/backend"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal/noop"

	_ "github.com/gogpu/wgpu/hal/vulkan"
)

var _ backend.Device = (*Device)(nil)

// init registers the Vulkan and noop devices on package import.
func init() {
	backend.Register(backend.BackendNative, func() (backend.Device, error) {
		return Open(gputypes.BackendVulkan, Config{})
	})
	backend.Register(backend.BackendNoop, func() (backend.Device, error) {
		return OpenBackend(noop.API{}, Config{})
	})
}
