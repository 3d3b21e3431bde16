package native

import (
	"fmt"

	"github.com/gogpu/wgpu/hal"
)

// CreateShaderModule creates a shader module from SPIR-V words on d, for
// pipelines that bind vec buffers.
func (d *Device) CreateShaderModule(label string, spirv []uint32) (hal.ShaderModule, error) {
	if len(spirv) == 0 {
		return nil, fmt.Errorf("native: empty SPIR-V for %q", label)
	}
	module, err := d.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label: label,
		Source: hal.ShaderSource{
			SPIRV: spirv,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("native: create shader module %q: %w", label, err)
	}
	return module, nil
}

// DestroyShaderModule releases a module created by CreateShaderModule.
func (d *Device) DestroyShaderModule(module hal.ShaderModule) {
	if module != nil {
		d.device.DestroyShaderModule(module)
	}
}
