package native

import (
	"fmt"

	"github.com/gogpu/bufvec"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Backend creates hal instances. Registered backends returned by
// hal.GetBackend and the noop test API both satisfy it.
type Backend interface {
	CreateInstance(desc *hal.InstanceDescriptor) (hal.Instance, error)
}

// Open creates a standalone device on a registered hal backend, preferring
// discrete and integrated GPUs. Close releases it.
func Open(kind gputypes.Backend, cfg Config) (*Device, error) {
	backend, ok := hal.GetBackend(kind)
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, kind)
	}
	return OpenBackend(backend, cfg)
}

// OpenBackend creates a standalone device on backend.
func OpenBackend(backend Backend, cfg Config) (*Device, error) {
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("native: create instance: %w", err)
	}

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, ErrNoAdapter
	}
	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}

	limits := gputypes.DefaultLimits()
	openDev, err := selected.Adapter.Open(gputypes.Features(0), limits)
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("native: open device: %w", err)
	}

	d := newDevice(selected.Info.Name, openDev.Device, openDev.Queue, cfg, bufvec.Limits{MaxBufferSize: limits.MaxBufferSize})
	d.instance = instance
	d.owned = true
	slogger().Info("native: device opened",
		"adapter", selected.Info.Name,
		"max_buffer_size", d.limits.MaxBufferSize)
	return d, nil
}
