// Package native runs bufvec on a gogpu/wgpu hal device.
//
// The hal layer has no map-at-creation for host writes, so buffers created
// with MappedAtCreation get a host shadow that Unmap flushes with a single
// queued write.
//
// Hal copies and queued writes work on 4-byte granules. Allocations are
// padded to that granule. A write that starts or ends inside a granule
// first reads the boundary granules back, and the unaligned edges of a copy
// are carried over the same way after the aligned middle has been copied.
// Both stall on the GPU, so keep element and header sizes multiples of four
// on hot paths.
//
// Submit and ReadBuffer block on a fence until the GPU has finished the
// submitted work.
package native

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gogpu/bufvec"
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// copyAlignment is the offset and size granularity of hal buffer copies
// and queued writes.
const copyAlignment uint64 = 4

// defaultFenceTimeout bounds every fence wait unless Config overrides it.
const defaultFenceTimeout = 5 * time.Second

// Config configures a Device.
type Config struct {
	// Label prefixes the labels of internal staging buffers and encoders.
	Label string

	// FenceTimeout bounds how long Submit and ReadBuffer wait for the GPU.
	// Zero means five seconds.
	FenceTimeout time.Duration

	// MaxBufferSize overrides the allocation limit reported to vecs.
	// Zero keeps the limit of the opened device, or no limit for devices
	// passed in from outside.
	MaxBufferSize uint64
}

func (c Config) withDefaults() Config {
	if c.FenceTimeout <= 0 {
		c.FenceTimeout = defaultFenceTimeout
	}
	if c.Label == "" {
		c.Label = "bufvec"
	}
	return c
}

// Device adapts a hal device and queue to bufvec.Device.
//
// Device is safe for concurrent use. Each vec still needs external
// synchronization of its own.
type Device struct {
	name   string
	device hal.Device
	queue  *Queue
	cfg    Config
	limits bufvec.Limits

	// Set when the device was opened by this package.
	instance hal.Instance
	owned    bool

	mu     sync.Mutex
	closed bool
}

var (
	_ bufvec.Device   = (*Device)(nil)
	_ bufvec.Queue    = (*Queue)(nil)
	_ bufvec.Readback = (*Queue)(nil)
)

// New wraps an existing hal device and queue. The caller keeps ownership of
// both; Close on the returned device does not destroy them.
func New(device hal.Device, queue hal.Queue, cfg Config) (*Device, error) {
	if device == nil || queue == nil {
		return nil, ErrNilDevice
	}
	return newDevice("external", device, queue, cfg, bufvec.Limits{}), nil
}

func newDevice(name string, device hal.Device, queue hal.Queue, cfg Config, limits bufvec.Limits) *Device {
	cfg = cfg.withDefaults()
	if cfg.MaxBufferSize != 0 {
		limits.MaxBufferSize = cfg.MaxBufferSize
	}
	d := &Device{
		name:   name,
		device: device,
		cfg:    cfg,
		limits: limits,
	}
	d.queue = &Queue{dev: d, raw: queue}
	return d
}

// NewResources wraps an existing hal device and queue as bufvec resources.
// It returns the zero Resources when either handle is nil, which vec
// constructors reject with bufvec.ErrNilResources.
func NewResources(device hal.Device, queue hal.Queue, cfg Config) bufvec.Resources {
	d, err := New(device, queue, cfg)
	if err != nil {
		return bufvec.Resources{}
	}
	return d.Resources()
}

// FromProvider wraps the hal device shared by an application provider such
// as a gogpu window. The provider must also implement HalDevice() any and
// HalQueue() any returning hal.Device and hal.Queue.
func FromProvider(provider gpucontext.DeviceProvider, cfg Config) (*Device, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrNotHalProvider
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is %T", ErrNotHalProvider, hp.HalDevice())
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is %T", ErrNotHalProvider, hp.HalQueue())
	}
	return New(device, queue, cfg)
}

// Resources returns the device and its queue as bufvec resources.
func (d *Device) Resources() bufvec.Resources {
	return bufvec.Resources{Device: d, Queue: d.queue}
}

// Name returns the adapter name, or "external" for wrapped devices.
func (d *Device) Name() string { return d.name }

// Raw returns the wrapped hal device.
func (d *Device) Raw() hal.Device { return d.device }

// Queue returns the queue of the device.
func (d *Device) Queue() *Queue { return d.queue }

// Limits implements bufvec.Device.
func (d *Device) Limits() bufvec.Limits { return d.limits }

// CreateBuffer implements bufvec.Device. The allocation is padded to the
// copy alignment; Size reports the requested size.
func (d *Device) CreateBuffer(desc *bufvec.BufferDescriptor) (bufvec.Buffer, error) {
	if desc == nil {
		return nil, fmt.Errorf("native: buffer descriptor is nil")
	}
	if desc.Usage == 0 {
		return nil, fmt.Errorf("native: buffer usage is empty")
	}
	if desc.MappedAtCreation && !desc.Usage.Contains(gputypes.BufferUsageCopyDst) {
		return nil, fmt.Errorf("native: MappedAtCreation requires CopyDst usage")
	}

	padded := alignUp(max(desc.Size, copyAlignment))
	raw, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: desc.Label,
		Size:  padded,
		Usage: desc.Usage,
	})
	if err != nil {
		return nil, fmt.Errorf("native: create buffer %q: %w", desc.Label, err)
	}

	b := &Buffer{
		dev:    d,
		raw:    raw,
		desc:   *desc,
		padded: padded,
	}
	if desc.MappedAtCreation {
		b.shadow = make([]byte, padded)
		b.dirtyLo = padded
	}
	slogger().Debug("native: buffer created",
		"label", desc.Label, "size", desc.Size, "padded", padded, "mapped", desc.MappedAtCreation)
	return b, nil
}

// CreateCommandEncoder implements bufvec.Device.
func (d *Device) CreateCommandEncoder(label string) (bufvec.CommandEncoder, error) {
	raw, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return nil, fmt.Errorf("native: create command encoder: %w", err)
	}
	if err := raw.BeginEncoding(label); err != nil {
		return nil, fmt.Errorf("native: begin encoding: %w", err)
	}
	return &CommandEncoder{dev: d, raw: raw, label: label}, nil
}

// Close releases the device if this package opened it. Devices wrapped
// with New or FromProvider are left to their owner.
func (d *Device) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	if !d.owned {
		return
	}
	d.device.Destroy()
	if d.instance != nil {
		d.instance.Destroy()
	}
	slogger().Debug("native: device closed")
}

// submitAndWait submits cmds, waits for it on a fresh fence and frees it.
func (d *Device) submitAndWait(cmds []hal.CommandBuffer) error {
	defer func() {
		for _, c := range cmds {
			d.device.FreeCommandBuffer(c)
		}
	}()

	fence, err := d.device.CreateFence()
	if err != nil {
		return fmt.Errorf("create fence: %w", err)
	}
	defer d.device.DestroyFence(fence)

	if err := d.queue.raw.Submit(cmds, fence, 1); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	ok, err := d.device.Wait(fence, 1, d.cfg.FenceTimeout)
	if err != nil {
		return fmt.Errorf("wait for GPU: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w after %v", ErrFenceTimeout, d.cfg.FenceTimeout)
	}
	return nil
}

// slogger returns the shared bufvec logger.
func slogger() *slog.Logger { return bufvec.Logger() }

func alignDown(n uint64) uint64 { return n &^ (copyAlignment - 1) }

func alignUp(n uint64) uint64 { return (n + copyAlignment - 1) &^ (copyAlignment - 1) }
