package bufvec

import "fmt"

// Region is a byte range to initialize in a new allocation.
type Region struct {
	Offset uint64
	Data   []byte
}

// Uploader initializes new allocations. Implementations must produce the
// same buffer contents; they differ only in how the bytes reach the device.
type Uploader interface {
	// Mapped reports whether the uploader writes through a mapping made at
	// buffer creation.
	Mapped() bool

	// Upload creates a buffer described by desc with regions written into it.
	Upload(res Resources, desc BufferDescriptor, regions ...Region) (Buffer, error)

	// Fill creates a buffer described by desc and lets fill initialize all
	// of its bytes before the device can observe them.
	Fill(res Resources, desc BufferDescriptor, fill func(contents []byte)) (Buffer, error)
}

// Capabilities describes what the execution target supports.
type Capabilities struct {
	// MappedAtCreation reports whether buffers can be mapped for host writes
	// when they are created.
	MappedAtCreation bool
}

// PlatformCapabilities returns the capabilities of the build target.
func PlatformCapabilities() Capabilities {
	return platformCapabilities
}

// UploaderFor returns the uploader matching caps.
func UploaderFor(caps Capabilities) Uploader {
	if caps.MappedAtCreation {
		return MappedUploader{}
	}
	return QueuedUploader{}
}

// defaultUploader is resolved once from the build target.
var defaultUploader = UploaderFor(platformCapabilities)

// DefaultUploader returns the uploader for the build target.
func DefaultUploader() Uploader {
	return defaultUploader
}

// MappedUploader creates buffers mapped at creation, writes the bytes from
// the host and unmaps.
type MappedUploader struct{}

// Mapped returns true.
func (MappedUploader) Mapped() bool { return true }

// Upload implements Uploader.
func (u MappedUploader) Upload(res Resources, desc BufferDescriptor, regions ...Region) (Buffer, error) {
	desc.MappedAtCreation = true
	buf, err := res.Device.CreateBuffer(&desc)
	if err != nil {
		return nil, err
	}
	for _, r := range regions {
		if len(r.Data) == 0 {
			continue
		}
		dst, err := buf.MappedRange(r.Offset, uint64(len(r.Data)))
		if err != nil {
			buf.Destroy()
			return nil, fmt.Errorf("map [%d, +%d): %w", r.Offset, len(r.Data), err)
		}
		copy(dst, r.Data)
	}
	if err := buf.Unmap(); err != nil {
		buf.Destroy()
		return nil, fmt.Errorf("unmap: %w", err)
	}
	return buf, nil
}

// Fill implements Uploader.
func (u MappedUploader) Fill(res Resources, desc BufferDescriptor, fill func([]byte)) (Buffer, error) {
	desc.MappedAtCreation = true
	buf, err := res.Device.CreateBuffer(&desc)
	if err != nil {
		return nil, err
	}
	contents, err := buf.MappedRange(0, desc.Size)
	if err != nil {
		buf.Destroy()
		return nil, fmt.Errorf("map contents: %w", err)
	}
	fill(contents)
	if err := buf.Unmap(); err != nil {
		buf.Destroy()
		return nil, fmt.Errorf("unmap: %w", err)
	}
	return buf, nil
}

// QueuedUploader creates unmapped buffers and schedules queued writes.
// It is used on targets that cannot map at creation.
type QueuedUploader struct{}

// Mapped returns false.
func (QueuedUploader) Mapped() bool { return false }

// Upload implements Uploader.
func (u QueuedUploader) Upload(res Resources, desc BufferDescriptor, regions ...Region) (Buffer, error) {
	desc.MappedAtCreation = false
	buf, err := res.Device.CreateBuffer(&desc)
	if err != nil {
		return nil, err
	}
	for _, r := range regions {
		if len(r.Data) == 0 {
			continue
		}
		if err := res.Queue.WriteBuffer(buf, r.Offset, r.Data); err != nil {
			buf.Destroy()
			return nil, fmt.Errorf("write [%d, +%d): %w", r.Offset, len(r.Data), err)
		}
	}
	return buf, nil
}

// Fill implements Uploader. The contents are staged on the host and
// written with a single queued write.
func (u QueuedUploader) Fill(res Resources, desc BufferDescriptor, fill func([]byte)) (Buffer, error) {
	staging := make([]byte, desc.Size)
	fill(staging)
	return u.Upload(res, desc, Region{Offset: 0, Data: staging})
}
