package bufvec_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/gogpu/bufvec"
	"github.com/gogpu/bufvec/internal/memdev"
	"github.com/gogpu/gputypes"
)

func TestUploaderFor(t *testing.T) {
	if u := bufvec.UploaderFor(bufvec.Capabilities{MappedAtCreation: true}); !u.Mapped() {
		t.Errorf("UploaderFor(mapped) = %T", u)
	}
	if u := bufvec.UploaderFor(bufvec.Capabilities{}); u.Mapped() {
		t.Errorf("UploaderFor(queued) = %T", u)
	}
	caps := bufvec.PlatformCapabilities()
	if got := bufvec.DefaultUploader().Mapped(); got != caps.MappedAtCreation {
		t.Errorf("DefaultUploader().Mapped() = %v, platform MappedAtCreation = %v", got, caps.MappedAtCreation)
	}
}

func TestUploadRegions(t *testing.T) {
	uploaders(t, func(t *testing.T, u bufvec.Uploader) {
		dev, res := newDevice()
		desc := bufvec.BufferDescriptor{Label: "regions", Size: 16, Usage: bufvec.RequiredUsage}
		buf, err := u.Upload(res, desc,
			bufvec.Region{Offset: 0, Data: []byte{1, 2, 3, 4}},
			bufvec.Region{Offset: 8, Data: []byte{9, 9}},
			bufvec.Region{Offset: 12},
		)
		if err != nil {
			t.Fatalf("Upload: %v", err)
		}
		got := buf.(*memdev.Buffer).Contents()
		if !bytes.Equal(got[0:4], []byte{1, 2, 3, 4}) || !bytes.Equal(got[8:10], []byte{9, 9}) {
			t.Errorf("contents = %x", got)
		}
		if buf.Label() != "regions" || buf.Size() != 16 {
			t.Errorf("buffer = %q/%d", buf.Label(), buf.Size())
		}

		wantWrites := 0
		if !u.Mapped() {
			wantWrites = 2
		}
		if s := dev.Stats(); s.Writes != wantWrites {
			t.Errorf("writes = %d, want %d", s.Writes, wantWrites)
		}
	})
}

func TestUploadFill(t *testing.T) {
	uploaders(t, func(t *testing.T, u bufvec.Uploader) {
		_, res := newDevice()
		desc := bufvec.BufferDescriptor{Size: 8, Usage: bufvec.RequiredUsage}
		buf, err := u.Fill(res, desc, func(b []byte) {
			if len(b) != 8 {
				t.Errorf("fill got %d bytes, want 8", len(b))
			}
			for i := range b {
				b[i] = byte(i)
			}
		})
		if err != nil {
			t.Fatalf("Fill: %v", err)
		}
		if got := buf.(*memdev.Buffer).Contents(); !bytes.Equal(got, []byte{0, 1, 2, 3, 4, 5, 6, 7}) {
			t.Errorf("contents = %x", got)
		}
	})
}

func TestUploadFailureReleasesBuffer(t *testing.T) {
	uploaders(t, func(t *testing.T, u bufvec.Uploader) {
		dev, res := newDevice()
		desc := bufvec.BufferDescriptor{Size: 4, Usage: bufvec.RequiredUsage}
		_, err := u.Upload(res, desc, bufvec.Region{Offset: 2, Data: []byte{1, 2, 3, 4}})
		if !errors.Is(err, memdev.ErrOutOfRange) {
			t.Fatalf("Upload = %v, want ErrOutOfRange", err)
		}
		if s := dev.Stats(); s.Live != 0 || s.Created != 1 {
			t.Errorf("stats = %+v, want the failed buffer destroyed", s)
		}
	})
}

func TestUploadCreateFailure(t *testing.T) {
	uploaders(t, func(t *testing.T, u bufvec.Uploader) {
		dev, res := newDevice()
		dev.FailNextCreates(1)
		desc := bufvec.BufferDescriptor{Size: 4, Usage: gputypes.BufferUsageCopyDst}
		if _, err := u.Fill(res, desc, func([]byte) {}); !errors.Is(err, memdev.ErrOutOfMemory) {
			t.Errorf("Fill = %v, want ErrOutOfMemory", err)
		}
	})
}
