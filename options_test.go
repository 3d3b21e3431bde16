package bufvec

import "testing"

func TestDefaultOptions(t *testing.T) {
	o := applyOptions(nil)
	if o.growth != PreserveContents {
		t.Errorf("growth = %v, want PreserveContents", o.growth)
	}
	if o.uploader != DefaultUploader() {
		t.Errorf("uploader = %T, want the platform uploader", o.uploader)
	}
	if o.label != "" {
		t.Errorf("label = %q, want empty", o.label)
	}
}

func TestOptions(t *testing.T) {
	o := applyOptions([]Option{
		WithLabel("instances"),
		WithUploader(QueuedUploader{}),
		WithGrowthPolicy(DiscardContents),
		nil,
	})
	if o.label != "instances" {
		t.Errorf("label = %q, want instances", o.label)
	}
	if _, ok := o.uploader.(QueuedUploader); !ok {
		t.Errorf("uploader = %T, want QueuedUploader", o.uploader)
	}
	if o.growth != DiscardContents {
		t.Errorf("growth = %v, want DiscardContents", o.growth)
	}
}

func TestWithUploaderNilFallsBack(t *testing.T) {
	o := applyOptions([]Option{WithUploader(nil)})
	if o.uploader == nil {
		t.Error("nil uploader should fall back to the platform uploader")
	}
}

func TestGrowthPolicyString(t *testing.T) {
	if got := PreserveContents.String(); got != "PreserveContents" {
		t.Errorf("PreserveContents.String() = %q", got)
	}
	if got := DiscardContents.String(); got != "DiscardContents" {
		t.Errorf("DiscardContents.String() = %q", got)
	}
	if got := GrowthPolicy(7).String(); got != "Unknown(7)" {
		t.Errorf("GrowthPolicy(7).String() = %q", got)
	}
}
