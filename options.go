package bufvec

import "fmt"

// GrowthPolicy decides what a reallocating push carries into the new
// allocation.
type GrowthPolicy uint8

const (
	// PreserveContents copies the header and all committed elements into the
	// new allocation before it replaces the old one.
	PreserveContents GrowthPolicy = iota

	// DiscardContents writes only the pushed batch (and the last header
	// written from the host, when known) into the new allocation. Committed
	// elements before the batch are unspecified afterwards. Use it when the
	// caller repopulates the buffer right after growth.
	DiscardContents
)

// String returns the string representation of GrowthPolicy.
func (p GrowthPolicy) String() string {
	switch p {
	case PreserveContents:
		return "PreserveContents"
	case DiscardContents:
		return "DiscardContents"
	default:
		return fmt.Sprintf("Unknown(%d)", int(p))
	}
}

// Option configures a BufferVec during creation.
//
// Example:
//
//	v, err := bufvec.New[Globals, Instance](res, gputypes.BufferUsageStorage, globals,
//	    bufvec.WithLabel("instances"),
//	    bufvec.WithGrowthPolicy(bufvec.DiscardContents),
//	)
type Option func(*options)

// options holds optional configuration for BufferVec creation.
type options struct {
	label    string
	uploader Uploader
	growth   GrowthPolicy
}

// defaultOptions returns the default vec options.
func defaultOptions() options {
	return options{
		uploader: DefaultUploader(),
		growth:   PreserveContents,
	}
}

func applyOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.uploader == nil {
		o.uploader = DefaultUploader()
	}
	return o
}

// WithLabel sets the debug label used for every allocation of the vec.
func WithLabel(label string) Option {
	return func(o *options) {
		o.label = label
	}
}

// WithUploader overrides the platform uploader. Tests use it to exercise
// both upload paths on one target.
func WithUploader(u Uploader) Option {
	return func(o *options) {
		o.uploader = u
	}
}

// WithGrowthPolicy sets what a reallocating push carries forward.
// The default is PreserveContents.
func WithGrowthPolicy(p GrowthPolicy) Option {
	return func(o *options) {
		o.growth = p
	}
}
