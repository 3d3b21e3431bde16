//go:build !(js && wasm)

package bufvec

// Native targets map buffers at creation.
var platformCapabilities = Capabilities{MappedAtCreation: true}
