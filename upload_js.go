//go:build js && wasm

package bufvec

// WebGPU in the browser streams initial contents through the queue.
var platformCapabilities = Capabilities{MappedAtCreation: false}
