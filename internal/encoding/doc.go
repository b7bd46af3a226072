// Package encoding invokes the external encoder and owns the HLS output
// layout: one directory per asset, fixed manifest name, zero-padded
// segments, and a deterministic asset-id-to-URL mapping.
package encoding
