// Package services defines the shared error taxonomy used across the
// admission service, the job store, and the encoder invoker. Sentinel
// errors classify failures for HTTP status mapping and job failure
// recording.
package services
