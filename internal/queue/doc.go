// Package queue persists transcode jobs and enforces the forward-only job
// state machine: pending to running, then exactly one of completed or failed.
// Admission races are settled by a partial unique index that allows at most
// one pending or running job per asset.
package queue
