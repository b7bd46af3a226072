// Package daemon runs the long-lived reel process: a single-instance lock,
// the workflow manager, and the HTTP API that admits and reports jobs.
package daemon
