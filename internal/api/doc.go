// Package api exposes job admission and queries to the HTTP layer and
// defines the wire payloads shared by the daemon and its clients.
package api
