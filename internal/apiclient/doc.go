// Package apiclient is the HTTP client the CLI uses to reach the daemon.
package apiclient
