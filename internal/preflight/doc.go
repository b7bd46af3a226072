// Package preflight checks daemon prerequisites before startup.
package preflight
