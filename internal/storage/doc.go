// Package storage owns the shared SQLite handle, embedded schema, and the
// busy-retry and constraint-detection helpers used by the job and asset
// stores. Both stores run against one database so reconciliation can commit
// job and asset updates in a single transaction.
package storage
