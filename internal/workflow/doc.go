// Package workflow runs the encode loop: claiming pending jobs, bounding
// concurrency, heartbeating running work, failing stuck jobs, and
// reconciling finished encodes against their assets.
package workflow
