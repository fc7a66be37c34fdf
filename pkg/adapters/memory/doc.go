// Package memory implements an in-memory transactional store with multi-version
// snapshot reads and optimistic, commit-time conflict detection.
package memory
