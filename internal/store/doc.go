// Package store persists segment groups, segments, and generated artifacts
// in SQLite. Each entity has its own typed accessors; there is no generic
// table dispatch. The database lives under the configured data directory
// and is safe for concurrent use across independent runs.
package store
