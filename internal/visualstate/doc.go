// Package visualstate tracks the structured continuity snapshot inferred
// from generated segment output: per-character appearance facts plus
// setting, lighting, camera, and tone descriptors.
//
// Extraction is best-effort and never fatal; a failed extraction yields an
// empty state and the pipeline continues on the previous snapshot. States
// are replaced wholesale, never edited in place.
package visualstate
