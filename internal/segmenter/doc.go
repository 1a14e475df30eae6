// Package segmenter splits an episode into an ordered list of
// duration-bounded segment descriptors using greedy bin-packing over scene
// content. Splitting is deterministic: identical episode and configuration
// always yield identical boundaries.
//
// Scenes are kept whole whenever possible; a scene is only split
// mid-scene when its own estimated duration exceeds the configured
// maximum, and such splits are flagged in the descriptor's continuity
// notes.
package segmenter
