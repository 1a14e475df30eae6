// Package episode defines the screenplay input model for a pipeline run:
// an ordered list of scenes with dialogue lines and action beats, plus the
// fixed weights used to estimate performance duration. Episodes are
// read-only inputs; nothing in the pipeline mutates them.
package episode
