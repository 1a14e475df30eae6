// Package orchestrator drives episode generation runs: it plans segments,
// builds briefs, validates continuity, calls the external generator, and
// persists the results. Segments of one run execute strictly in order
// because each depends on the visual state its predecessor established;
// independent runs share no mutable state and may execute concurrently.
package orchestrator
