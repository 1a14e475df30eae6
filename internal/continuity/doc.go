// Package continuity scores proposed segment briefs against the visual
// state established by previously generated segments. Scoring is pure and
// deterministic: a validation call never fails, it always returns a result
// describing the issues it found and, optionally, a corrected brief.
package continuity
