package continuity

// IssueType classifies a detected continuity problem.
type IssueType string

const (
	IssueCharacterAppearance IssueType = "character_appearance_mismatch"
	IssueSettingMismatch     IssueType = "setting_mismatch"
	IssueLightingMismatch    IssueType = "lighting_mismatch"
	IssueContinuityBreak     IssueType = "continuity_break"
	IssueMissingTransition   IssueType = "missing_transition"
)

// Severity ranks how damaging an issue is to perceived continuity.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// severityWeights are the per-issue score deductions.
var severityWeights = map[Severity]int{
	SeverityLow:      5,
	SeverityMedium:   15,
	SeverityHigh:     30,
	SeverityCritical: 50,
}

// Weight returns the score deduction for the severity. Unknown severities
// deduct the medium weight rather than nothing.
func (s Severity) Weight() int {
	if w, ok := severityWeights[s]; ok {
		return w
	}
	return severityWeights[SeverityMedium]
}

// Issue is one detected continuity problem in a proposed brief.
type Issue struct {
	Type        IssueType `json:"type"`
	Severity    Severity  `json:"severity"`
	Description string    `json:"description"`
}

// Score computes the continuity score for a set of issues: 100 minus the
// severity weights, clamped to [0, 100].
func Score(issues []Issue) int {
	score := 100
	for _, issue := range issues {
		score -= issue.Severity.Weight()
	}
	if score < 0 {
		score = 0
	}
	return score
}

// Rating maps a score to its reporting band.
func Rating(score int) string {
	switch {
	case score >= 90:
		return "excellent"
	case score >= 75:
		return "good"
	case score >= 60:
		return "fair"
	default:
		return "poor"
	}
}
