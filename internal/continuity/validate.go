package continuity

import (
	"fmt"
	"strings"

	"storyloom/internal/visualstate"
)

const (
	validityFloor       = 60
	strictValidityFloor = 75
)

// Brief is the proposed content for one segment's generation request,
// reduced to the facts validation compares against prior state.
type Brief struct {
	SegmentNumber int
	Text          string
	Characters    []string
	Setting       string
	TimeOfDay     string
	Transition    string
}

// Options controls validation policy.
type Options struct {
	AutoCorrect bool
	StrictMode  bool
}

// Result is the outcome of validating one brief.
type Result struct {
	Valid          bool    `json:"valid"`
	Score          int     `json:"score"`
	Rating         string  `json:"rating"`
	Issues         []Issue `json:"issues,omitempty"`
	CorrectedBrief string  `json:"corrected_brief,omitempty"`
}

// Validate scores brief against the current visual state. An empty state
// means no prior constraints and always validates cleanly. Validate never
// fails; every call returns a usable result.
func Validate(state visualstate.State, brief Brief, opts Options) Result {
	issues := detect(state, brief)
	score := Score(issues)

	floor := validityFloor
	if opts.StrictMode {
		floor = strictValidityFloor
	}
	valid := score >= floor
	for _, issue := range issues {
		if issue.Severity == SeverityCritical {
			valid = false
		}
	}

	result := Result{
		Valid:  valid,
		Score:  score,
		Rating: Rating(score),
		Issues: issues,
	}
	if opts.AutoCorrect && len(issues) > 0 {
		result.CorrectedBrief = correctBrief(state, brief)
	}
	return result
}

func detect(state visualstate.State, brief Brief) []Issue {
	if state.IsEmpty() {
		return nil
	}

	var issues []Issue
	text := strings.ToLower(brief.Text)
	hasTransition := strings.TrimSpace(brief.Transition) != ""

	for _, name := range brief.Characters {
		c, ok := state.Character(name)
		if !ok {
			continue
		}
		var missing []string
		if c.Wardrobe != "" && !mentionsAttribute(text, c.Wardrobe) {
			missing = append(missing, fmt.Sprintf("wardrobe %q", c.Wardrobe))
		}
		if c.Appearance != "" && !mentionsAttribute(text, c.Appearance) {
			missing = append(missing, fmt.Sprintf("appearance %q", c.Appearance))
		}
		if len(missing) > 0 {
			issues = append(issues, Issue{
				Type:     IssueCharacterAppearance,
				Severity: SeverityMedium,
				Description: fmt.Sprintf("%s appears without established %s",
					name, strings.Join(missing, " and ")),
			})
		}
	}

	settingChanged := state.Setting != "" && brief.Setting != "" &&
		!sameDescriptor(state.Setting, brief.Setting)
	timeChanged := state.TimeOfDay != "" && brief.TimeOfDay != "" &&
		!strings.EqualFold(state.TimeOfDay, brief.TimeOfDay)

	if settingChanged && !hasTransition {
		issues = append(issues, Issue{
			Type:     IssueSettingMismatch,
			Severity: SeverityHigh,
			Description: fmt.Sprintf("setting changes from %q to %q without a narrative transition",
				state.Setting, brief.Setting),
		})
	}
	if timeChanged && !hasTransition {
		issues = append(issues, Issue{
			Type:     IssueMissingTransition,
			Severity: SeverityMedium,
			Description: fmt.Sprintf("time of day shifts from %q to %q with no transition",
				state.TimeOfDay, brief.TimeOfDay),
		})
	}
	if settingChanged && timeChanged && !hasTransition {
		issues = append(issues, Issue{
			Type:        IssueContinuityBreak,
			Severity:    SeverityCritical,
			Description: "segment jumps to a new setting and time of day with no transition",
		})
	}

	if state.Lighting != "" && !hasTransition &&
		visualstate.MentionsLighting(text) && !mentionsAttribute(text, state.Lighting) {
		issues = append(issues, Issue{
			Type:     IssueLightingMismatch,
			Severity: SeverityMedium,
			Description: fmt.Sprintf("brief describes lighting inconsistent with established %q",
				state.Lighting),
		})
	}

	if state.Tone != "" && !hasTransition {
		if tone := visualstate.ToneKeyword(brief.Text); tone != "" && !strings.EqualFold(tone, state.Tone) {
			issues = append(issues, Issue{
				Type:     IssueContinuityBreak,
				Severity: SeverityLow,
				Description: fmt.Sprintf("tone shifts from %q to %q without an explicit transition",
					state.Tone, tone),
			})
		}
	}

	return issues
}

// sameDescriptor treats two location descriptors as matching when they are
// equal or one contains the other, case-insensitively.
func sameDescriptor(a, b string) bool {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == b {
		return true
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

var attributeStopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "her": {}, "his": {}, "their": {},
	"its": {}, "in": {}, "of": {}, "and": {}, "with": {},
}

// mentionsAttribute reports whether any significant word of attr appears in
// the lowercased brief text.
func mentionsAttribute(lowerText, attr string) bool {
	for _, word := range strings.Fields(strings.ToLower(attr)) {
		word = strings.Trim(word, ".,;:!?")
		if _, stop := attributeStopwords[word]; stop || len(word) < 3 {
			continue
		}
		if strings.Contains(lowerText, word) {
			return true
		}
	}
	return false
}

// correctBrief appends the established visual facts to the brief text so
// the generator re-receives them verbatim. The patch is purely textual and
// deterministic.
func correctBrief(state visualstate.State, brief Brief) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(brief.Text, "\n"))
	b.WriteString("\n\nEstablished continuity:\n")
	if state.Setting != "" {
		fmt.Fprintf(&b, "- Setting: %s\n", state.Setting)
	}
	if state.TimeOfDay != "" {
		fmt.Fprintf(&b, "- Time of day: %s\n", state.TimeOfDay)
	}
	if state.Lighting != "" {
		fmt.Fprintf(&b, "- Lighting: %s\n", state.Lighting)
	}
	if state.Tone != "" {
		fmt.Fprintf(&b, "- Tone: %s\n", state.Tone)
	}
	for _, name := range state.CharacterNames() {
		c, _ := state.Character(name)
		var parts []string
		if c.Wardrobe != "" {
			parts = append(parts, "wearing "+c.Wardrobe)
		}
		if c.Appearance != "" {
			parts = append(parts, c.Appearance)
		}
		if c.Position != "" {
			parts = append(parts, c.Position)
		}
		if len(parts) == 0 {
			continue
		}
		fmt.Fprintf(&b, "- %s: %s\n", name, strings.Join(parts, ", "))
	}
	return b.String()
}
