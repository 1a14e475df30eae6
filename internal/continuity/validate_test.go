package continuity

import (
	"strings"
	"testing"

	"storyloom/internal/visualstate"
)

func priorState() visualstate.State {
	return visualstate.State{
		Characters: map[string]visualstate.CharacterState{
			"MAYA": {Appearance: "breathless", Wardrobe: "a yellow oilskin coat"},
		},
		Setting:   "LIGHTHOUSE GALLERY",
		TimeOfDay: "night",
		Lighting:  "flickering lamplight",
		Tone:      "tense",
	}
}

func TestValidateEmptyStateAlwaysValid(t *testing.T) {
	brief := Brief{
		SegmentNumber: 1,
		Text:          "MAYA bursts onto the beach at noon.",
		Characters:    []string{"MAYA"},
		Setting:       "BEACH",
		TimeOfDay:     "noon",
	}
	result := Validate(visualstate.State{}, brief, Options{StrictMode: true})
	if !result.Valid {
		t.Error("first segment should always validate")
	}
	if result.Score != 100 {
		t.Errorf("score = %d, want 100", result.Score)
	}
	if len(result.Issues) != 0 {
		t.Errorf("unexpected issues: %v", result.Issues)
	}
}

func TestValidateConsistentBriefScoresClean(t *testing.T) {
	brief := Brief{
		SegmentNumber: 2,
		Text: "MAYA, still breathless in her yellow oilskin coat, reaches the gallery rail. " +
			"ELI waits by the lamp housing in the flickering lamplight. The mood stays tense.",
		Characters: []string{"MAYA", "ELI"},
		Setting:    "LIGHTHOUSE GALLERY",
		TimeOfDay:  "night",
	}
	result := Validate(priorState(), brief, Options{StrictMode: true})
	if len(result.Issues) != 0 {
		t.Fatalf("unexpected issues: %v", result.Issues)
	}
	if result.Score != 100 || !result.Valid {
		t.Errorf("score = %d valid = %v, want 100 true", result.Score, result.Valid)
	}
	if result.Rating != "excellent" {
		t.Errorf("rating = %q", result.Rating)
	}
}

// A state extracted from one segment's output, fed back as context for a
// brief that repeats the same attributes, must raise no issues.
func TestValidateRoundTripFromExtraction(t *testing.T) {
	generated := "INT. LIGHTHOUSE GALLERY - NIGHT\n\n" +
		"MAYA, wearing a yellow oilskin coat, climbs the final stair. MAYA is breathless.\n" +
		"ELI stands near the lamp housing, bathed in flickering lamplight.\n" +
		"Close-up on the dead bulb. The mood is tense."
	state := visualstate.NewExtractor().Extract(generated, []string{"MAYA", "ELI"})
	if state.IsEmpty() {
		t.Fatal("extraction produced an empty state")
	}

	brief := Brief{
		SegmentNumber: 3,
		Text: "MAYA, breathless in her yellow oilskin coat, steadies herself. " +
			"ELI stays near the lamp housing under the flickering lamplight. Tense silence.",
		Characters: []string{"MAYA", "ELI"},
		Setting:    state.Setting,
		TimeOfDay:  state.TimeOfDay,
	}
	result := Validate(state, brief, Options{})
	if len(result.Issues) != 0 {
		t.Fatalf("unexpected issues: %v", result.Issues)
	}
	if result.Score != 100 || !result.Valid {
		t.Errorf("score = %d valid = %v, want 100 true", result.Score, result.Valid)
	}
}

func TestValidateFlagsUndescribedCharacter(t *testing.T) {
	brief := Brief{
		SegmentNumber: 2,
		Text:          "MAYA steps to the rail of the gallery in the flickering lamplight. The mood is tense.",
		Characters:    []string{"MAYA"},
		Setting:       "LIGHTHOUSE GALLERY",
		TimeOfDay:     "night",
	}
	result := Validate(priorState(), brief, Options{})
	if len(result.Issues) != 1 {
		t.Fatalf("issues = %v, want one appearance issue", result.Issues)
	}
	issue := result.Issues[0]
	if issue.Type != IssueCharacterAppearance || issue.Severity != SeverityMedium {
		t.Errorf("issue = %+v", issue)
	}
	if result.Score != 85 || !result.Valid {
		t.Errorf("score = %d valid = %v, want 85 true", result.Score, result.Valid)
	}
}

func TestValidateStrictModeRaisesFloor(t *testing.T) {
	// Undescribed wardrobe plus a lighting contradiction: two medium
	// issues, score 70.
	brief := Brief{
		SegmentNumber: 2,
		Text:          "MAYA stands at the rail under harsh fluorescent light. The mood is tense.",
		Characters:    []string{"MAYA"},
		Setting:       "LIGHTHOUSE GALLERY",
		TimeOfDay:     "night",
	}
	lenient := Validate(priorState(), brief, Options{})
	if lenient.Score != 70 {
		t.Fatalf("score = %d (issues %v), want 70", lenient.Score, lenient.Issues)
	}
	if !lenient.Valid {
		t.Error("score 70 should pass the default floor")
	}
	strict := Validate(priorState(), brief, Options{StrictMode: true})
	if strict.Valid {
		t.Error("score 70 should fail the strict floor")
	}
}

func TestValidateTransitionExplainsSceneChange(t *testing.T) {
	brief := Brief{
		SegmentNumber: 2,
		Text:          "MAYA, breathless in her oilskin coat, walks the tideline.",
		Characters:    []string{"MAYA"},
		Setting:       "BEACH",
		TimeOfDay:     "dawn",
		Transition:    "cut from LIGHTHOUSE GALLERY to BEACH",
	}
	result := Validate(priorState(), brief, Options{})
	if len(result.Issues) != 0 {
		t.Errorf("transition should suppress scene-change issues, got %v", result.Issues)
	}

	brief.Transition = ""
	result = Validate(priorState(), brief, Options{})
	if result.Valid {
		t.Error("unexplained setting and time jump should be invalid")
	}
	var critical bool
	for _, issue := range result.Issues {
		if issue.Type == IssueContinuityBreak && issue.Severity == SeverityCritical {
			critical = true
		}
	}
	if !critical {
		t.Errorf("expected a critical continuity break, got %v", result.Issues)
	}
}

func TestCriticalIssueNeverImprovesOutcome(t *testing.T) {
	base := []Issue{
		{Type: IssueCharacterAppearance, Severity: SeverityMedium},
		{Type: IssueLightingMismatch, Severity: SeverityLow},
	}
	withCritical := append(append([]Issue{}, base...), Issue{
		Type:     IssueContinuityBreak,
		Severity: SeverityCritical,
	})
	if Score(withCritical) > Score(base) {
		t.Errorf("critical issue raised score: %d > %d", Score(withCritical), Score(base))
	}
	if Score(nil) != 100 {
		t.Errorf("no issues should score 100, got %d", Score(nil))
	}
}

func TestScoreClampsAtZero(t *testing.T) {
	issues := []Issue{
		{Severity: SeverityCritical},
		{Severity: SeverityCritical},
		{Severity: SeverityCritical},
	}
	if got := Score(issues); got != 0 {
		t.Errorf("score = %d, want 0", got)
	}
}

func TestRatingBands(t *testing.T) {
	cases := []struct {
		score int
		want  string
	}{
		{100, "excellent"},
		{90, "excellent"},
		{89, "good"},
		{75, "good"},
		{74, "fair"},
		{60, "fair"},
		{59, "poor"},
		{0, "poor"},
	}
	for _, tc := range cases {
		if got := Rating(tc.score); got != tc.want {
			t.Errorf("Rating(%d) = %q, want %q", tc.score, got, tc.want)
		}
	}
}

func TestValidateAutoCorrection(t *testing.T) {
	brief := Brief{
		SegmentNumber: 2,
		Text:          "MAYA steps to the rail of the gallery in the flickering lamplight. The mood is tense.",
		Characters:    []string{"MAYA"},
		Setting:       "LIGHTHOUSE GALLERY",
		TimeOfDay:     "night",
	}
	plain := Validate(priorState(), brief, Options{})
	if plain.CorrectedBrief != "" {
		t.Error("auto-correction produced without being requested")
	}

	corrected := Validate(priorState(), brief, Options{AutoCorrect: true})
	if corrected.CorrectedBrief == "" {
		t.Fatal("expected a corrected brief")
	}
	if !strings.HasPrefix(corrected.CorrectedBrief, brief.Text) {
		t.Error("corrected brief should extend the original text")
	}
	for _, want := range []string{"a yellow oilskin coat", "breathless", "LIGHTHOUSE GALLERY", "night"} {
		if !strings.Contains(corrected.CorrectedBrief, want) {
			t.Errorf("corrected brief missing %q:\n%s", want, corrected.CorrectedBrief)
		}
	}

	again := Validate(priorState(), brief, Options{AutoCorrect: true})
	if again.CorrectedBrief != corrected.CorrectedBrief {
		t.Error("auto-correction is not deterministic")
	}
}
