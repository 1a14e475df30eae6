package segmenter

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"storyloom/internal/visualstate"
)

// DurationConfig bounds segment durations, in estimated seconds.
type DurationConfig struct {
	TargetSeconds         float64
	MinSeconds            float64
	MaxSeconds            float64
	PreferSceneBoundaries bool
}

// Descriptor is one planned segment: the slice of episode content that one
// generation request will cover. Descriptors are produced once by Split
// and read-only afterwards, except for FinalVisualState, which the
// orchestrator records after the segment's output has been generated.
type Descriptor struct {
	SegmentNumber       int                `json:"segment_number"`
	SceneIDs            []string           `json:"scene_ids"`
	StartSeconds        float64            `json:"start_seconds"`
	EndSeconds          float64            `json:"end_seconds"`
	EstimatedSeconds    float64            `json:"estimated_seconds"`
	NarrativeBeat       string             `json:"narrative_beat"`
	NarrativeTransition string             `json:"narrative_transition,omitempty"`
	DialogueLines       []string           `json:"dialogue_lines,omitempty"`
	ActionBeats         []string           `json:"action_beats,omitempty"`
	Characters          []string           `json:"characters,omitempty"`
	Settings            []string           `json:"settings,omitempty"`
	TimeOfDay           string             `json:"time_of_day,omitempty"`
	ContinuityNotes     string             `json:"continuity_notes,omitempty"`
	FinalVisualState    *visualstate.State `json:"final_visual_state,omitempty"`
}

var beatCaser = cases.Title(language.English)

// beatLabel condenses an action beat or dialogue line into a short
// human-readable narrative beat.
func beatLabel(text string) string {
	text = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(text), "."))
	if text == "" {
		return "Untitled Beat"
	}
	words := strings.Fields(text)
	if len(words) > 8 {
		words = words[:8]
	}
	return beatCaser.String(strings.Join(words, " "))
}
