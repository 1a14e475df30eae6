package orchestrator

import (
	"fmt"
	"strings"

	"storyloom/internal/continuity"
	"storyloom/internal/segmenter"
)

// buildBrief renders a descriptor into the text the generator receives,
// paired with the structured facts continuity validation compares.
func buildBrief(desc segmenter.Descriptor) continuity.Brief {
	var b strings.Builder
	fmt.Fprintf(&b, "Narrative beat: %s\n", desc.NarrativeBeat)
	if desc.NarrativeTransition != "" {
		fmt.Fprintf(&b, "Transition: %s\n", desc.NarrativeTransition)
	}
	if len(desc.Settings) > 0 {
		fmt.Fprintf(&b, "Setting: %s\n", strings.Join(desc.Settings, ", "))
	}
	if desc.TimeOfDay != "" {
		fmt.Fprintf(&b, "Time of day: %s\n", desc.TimeOfDay)
	}
	fmt.Fprintf(&b, "Duration: %.1f seconds\n", desc.EstimatedSeconds)
	if desc.ContinuityNotes != "" {
		fmt.Fprintf(&b, "Continuity notes: %s\n", desc.ContinuityNotes)
	}
	if len(desc.ActionBeats) > 0 {
		b.WriteString("\nAction:\n")
		for _, beat := range desc.ActionBeats {
			fmt.Fprintf(&b, "- %s\n", beat)
		}
	}
	if len(desc.DialogueLines) > 0 {
		b.WriteString("\nDialogue:\n")
		for _, line := range desc.DialogueLines {
			fmt.Fprintf(&b, "%s\n", line)
		}
	}

	setting := ""
	if len(desc.Settings) > 0 {
		setting = desc.Settings[0]
	}
	return continuity.Brief{
		SegmentNumber: desc.SegmentNumber,
		Text:          b.String(),
		Characters:    desc.Characters,
		Setting:       setting,
		TimeOfDay:     desc.TimeOfDay,
		Transition:    desc.NarrativeTransition,
	}
}
