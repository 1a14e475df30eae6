package episode

import (
	"fmt"
	"sort"
	"strings"
)

// Duration estimation weights. Fixed so that identical input always yields
// identical segment boundaries.
const (
	// DialogueWordsPerSecond is the assumed spoken-performance rate.
	DialogueWordsPerSecond = 2.5
	// SecondsPerActionBeat is the assumed screen time of one action beat.
	SecondsPerActionBeat = 2.5
	// SceneOverheadSeconds covers establishing the scene before any content.
	SceneOverheadSeconds = 1.0
)

// Scene is one screenplay scene: a location, a time of day, and ordered
// dialogue lines and action beats.
type Scene struct {
	ID        string   `yaml:"id" json:"id"`
	Location  string   `yaml:"location" json:"location"`
	TimeOfDay string   `yaml:"time_of_day" json:"time_of_day"`
	Dialogue  []string `yaml:"dialogue" json:"dialogue"`
	Action    []string `yaml:"action" json:"action"`
}

// Episode is the complete narrative unit fed to the segmenter.
type Episode struct {
	Title          string   `yaml:"title" json:"title"`
	Series         string   `yaml:"series" json:"series"`
	Characters     []string `yaml:"characters" json:"characters"`
	Scenes         []Scene  `yaml:"scenes" json:"scenes"`
	ScreenplayText string   `yaml:"screenplay_text" json:"screenplay_text"`
}

// EstimatedSeconds returns the scene's estimated performance duration.
func (s Scene) EstimatedSeconds() float64 {
	words := 0
	for _, line := range s.Dialogue {
		words += len(strings.Fields(stripSpeaker(line)))
	}
	duration := SceneOverheadSeconds
	if words > 0 {
		duration += float64(words) / DialogueWordsPerSecond
	}
	duration += float64(len(s.Action)) * SecondsPerActionBeat
	return duration
}

// Speakers returns the distinct speaker names found in the scene's dialogue
// lines, in order of first appearance. Dialogue lines use the form
// "NAME: spoken text"; lines without a speaker prefix are ignored.
func (s Scene) Speakers() []string {
	seen := make(map[string]struct{})
	var speakers []string
	for _, line := range s.Dialogue {
		name := speakerOf(line)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		speakers = append(speakers, name)
	}
	return speakers
}

// EstimatedSeconds sums the scene estimates for the whole episode.
func (e Episode) EstimatedSeconds() float64 {
	total := 0.0
	for _, scene := range e.Scenes {
		total += scene.EstimatedSeconds()
	}
	return total
}

// KnownCharacters returns the declared character identifiers combined with
// every speaker found in the scenes, sorted for deterministic output.
func (e Episode) KnownCharacters() []string {
	seen := make(map[string]struct{})
	for _, name := range e.Characters {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		seen[name] = struct{}{}
	}
	for _, scene := range e.Scenes {
		for _, name := range scene.Speakers() {
			seen[name] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Normalize fills in missing scene IDs (scene-N, 1-based) and trims
// whitespace from identity fields. It returns an error when two scenes
// share an explicit ID.
func (e *Episode) Normalize() error {
	ids := make(map[string]int, len(e.Scenes))
	for i := range e.Scenes {
		scene := &e.Scenes[i]
		scene.ID = strings.TrimSpace(scene.ID)
		if scene.ID == "" {
			scene.ID = fmt.Sprintf("scene-%d", i+1)
		}
		if prev, ok := ids[scene.ID]; ok {
			return fmt.Errorf("duplicate scene id %q (scenes %d and %d)", scene.ID, prev+1, i+1)
		}
		ids[scene.ID] = i
		scene.Location = strings.TrimSpace(scene.Location)
		scene.TimeOfDay = strings.ToLower(strings.TrimSpace(scene.TimeOfDay))
	}
	return nil
}

func stripSpeaker(line string) string {
	if idx := strings.Index(line, ":"); idx > 0 {
		if speakerOf(line) != "" {
			return strings.TrimSpace(line[idx+1:])
		}
	}
	return strings.TrimSpace(line)
}

func speakerOf(line string) string {
	idx := strings.Index(line, ":")
	if idx <= 0 {
		return ""
	}
	name := strings.TrimSpace(line[:idx])
	if name == "" || len(strings.Fields(name)) > 3 {
		return ""
	}
	return name
}
