package visualstate

import (
	"regexp"
	"strings"
)

// Extractor derives a State from free-form generated text using fixed
// patterns. Extraction is deterministic and never fails: text the patterns
// cannot read simply leaves fields empty.
type Extractor struct {
	slugline *regexp.Regexp
	lighting *regexp.Regexp
	camera   *regexp.Regexp
	wardrobe *regexp.Regexp
	looks    *regexp.Regexp
	position *regexp.Regexp
}

var (
	timeVocabulary = []string{
		"dawn", "sunrise", "morning", "noon", "afternoon",
		"golden hour", "sunset", "dusk", "evening", "night", "midnight",
	}
	toneVocabulary = []string{
		"tense", "somber", "hopeful", "eerie", "playful",
		"melancholy", "frantic", "serene", "ominous", "triumphant",
	}
	lightVocabulary = []string{
		"light", "glow", "neon", "lamp", "candle", "fluorescent",
	}
)

// TimeKeyword returns the earliest time-of-day keyword in text, or "".
func TimeKeyword(text string) string { return firstKeyword(text, timeVocabulary) }

// ToneKeyword returns the earliest tone keyword in text, or "".
func ToneKeyword(text string) string { return firstKeyword(text, toneVocabulary) }

// MentionsLighting reports whether text names any light source.
func MentionsLighting(text string) bool {
	lower := strings.ToLower(text)
	for _, word := range lightVocabulary {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}

// NewExtractor compiles the extraction patterns once.
func NewExtractor() *Extractor {
	return &Extractor{
		slugline: regexp.MustCompile(`(?im)^\s*(?:INT|EXT)\.?\s+([^\n-]+?)(?:\s*-\s*([A-Za-z ]+))?\s*$`),
		lighting: regexp.MustCompile(`(?i)\b(?:lit by|lighting[:\s]+|bathed in|under)\s+([^,.;\n]+)`),
		camera:   regexp.MustCompile(`(?i)\b(close-up|extreme close-up|wide shot|medium shot|aerial shot|tracking shot|handheld|static shot|over-the-shoulder)\b`),
		wardrobe: regexp.MustCompile(`(?i)\b%s\b[^.\n]*?\b(?:wearing|dressed in|wears|in a|in her|in his|in their)\s+([^,.;\n]+)`),
		looks:    regexp.MustCompile(`(?i)\b%s\b\s*(?:is|looks|appears)\s+([^,.;\n]+)`),
		position: regexp.MustCompile(`(?i)\b%s\b[^.\n]*?\b(stands|sits|kneels|leans|crouches|standing|sitting|kneeling|leaning)\s+([^,.;\n]+)`),
	}
}

// Extract builds a best-effort State from generated text. knownCharacters
// limits per-character extraction to the series cast so stray capitalized
// words are not tracked as people.
func (e *Extractor) Extract(text string, knownCharacters []string) (state State) {
	// Extraction is a soft dependency: a panic inside a pattern walk must
	// not take the run down with it.
	defer func() {
		if r := recover(); r != nil {
			state = State{}
		}
	}()

	text = strings.TrimSpace(text)
	if text == "" {
		return State{}
	}

	if m := e.slugline.FindStringSubmatch(text); m != nil {
		state.Setting = strings.TrimSpace(m[1])
		if len(m) > 2 {
			if tod := strings.ToLower(strings.TrimSpace(m[2])); tod != "" {
				state.TimeOfDay = tod
			}
		}
	}
	if state.TimeOfDay == "" {
		state.TimeOfDay = TimeKeyword(text)
	}
	if m := e.lighting.FindStringSubmatch(text); m != nil {
		candidate := strings.ToLower(strings.TrimSpace(m[1]))
		if MentionsLighting(candidate) {
			state.Lighting = candidate
		}
	}
	if m := e.camera.FindStringSubmatch(text); m != nil {
		state.Camera = strings.ToLower(m[1])
	}
	state.Tone = ToneKeyword(text)

	for _, name := range knownCharacters {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		c := e.extractCharacter(text, name)
		if c.isEmpty() {
			continue
		}
		if state.Characters == nil {
			state.Characters = make(map[string]CharacterState)
		}
		state.Characters[name] = c
	}
	return state
}

func (e *Extractor) extractCharacter(text, name string) CharacterState {
	quoted := regexp.QuoteMeta(name)
	var c CharacterState
	if re, err := regexp.Compile(strings.Replace(e.wardrobe.String(), "%s", quoted, 1)); err == nil {
		if m := re.FindStringSubmatch(text); m != nil {
			c.Wardrobe = strings.TrimSpace(m[1])
		}
	}
	if re, err := regexp.Compile(strings.Replace(e.looks.String(), "%s", quoted, 1)); err == nil {
		if m := re.FindStringSubmatch(text); m != nil {
			candidate := strings.TrimSpace(m[1])
			// "is wearing ..." belongs to wardrobe, not appearance.
			if !strings.HasPrefix(strings.ToLower(candidate), "wearing") &&
				!strings.HasPrefix(strings.ToLower(candidate), "dressed") {
				c.Appearance = candidate
			}
		}
	}
	if re, err := regexp.Compile(strings.Replace(e.position.String(), "%s", quoted, 1)); err == nil {
		if m := re.FindStringSubmatch(text); m != nil {
			c.Position = strings.ToLower(strings.TrimSpace(m[1])) + " " + strings.TrimSpace(m[2])
		}
	}
	return c
}

func firstKeyword(text string, words []string) string {
	lower := strings.ToLower(text)
	best := ""
	bestIdx := -1
	for _, word := range words {
		idx := strings.Index(lower, word)
		if idx < 0 {
			continue
		}
		if bestIdx == -1 || idx < bestIdx {
			best = word
			bestIdx = idx
		}
	}
	return best
}
