package visualstate

import (
	"encoding/json"
	"sort"
	"strings"
)

// CharacterState holds the last known visual facts for one character.
// Any field may be empty; extraction fills in what it can.
type CharacterState struct {
	Appearance string `json:"appearance,omitempty"`
	Wardrobe   string `json:"wardrobe,omitempty"`
	Position   string `json:"position,omitempty"`
}

func (c CharacterState) isEmpty() bool {
	return c.Appearance == "" && c.Wardrobe == "" && c.Position == ""
}

// State is a partial snapshot of the visual facts established by generated
// output so far. A zero State means "no prior constraints".
type State struct {
	Characters map[string]CharacterState `json:"characters,omitempty"`
	Setting    string                    `json:"setting,omitempty"`
	TimeOfDay  string                    `json:"time_of_day,omitempty"`
	Lighting   string                    `json:"lighting,omitempty"`
	Camera     string                    `json:"camera,omitempty"`
	Tone       string                    `json:"tone,omitempty"`
}

// IsEmpty reports whether the state carries no facts at all.
func (s State) IsEmpty() bool {
	if s.Setting != "" || s.TimeOfDay != "" || s.Lighting != "" || s.Camera != "" || s.Tone != "" {
		return false
	}
	for _, c := range s.Characters {
		if !c.isEmpty() {
			return false
		}
	}
	return true
}

// Clone returns a deep copy so callers can replace states wholesale
// without sharing the character map.
func (s State) Clone() State {
	out := s
	if s.Characters != nil {
		out.Characters = make(map[string]CharacterState, len(s.Characters))
		for name, c := range s.Characters {
			out.Characters[name] = c
		}
	}
	return out
}

// CharacterNames returns the tracked character names in sorted order.
func (s State) CharacterNames() []string {
	names := make([]string, 0, len(s.Characters))
	for name := range s.Characters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Character returns the tracked state for a character, matched
// case-insensitively.
func (s State) Character(name string) (CharacterState, bool) {
	if c, ok := s.Characters[name]; ok {
		return c, true
	}
	for tracked, c := range s.Characters {
		if strings.EqualFold(tracked, name) {
			return c, true
		}
	}
	return CharacterState{}, false
}

// MarshalJSON keeps empty states as compact "{}" rather than null maps.
func (s State) MarshalJSON() ([]byte, error) {
	type alias State
	return json.Marshal(alias(s))
}

// FromJSON decodes a persisted state. Empty or malformed input yields an
// empty state rather than an error; persisted state is advisory.
func FromJSON(raw string) State {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return State{}
	}
	var s State
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return State{}
	}
	return s
}

// ToJSON encodes the state for persistence. An empty state encodes to "".
func (s State) ToJSON() string {
	if s.IsEmpty() {
		return ""
	}
	data, err := json.Marshal(s)
	if err != nil {
		return ""
	}
	return string(data)
}
