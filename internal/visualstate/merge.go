package visualstate

// Merge folds an ordered window of states (oldest to newest) into one
// refreshed anchor state. Scalar fields take the most recent non-empty
// value. Characters are unioned across the window; each character keeps
// their most recent non-empty value per attribute, so a character who
// disappears and reappears retains their last known look.
func Merge(states []State) State {
	switch len(states) {
	case 0:
		return State{}
	case 1:
		return states[0].Clone()
	}

	merged := State{Characters: make(map[string]CharacterState)}
	for _, s := range states {
		if s.Setting != "" {
			merged.Setting = s.Setting
		}
		if s.TimeOfDay != "" {
			merged.TimeOfDay = s.TimeOfDay
		}
		if s.Lighting != "" {
			merged.Lighting = s.Lighting
		}
		if s.Camera != "" {
			merged.Camera = s.Camera
		}
		if s.Tone != "" {
			merged.Tone = s.Tone
		}
		for name, c := range s.Characters {
			prev := merged.Characters[name]
			if c.Appearance != "" {
				prev.Appearance = c.Appearance
			}
			if c.Wardrobe != "" {
				prev.Wardrobe = c.Wardrobe
			}
			if c.Position != "" {
				prev.Position = c.Position
			}
			merged.Characters[name] = prev
		}
	}
	if len(merged.Characters) == 0 {
		merged.Characters = nil
	}
	return merged
}
