package segmenter

import (
	"errors"
	"fmt"
	"strings"

	"storyloom/internal/episode"
)

// Split partitions an episode into ordered segment descriptors whose
// estimated durations respect cfg. The final segment may fall below
// MinSeconds; every other segment lands in [MinSeconds, MaxSeconds].
func Split(ep *episode.Episode, cfg DurationConfig) ([]Descriptor, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if ep == nil || len(ep.Scenes) == 0 {
		return nil, errors.New("episode has no scenes")
	}

	s := &splitter{cfg: cfg}
	for i := range ep.Scenes {
		s.addScene(&ep.Scenes[i])
	}
	s.flush()

	if len(s.segments) == 0 {
		return nil, errors.New("segmentation produced no segments")
	}
	return s.segments, nil
}

type splitter struct {
	cfg      DurationConfig
	segments []Descriptor
	cur      builder
	cursor   float64 // running end time of the last closed segment
	prevLoc  string  // last location of the previously closed segment
}

type builder struct {
	sceneIDs   []string
	dialogue   []string
	action     []string
	settings   []string
	seconds    float64
	beat       string
	timeOfDay  string
	transition string
	notes      []string
	lastLoc    string
}

func (b *builder) empty() bool { return b.seconds == 0 && len(b.sceneIDs) == 0 }

func (b *builder) addSceneID(id string) {
	for _, existing := range b.sceneIDs {
		if existing == id {
			return
		}
	}
	b.sceneIDs = append(b.sceneIDs, id)
}

func (b *builder) addSetting(location string) {
	location = strings.TrimSpace(location)
	if location == "" {
		return
	}
	for _, existing := range b.settings {
		if existing == location {
			return
		}
	}
	b.settings = append(b.settings, location)
	b.lastLoc = location
}

func (s *splitter) addScene(scene *episode.Scene) {
	est := scene.EstimatedSeconds()

	if est > s.cfg.MaxSeconds {
		// A single scene that cannot fit any segment: close what we have
		// and split the scene itself.
		s.flush()
		s.splitOversizedScene(scene)
		return
	}

	if !s.cur.empty() && s.cur.seconds+est > s.cfg.MaxSeconds {
		if s.cfg.PreferSceneBoundaries {
			s.flush()
		} else {
			s.fillFromScene(scene)
			return
		}
	}

	s.appendWholeScene(scene, est)
}

func (s *splitter) appendWholeScene(scene *episode.Scene, est float64) {
	if s.cur.empty() && s.prevLoc != "" && scene.Location != "" && scene.Location != s.prevLoc {
		s.cur.transition = fmt.Sprintf("cut from %s to %s", s.prevLoc, scene.Location)
	}
	s.cur.addSceneID(scene.ID)
	s.cur.addSetting(scene.Location)
	s.cur.dialogue = append(s.cur.dialogue, scene.Dialogue...)
	s.cur.action = append(s.cur.action, scene.Action...)
	s.cur.seconds += est
	if s.cur.beat == "" {
		s.cur.beat = deriveBeat(scene)
	}
	if s.cur.timeOfDay == "" {
		s.cur.timeOfDay = scene.TimeOfDay
	}
}

// splitOversizedScene breaks one scene into consecutive segments, each at
// most MaxSeconds, flagging the forced split in continuity notes.
func (s *splitter) splitOversizedScene(scene *episode.Scene) {
	chunks := chunkUnits(sceneUnits(scene), s.cfg.MaxSeconds)
	for i, chunk := range chunks {
		s.cur = builder{}
		s.cur.addSceneID(scene.ID)
		s.cur.addSetting(scene.Location)
		for _, unit := range chunk.units {
			if unit.dialogue {
				s.cur.dialogue = append(s.cur.dialogue, unit.text)
			} else {
				s.cur.action = append(s.cur.action, unit.text)
			}
		}
		s.cur.seconds = chunk.seconds
		s.cur.beat = deriveBeat(scene)
		s.cur.timeOfDay = scene.TimeOfDay
		s.cur.notes = append(s.cur.notes,
			fmt.Sprintf("forced mid-scene split of %s (part %d of %d)", scene.ID, i+1, len(chunks)))
		if i > 0 {
			s.cur.transition = "continuous action carried from previous segment"
		}
		s.flush()
	}
}

// fillFromScene packs part of a scene into the open segment, then spills
// the remainder into fresh segments. Used only when scene boundaries are
// not preferred.
func (s *splitter) fillFromScene(scene *episode.Scene) {
	units := sceneUnits(scene)
	split := false
	for _, unit := range units {
		if !s.cur.empty() && s.cur.seconds+unit.seconds > s.cfg.MaxSeconds {
			if !split {
				s.cur.notes = append(s.cur.notes,
					fmt.Sprintf("forced mid-scene split of %s", scene.ID))
				split = true
			}
			s.flush()
			s.cur.transition = "continuous action carried from previous segment"
			s.cur.notes = append(s.cur.notes,
				fmt.Sprintf("forced mid-scene split of %s (continued)", scene.ID))
		}
		s.cur.addSceneID(scene.ID)
		s.cur.addSetting(scene.Location)
		if unit.dialogue {
			s.cur.dialogue = append(s.cur.dialogue, unit.text)
		} else {
			s.cur.action = append(s.cur.action, unit.text)
		}
		s.cur.seconds += unit.seconds
		if s.cur.beat == "" {
			s.cur.beat = deriveBeat(scene)
		}
		if s.cur.timeOfDay == "" {
			s.cur.timeOfDay = scene.TimeOfDay
		}
	}
}

func (s *splitter) flush() {
	if s.cur.empty() {
		s.cur = builder{}
		return
	}
	speakers := (episode.Scene{Dialogue: s.cur.dialogue}).Speakers()
	desc := Descriptor{
		SegmentNumber:       len(s.segments) + 1,
		SceneIDs:            s.cur.sceneIDs,
		StartSeconds:        s.cursor,
		EndSeconds:          s.cursor + s.cur.seconds,
		EstimatedSeconds:    s.cur.seconds,
		NarrativeBeat:       s.cur.beat,
		NarrativeTransition: s.cur.transition,
		DialogueLines:       s.cur.dialogue,
		ActionBeats:         s.cur.action,
		Characters:          speakers,
		Settings:            s.cur.settings,
		TimeOfDay:           s.cur.timeOfDay,
		ContinuityNotes:     strings.Join(s.cur.notes, "; "),
	}
	if desc.NarrativeBeat == "" {
		desc.NarrativeBeat = "Untitled Beat"
	}
	s.segments = append(s.segments, desc)
	s.cursor = desc.EndSeconds
	if s.cur.lastLoc != "" {
		s.prevLoc = s.cur.lastLoc
	}
	s.cur = builder{}
}

func deriveBeat(scene *episode.Scene) string {
	if len(scene.Action) > 0 {
		return beatLabel(scene.Action[0])
	}
	if len(scene.Dialogue) > 0 {
		line := scene.Dialogue[0]
		if idx := strings.Index(line, ":"); idx > 0 {
			line = line[idx+1:]
		}
		return beatLabel(line)
	}
	if scene.Location != "" {
		return beatLabel("scene at " + scene.Location)
	}
	return ""
}

func (cfg DurationConfig) validate() error {
	if cfg.MinSeconds <= 0 {
		return errors.New("duration config: min must be positive")
	}
	if cfg.TargetSeconds < cfg.MinSeconds {
		return errors.New("duration config: target must be at least min")
	}
	if cfg.MaxSeconds < cfg.TargetSeconds {
		return errors.New("duration config: max must be at least target")
	}
	return nil
}

// contentUnit is the smallest packable piece of a scene.
type contentUnit struct {
	dialogue bool
	text     string
	seconds  float64
}

// sceneUnits flattens a scene into packable units, interleaving action
// beats and dialogue lines to approximate screenplay order. The scene
// establishment overhead is attached to the first unit.
func sceneUnits(scene *episode.Scene) []contentUnit {
	var units []contentUnit
	di, ai := 0, 0
	for di < len(scene.Dialogue) || ai < len(scene.Action) {
		if ai < len(scene.Action) {
			units = append(units, contentUnit{
				text:    scene.Action[ai],
				seconds: episode.SecondsPerActionBeat,
			})
			ai++
		}
		if di < len(scene.Dialogue) {
			line := scene.Dialogue[di]
			spoken := line
			if idx := strings.Index(line, ":"); idx > 0 {
				spoken = line[idx+1:]
			}
			words := len(strings.Fields(spoken))
			units = append(units, contentUnit{
				dialogue: true,
				text:     line,
				seconds:  float64(words) / episode.DialogueWordsPerSecond,
			})
			di++
		}
	}
	if len(units) > 0 {
		units[0].seconds += episode.SceneOverheadSeconds
	}
	return units
}

type unitChunk struct {
	units   []contentUnit
	seconds float64
}

// chunkUnits groups units greedily so each chunk stays at or below max.
// A single unit larger than max still forms its own chunk; packing always
// makes progress.
func chunkUnits(units []contentUnit, max float64) []unitChunk {
	var chunks []unitChunk
	var cur unitChunk
	for _, unit := range units {
		if len(cur.units) > 0 && cur.seconds+unit.seconds > max {
			chunks = append(chunks, cur)
			cur = unitChunk{}
		}
		cur.units = append(cur.units, unit)
		cur.seconds += unit.seconds
	}
	if len(cur.units) > 0 {
		chunks = append(chunks, cur)
	}
	return chunks
}
