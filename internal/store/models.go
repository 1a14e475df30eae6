package store

import (
	"encoding/json"
	"strings"
	"time"
)

// GroupStatus is the lifecycle of one episode's generation run.
type GroupStatus string

const (
	GroupPending    GroupStatus = "pending"
	GroupGenerating GroupStatus = "generating"
	GroupPartial    GroupStatus = "partial"
	GroupComplete   GroupStatus = "complete"
	GroupError      GroupStatus = "error"
)

var allGroupStatuses = []GroupStatus{
	GroupPending,
	GroupGenerating,
	GroupPartial,
	GroupComplete,
	GroupError,
}

var groupStatusSet = func() map[GroupStatus]struct{} {
	set := make(map[GroupStatus]struct{}, len(allGroupStatuses))
	for _, status := range allGroupStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllGroupStatuses returns the ordered list of known group statuses.
func AllGroupStatuses() []GroupStatus {
	cp := make([]GroupStatus, len(allGroupStatuses))
	copy(cp, allGroupStatuses)
	return cp
}

// ParseGroupStatus converts a string into a known GroupStatus.
func ParseGroupStatus(value string) (GroupStatus, bool) {
	normalized := GroupStatus(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := groupStatusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether the status ends a run.
func (s GroupStatus) IsTerminal() bool {
	return s == GroupComplete || s == GroupError
}

// SegmentStatus is the persisted per-segment outcome.
type SegmentStatus string

const (
	SegmentPending  SegmentStatus = "pending"
	SegmentComplete SegmentStatus = "complete"
	SegmentError    SegmentStatus = "error"
)

// SegmentGroup is the aggregate run state over one episode's segments.
type SegmentGroup struct {
	ID                int64
	EpisodeTitle      string
	Series            string
	Platform          string
	TotalSegments     int
	CompletedSegments int
	Status            GroupStatus
	ErrorMessage      string
	AnchorInterval    int
	CharactersJSON    string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	StartedAt         *time.Time
	CompletedAt       *time.Time
}

// SetError marks the group as failed with the given message.
func (g *SegmentGroup) SetError(message string) {
	g.Status = GroupError
	g.ErrorMessage = message
}

// SetCharacters records the episode's full cast on the group so later
// runs can rebuild the extraction cast without the episode file.
func (g *SegmentGroup) SetCharacters(names []string) {
	if len(names) == 0 {
		g.CharactersJSON = ""
		return
	}
	raw, err := json.Marshal(names)
	if err != nil {
		g.CharactersJSON = ""
		return
	}
	g.CharactersJSON = string(raw)
}

// Characters returns the persisted cast. Malformed or empty JSON yields
// an empty slice.
func (g *SegmentGroup) Characters() []string {
	if g.CharactersJSON == "" {
		return nil
	}
	var names []string
	if err := json.Unmarshal([]byte(g.CharactersJSON), &names); err != nil {
		return nil
	}
	return names
}

// SegmentRecord is one persisted segment plan plus its post-generation
// visual state.
type SegmentRecord struct {
	ID                   int64
	GroupID              int64
	SegmentNumber        int
	DescriptorJSON       string
	FinalVisualStateJSON string
	Status               SegmentStatus
	ErrorMessage         string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Artifact is one generated output, tagged with its segment and group.
type Artifact struct {
	ID             int64
	GroupID        int64
	SegmentID      int64
	SegmentNumber  int
	RequestID      string
	Prompt         string
	Discussion     string
	CharacterCount int
	TagsJSON       string
	Model          string
	CreatedAt      time.Time
}
