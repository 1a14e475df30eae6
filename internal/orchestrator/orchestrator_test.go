package orchestrator_test

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"testing"

	"storyloom/internal/config"
	"storyloom/internal/episode"
	"storyloom/internal/logging"
	"storyloom/internal/orchestrator"
	"storyloom/internal/services"
	"storyloom/internal/services/generator"
	"storyloom/internal/store"
	"storyloom/internal/testsupport"
	"storyloom/internal/visualstate"
)

type fakeGenerator struct {
	mu       sync.Mutex
	calls    int
	requests []generator.Request
	prompt   string             // generated output, default gallery prompt
	failAt   int                // call number that fails, 0 for never
	failWith error              // marker for failAt, default ErrExternal
	cancelAt int                // call number that triggers cancel, 0 for never
	abortAt  int                // call number that cancels and aborts mid-call
	cancel   context.CancelFunc // invoked at cancelAt / abortAt
}

func (f *fakeGenerator) Generate(_ context.Context, req generator.Request) (*generator.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.requests = append(f.requests, req)
	if f.failAt != 0 && f.calls == f.failAt {
		marker := f.failWith
		if marker == nil {
			marker = services.ErrExternal
		}
		return nil, services.Wrap(marker, "generator", "generate", "model request failed",
			errors.New("upstream unavailable"))
	}
	if f.abortAt != 0 && f.calls == f.abortAt && f.cancel != nil {
		// The call itself is torn down by cancellation, as the real
		// client surfaces it.
		f.cancel()
		return nil, services.Wrap(services.ErrTimeout, "generator", "generate",
			"request cancelled or timed out", context.Canceled)
	}
	if f.cancelAt != 0 && f.calls == f.cancelAt && f.cancel != nil {
		f.cancel()
	}
	prompt := f.prompt
	if prompt == "" {
		prompt = "INT. GALLERY - NIGHT\n\nMAYA stands by the rail in silence."
	}
	return &generator.Response{
		OptimizedPrompt: prompt,
		Discussion:      "kept the gallery framing",
		CharacterCount:  1,
		Tags:            []string{"night", "gallery"},
	}, nil
}

func (f *fakeGenerator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// nightEpisode yields one segment per scene under the default duration
// config: each scene estimates 8.0 seconds and two scenes would overflow
// the 12 second cap.
func nightEpisode(scenes int) *episode.Episode {
	ep := &episode.Episode{Title: "The Lighthouse Keeper", Series: "Harbor Lights"}
	for i := 1; i <= scenes; i++ {
		ep.Scenes = append(ep.Scenes, episode.Scene{
			ID:        fmt.Sprintf("scene-%d", i),
			Location:  "GALLERY",
			TimeOfDay: "night",
			Dialogue:  []string{"MAYA: the storm is nearly here"},
			Action:    []string{"Maya checks the beacon", "The wind rattles the glass"},
		})
	}
	return ep
}

func newOrchestrator(t *testing.T, cfg *config.Config, gen orchestrator.Generator) (*orchestrator.Orchestrator, *store.Store) {
	t.Helper()
	st := testsupport.MustOpenStore(t, cfg)
	return orchestrator.New(cfg, st, gen, logging.NewNop()), st
}

func TestRunCompletesAllSegments(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	gen := &fakeGenerator{}
	orch, st := newOrchestrator(t, cfg, gen)

	result, err := orch.Run(context.Background(), nightEpisode(6))
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if result.Group.Status != store.GroupComplete {
		t.Errorf("status = %s, want complete", result.Group.Status)
	}
	if result.Group.CompletedSegments != 6 {
		t.Errorf("completed = %d, want 6", result.Group.CompletedSegments)
	}
	if len(result.Artifacts) != 6 {
		t.Errorf("artifacts = %d, want 6", len(result.Artifacts))
	}
	if gen.callCount() != 6 {
		t.Errorf("generator calls = %d, want 6", gen.callCount())
	}
	if result.Report.ValidatedSegments != 6 {
		t.Errorf("validated = %d, want 6", result.Report.ValidatedSegments)
	}
	if !reflect.DeepEqual(result.AnchorPointsUsed, []int{3, 6}) {
		t.Errorf("anchor points = %v, want [3 6]", result.AnchorPointsUsed)
	}

	// From the second segment on, the generator receives prior state.
	if gen.requests[0].PriorVisualState != "" {
		t.Error("first segment should carry no prior state")
	}
	for i, req := range gen.requests[1:] {
		if req.PriorVisualState == "" {
			t.Errorf("segment %d missing prior visual state", i+2)
		}
	}

	group, err := st.GroupByID(context.Background(), result.Group.ID)
	if err != nil {
		t.Fatalf("reload group: %v", err)
	}
	if group.Status != store.GroupComplete || group.CompletedAt == nil {
		t.Errorf("persisted group = %s completedAt=%v", group.Status, group.CompletedAt)
	}
	records, err := st.SegmentsByGroup(context.Background(), group.ID)
	if err != nil {
		t.Fatalf("reload segments: %v", err)
	}
	for _, record := range records {
		if record.Status != store.SegmentComplete {
			t.Errorf("segment %d status = %s", record.SegmentNumber, record.Status)
		}
		if record.FinalVisualStateJSON == "" {
			t.Errorf("segment %d missing final visual state", record.SegmentNumber)
		}
	}
}

func TestRunStopsAtFailingSegment(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	gen := &fakeGenerator{failAt: 3}
	orch, st := newOrchestrator(t, cfg, gen)

	result, err := orch.Run(context.Background(), nightEpisode(5))
	if err == nil {
		t.Fatal("expected run error")
	}
	if !strings.Contains(err.Error(), "segment 3") {
		t.Errorf("error does not name segment 3: %v", err)
	}
	if !errors.Is(err, services.ErrExternal) {
		t.Errorf("error not tagged external: %v", err)
	}

	if result == nil {
		t.Fatal("failed run must still return partial results")
	}
	if result.Group.Status != store.GroupError {
		t.Errorf("status = %s, want error", result.Group.Status)
	}
	if result.Group.CompletedSegments != 2 {
		t.Errorf("completed = %d, want 2", result.Group.CompletedSegments)
	}
	if len(result.Artifacts) != 2 {
		t.Errorf("artifacts = %d, want 2", len(result.Artifacts))
	}
	if !strings.Contains(result.Group.ErrorMessage, "segment 3") {
		t.Errorf("group message does not name segment 3: %q", result.Group.ErrorMessage)
	}
	if result.Report.ValidatedSegments != 3 {
		t.Errorf("validated = %d, want 3 (failing segment was validated first)", result.Report.ValidatedSegments)
	}

	group, err := st.GroupByID(context.Background(), result.Group.ID)
	if err != nil {
		t.Fatalf("reload group: %v", err)
	}
	if group.Status != store.GroupError {
		t.Errorf("persisted status = %s", group.Status)
	}
	failed, err := st.SegmentByNumber(context.Background(), group.ID, 3)
	if err != nil {
		t.Fatalf("load segment 3: %v", err)
	}
	if failed.Status != store.SegmentError {
		t.Errorf("segment 3 status = %s", failed.Status)
	}
}

func TestResumeContinuesFromFirstIncomplete(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	gen := &fakeGenerator{failAt: 3}
	orch, st := newOrchestrator(t, cfg, gen)

	failedResult, err := orch.Run(context.Background(), nightEpisode(5))
	if err == nil {
		t.Fatal("expected initial run to fail")
	}
	groupID := failedResult.Group.ID

	resumeGen := &fakeGenerator{}
	resumed := orchestrator.New(cfg, st, resumeGen, logging.NewNop())
	result, err := resumed.Resume(context.Background(), groupID)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}

	if result.Group.Status != store.GroupComplete {
		t.Errorf("status = %s, want complete", result.Group.Status)
	}
	if result.Group.CompletedSegments != 5 {
		t.Errorf("completed = %d, want 5", result.Group.CompletedSegments)
	}
	if resumeGen.callCount() != 3 {
		t.Errorf("resume generated %d segments, want 3", resumeGen.callCount())
	}
	if len(result.Artifacts) != 5 {
		t.Errorf("artifacts = %d, want 5", len(result.Artifacts))
	}
	// Segment 3 re-enters with the state completed segments persisted.
	if resumeGen.requests[0].PriorVisualState == "" {
		t.Error("resumed segment should carry rebuilt prior state")
	}

	// A complete group resumes as a no-op returning stored output.
	again, err := resumed.Resume(context.Background(), groupID)
	if err != nil {
		t.Fatalf("second resume: %v", err)
	}
	if resumeGen.callCount() != 3 {
		t.Errorf("second resume regenerated segments: %d calls", resumeGen.callCount())
	}
	if len(again.Artifacts) != 5 {
		t.Errorf("second resume artifacts = %d, want 5", len(again.Artifacts))
	}
}

func TestResumeUnknownGroup(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	orch, _ := newOrchestrator(t, cfg, &fakeGenerator{})

	if _, err := orch.Resume(context.Background(), 9999); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestRunCancellationBetweenSegments(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	gen := &fakeGenerator{cancelAt: 2, cancel: cancel}
	orch, _ := newOrchestrator(t, cfg, gen)

	result, err := orch.Run(ctx, nightEpisode(5))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if result.Group.Status != store.GroupPartial {
		t.Errorf("status = %s, want partial", result.Group.Status)
	}
	if result.Group.CompletedSegments != 2 {
		t.Errorf("completed = %d, want 2", result.Group.CompletedSegments)
	}
	if len(result.Artifacts) != 2 {
		t.Errorf("artifacts = %d, want 2", len(result.Artifacts))
	}
	if gen.callCount() != 2 {
		t.Errorf("generator calls = %d, want 2", gen.callCount())
	}
}

// bogartPrompt describes BO, a declared character who never speaks.
const bogartPrompt = "INT. GALLERY - NIGHT\n\nMAYA stands by the rail in silence. BO waits by the stairs, wearing a red scarf."

func castEpisode(scenes int) *episode.Episode {
	ep := nightEpisode(scenes)
	ep.Characters = []string{"BO"}
	return ep
}

func TestDeclaredCastIsTracked(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	gen := &fakeGenerator{prompt: bogartPrompt}
	orch, st := newOrchestrator(t, cfg, gen)

	result, err := orch.Run(context.Background(), castEpisode(3))
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	group, err := st.GroupByID(context.Background(), result.Group.ID)
	if err != nil {
		t.Fatalf("reload group: %v", err)
	}
	if !reflect.DeepEqual(group.Characters(), []string{"BO", "MAYA"}) {
		t.Errorf("persisted cast = %v, want [BO MAYA]", group.Characters())
	}

	records, err := st.SegmentsByGroup(context.Background(), group.ID)
	if err != nil {
		t.Fatalf("reload segments: %v", err)
	}
	for _, record := range records {
		state := visualstate.FromJSON(record.FinalVisualStateJSON)
		bo, ok := state.Character("BO")
		if !ok {
			t.Fatalf("segment %d visual state does not track BO: %s", record.SegmentNumber, record.FinalVisualStateJSON)
		}
		if bo.Wardrobe != "a red scarf" {
			t.Errorf("segment %d BO wardrobe = %q, want %q", record.SegmentNumber, bo.Wardrobe, "a red scarf")
		}
	}

	// Later segments carry BO in the prior state handed to the generator.
	for i, req := range gen.requests[1:] {
		if !strings.Contains(req.PriorVisualState, "BO") {
			t.Errorf("segment %d prior state omits BO: %s", i+2, req.PriorVisualState)
		}
	}
}

func TestResumeRebuildsCastFromGroup(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	gen := &fakeGenerator{prompt: bogartPrompt, failAt: 2}
	orch, st := newOrchestrator(t, cfg, gen)

	failedResult, err := orch.Run(context.Background(), castEpisode(3))
	if err == nil {
		t.Fatal("expected initial run to fail")
	}

	// Resume has no episode to read the cast from; only the group does.
	resumeGen := &fakeGenerator{prompt: bogartPrompt}
	resumed := orchestrator.New(cfg, st, resumeGen, logging.NewNop())
	if _, err := resumed.Resume(context.Background(), failedResult.Group.ID); err != nil {
		t.Fatalf("resume: %v", err)
	}

	record, err := st.SegmentByNumber(context.Background(), failedResult.Group.ID, 3)
	if err != nil {
		t.Fatalf("load segment 3: %v", err)
	}
	state := visualstate.FromJSON(record.FinalVisualStateJSON)
	if _, ok := state.Character("BO"); !ok {
		t.Errorf("resumed segment lost the declared cast: %s", record.FinalVisualStateJSON)
	}
}

func TestMidCallCancellationEndsPartial(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	gen := &fakeGenerator{abortAt: 3, cancel: cancel}
	orch, st := newOrchestrator(t, cfg, gen)

	result, err := orch.Run(ctx, nightEpisode(5))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if result.Group.Status != store.GroupPartial {
		t.Errorf("status = %s, want partial", result.Group.Status)
	}
	if result.Group.CompletedSegments != 2 {
		t.Errorf("completed = %d, want 2", result.Group.CompletedSegments)
	}
	if result.Group.ErrorMessage != "run cancelled" {
		t.Errorf("message = %q, want run cancelled", result.Group.ErrorMessage)
	}

	// The aborted segment stays pending so resume regenerates it.
	record, err := st.SegmentByNumber(context.Background(), result.Group.ID, 3)
	if err != nil {
		t.Fatalf("load segment 3: %v", err)
	}
	if record.Status != store.SegmentPending {
		t.Errorf("segment 3 status = %s, want pending", record.Status)
	}
}

func TestNonFatalFailureLeavesGroupResumable(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	gen := &fakeGenerator{failAt: 2, failWith: services.ErrValidation}
	orch, st := newOrchestrator(t, cfg, gen)

	result, err := orch.Run(context.Background(), nightEpisode(3))
	if err == nil {
		t.Fatal("expected run error")
	}
	if result.Group.Status != store.GroupPartial {
		t.Errorf("status = %s, want partial for a non-fatal failure", result.Group.Status)
	}

	group, err := st.GroupByID(context.Background(), result.Group.ID)
	if err != nil {
		t.Fatalf("reload group: %v", err)
	}
	if group.Status != store.GroupPartial {
		t.Errorf("persisted status = %s, want partial", group.Status)
	}
}

func TestAnchorRefreshForEveryInterval(t *testing.T) {
	expected := map[int][]int{
		2: {2, 4, 6},
		3: {3, 6},
		4: {4},
		5: {5},
	}
	for interval, want := range expected {
		t.Run(fmt.Sprintf("interval_%d", interval), func(t *testing.T) {
			cfg := testsupport.NewConfig(t, testsupport.WithAnchorInterval(interval))
			orch, _ := newOrchestrator(t, cfg, &fakeGenerator{})

			result, err := orch.Run(context.Background(), nightEpisode(6))
			if err != nil {
				t.Fatalf("run: %v", err)
			}
			if !reflect.DeepEqual(result.AnchorPointsUsed, want) {
				t.Errorf("anchor points = %v, want %v", result.AnchorPointsUsed, want)
			}
		})
	}
}

func TestRunRejectsEmptyEpisode(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	orch, _ := newOrchestrator(t, cfg, &fakeGenerator{})

	if _, err := orch.Run(context.Background(), nil); !errors.Is(err, services.ErrValidation) {
		t.Errorf("nil episode err = %v", err)
	}
	if _, err := orch.Run(context.Background(), &episode.Episode{Title: "Empty"}); !errors.Is(err, services.ErrValidation) {
		t.Errorf("empty episode err = %v", err)
	}
}

type failingArtifacts struct {
	orchestrator.ArtifactRepo
}

func (f failingArtifacts) InsertArtifact(context.Context, *store.Artifact) (*store.Artifact, error) {
	return nil, errors.New("disk full")
}

func TestPersistenceFailureAbortsRun(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	orch := orchestrator.NewWithRepos(cfg, st, st, failingArtifacts{st}, &fakeGenerator{}, logging.NewNop())

	result, err := orch.Run(context.Background(), nightEpisode(3))
	if err == nil {
		t.Fatal("expected persistence failure to abort the run")
	}
	if !strings.Contains(err.Error(), "segment 1") {
		t.Errorf("error does not name segment 1: %v", err)
	}
	if result.Group.Status != store.GroupError {
		t.Errorf("status = %s, want error", result.Group.Status)
	}
	if result.Group.CompletedSegments != 0 || len(result.Artifacts) != 0 {
		t.Errorf("partial output = %d/%d, want none", result.Group.CompletedSegments, len(result.Artifacts))
	}
}
