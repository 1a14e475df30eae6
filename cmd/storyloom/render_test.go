package main

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"storyloom/internal/continuity"
	"storyloom/internal/orchestrator"
	"storyloom/internal/store"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("Database", statusError, "not found", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "Database:", "[ERROR] not found")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("Generator", statusOK, "reachable", true)
	if !strings.HasPrefix(got, ansiGreen) {
		t.Fatalf("expected green prefix, got %q", got)
	}
	if !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected reset suffix, got %q", got)
	}
}

func TestRenderTablePadsShortRows(t *testing.T) {
	out := renderTable([]string{"ID", "Status"}, [][]string{{"1"}}, 1)
	if !strings.Contains(out, "ID") || !strings.Contains(out, "Status") {
		t.Fatalf("expected headers in output, got:\n%s", out)
	}
	if !strings.Contains(out, "1") {
		t.Fatalf("expected row value in output, got:\n%s", out)
	}
}

func TestPrintRunResult(t *testing.T) {
	report := continuity.NewReport(2)
	report.Record(1, continuity.Result{Valid: true, Score: 100, Rating: "excellent"})
	report.Record(2, continuity.Result{
		Valid:  true,
		Score:  85,
		Rating: "good",
		Issues: []continuity.Issue{{
			Type:        continuity.IssueCharacterAppearance,
			Severity:    continuity.SeverityMedium,
			Description: "MAYA appears without established wardrobe",
		}},
	})

	result := &orchestrator.RunResult{
		Group: &store.SegmentGroup{
			ID:                7,
			EpisodeTitle:      "The Lighthouse Keeper",
			Status:            store.GroupComplete,
			TotalSegments:     2,
			CompletedSegments: 2,
		},
		Artifacts:        []*store.Artifact{{SegmentNumber: 1}, {SegmentNumber: 2}},
		Report:           report,
		AnchorPointsUsed: []int{2},
	}

	var buf bytes.Buffer
	printRunResult(&buf, result)
	out := buf.String()

	requireContains(t, out, "Episode: The Lighthouse Keeper (group 7)")
	requireContains(t, out, "Status: complete (2/2 segments)")
	requireContains(t, out, "Anchor refreshes: segments 2")
	requireContains(t, out, "Artifacts: 2 prompts stored")
	requireContains(t, out, "Average continuity score: 92.5")
	requireContains(t, out, "medium=1")
	requireContains(t, out, "Segments with issues: 2")
}

func TestPrintRunResultWithError(t *testing.T) {
	result := &orchestrator.RunResult{
		Group: &store.SegmentGroup{
			ID:                3,
			EpisodeTitle:      "The Lighthouse Keeper",
			Status:            store.GroupError,
			ErrorMessage:      "segment 2 failed: generation timed out",
			TotalSegments:     4,
			CompletedSegments: 1,
		},
		Artifacts: []*store.Artifact{{SegmentNumber: 1}},
		Report:    continuity.NewReport(4),
	}

	var buf bytes.Buffer
	printRunResult(&buf, result)
	out := buf.String()

	requireContains(t, out, "Status: error (1/4 segments)")
	requireContains(t, out, "Detail: segment 2 failed")
	requireContains(t, out, "Artifacts: 1 prompts stored")
	if strings.Contains(out, "Average continuity score") {
		t.Fatalf("expected no continuity section without validations, got:\n%s", out)
	}
}
