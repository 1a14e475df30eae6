package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"storyloom/internal/continuity"
	"storyloom/internal/orchestrator"
)

func printRunResult(out io.Writer, result *orchestrator.RunResult) {
	group := result.Group
	if group == nil {
		return
	}

	fmt.Fprintf(out, "Episode: %s (group %d)\n", group.EpisodeTitle, group.ID)
	fmt.Fprintf(out, "Status: %s (%d/%d segments)\n", group.Status, group.CompletedSegments, group.TotalSegments)
	if group.ErrorMessage != "" {
		fmt.Fprintf(out, "Detail: %s\n", group.ErrorMessage)
	}
	if len(result.AnchorPointsUsed) > 0 {
		fmt.Fprintf(out, "Anchor refreshes: segments %s\n", joinInts(result.AnchorPointsUsed))
	}
	fmt.Fprintf(out, "Artifacts: %d prompts stored\n", len(result.Artifacts))

	if result.Report != nil && result.Report.ValidatedSegments > 0 {
		fmt.Fprintln(out)
		printContinuityReport(out, result.Report)
	}
}

func printContinuityReport(out io.Writer, report *continuity.Report) {
	rows := make([][]string, 0, len(report.Validations))
	for _, validation := range report.Validations {
		rows = append(rows, []string{
			strconv.Itoa(validation.SegmentNumber),
			strconv.Itoa(validation.Result.Score),
			validation.Result.Rating,
			yesNo(validation.Result.Valid),
			strconv.Itoa(len(validation.Result.Issues)),
		})
	}

	fmt.Fprintln(out, renderTable(
		[]string{"Segment", "Score", "Rating", "Valid", "Issues"},
		rows,
		1, 2, 5,
	))
	fmt.Fprintf(out, "Average continuity score: %.1f\n", report.AverageScore)
	if line := severitySummary(report); line != "" {
		fmt.Fprintf(out, "Issues by severity: %s\n", line)
	}
	if len(report.SegmentsWithIssues) > 0 {
		fmt.Fprintf(out, "Segments with issues: %s\n", joinInts(report.SegmentsWithIssues))
	}
}

func severitySummary(report *continuity.Report) string {
	if len(report.IssuesBySeverity) == 0 {
		return ""
	}
	severities := make([]string, 0, len(report.IssuesBySeverity))
	for severity := range report.IssuesBySeverity {
		severities = append(severities, string(severity))
	}
	sort.Strings(severities)
	parts := make([]string, 0, len(severities))
	for _, severity := range severities {
		parts = append(parts, fmt.Sprintf("%s=%d", severity, report.IssuesBySeverity[continuity.Severity(severity)]))
	}
	return strings.Join(parts, " ")
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ", ")
}
