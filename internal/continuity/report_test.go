package continuity

import (
	"reflect"
	"testing"
)

func TestReportAggregatesResults(t *testing.T) {
	report := NewReport(3)

	report.Record(1, Result{Valid: true, Score: 100, Rating: "excellent"})
	report.Record(2, Result{
		Valid:  true,
		Score:  85,
		Rating: "good",
		Issues: []Issue{{Type: IssueCharacterAppearance, Severity: SeverityMedium}},
	})
	report.Record(3, Result{
		Valid:  false,
		Score:  55,
		Rating: "poor",
		Issues: []Issue{
			{Type: IssueSettingMismatch, Severity: SeverityHigh},
			{Type: IssueCharacterAppearance, Severity: SeverityMedium},
		},
	})

	if report.TotalSegments != 3 || report.ValidatedSegments != 3 {
		t.Errorf("totals = %d/%d", report.ValidatedSegments, report.TotalSegments)
	}
	if report.AverageScore != 80 {
		t.Errorf("average = %.2f, want 80", report.AverageScore)
	}
	if !reflect.DeepEqual(report.SegmentsWithIssues, []int{2, 3}) {
		t.Errorf("segments with issues = %v", report.SegmentsWithIssues)
	}
	if report.IssuesByType[IssueCharacterAppearance] != 2 {
		t.Errorf("appearance issues = %d", report.IssuesByType[IssueCharacterAppearance])
	}
	if report.IssuesByType[IssueSettingMismatch] != 1 {
		t.Errorf("setting issues = %d", report.IssuesByType[IssueSettingMismatch])
	}
	if report.IssuesBySeverity[SeverityMedium] != 2 || report.IssuesBySeverity[SeverityHigh] != 1 {
		t.Errorf("severity counts = %v", report.IssuesBySeverity)
	}
	if len(report.Validations) != 3 {
		t.Errorf("validations = %d", len(report.Validations))
	}
}

func TestReportOnPartialRun(t *testing.T) {
	report := NewReport(5)
	report.Record(1, Result{Valid: true, Score: 100})
	report.Record(2, Result{Valid: true, Score: 90})

	if report.ValidatedSegments != 2 {
		t.Errorf("validated = %d, want 2", report.ValidatedSegments)
	}
	if report.AverageScore != 95 {
		t.Errorf("average = %.2f, want 95", report.AverageScore)
	}
	if report.TotalSegments != 5 {
		t.Errorf("total = %d, want 5", report.TotalSegments)
	}
	if len(report.SegmentsWithIssues) != 0 {
		t.Errorf("segments with issues = %v", report.SegmentsWithIssues)
	}
}
