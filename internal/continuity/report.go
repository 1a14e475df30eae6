package continuity

// SegmentValidation pairs one segment with its validation outcome.
type SegmentValidation struct {
	SegmentNumber int    `json:"segment_number"`
	Result        Result `json:"result"`
}

// Report aggregates validation results across one run.
type Report struct {
	TotalSegments      int                 `json:"total_segments"`
	ValidatedSegments  int                 `json:"validated_segments"`
	AverageScore       float64             `json:"average_score"`
	IssuesByType       map[IssueType]int   `json:"issues_by_type,omitempty"`
	IssuesBySeverity   map[Severity]int    `json:"issues_by_severity,omitempty"`
	SegmentsWithIssues []int               `json:"segments_with_issues,omitempty"`
	Validations        []SegmentValidation `json:"validations,omitempty"`
}

// NewReport returns an empty report over total segments.
func NewReport(total int) *Report {
	return &Report{
		TotalSegments:    total,
		IssuesByType:     make(map[IssueType]int),
		IssuesBySeverity: make(map[Severity]int),
	}
}

// Record folds one segment's validation into the report and refreshes the
// running average.
func (r *Report) Record(segmentNumber int, result Result) {
	r.Validations = append(r.Validations, SegmentValidation{
		SegmentNumber: segmentNumber,
		Result:        result,
	})
	r.ValidatedSegments++

	sum := 0
	for _, v := range r.Validations {
		sum += v.Result.Score
	}
	r.AverageScore = float64(sum) / float64(r.ValidatedSegments)

	if len(result.Issues) > 0 {
		r.SegmentsWithIssues = append(r.SegmentsWithIssues, segmentNumber)
	}
	for _, issue := range result.Issues {
		r.IssuesByType[issue.Type]++
		r.IssuesBySeverity[issue.Severity]++
	}
}
