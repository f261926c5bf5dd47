package entities

import "time"

// IssueKind classifies a validation issue.
type IssueKind string

const (
	IssueKindPrescriptionMismatch IssueKind = "prescription_mismatch"
	IssueKindFrameComplexity      IssueKind = "frame_complexity"
	IssueKindMissingData          IssueKind = "missing_data"
	IssueKindTracingError         IssueKind = "tracing_error"
)

// Severity is how strongly an issue weighs on the routing decision.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// ValidationIssue is a single observation made while validating an order.
type ValidationIssue struct {
	Kind     IssueKind `json:"kind"`
	Severity Severity  `json:"severity"`
	Field    string    `json:"field"`
	Message  string    `json:"message"`
	Expected *float64  `json:"expected,omitempty"`
	Actual   *float64  `json:"actual,omitempty"`
}

// TracingQuality grades the frame tracing by its point count.
type TracingQuality string

const (
	TracingQualityExcellent   TracingQuality = "excellent"
	TracingQualityGood        TracingQuality = "good"
	TracingQualityPoor        TracingQuality = "poor"
	TracingQualityUnavailable TracingQuality = "unavailable"
)

// ComplexityFactors is the manufacturing difficulty assessment of an order.
// Reasoning lists one clause per rule that fired, in evaluation order.
type ComplexityFactors struct {
	IsWrapFrame            bool           `json:"is_wrap_frame"`
	HasSmallBMeasurement   bool           `json:"has_small_b_measurement"`
	HasHighCurvature       bool           `json:"has_high_curvature"`
	HasComplexPrescription bool           `json:"has_complex_prescription"`
	TracingQuality         TracingQuality `json:"tracing_quality"`
	OverallScore           int            `json:"overall_score"`
	Reasoning              []string       `json:"reasoning"`
}

// Queue is the work queue an order is routed to.
type Queue string

const (
	QueueEngineer     Queue = "engineer"
	QueueLabTech      Queue = "lab_tech"
	QueueAutoApproved Queue = "auto_approved"
)

// ComplexityTier buckets the complexity score for dashboards.
type ComplexityTier string

const (
	ComplexityTierSimple   ComplexityTier = "simple"
	ComplexityTierModerate ComplexityTier = "moderate"
	ComplexityTierComplex  ComplexityTier = "complex"
)

// ValidationResult is the outcome of one validation run. It is never updated
// after creation; re-validating an order produces a new result.
type ValidationResult struct {
	ID               string            `json:"id"`
	OrderID          string            `json:"order_id"`
	CompanyID        string            `json:"company_id"`
	IsValid          bool              `json:"is_valid"`
	Confidence       float64           `json:"confidence"`
	Issues           []ValidationIssue `json:"issues"`
	Complexity       ComplexityFactors `json:"complexity"`
	RecommendedQueue Queue             `json:"recommended_queue"`
	AutoApproved     bool              `json:"auto_approved"`
	ValidatedAt      time.Time         `json:"validated_at"`
}

// CountBySeverity returns the number of issues with the given severity.
func (r *ValidationResult) CountBySeverity(severity Severity) int {
	count := 0
	for _, issue := range r.Issues {
		if issue.Severity == severity {
			count++
		}
	}
	return count
}

// HasCriticalIssues reports whether any issue is critical.
func HasCriticalIssues(issues []ValidationIssue) bool {
	for _, issue := range issues {
		if issue.Severity == SeverityCritical {
			return true
		}
	}
	return false
}

// BatchStats summarizes a sweep over pending orders.
type BatchStats struct {
	Processed    int `json:"processed"`
	AutoApproved int `json:"auto_approved"`
	NeedsReview  int `json:"needs_review"`
	Errors       int `json:"errors"`
}

// IssueFrequency counts how often an issue of a kind was raised for a field.
type IssueFrequency struct {
	Kind  IssueKind `json:"kind" db:"kind"`
	Field string    `json:"field" db:"field"`
	Count int       `json:"count" db:"count"`
}

// ValidationStatistics aggregates persisted validation results.
// AutoApprovalRate is a percentage.
type ValidationStatistics struct {
	CompanyID         string           `json:"company_id,omitempty"`
	TotalValidations  int              `json:"total_validations"`
	AutoApprovalRate  float64          `json:"auto_approval_rate"`
	AverageConfidence float64          `json:"average_confidence"`
	CommonIssues      []IssueFrequency `json:"common_issues"`
}
