package validation

import (
	"fmt"

	"github.com/zatekoja/opticalqc/internal/domain/entities"
)

const fullConfidence = 100.0

// Input is everything the engine needs to assess one order.
type Input struct {
	OrderID      string
	CompanyID    string
	Prescription *entities.PrescriptionValues
	// Tracing is nil when no usable tracing file exists for the order.
	Tracing *entities.TracingData
	// TracingUnavailableReason explains why Tracing is nil.
	TracingUnavailableReason string
}

// Engine applies a fixed rule set to orders. It holds no mutable state and is
// safe for concurrent use.
type Engine struct {
	rules Rules
}

// NewEngine creates an engine for the given rules.
func NewEngine(rules Rules) *Engine {
	return &Engine{rules: rules}
}

// Rules returns the engine's rule set.
func (e *Engine) Rules() Rules {
	return e.rules
}

// Assess reconciles, scores and routes an order. The result has no ID or
// timestamp; identical inputs always yield identical results.
func (e *Engine) Assess(in Input) entities.ValidationResult {
	issues := make([]entities.ValidationIssue, 0)
	confidence := fullConfidence
	penalties := e.rules.Penalties

	hasPrescription := !in.Prescription.IsEmpty()
	hasTracing := in.Tracing != nil

	if !hasPrescription {
		issues = append(issues, entities.ValidationIssue{
			Kind:     entities.IssueKindMissingData,
			Severity: entities.SeverityWarning,
			Field:    FieldPrescription,
			Message:  "No prescription values recorded for the order; prescription could not be reconciled",
		})
		confidence -= penalties.MissingPrescription
	}

	if !hasTracing {
		reason := in.TracingUnavailableReason
		if reason == "" {
			reason = "no tracing file supplied"
		}
		issues = append(issues, entities.ValidationIssue{
			Kind:     entities.IssueKindMissingData,
			Severity: entities.SeverityWarning,
			Field:    FieldTracingData,
			Message:  fmt.Sprintf("Frame tracing data unavailable (%s); validated without tracing", reason),
		})
		confidence -= penalties.MissingTracing
	}

	if hasPrescription && hasTracing {
		for _, issue := range ReconcilePrescription(in.Prescription, in.Tracing, e.rules.Tolerances) {
			confidence -= e.issuePenalty(issue)
			issues = append(issues, issue)
		}
	}

	complexity := AnalyzeComplexity(in.Prescription, in.Tracing, e.rules)
	issues = append(issues, e.complexityIssues(complexity, in.Tracing)...)

	confidence = clampConfidence(confidence)
	queue, autoApproved := Route(issues, complexity.OverallScore, confidence, e.rules.Routing)

	return entities.ValidationResult{
		OrderID:          in.OrderID,
		CompanyID:        in.CompanyID,
		IsValid:          !entities.HasCriticalIssues(issues),
		Confidence:       confidence,
		Issues:           issues,
		Complexity:       complexity,
		RecommendedQueue: queue,
		AutoApproved:     autoApproved,
	}
}

// Tier buckets a complexity score with the engine's routing thresholds.
func (e *Engine) Tier(score int) entities.ComplexityTier {
	return Tier(score, e.rules.Routing)
}

func (e *Engine) issuePenalty(issue entities.ValidationIssue) float64 {
	switch issue.Severity {
	case entities.SeverityCritical:
		return e.rules.Penalties.CriticalIssue
	case entities.SeverityWarning:
		return e.rules.Penalties.WarningIssue
	}
	if issue.Field == FieldPupillaryDistance {
		return e.rules.Penalties.PupillaryDistance
	}
	return 0
}

// complexityIssues turns frame findings into issues. Curvature is critical
// because a lens cut to the wrong curve cannot be recovered.
func (e *Engine) complexityIssues(c entities.ComplexityFactors, tracing *entities.TracingData) []entities.ValidationIssue {
	if tracing == nil {
		return nil
	}

	var issues []entities.ValidationIssue

	if c.TracingQuality == entities.TracingQualityPoor {
		issues = append(issues, entities.ValidationIssue{
			Kind:     entities.IssueKindTracingError,
			Severity: entities.SeverityInfo,
			Field:    FieldTracingPoints,
			Message: fmt.Sprintf("Low tracing resolution: %d points (minimum %d for reliable shape data)",
				tracing.TracingPoints, e.rules.Complexity.PoorTracingPoints),
		})
	}

	if c.IsWrapFrame {
		issues = append(issues, entities.ValidationIssue{
			Kind:     entities.IssueKindFrameComplexity,
			Severity: entities.SeverityWarning,
			Field:    FieldWrapFrame,
			Message:  "Wrap-around frame requires compensated lens design",
		})
	}

	if c.HasSmallBMeasurement {
		issues = append(issues, entities.ValidationIssue{
			Kind:     entities.IssueKindFrameComplexity,
			Severity: entities.SeverityWarning,
			Field:    FieldBMeasurement,
			Message: fmt.Sprintf("Small B measurement (%smm) limits usable lens area",
				formatNumber(*tracing.FrameSize.B)),
			Expected: floatPtr(e.rules.Complexity.SmallBMeasurement),
			Actual:   tracing.FrameSize.B,
		})
	}

	if c.HasHighCurvature {
		issues = append(issues, entities.ValidationIssue{
			Kind:     entities.IssueKindFrameComplexity,
			Severity: entities.SeverityCritical,
			Field:    FieldBaseCurve,
			Message: fmt.Sprintf("High base curve %s exceeds %s; verify lens curve before cutting",
				formatNumber(*tracing.BaseCurve), formatNumber(e.rules.Complexity.HighBaseCurve)),
			Expected: floatPtr(e.rules.Complexity.HighBaseCurve),
			Actual:   tracing.BaseCurve,
		})
	}

	return issues
}

func clampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > fullConfidence {
		return fullConfidence
	}
	return c
}

func floatPtr(v float64) *float64 {
	return &v
}
