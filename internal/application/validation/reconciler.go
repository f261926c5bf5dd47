package validation

import (
	"fmt"
	"math"

	"github.com/zatekoja/opticalqc/internal/domain/entities"
)

// Field names used in issues.
const (
	FieldPrescription      = "prescription"
	FieldTracingData       = "tracing_data"
	FieldPupillaryDistance = "pd"
	FieldWrapFrame         = "frame_type"
	FieldBMeasurement      = "b_measurement"
	FieldBaseCurve         = "base_curve"
	FieldTracingPoints     = "tracing_points"
)

// comparisonPrecision absorbs floating point noise so that a difference equal
// to the tolerance is never reported as exceeding it.
const comparisonPrecision = 1e-6

type comparison struct {
	field     string
	label     string
	expected  *float64
	actual    *float64
	tolerance float64
	unit      string
	diff      func(a, b float64) float64
	// optional fields are only compared when the prescription specifies them.
	optional bool
}

// ReconcilePrescription compares the prescription with the optical values read
// from the tracing file. Every field is evaluated; a mismatch in one field never
// hides problems in another. Either argument may be nil.
func ReconcilePrescription(rx *entities.PrescriptionValues, tracing *entities.TracingData, tol Tolerances) []entities.ValidationIssue {
	var prescribed, traced entities.PrescriptionValues
	if rx != nil {
		prescribed = *rx
	}
	var tracedPD *float64
	if tracing != nil {
		traced.OD = tracing.OD
		traced.OS = tracing.OS
		tracedPD = tracing.PupillaryDistance
	}

	var comparisons []comparison
	comparisons = append(comparisons, eyeComparisons("od", "OD", prescribed.OD, traced.OD, tol)...)
	comparisons = append(comparisons, eyeComparisons("os", "OS", prescribed.OS, traced.OS, tol)...)

	issues := make([]entities.ValidationIssue, 0)
	for _, c := range comparisons {
		if issue, ok := c.evaluate(); ok {
			issues = append(issues, issue)
		}
	}

	if issue, ok := reconcilePupillaryDistance(prescribed.PupillaryDistance, tracedPD, tol.PupillaryDistance); ok {
		issues = append(issues, issue)
	}

	return issues
}

func eyeComparisons(prefix, label string, rx, traced entities.EyeValues, tol Tolerances) []comparison {
	return []comparison{
		{field: prefix + "_sphere", label: label + " sphere", expected: rx.Sphere, actual: traced.Sphere, tolerance: tol.Sphere, unit: "D", diff: absDifference},
		{field: prefix + "_cylinder", label: label + " cylinder", expected: rx.Cylinder, actual: traced.Cylinder, tolerance: tol.Cylinder, unit: "D", diff: absDifference},
		{field: prefix + "_axis", label: label + " axis", expected: rx.Axis, actual: traced.Axis, tolerance: tol.Axis, unit: "°", diff: AxisDifference},
		{field: prefix + "_addition", label: label + " addition", expected: rx.Addition, actual: traced.Addition, tolerance: tol.Addition, unit: "D", diff: absDifference, optional: true},
	}
}

func (c comparison) evaluate() (entities.ValidationIssue, bool) {
	if c.optional && c.expected == nil {
		return entities.ValidationIssue{}, false
	}

	if c.expected == nil || c.actual == nil {
		return entities.ValidationIssue{
			Kind:     entities.IssueKindMissingData,
			Severity: entities.SeverityWarning,
			Field:    c.field,
			Message:  fmt.Sprintf("%s is missing from %s", c.label, missingSide(c.expected, c.actual)),
			Expected: c.expected,
			Actual:   c.actual,
		}, true
	}

	difference := c.diff(*c.expected, *c.actual)
	if !exceeds(difference, c.tolerance) {
		return entities.ValidationIssue{}, false
	}

	return entities.ValidationIssue{
		Kind:     entities.IssueKindPrescriptionMismatch,
		Severity: entities.SeverityCritical,
		Field:    c.field,
		Message: fmt.Sprintf("%s mismatch: prescribed %s, traced %s (difference %.2f%s exceeds tolerance %.2f%s)",
			c.label, formatValue(*c.expected), formatValue(*c.actual), difference, c.unit, c.tolerance, c.unit),
		Expected: c.expected,
		Actual:   c.actual,
	}, true
}

// reconcilePupillaryDistance reports a PD disagreement as information only; it
// feeds the confidence score but never blocks an order on its own.
func reconcilePupillaryDistance(prescribed, traced *float64, tolerance float64) (entities.ValidationIssue, bool) {
	if prescribed == nil || traced == nil {
		return entities.ValidationIssue{}, false
	}

	difference := absDifference(*prescribed, *traced)
	if !exceeds(difference, tolerance) {
		return entities.ValidationIssue{}, false
	}

	return entities.ValidationIssue{
		Kind:     entities.IssueKindPrescriptionMismatch,
		Severity: entities.SeverityInfo,
		Field:    FieldPupillaryDistance,
		Message: fmt.Sprintf("Pupillary distance differs: prescribed %.1fmm, traced %.1fmm (difference %.1fmm exceeds tolerance %.1fmm)",
			*prescribed, *traced, difference, tolerance),
		Expected: prescribed,
		Actual:   traced,
	}, true
}

// AxisDifference returns the angular distance between two cylinder axes.
// Axes are meridians, so 180° and 0° are the same orientation and the result
// is always within [0, 90].
func AxisDifference(a, b float64) float64 {
	d := math.Mod(math.Abs(a-b), 180)
	if d > 90 {
		d = 180 - d
	}
	return d
}

func absDifference(a, b float64) float64 {
	return math.Abs(a - b)
}

func exceeds(difference, tolerance float64) bool {
	return difference-tolerance > comparisonPrecision
}

func missingSide(expected, actual *float64) string {
	switch {
	case expected == nil && actual == nil:
		return "both the prescription and the tracing data"
	case expected == nil:
		return "the prescription"
	default:
		return "the tracing data"
	}
}

func formatValue(v float64) string {
	return fmt.Sprintf("%+.2f", v)
}
