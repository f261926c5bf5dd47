package validation

import (
	"fmt"
	"math"
	"strconv"

	"github.com/zatekoja/opticalqc/internal/domain/entities"
)

const (
	minScore = 0
	maxScore = 100
)

// StandardComplexityReason is the reasoning recorded when no rule fires.
const StandardComplexityReason = "Standard complexity: no complexity rules triggered"

// AnalyzeComplexity scores how difficult the order is to manufacture.
//
// Rules are additive and evaluated in a fixed order: tracing quality, wrap
// frame, B measurement, base curve, sphere, cylinder, prism. The sum is clamped
// to [0, 100]. Frame rules only apply when tracing data is present; optical
// power rules read the prescription and fall back to traced values for fields
// the prescription lacks.
func AnalyzeComplexity(rx *entities.PrescriptionValues, tracing *entities.TracingData, rules Rules) entities.ComplexityFactors {
	th := rules.Complexity
	pts := rules.Points

	factors := entities.ComplexityFactors{
		TracingQuality: entities.TracingQualityUnavailable,
		Reasoning:      make([]string, 0),
	}
	score := 0

	if tracing != nil {
		switch {
		case tracing.TracingPoints < th.PoorTracingPoints:
			factors.TracingQuality = entities.TracingQualityPoor
			score += pts.PoorTracing
			factors.Reasoning = append(factors.Reasoning,
				fmt.Sprintf("Poor tracing quality (%d points < %d)", tracing.TracingPoints, th.PoorTracingPoints))
		case tracing.TracingPoints > th.ExcellentTracingPoints:
			factors.TracingQuality = entities.TracingQualityExcellent
			score += pts.ExcellentTracing
			factors.Reasoning = append(factors.Reasoning,
				fmt.Sprintf("Excellent tracing quality (%d points > %d)", tracing.TracingPoints, th.ExcellentTracingPoints))
		default:
			factors.TracingQuality = entities.TracingQualityGood
		}

		if tracing.IsWrap() {
			factors.IsWrapFrame = true
			score += pts.WrapFrame
			factors.Reasoning = append(factors.Reasoning, "Wrap-around frame")
		}

		if b := tracing.FrameSize.B; b != nil && *b < th.SmallBMeasurement {
			factors.HasSmallBMeasurement = true
			score += pts.SmallB
			factors.Reasoning = append(factors.Reasoning,
				fmt.Sprintf("Small B measurement (%smm < %smm)", formatNumber(*b), formatNumber(th.SmallBMeasurement)))
		}

		if bc := tracing.BaseCurve; bc != nil && *bc > th.HighBaseCurve {
			factors.HasHighCurvature = true
			score += pts.HighCurvature
			factors.Reasoning = append(factors.Reasoning,
				fmt.Sprintf("High base curve (%s > %s)", formatNumber(*bc), formatNumber(th.HighBaseCurve)))
		}
	}

	od, os := opticalEyes(rx, tracing)

	if eye, power, ok := strongest(od.Sphere, os.Sphere); ok && power > th.HighSphere {
		factors.HasComplexPrescription = true
		score += pts.HighSphere
		factors.Reasoning = append(factors.Reasoning,
			fmt.Sprintf("High sphere power (%s %.2fD > %.2fD)", eye, power, th.HighSphere))
	}

	if eye, power, ok := strongest(od.Cylinder, os.Cylinder); ok && power > th.HighCylinder {
		factors.HasComplexPrescription = true
		score += pts.HighCylinder
		factors.Reasoning = append(factors.Reasoning,
			fmt.Sprintf("High cylinder (%s %.2fD > %.2fD)", eye, power, th.HighCylinder))
	}

	if od.HasPrism() || os.HasPrism() {
		factors.HasComplexPrescription = true
		score += pts.Prism
		factors.Reasoning = append(factors.Reasoning, "Prism correction present")
	}

	if len(factors.Reasoning) == 0 {
		factors.Reasoning = append(factors.Reasoning, StandardComplexityReason)
	}

	factors.OverallScore = ClampScore(score)
	return factors
}

// ClampScore bounds a raw complexity sum to [0, 100].
func ClampScore(score int) int {
	if score < minScore {
		return minScore
	}
	if score > maxScore {
		return maxScore
	}
	return score
}

// opticalEyes merges prescription and traced values per eye, preferring the
// prescription.
func opticalEyes(rx *entities.PrescriptionValues, tracing *entities.TracingData) (entities.EyeValues, entities.EyeValues) {
	var od, os entities.EyeValues
	if rx != nil {
		od, os = rx.OD, rx.OS
	}
	if tracing != nil {
		od = fillMissing(od, tracing.OD)
		os = fillMissing(os, tracing.OS)
	}
	return od, os
}

func fillMissing(primary, fallback entities.EyeValues) entities.EyeValues {
	if primary.Sphere == nil {
		primary.Sphere = fallback.Sphere
	}
	if primary.Cylinder == nil {
		primary.Cylinder = fallback.Cylinder
	}
	if primary.Prism == nil {
		primary.Prism = fallback.Prism
	}
	return primary
}

// strongest returns the eye with the larger absolute power.
func strongest(od, os *float64) (string, float64, bool) {
	switch {
	case od == nil && os == nil:
		return "", 0, false
	case os == nil:
		return "OD", math.Abs(*od), true
	case od == nil:
		return "OS", math.Abs(*os), true
	case math.Abs(*os) > math.Abs(*od):
		return "OS", math.Abs(*os), true
	default:
		return "OD", math.Abs(*od), true
	}
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
