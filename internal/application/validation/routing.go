package validation

import "github.com/zatekoja/opticalqc/internal/domain/entities"

// Route picks the work queue for an order. The first matching rule wins:
//
//  1. score above ComplexMin goes to the engineer queue;
//  2. score below SimpleMax with no critical issue and enough confidence is auto-approved;
//  3. everything else goes to the lab technician queue.
func Route(issues []entities.ValidationIssue, score int, confidence float64, t RoutingThresholds) (entities.Queue, bool) {
	s := float64(score)

	if s > t.ComplexMin {
		return entities.QueueEngineer, false
	}

	if s < t.SimpleMax && !entities.HasCriticalIssues(issues) && confidence >= t.AutoApproveMinConfidence {
		return entities.QueueAutoApproved, true
	}

	return entities.QueueLabTech, false
}

// Tier buckets a complexity score using the routing thresholds.
func Tier(score int, t RoutingThresholds) entities.ComplexityTier {
	s := float64(score)
	switch {
	case s < t.SimpleMax:
		return entities.ComplexityTierSimple
	case s > t.ComplexMin:
		return entities.ComplexityTierComplex
	default:
		return entities.ComplexityTierModerate
	}
}
