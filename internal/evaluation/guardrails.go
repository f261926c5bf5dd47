package evaluation

import "fmt"

// GuardrailConfig sets the release bar for a rule set.
type GuardrailConfig struct {
	MinQueueAccuracy    float64
	MinValidityAccuracy float64

	// MaxFalseAutoApprovalRate is usually zero: an order that needs review
	// must never skip it.
	MaxFalseAutoApprovalRate float64
}

type Guardrails struct {
	config GuardrailConfig
}

func NewGuardrails(config GuardrailConfig) *Guardrails {
	if config.MinQueueAccuracy <= 0 {
		config.MinQueueAccuracy = 0.9
	}
	if config.MinValidityAccuracy <= 0 {
		config.MinValidityAccuracy = 1.0
	}
	return &Guardrails{config: config}
}

// Check returns one message per guardrail the summary violates.
func (g *Guardrails) Check(s *EvalSummary) []string {
	var violations []string
	if s.QueueAccuracy < g.config.MinQueueAccuracy {
		violations = append(violations, fmt.Sprintf("queue accuracy %.3f below %.3f", s.QueueAccuracy, g.config.MinQueueAccuracy))
	}
	if s.ValidityAccuracy < g.config.MinValidityAccuracy {
		violations = append(violations, fmt.Sprintf("validity accuracy %.3f below %.3f", s.ValidityAccuracy, g.config.MinValidityAccuracy))
	}
	if s.FalseAutoApprovalRate > g.config.MaxFalseAutoApprovalRate {
		violations = append(violations, fmt.Sprintf("false auto-approval rate %.3f above %.3f (%d orders)",
			s.FalseAutoApprovalRate, g.config.MaxFalseAutoApprovalRate, s.FalseAutoApprovals))
	}
	return violations
}
