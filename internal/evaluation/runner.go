package evaluation

import (
	"context"
	"fmt"
	"time"

	"github.com/zatekoja/opticalqc/internal/application/validation"
	"github.com/zatekoja/opticalqc/internal/domain/entities"
	"github.com/zatekoja/opticalqc/internal/domain/providers"
)

// Assessor scores one order. *validation.Engine satisfies it.
type Assessor interface {
	Assess(in validation.Input) entities.ValidationResult
}

// Runner runs evaluation across a set of golden orders without touching a database.
type Runner struct {
	parser   providers.TracingParser
	assessor Assessor
}

func NewRunner(parser providers.TracingParser, assessor Assessor) *Runner {
	return &Runner{parser: parser, assessor: assessor}
}

func (r *Runner) Run(ctx context.Context, orders []GoldenOrder) (*EvalSummary, error) {
	summary := &EvalSummary{
		TotalOrders: len(orders),
		ByQueue:     make(map[entities.Queue]*QueueSummary),
		Mismatches:  make([]EvalResult, 0),
	}

	var correctQueue, correctValid, needsHuman int
	var confidence float64

	for _, order := range orders {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		start := time.Now()
		in := validation.Input{
			OrderID:      order.ID,
			Prescription: order.Prescription,
		}
		in.Tracing, in.TracingUnavailableReason = r.loadTracing(order.Tracing)
		outcome := r.assessor.Assess(in)

		result := EvalResult{
			OrderID:         order.ID,
			ExpectedQueue:   order.ExpectedQueue,
			ActualQueue:     outcome.RecommendedQueue,
			ExpectedValid:   order.ExpectedValid,
			ActualValid:     outcome.IsValid,
			Confidence:      outcome.Confidence,
			ComplexityScore: outcome.Complexity.OverallScore,
			Latency:         time.Since(start),
		}

		summary.AvgLatency += result.Latency
		confidence += result.Confidence
		if result.QueueCorrect() {
			correctQueue++
		}
		if result.ActualValid == result.ExpectedValid {
			correctValid++
		}
		if !result.QueueCorrect() || result.ActualValid != result.ExpectedValid {
			summary.Mismatches = append(summary.Mismatches, result)
		}
		if order.ExpectedQueue != entities.QueueAutoApproved {
			needsHuman++
		}
		if result.FalseAutoApproval() {
			summary.FalseAutoApprovals++
		}

		queueSummary(summary, result.ExpectedQueue).Expected++
		routed := queueSummary(summary, result.ActualQueue)
		routed.Routed++
		if result.QueueCorrect() {
			routed.Correct++
		}
	}

	summary.QueueAccuracy = Ratio(correctQueue, len(orders))
	summary.ValidityAccuracy = Ratio(correctValid, len(orders))
	summary.FalseAutoApprovalRate = Ratio(summary.FalseAutoApprovals, needsHuman)
	if len(orders) > 0 {
		summary.AvgConfidence = confidence / float64(len(orders))
		summary.AvgLatency /= time.Duration(len(orders))
	}
	for _, qs := range summary.ByQueue {
		qs.Precision = Precision(qs.Correct, qs.Routed)
		qs.Recall = Recall(qs.Correct, qs.Expected)
	}

	return summary, nil
}

// loadTracing mirrors how the validation service treats tracing files.
func (r *Runner) loadTracing(payload string) (*entities.TracingData, string) {
	if payload == "" {
		return nil, "no tracing file supplied"
	}
	if !r.parser.IsValidTracingFile(payload) {
		return nil, "tracing file is not in a recognized format"
	}
	data, err := r.parser.ParseTracingFile(payload)
	if err != nil {
		return nil, fmt.Sprintf("tracing file could not be parsed: %v", err)
	}
	return data, ""
}

func queueSummary(s *EvalSummary, queue entities.Queue) *QueueSummary {
	qs, ok := s.ByQueue[queue]
	if !ok {
		qs = &QueueSummary{}
		s.ByQueue[queue] = qs
	}
	return qs
}
