package database

import (
	"context"
	"math"

	"github.com/jmoiron/sqlx"
	"github.com/zatekoja/opticalqc/internal/domain/entities"
	"github.com/zatekoja/opticalqc/internal/domain/repositories"
	apperrors "github.com/zatekoja/opticalqc/pkg/errors"
)

// commonIssuesLimit caps the number of (kind, field) pairs reported.
const commonIssuesLimit = 10

const validationTotalsQuery = `
	SELECT
		COUNT(*) AS total,
		COALESCE(SUM(CASE WHEN auto_approved THEN 1 ELSE 0 END), 0) AS auto_approved,
		COALESCE(AVG(confidence), 0) AS average_confidence
	FROM order_validations
	WHERE ($1 = '' OR company_id = $1)
`

const commonIssuesQuery = `
	SELECT
		issue->>'kind' AS kind,
		issue->>'field' AS field,
		COUNT(*) AS count
	FROM order_validations v
	CROSS JOIN LATERAL jsonb_array_elements(v.issues) AS issue
	WHERE ($1 = '' OR v.company_id = $1)
	GROUP BY 1, 2
	ORDER BY count DESC, kind ASC, field ASC
	LIMIT $2
`

type validationTotals struct {
	Total             int     `db:"total"`
	AutoApproved      int     `db:"auto_approved"`
	AverageConfidence float64 `db:"average_confidence"`
}

// ValidationStatisticsAdapter computes statistics from the validation history.
type ValidationStatisticsAdapter struct {
	db *sqlx.DB
}

// NewValidationStatisticsAdapter creates a new statistics adapter
func NewValidationStatisticsAdapter(db *sqlx.DB) repositories.ValidationStatisticsRepository {
	return &ValidationStatisticsAdapter{db: db}
}

// GetStatistics aggregates the validation history, optionally for one company.
func (a *ValidationStatisticsAdapter) GetStatistics(ctx context.Context, companyID string) (*entities.ValidationStatistics, error) {
	var totals validationTotals
	if err := a.db.GetContext(ctx, &totals, validationTotalsQuery, companyID); err != nil {
		return nil, apperrors.NewInternalError("failed to aggregate validations", err)
	}

	issues := make([]entities.IssueFrequency, 0)
	if err := a.db.SelectContext(ctx, &issues, commonIssuesQuery, companyID, commonIssuesLimit); err != nil {
		return nil, apperrors.NewInternalError("failed to aggregate validation issues", err)
	}

	stats := &entities.ValidationStatistics{
		CompanyID:         companyID,
		TotalValidations:  totals.Total,
		AverageConfidence: round2(totals.AverageConfidence),
		CommonIssues:      issues,
	}
	if totals.Total > 0 {
		stats.AutoApprovalRate = round2(float64(totals.AutoApproved) / float64(totals.Total) * 100)
	}

	return stats, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
