package services

import (
	"context"
	"strings"

	"github.com/zatekoja/opticalqc/internal/domain/entities"
	"github.com/zatekoja/opticalqc/internal/domain/repositories"
)

// ValidationStatisticsService reports aggregate validation outcomes.
type ValidationStatisticsService struct {
	repo repositories.ValidationStatisticsRepository
}

// NewValidationStatisticsService creates a new statistics service
func NewValidationStatisticsService(repo repositories.ValidationStatisticsRepository) *ValidationStatisticsService {
	return &ValidationStatisticsService{repo: repo}
}

// GetValidationStatistics returns statistics for companyID, or for every
// company when it is empty.
func (s *ValidationStatisticsService) GetValidationStatistics(ctx context.Context, companyID string) (*entities.ValidationStatistics, error) {
	stats, err := s.repo.GetStatistics(ctx, strings.TrimSpace(companyID))
	if err != nil {
		return nil, err
	}
	if stats.CommonIssues == nil {
		stats.CommonIssues = make([]entities.IssueFrequency, 0)
	}
	return stats, nil
}
