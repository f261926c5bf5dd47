package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/opticalqc/internal/application/services"
	"github.com/zatekoja/opticalqc/internal/domain/entities"
)

func TestValidationStatisticsService_GetValidationStatistics(t *testing.T) {
	repo := new(MockStatisticsRepository)
	service := services.NewValidationStatisticsService(repo)

	repo.On("GetStatistics", mock.Anything, "company-1").Return(&entities.ValidationStatistics{
		CompanyID:        "company-1",
		TotalValidations: 10,
		AutoApprovalRate: 60,
	}, nil)

	stats, err := service.GetValidationStatistics(context.Background(), " company-1 ")

	require.NoError(t, err)
	assert.Equal(t, 10, stats.TotalValidations)
	assert.Equal(t, 60.0, stats.AutoApprovalRate)
	assert.NotNil(t, stats.CommonIssues)
	repo.AssertExpectations(t)
}

func TestValidationStatisticsService_PropagatesErrors(t *testing.T) {
	repo := new(MockStatisticsRepository)
	service := services.NewValidationStatisticsService(repo)

	repo.On("GetStatistics", mock.Anything, "").Return(nil, errors.New("db down"))

	stats, err := service.GetValidationStatistics(context.Background(), "")

	assert.Nil(t, stats)
	assert.EqualError(t, err, "db down")
}
