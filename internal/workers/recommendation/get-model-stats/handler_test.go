package getmodelstats

import (
	"context"
	"errors"
	"testing"

	apperrors "job-recommender/internal/common/errors"
	"job-recommender/internal/common/logger"
	"job-recommender/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockStatsSource struct {
	mock.Mock
}

func (m *MockStatsSource) ModelStats(ctx context.Context) (*models.ModelStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ModelStats), args.Error(1)
}

func TestHandler_Execute(t *testing.T) {
	t.Run("returns stats", func(t *testing.T) {
		source := new(MockStatsSource)
		stats := &models.ModelStats{
			NumUsers:          6,
			NumJobs:           8,
			TotalInteractions: 19,
			ModelType:         "BPR",
			ModelExists:       true,
			FeedbackBreakdown: map[models.FeedbackType]int{models.FeedbackSave: 19},
		}
		source.On("ModelStats", mock.Anything).Return(stats, nil)

		h, err := NewHandler(DefaultConfig(), source, logger.NewTestLogger(t))
		require.NoError(t, err)

		output, err := h.Execute(context.Background())
		require.NoError(t, err)
		assert.Same(t, stats, output.ModelStats)
		source.AssertExpectations(t)
	})

	t.Run("propagates query failure", func(t *testing.T) {
		source := new(MockStatsSource)
		source.On("ModelStats", mock.Anything).
			Return(nil, apperrors.NewInteractionQueryFailedError(errors.New("connection reset")))

		h, err := NewHandler(DefaultConfig(), source, logger.NewTestLogger(t))
		require.NoError(t, err)

		_, err = h.Execute(context.Background())
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInteractionQueryFailed))
	})
}

func TestNewHandler_InvalidConfig(t *testing.T) {
	_, err := NewHandler(&Config{}, new(MockStatsSource), logger.NewTestLogger(t))
	assert.Error(t, err)
}
