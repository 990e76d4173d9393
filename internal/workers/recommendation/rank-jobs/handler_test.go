package rankjobs

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	apperrors "job-recommender/internal/common/errors"
	"job-recommender/internal/common/logger"
	"job-recommender/internal/models"
	"job-recommender/internal/recommender/hybrid"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mock Ranker Implementation
// ==========================

type MockRanker struct {
	mock.Mock
}

func (m *MockRanker) Rank(ctx context.Context, req hybrid.Request) (*models.RankResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RankResult), args.Error(1)
}

// ==========================
// Test Helper Functions
// ==========================

func createMockJob(key int64, variables map[string]interface{}) entities.Job {
	variablesJSON, _ := json.Marshal(variables)
	return entities.Job{ActivatedJob: &pb.ActivatedJob{
		Key:                key,
		Type:               TaskType,
		ProcessInstanceKey: key * 10,
		BpmnProcessId:      "job-recommendation",
		Retries:            3,
		Variables:          string(variablesJSON),
	}}
}

func createTestHandler(t *testing.T, ranker Ranker) *Handler {
	h, err := NewHandler(DefaultConfig(), ranker, nil, logger.NewTestLogger(t))
	require.NoError(t, err)
	return h
}

func sampleResult() *models.RankResult {
	return &models.RankResult{
		RequestID: "req-1",
		HybridTop: []models.HybridMatch{
			{ContentMatch: models.ContentMatch{JobID: 2}, FinalScore: 0.84},
			{ContentMatch: models.ContentMatch{JobID: 1}, FinalScore: 0.72},
		},
		Weights:     models.BlendWeights{Content: 0.8, Collaborative: 0.2},
		CFSource:    "latent",
		CFAvailable: true,
	}
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_Success(t *testing.T) {
	ranker := new(MockRanker)
	input := &Input{
		CandidateID: 7,
		Profile:     models.Profile{Skills: []string{"go"}, Title: "Backend"},
		JobUniverse: []int64{1, 2, 3},
		TopN:        2,
	}
	ranker.On("Rank", mock.Anything, hybrid.Request{
		CandidateID: 7,
		Profile:     input.Profile,
		JobUniverse: []int64{1, 2, 3},
		TopN:        2,
	}).Return(sampleResult(), nil)

	h := createTestHandler(t, ranker)
	output, err := h.Execute(context.Background(), input)
	require.NoError(t, err)

	assert.Equal(t, 2, output.ResultCount)
	assert.Equal(t, "req-1", output.RequestID)
	assert.Equal(t, int64(2), output.HybridTop[0].JobID)
	ranker.AssertExpectations(t)
}

func TestHandler_Execute_Errors(t *testing.T) {
	tests := []struct {
		name      string
		input     *Input
		rankErr   error
		expected  error
		callsRank bool
	}{
		{name: "nil input", input: nil, expected: apperrors.ErrInvalidInput},
		{name: "topN above limit", input: &Input{TopN: 101}, expected: apperrors.ErrInvalidInput},
		{
			name:      "ranker failure propagates",
			input:     &Input{Profile: models.Profile{Skills: []string{"go"}}},
			rankErr:   apperrors.NewEmbeddingError(errors.New("connection refused")),
			expected:  apperrors.ErrEmbedding,
			callsRank: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ranker := new(MockRanker)
			if tt.callsRank {
				ranker.On("Rank", mock.Anything, mock.Anything).Return(nil, tt.rankErr)
			}
			h := createTestHandler(t, ranker)

			_, err := h.Execute(context.Background(), tt.input)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.expected)
			ranker.AssertExpectations(t)
		})
	}
}

func TestHandler_ParseInput(t *testing.T) {
	tests := []struct {
		name      string
		variables map[string]interface{}
		wantErr   bool
		check     func(t *testing.T, input *Input)
	}{
		{
			name: "full input with extra process variables",
			variables: map[string]interface{}{
				"candidateId": 42,
				"profile": map[string]interface{}{
					"skills": []string{"python", "django"},
					"title":  "Backend Developer",
				},
				"jobUniverse": []int64{10, 11},
				"topN":        5,
				"tenant":      "acme",
			},
			check: func(t *testing.T, input *Input) {
				assert.Equal(t, int64(42), input.CandidateID)
				assert.Equal(t, []string{"python", "django"}, input.Profile.Skills)
				assert.Equal(t, []int64{10, 11}, input.JobUniverse)
				assert.Equal(t, 5, input.TopN)
			},
		},
		{
			name:      "anonymous request",
			variables: map[string]interface{}{"profile": map[string]interface{}{"title": "Engineer"}},
			check: func(t *testing.T, input *Input) {
				assert.Equal(t, int64(0), input.CandidateID)
			},
		},
		{name: "missing profile", variables: map[string]interface{}{"topN": 5}, wantErr: true},
		{
			name:      "non-integer topN",
			variables: map[string]interface{}{"profile": map[string]interface{}{}, "topN": 2.5},
			wantErr:   true,
		},
		{
			name:      "skills must be strings",
			variables: map[string]interface{}{"profile": map[string]interface{}{"skills": []int{1}}},
			wantErr:   true,
		},
	}

	h := createTestHandler(t, new(MockRanker))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input, err := h.parseInput(createMockJob(1, tt.variables))
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			tt.check(t, input)
		})
	}
}

// ==========================
// Configuration Tests
// ==========================

func TestNewHandler_Config(t *testing.T) {
	_, err := NewHandler(&Config{Timeout: 0, MaxTopN: 10}, new(MockRanker), nil, logger.NewTestLogger(t))
	assert.Error(t, err)

	cfg := DefaultConfig()
	cfg.InputSchema = map[string]interface{}{"type": "object", "required": []interface{}{"candidateId"}}
	h, err := NewHandler(cfg, new(MockRanker), nil, logger.NewTestLogger(t))
	require.NoError(t, err)

	_, err = h.parseInput(createMockJob(1, map[string]interface{}{"profile": map[string]interface{}{}}))
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput, "registry schema replaces the built-in one")
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, 100, cfg.MaxTopN)
	assert.NoError(t, cfg.Validate())
}
