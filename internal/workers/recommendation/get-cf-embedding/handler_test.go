package getcfembedding

import (
	"context"
	"encoding/json"
	"testing"

	"job-recommender/internal/common/config"
	apperrors "job-recommender/internal/common/errors"
	"job-recommender/internal/common/logger"
	"job-recommender/internal/recommender/cf"
	"job-recommender/internal/recommender/embedcache"
	"job-recommender/internal/recommender/latentfactor"

	"github.com/alicebob/miniredis/v2"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mock Source Implementation
// ==========================

type MockSource struct {
	mock.Mock
}

func (m *MockSource) Embedding(ctx context.Context, kind latentfactor.EntityKind, id int64) ([]float64, int, error) {
	args := m.Called(ctx, kind, id)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]float64), args.Int(1), args.Error(2)
}

// ==========================
// Test Helper Functions
// ==========================

func createMockJob(variables map[string]interface{}) entities.Job {
	variablesJSON, _ := json.Marshal(variables)
	return entities.Job{ActivatedJob: &pb.ActivatedJob{
		Key:       31,
		Type:      TaskType,
		Retries:   3,
		Variables: string(variablesJSON),
	}}
}

func createTestHandler(t *testing.T, s EmbeddingSource) *Handler {
	h, err := NewHandler(DefaultConfig(), s, logger.NewTestLogger(t))
	require.NoError(t, err)
	return h
}

func liveHandle(t *testing.T) *latentfactor.Handle {
	m := &latentfactor.Model{
		Version:     3,
		UserIDs:     []int64{1},
		ItemIDs:     []int64{10, 11},
		UserFactors: [][]float64{{0.25, -0.5, 1}},
		ItemFactors: [][]float64{{1, 0, 0}, {0, 2, 0}},
		Seen:        map[int64][]int64{1: {10}},
	}
	data, err := m.MarshalBinary()
	require.NoError(t, err)
	decoded, err := latentfactor.Decode(data)
	require.NoError(t, err)
	decoded.Version = m.Version

	h := latentfactor.NewHandle(nil, logger.NewTestLogger(t))
	h.Swap(decoded)
	return h
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute(t *testing.T) {
	source := new(MockSource)
	source.On("Embedding", mock.Anything, latentfactor.EntityJob, int64(10)).
		Return([]float64{0.1, 0.2}, 6, nil)

	output, err := createTestHandler(t, source).Execute(context.Background(), &Input{EntityType: "job", EntityID: 10})
	require.NoError(t, err)
	assert.Equal(t, &Output{
		EntityType:   "job",
		EntityID:     10,
		ModelVersion: 6,
		Found:        true,
		Dimensions:   2,
		Embedding:    []float64{0.1, 0.2},
	}, output)
	source.AssertExpectations(t)
}

func TestHandler_Execute_UnknownEntity(t *testing.T) {
	source := new(MockSource)
	source.On("Embedding", mock.Anything, latentfactor.EntityUser, int64(77)).Return(nil, 6, nil)

	output, err := createTestHandler(t, source).Execute(context.Background(), &Input{EntityType: "user", EntityID: 77})
	require.NoError(t, err)
	assert.False(t, output.Found)
	assert.Equal(t, 0, output.Dimensions)
	assert.Equal(t, []float64{}, output.Embedding)
}

func TestHandler_Execute_ThroughCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	log := logger.NewTestLogger(t)
	cache := embedcache.New(client, config.CacheConfig{TTL: 60, KeyPrefix: "test:cf"}, log)
	latent := cf.NewLatent(liveHandle(t), cache, nil, log)
	h := createTestHandler(t, latent)

	output, err := h.Execute(context.Background(), &Input{EntityType: "user", EntityID: 1})
	require.NoError(t, err)
	assert.True(t, output.Found)
	assert.Equal(t, 3, output.ModelVersion)
	assert.Equal(t, []float64{0.25, -0.5, 1}, output.Embedding)
	assert.True(t, mr.Exists(cache.Key(latentfactor.EntityUser, 1)), "lookup populates the cache")

	output, err = h.Execute(context.Background(), &Input{EntityType: "job", EntityID: 11})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 2, 0}, output.Embedding)
}

// ==========================
// Error Handling Tests
// ==========================

func TestHandler_Execute_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input *Input
	}{
		{name: "nil input", input: nil},
		{name: "bad entity type", input: &Input{EntityType: "company", EntityID: 1}},
		{name: "zero id", input: &Input{EntityType: "job"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := new(MockSource)
			_, err := createTestHandler(t, source).Execute(context.Background(), tt.input)
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
			source.AssertNotCalled(t, "Embedding", mock.Anything, mock.Anything, mock.Anything)
		})
	}

	t.Run("no model loaded", func(t *testing.T) {
		log := logger.NewTestLogger(t)
		latent := cf.NewLatent(latentfactor.NewHandle(nil, log), nil, nil, log)

		_, err := createTestHandler(t, latent).Execute(context.Background(), &Input{EntityType: "user", EntityID: 1})
		assert.ErrorIs(t, err, apperrors.ErrModelNotFound)
	})
}

func TestHandler_ParseInput(t *testing.T) {
	tests := []struct {
		name      string
		variables map[string]interface{}
		expected  *Input
		wantErr   bool
	}{
		{
			name:      "job",
			variables: map[string]interface{}{"entityType": "job", "entityId": 12},
			expected:  &Input{EntityType: "job", EntityID: 12},
		},
		{name: "unknown type", variables: map[string]interface{}{"entityType": "team", "entityId": 12}, wantErr: true},
		{name: "missing id", variables: map[string]interface{}{"entityType": "user"}, wantErr: true},
		{name: "negative id", variables: map[string]interface{}{"entityType": "user", "entityId": -3}, wantErr: true},
	}

	h := createTestHandler(t, new(MockSource))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input, err := h.parseInput(createMockJob(tt.variables))
			if tt.wantErr {
				assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, input)
		})
	}
}
