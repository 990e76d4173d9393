package content

import (
	"context"
	"errors"
	"testing"
	"time"

	"job-recommender/internal/common/config"
	apperrors "job-recommender/internal/common/errors"
	"job-recommender/internal/common/logger"
	"job-recommender/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

type fakeEmbedder struct {
	vector []float32
	err    error
	delay  time.Duration
	texts  []string
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.texts = append(f.texts, text)
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.delay):
		}
	}
	return f.vector, f.err
}

type fakeRetriever struct {
	candidates []models.JobCandidate
	err        error
	limits     []int
	statuses   []string
}

func (f *fakeRetriever) NearVector(ctx context.Context, vector []float32, limit int, statuses []string) ([]models.JobCandidate, error) {
	f.limits = append(f.limits, limit)
	f.statuses = statuses
	return f.candidates, f.err
}

func createTestPolicy() config.RecommenderConfig {
	return config.Defaults().Recommender
}

func newTestScorer(t *testing.T, emb Embedder, ret Retriever) *Scorer {
	return NewScorer(emb, ret, createTestPolicy(), logger.NewTestLogger(t))
}

func backendProfile() models.Profile {
	return models.Profile{
		Skills: []string{"python", "django", "postgresql"},
		Title:  "Backend Developer",
	}
}

// ==========================
// Core Functionality Tests
// ==========================

func TestRecommend_WorkedExample(t *testing.T) {
	ret := &fakeRetriever{candidates: []models.JobCandidate{
		{JobID: 1, Title: "Backend Engineer", Skills: []string{"python", "django", "docker"}, SemanticDistance: 0.4},
		{JobID: 2, Title: "Backend Engineer", Skills: []string{"java", "spring"}, SemanticDistance: 0.4},
	}}
	scorer := newTestScorer(t, &fakeEmbedder{vector: []float32{1, 0}}, ret)

	opts := scorer.DefaultOptions(5)
	opts.SkillWeight = 0.5
	opts.MinThreshold = 0

	matches, err := scorer.Recommend(context.Background(), backendProfile(), opts)
	require.NoError(t, err)
	require.Len(t, matches, 2)

	first := matches[0]
	assert.Equal(t, int64(1), first.JobID)
	assert.InDelta(t, 0.8, first.SemanticSimilarity, 1e-9)
	assert.InDelta(t, 2.0/3.0, first.SkillOverlap, 1e-9)
	assert.InDelta(t, 0.02, first.TitleBoost, 1e-9)
	assert.InDelta(t, 0.7533, first.Score, 1e-3)

	second := matches[1]
	assert.Equal(t, int64(2), second.JobID)
	assert.Equal(t, 0.0, second.SkillOverlap)
	assert.Equal(t, 0.0, second.TitleBoost, "zero overlap never gets a title boost")
	assert.InDelta(t, 0.4*0.5, second.Score, 1e-9)

	assert.Equal(t, []int{25}, ret.limits, "retrieves topN * multiplier")
	assert.Equal(t, []string{"ACTIVE", "APPROVED"}, ret.statuses)
}

func TestRecommend_StatusFilterMatchesIndexedCase(t *testing.T) {
	ret := &fakeRetriever{}
	policy := createTestPolicy()
	policy.ActiveStatuses = []string{"active", " Approved ", ""}
	scorer := NewScorer(&fakeEmbedder{vector: []float32{1, 0}}, ret, policy, logger.NewTestLogger(t))

	_, err := scorer.Recommend(context.Background(), backendProfile(), scorer.DefaultOptions(5))
	require.NoError(t, err)
	assert.Equal(t, []string{"ACTIVE", "APPROVED"}, ret.statuses)
	assert.Equal(t, []string{"active", " Approved ", ""}, policy.ActiveStatuses, "caller's slice untouched")
}

func TestRecommend_ThresholdSortAndTopN(t *testing.T) {
	ret := &fakeRetriever{candidates: []models.JobCandidate{
		{JobID: 5, Title: "x", Skills: []string{"python"}, SemanticDistance: 1.0},
		{JobID: 3, Title: "x", Skills: []string{"python"}, SemanticDistance: 1.0},
		{JobID: 4, Title: "x", Skills: []string{"python"}, SemanticDistance: 0.2},
		{JobID: 9, Title: "x", Skills: []string{"rust"}, SemanticDistance: 1.9},
		{JobID: 4, Title: "x", Skills: []string{"python"}, SemanticDistance: 1.5},
	}}
	scorer := newTestScorer(t, &fakeEmbedder{vector: []float32{1}}, ret)

	matches, err := scorer.Recommend(context.Background(), models.Profile{Skills: []string{"python"}}, scorer.DefaultOptions(2))
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, int64(4), matches[0].JobID)
	assert.Equal(t, int64(3), matches[1].JobID, "ties broken by job id ascending")
	assert.InDelta(t, 0.7*0.9+0.3, matches[0].Score, 1e-9, "duplicate keeps closest hit")
}

func TestRecommend_DropsBelowThreshold(t *testing.T) {
	ret := &fakeRetriever{candidates: []models.JobCandidate{
		{JobID: 1, Skills: []string{"cobol"}, SemanticDistance: 1.8},
	}}
	scorer := newTestScorer(t, &fakeEmbedder{vector: []float32{1}}, ret)

	matches, err := scorer.Recommend(context.Background(), backendProfile(), scorer.DefaultOptions(5))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestRecommend_ScoreBounds(t *testing.T) {
	var candidates []models.JobCandidate
	for i := 0; i < 40; i++ {
		candidates = append(candidates, models.JobCandidate{
			JobID:            int64(i + 1),
			Title:            "Senior Backend Developer Python",
			Skills:           []string{"python", "django", "postgresql"}[:i%3+1],
			SemanticDistance: float64(i) / 20,
		})
	}
	scorer := newTestScorer(t, &fakeEmbedder{vector: []float32{1}}, &fakeRetriever{candidates: candidates})
	opts := scorer.DefaultOptions(40)
	opts.MinThreshold = 0

	matches, err := scorer.Recommend(context.Background(), backendProfile(), opts)
	require.NoError(t, err)
	policy := createTestPolicy()
	for _, m := range matches {
		assert.GreaterOrEqual(t, m.Score, 0.0)
		assert.LessOrEqual(t, m.Score, 1+policy.TitleBoostCap)
		assert.LessOrEqual(t, m.TitleBoost, policy.TitleBoostCap)
	}
}

func TestRecommend_EmptyQueryFailsFast(t *testing.T) {
	emb := &fakeEmbedder{vector: []float32{1}}
	ret := &fakeRetriever{}
	scorer := newTestScorer(t, emb, ret)

	_, err := scorer.Recommend(context.Background(), models.Profile{Skills: []string{" "}}, scorer.DefaultOptions(5))
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrEmptyQuery)
	assert.Empty(t, emb.texts)
	assert.Empty(t, ret.limits)
}

func TestRecommend_CollaboratorErrors(t *testing.T) {
	tests := []struct {
		name     string
		embedder *fakeEmbedder
		retr     *fakeRetriever
		expected error
	}{
		{
			name:     "embedding failure",
			embedder: &fakeEmbedder{err: errors.New("connection refused")},
			retr:     &fakeRetriever{},
			expected: apperrors.ErrEmbedding,
		},
		{
			name:     "embedding returns nothing",
			embedder: &fakeEmbedder{},
			retr:     &fakeRetriever{},
			expected: apperrors.ErrEmbedding,
		},
		{
			name:     "retrieval failure",
			embedder: &fakeEmbedder{vector: []float32{1}},
			retr:     &fakeRetriever{err: errors.New("index missing")},
			expected: apperrors.ErrRetrieval,
		},
		{
			name:     "retrieval timeout",
			embedder: &fakeEmbedder{vector: []float32{1}},
			retr:     &fakeRetriever{err: context.DeadlineExceeded},
			expected: apperrors.ErrRetrievalTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scorer := newTestScorer(t, tt.embedder, tt.retr)
			_, err := scorer.Recommend(context.Background(), backendProfile(), scorer.DefaultOptions(5))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.expected)
		})
	}
}

func TestRecommend_EmbeddingTimeout(t *testing.T) {
	policy := createTestPolicy()
	policy.CollaboratorTimeout = 10
	scorer := NewScorer(&fakeEmbedder{vector: []float32{1}, delay: time.Second}, &fakeRetriever{}, policy, logger.NewTestLogger(t))

	_, err := scorer.Recommend(context.Background(), backendProfile(), scorer.DefaultOptions(5))
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrEmbeddingTimeout)
	assert.True(t, apperrors.IsTimeout(err))
}

func TestRecommend_InvalidOptions(t *testing.T) {
	scorer := newTestScorer(t, &fakeEmbedder{vector: []float32{1}}, &fakeRetriever{})

	_, err := scorer.Recommend(context.Background(), backendProfile(), Options{TopN: 0})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	opts := scorer.DefaultOptions(5)
	opts.Weights.Title = -1
	_, err = scorer.Recommend(context.Background(), backendProfile(), opts)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

// ==========================
// Helper Function Tests
// ==========================

func TestWeightedText(t *testing.T) {
	profile := models.Profile{
		Skills:      []string{"go", " sql "},
		Title:       "Engineer",
		Description: "builds things",
	}

	text, err := WeightedText(profile, config.FieldWeights{Skills: 0.2, Title: 0.1, Description: 0.3})
	require.NoError(t, err)
	assert.Equal(t, "go, sql go, sql Engineer builds things builds things builds things", text)

	text, err = WeightedText(models.Profile{Title: "Engineer"}, config.FieldWeights{Skills: 0.4})
	require.NoError(t, err)
	assert.Equal(t, "", text, "zero weight drops the field")
}

func TestSemanticSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, SemanticSimilarity(0))
	assert.Equal(t, 0.5, SemanticSimilarity(1))
	assert.Equal(t, 0.0, SemanticSimilarity(2))
	assert.Equal(t, 0.0, SemanticSimilarity(3))
	assert.Equal(t, 1.0, SemanticSimilarity(-1))
}

func TestTitleBoost(t *testing.T) {
	assert.InDelta(t, 0.02, TitleBoost("Backend Developer", "backend engineer", 0.02, 0.05), 1e-9)
	assert.InDelta(t, 0.04, TitleBoost("Senior Backend Dev", "senior backend", 0.02, 0.05), 1e-9)
	assert.InDelta(t, 0.05, TitleBoost("a b c d", "a b c d", 0.02, 0.05), 1e-9)
	assert.Equal(t, 0.0, TitleBoost("", "anything", 0.02, 0.05))
	assert.InDelta(t, 0.02, TitleBoost("go go go", "go", 0.02, 0.05), 1e-9, "repeated tokens count once")
}
