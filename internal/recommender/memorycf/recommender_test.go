package memorycf

import (
	"context"
	"errors"
	"testing"

	"job-recommender/internal/common/config"
	"job-recommender/internal/common/logger"
	"job-recommender/internal/models"
	"job-recommender/internal/recommender/interactions"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

type fakeSource struct {
	snap  *interactions.Snapshot
	err   error
	calls int
}

func (f *fakeSource) Snapshot(ctx context.Context) (*interactions.Snapshot, error) {
	f.calls++
	return f.snap, f.err
}

type fakeActive struct {
	inactive map[int64]bool
	err      error
	asked    []int64
}

func (f *fakeActive) ActiveJobIDs(ctx context.Context, ids []int64) (map[int64]struct{}, error) {
	f.asked = append(f.asked, ids...)
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[int64]struct{})
	for _, id := range ids {
		if !f.inactive[id] {
			out[id] = struct{}{}
		}
	}
	return out, nil
}

func fixtureSnapshot(t *testing.T) *interactions.Snapshot {
	weights, err := models.NewFeedbackWeights(config.DefaultFeedbackWeights())
	require.NoError(t, err)
	return interactions.BuildSnapshot([]models.Interaction{
		{CandidateID: 1, JobID: 10, FeedbackType: models.FeedbackApply},
		{CandidateID: 1, JobID: 11, FeedbackType: models.FeedbackView},
		{CandidateID: 1, JobID: 14, FeedbackType: models.FeedbackDislike},
		{CandidateID: 2, JobID: 10, FeedbackType: models.FeedbackApply},
		{CandidateID: 2, JobID: 12, FeedbackType: models.FeedbackSave},
		{CandidateID: 2, JobID: 14, FeedbackType: models.FeedbackApply},
		{CandidateID: 3, JobID: 11, FeedbackType: models.FeedbackView},
		{CandidateID: 3, JobID: 13, FeedbackType: models.FeedbackApply},
		{CandidateID: 4, JobID: 99, FeedbackType: models.FeedbackApply},
	}, weights)
}

func newTestRecommender(t *testing.T, active ActiveFilter) (*Recommender, *fakeSource) {
	src := &fakeSource{snap: fixtureSnapshot(t)}
	return New(src, active, logger.NewTestLogger(t)), src
}

// ==========================
// Similarity Tests
// ==========================

func TestWeightedJaccard(t *testing.T) {
	tests := []struct {
		name     string
		a, b     map[int64]float64
		expected float64
	}{
		{"identical", map[int64]float64{1: 2, 2: 3}, map[int64]float64{1: 2, 2: 3}, 1},
		{"disjoint", map[int64]float64{1: 2}, map[int64]float64{2: 3}, 0},
		{"partial", map[int64]float64{10: 5, 11: 1}, map[int64]float64{10: 5, 12: 3}, 5.0 / 9.0},
		{"weights differ", map[int64]float64{1: 1}, map[int64]float64{1: 4}, 0.25},
		{"empty side", map[int64]float64{}, map[int64]float64{1: 1}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, WeightedJaccard(tt.a, tt.b), 1e-12)
			assert.InDelta(t, tt.expected, WeightedJaccard(tt.b, tt.a), 1e-12, "symmetric")
		})
	}
}

func TestSimilarities(t *testing.T) {
	sims := Similarities(fixtureSnapshot(t), 1)

	assert.Len(t, sims, 2, "self and users without shared jobs are skipped")
	// user 2 shares job 10; user 2 also applied to 14 which user 1 disliked.
	assert.InDelta(t, 5.0/14.0, sims[2], 1e-12)
	assert.InDelta(t, 1.0/11.0, sims[3], 1e-12)
}

// ==========================
// Scoring Tests
// ==========================

func TestScoreCandidates(t *testing.T) {
	rec, _ := newTestRecommender(t, nil)

	matches, err := rec.ScoreCandidates(context.Background(), 1, []int64{10, 12, 13, 14, 99}, 10)
	require.NoError(t, err)
	require.Len(t, matches, 3)

	// raw scores: 12 -> 5/14*3, 14 -> 5/14*5 (dislike is not "seen"), 13 -> 1/11*5
	assert.Equal(t, int64(14), matches[0].JobID)
	assert.InDelta(t, 25.0/14.0, matches[0].RawScore, 1e-12)
	assert.Equal(t, 1.0, matches[0].Score)

	assert.Equal(t, int64(12), matches[1].JobID)
	assert.InDelta(t, 0.6, matches[1].Score, 1e-12)

	assert.Equal(t, int64(13), matches[2].JobID)
	assert.InDelta(t, (5.0/11.0)/(25.0/14.0), matches[2].Score, 1e-12)

	for _, m := range matches {
		assert.Equal(t, Source, m.Source)
		assert.NotEqual(t, int64(10), m.JobID, "seen jobs excluded")
	}
}

func TestScoreCandidates_FiltersInactiveBeforeTopN(t *testing.T) {
	active := &fakeActive{inactive: map[int64]bool{14: true}}
	rec, _ := newTestRecommender(t, active)

	matches, err := rec.ScoreCandidates(context.Background(), 1, nil, 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, int64(12), matches[0].JobID)
	assert.Equal(t, 1.0, matches[0].Score, "normalized against the best surviving job")
	assert.ElementsMatch(t, []int64{12, 13, 14}, active.asked)
}

func TestScoreCandidates_Deterministic(t *testing.T) {
	rec, _ := newTestRecommender(t, nil)
	first, err := rec.ScoreCandidates(context.Background(), 1, nil, 10)
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		again, err := rec.ScoreCandidates(context.Background(), 1, nil, 10)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestScoreCandidates_ColdStart(t *testing.T) {
	tests := []struct {
		name        string
		candidateID int64
		jobIDs      []int64
		n           int
	}{
		{"unknown candidate", 42, nil, 5},
		{"no neighbours", 4, nil, 5},
		{"only seen jobs", 1, []int64{10, 11}, 5},
		{"zero n", 1, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, _ := newTestRecommender(t, nil)
			matches, err := rec.ScoreCandidates(context.Background(), tt.candidateID, tt.jobIDs, tt.n)
			require.NoError(t, err)
			assert.Empty(t, matches)
		})
	}
}

func TestScoreCandidates_Errors(t *testing.T) {
	t.Run("snapshot fails", func(t *testing.T) {
		src := &fakeSource{err: errors.New("db down")}
		rec := New(src, nil, logger.NewTestLogger(t))
		_, err := rec.ScoreCandidates(context.Background(), 1, nil, 5)
		assert.Error(t, err)
	})

	t.Run("active filter fails", func(t *testing.T) {
		rec, _ := newTestRecommender(t, &fakeActive{err: errors.New("db down")})
		_, err := rec.ScoreCandidates(context.Background(), 1, nil, 5)
		assert.Error(t, err)
	})
}
