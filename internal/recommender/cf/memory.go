package cf

import (
	"context"

	"job-recommender/internal/recommender/memorycf"
)

// Memory adapts the memory-based recommender to Scorer.
type Memory struct {
	rec *memorycf.Recommender
}

// NewMemory wraps rec.
func NewMemory(rec *memorycf.Recommender) *Memory {
	return &Memory{rec: rec}
}

func (m *Memory) Name() string { return memorycf.Source }

// Score returns cold start when the candidate has no usable neighbours.
func (m *Memory) Score(ctx context.Context, candidateID int64, jobIDs []int64, n int) (Result, error) {
	matches, err := m.rec.ScoreCandidates(ctx, candidateID, jobIDs, n)
	if err != nil {
		return Result{}, err
	}
	if len(matches) == 0 {
		return coldStart(memorycf.Source), nil
	}
	return Result{Matches: matches, Source: memorycf.Source}, nil
}
