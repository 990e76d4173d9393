// Package cf puts the collaborative-filtering variants behind one interface
// and owns the fallback order between them.
package cf

import (
	"context"

	"job-recommender/internal/models"
)

// SourceNone marks a request for which no variant produced scores.
const SourceNone = "none"

// Result is the outcome of one CF scoring call. ColdStart is set when the
// variant has nothing to say about the candidate; it is not an error.
type Result struct {
	Matches   []models.CFMatch
	ColdStart bool
	Source    string
}

// Available reports whether the result carries usable scores.
func (r Result) Available() bool {
	return !r.ColdStart && len(r.Matches) > 0
}

// Scorer is one collaborative-filtering variant.
type Scorer interface {
	Name() string
	Score(ctx context.Context, candidateID int64, jobIDs []int64, n int) (Result, error)
}

// ActiveFilter keeps only postings that may still be recommended.
type ActiveFilter interface {
	ActiveJobIDs(ctx context.Context, ids []int64) (map[int64]struct{}, error)
}

func coldStart(source string) Result {
	return Result{ColdStart: true, Source: source}
}
