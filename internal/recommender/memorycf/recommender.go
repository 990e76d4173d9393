// Package memorycf scores jobs by user-user similarity computed directly from
// the feedback log. It needs no training and serves users the latent model
// has not seen.
package memorycf

import (
	"context"
	"sort"

	"job-recommender/internal/common/logger"
	"job-recommender/internal/models"
	"job-recommender/internal/recommender/interactions"
)

// Source is the label attached to matches from this package.
const Source = "memory"

// SnapshotSource provides a fresh view of the feedback log.
type SnapshotSource interface {
	Snapshot(ctx context.Context) (*interactions.Snapshot, error)
}

// ActiveFilter keeps only postings that may still be recommended.
type ActiveFilter interface {
	ActiveJobIDs(ctx context.Context, ids []int64) (map[int64]struct{}, error)
}

// Recommender is the memory-based collaborative filter.
type Recommender struct {
	source SnapshotSource
	active ActiveFilter
	logger logger.Logger
}

// New creates a Recommender. active may be nil to skip the posting filter.
func New(source SnapshotSource, active ActiveFilter, log logger.Logger) *Recommender {
	return &Recommender{
		source: source,
		active: active,
		logger: log.WithFields(map[string]interface{}{"component": "memorycf"}),
	}
}

// ScoreCandidates ranks jobIDs for candidateID. Jobs the candidate already
// interacted with are excluded; an empty jobIDs means every job in the log.
// A candidate without positive history gets an empty result.
func (r *Recommender) ScoreCandidates(ctx context.Context, candidateID int64, jobIDs []int64, n int) ([]models.CFMatch, error) {
	if n <= 0 {
		return nil, nil
	}
	snap, err := r.source.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return r.score(ctx, snap, candidateID, jobIDs, n)
}

func (r *Recommender) score(ctx context.Context, snap *interactions.Snapshot, candidateID int64, jobIDs []int64, n int) ([]models.CFMatch, error) {
	target := snap.UserJobs(candidateID)
	if len(target) == 0 {
		r.logger.Debug("candidate has no interaction history", map[string]interface{}{
			"candidateId": candidateID,
		})
		return nil, nil
	}

	sims := Similarities(snap, candidateID)
	if len(sims) == 0 {
		return nil, nil
	}

	if len(jobIDs) == 0 {
		jobIDs = snap.Jobs()
	}
	raw := make(map[int64]float64)
	for _, jobID := range jobIDs {
		if _, seen := target[jobID]; seen {
			continue
		}
		if _, done := raw[jobID]; done {
			continue
		}
		var (
			s     float64
			users = snap.JobUsers(jobID)
		)
		for _, user := range sortedIDs(users) {
			if sim, ok := sims[user]; ok {
				s += sim * users[user]
			}
		}
		if s > 0 {
			raw[jobID] = s
		}
	}
	if len(raw) == 0 {
		return nil, nil
	}

	if r.active != nil {
		ids := make([]int64, 0, len(raw))
		for id := range raw {
			ids = append(ids, id)
		}
		active, err := r.active.ActiveJobIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		for id := range raw {
			if _, ok := active[id]; !ok {
				delete(raw, id)
			}
		}
	}

	matches := make([]models.CFMatch, 0, len(raw))
	for id, s := range raw {
		matches = append(matches, models.CFMatch{JobID: id, RawScore: s, Source: Source})
	}
	sort.Slice(matches, func(a, b int) bool {
		if matches[a].RawScore != matches[b].RawScore {
			return matches[a].RawScore > matches[b].RawScore
		}
		return matches[a].JobID < matches[b].JobID
	})
	if len(matches) > n {
		matches = matches[:n]
	}
	if len(matches) > 0 {
		top := matches[0].RawScore
		for i := range matches {
			matches[i].Score = matches[i].RawScore / top
		}
	}
	return matches, nil
}

// Similarities computes the weighted Jaccard similarity between candidateID
// and every other user sharing at least one positive job.
func Similarities(snap *interactions.Snapshot, candidateID int64) map[int64]float64 {
	target := snap.UserJobs(candidateID)
	neighbours := make(map[int64]struct{})
	for jobID := range target {
		for user := range snap.JobUsers(jobID) {
			if user != candidateID {
				neighbours[user] = struct{}{}
			}
		}
	}

	sims := make(map[int64]float64, len(neighbours))
	for user := range neighbours {
		if s := WeightedJaccard(target, snap.UserJobs(user)); s > 0 {
			sims[user] = s
		}
	}
	return sims
}

// WeightedJaccard is Σ min(a,b) over shared jobs divided by Σ max(a,b) over
// all jobs of either side.
func WeightedJaccard(a, b map[int64]float64) float64 {
	var inter, union float64
	for _, job := range sortedIDs(a) {
		wa := a[job]
		wb, ok := b[job]
		if ok {
			inter += min(wa, wb)
			union += max(wa, wb)
			continue
		}
		union += wa
	}
	for _, job := range sortedIDs(b) {
		if _, ok := a[job]; !ok {
			union += b[job]
		}
	}
	if inter == 0 || union == 0 {
		return 0
	}
	return inter / union
}

// sortedIDs fixes summation order so scores are bit-for-bit reproducible.
func sortedIDs(m map[int64]float64) []int64 {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })
	return ids
}
