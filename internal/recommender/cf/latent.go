package cf

import (
	"context"

	apperrors "job-recommender/internal/common/errors"
	"job-recommender/internal/common/logger"
	"job-recommender/internal/models"
	"job-recommender/internal/recommender/embedcache"
	"job-recommender/internal/recommender/latentfactor"
)

// SourceLatent labels scores from the trained model.
const SourceLatent = "latent"

// Latent scores with the live latent-factor model. Score is σ(dot) so it is
// comparable with content scores; RawScore keeps the dot product.
type Latent struct {
	handle *latentfactor.Handle
	cache  *embedcache.Cache
	active ActiveFilter
	logger logger.Logger
}

// NewLatent creates the trained variant. cache and active may be nil.
func NewLatent(handle *latentfactor.Handle, cache *embedcache.Cache, active ActiveFilter, log logger.Logger) *Latent {
	return &Latent{
		handle: handle,
		cache:  cache,
		active: active,
		logger: log.WithFields(map[string]interface{}{"component": "cf-latent"}),
	}
}

func (l *Latent) Name() string { return SourceLatent }

// Score ranks jobIDs (every trained job when empty) for a known candidate.
// Jobs the model has no vector for, or that the candidate already interacted
// with, are left out.
func (l *Latent) Score(ctx context.Context, candidateID int64, jobIDs []int64, n int) (Result, error) {
	m := l.handle.Current()
	if m == nil || !m.HasUser(candidateID) || n <= 0 {
		return coldStart(SourceLatent), nil
	}

	userVec, ok := l.cache.Embedding(ctx, m, latentfactor.EntityUser, candidateID)
	if !ok {
		return coldStart(SourceLatent), nil
	}

	if len(jobIDs) == 0 {
		jobIDs = m.ItemIDs
	}
	scored := make([]latentfactor.ScoredItem, 0, len(jobIDs))
	visited := make(map[int64]struct{}, len(jobIDs))
	for _, jobID := range jobIDs {
		if _, dup := visited[jobID]; dup {
			continue
		}
		visited[jobID] = struct{}{}
		if m.IsSeen(candidateID, jobID) {
			continue
		}
		jobVec, ok := l.cache.Embedding(ctx, m, latentfactor.EntityJob, jobID)
		if !ok {
			continue
		}
		scored = append(scored, latentfactor.ScoredItem{JobID: jobID, Score: latentfactor.Dot(userVec, jobVec)})
	}

	if l.active != nil && len(scored) > 0 {
		ids := make([]int64, len(scored))
		for i, s := range scored {
			ids[i] = s.JobID
		}
		active, err := l.active.ActiveJobIDs(ctx, ids)
		if err != nil {
			return Result{}, err
		}
		kept := scored[:0]
		for _, s := range scored {
			if _, ok := active[s.JobID]; ok {
				kept = append(kept, s)
			}
		}
		scored = kept
	}

	latentfactor.SortScored(scored)
	if len(scored) > n {
		scored = scored[:n]
	}

	matches := make([]models.CFMatch, len(scored))
	for i, s := range scored {
		matches[i] = models.CFMatch{
			JobID:    s.JobID,
			Score:    latentfactor.Sigmoid(s.Score),
			RawScore: s.Score,
			Source:   SourceLatent,
		}
	}
	l.logger.Debug("latent cf scored", map[string]interface{}{
		"candidateId":  candidateID,
		"modelVersion": m.Version,
		"matches":      len(matches),
	})
	return Result{Matches: matches, Source: SourceLatent}, nil
}

// Embedding returns the live model's vector for one user or job together with
// the model version. vec is nil when the entity was not in the training data.
func (l *Latent) Embedding(ctx context.Context, kind latentfactor.EntityKind, id int64) (vec []float64, version int, err error) {
	m := l.handle.Current()
	if m == nil {
		return nil, 0, apperrors.NewModelNotFoundError("no trained model is loaded")
	}
	vec, ok := l.cache.Embedding(ctx, m, kind, id)
	if !ok {
		return nil, m.Version, nil
	}
	return vec, m.Version, nil
}
