// Package hybrid blends content and collaborative scores into one ranking.
package hybrid

import (
	"context"
	"sort"
	"time"

	"job-recommender/internal/common/config"
	apperrors "job-recommender/internal/common/errors"
	"job-recommender/internal/common/logger"
	"job-recommender/internal/common/metrics"
	"job-recommender/internal/common/observability"
	"job-recommender/internal/models"
	"job-recommender/internal/recommender/cf"
	"job-recommender/internal/recommender/content"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// ContentRecommender is the content side of the blend.
type ContentRecommender interface {
	DefaultOptions(topN int) content.Options
	Recommend(ctx context.Context, profile models.Profile, opts content.Options) ([]models.ContentMatch, error)
}

// Request is one ranking call. CandidateID <= 0 is an anonymous request and
// skips collaborative scoring. TopN 0 uses the configured default.
type Request struct {
	CandidateID int64
	Profile     models.Profile
	JobUniverse []int64
	TopN        int
}

// Ranker orchestrates the content scorer and the CF chain.
type Ranker struct {
	content ContentRecommender
	cf      cf.Scorer
	policy  config.RecommenderConfig
	timeout time.Duration
	logger  logger.Logger
}

// NewRanker creates a Ranker. scorer is usually a *cf.Chain.
func NewRanker(contentRec ContentRecommender, scorer cf.Scorer, policy config.RecommenderConfig, log logger.Logger) *Ranker {
	if policy.ContentHeadroom < 1 {
		policy.ContentHeadroom = 1
	}
	return &Ranker{
		content: contentRec,
		cf:      scorer,
		policy:  policy,
		timeout: config.GetDuration(policy.CollaboratorTimeout),
		logger:  log.WithFields(map[string]interface{}{"component": "hybrid"}),
	}
}

// Weights returns the blend used when CF is or is not available.
func (r *Ranker) Weights(cfAvailable bool) models.BlendWeights {
	if !cfAvailable {
		return models.BlendWeights{Content: 1, Collaborative: 0}
	}
	return models.BlendWeights{Content: r.policy.ContentWeight, Collaborative: r.policy.CFWeight}
}

// Rank produces the content, collaborative and blended rankings for req.
// Content failures are returned; CF failures only disable the CF share.
func (r *Ranker) Rank(ctx context.Context, req Request) (result *models.RankResult, err error) {
	start := time.Now()
	defer func() { metrics.RankDuration.Observe(time.Since(start).Seconds()) }()

	topN := req.TopN
	if topN == 0 {
		topN = r.policy.TopN
	}
	if topN < 0 {
		return nil, apperrors.NewInvalidInputError("topN must be positive")
	}

	requestID := uuid.NewString()
	ctx, span := observability.StartSpan(ctx, "hybrid.rank",
		attribute.String("request.id", requestID),
		attribute.Int64("candidate.id", req.CandidateID),
		attribute.Int("top_n", topN),
	)
	defer func() { observability.EndSpan(span, err) }()

	contentMatches, err := r.content.Recommend(ctx, req.Profile, r.content.DefaultOptions(topN*r.policy.ContentHeadroom))
	if err != nil {
		return nil, err
	}

	cfResult := r.collaborative(ctx, req, contentMatches)
	available := cfResult.Available()
	weights := r.Weights(available)

	cfScores := make(map[int64]float64, len(cfResult.Matches))
	if available {
		for _, m := range cfResult.Matches {
			cfScores[m.JobID] = m.Score
		}
	}

	blended := make([]models.HybridMatch, len(contentMatches))
	for i, m := range contentMatches {
		cfScore := cfScores[m.JobID]
		blended[i] = models.HybridMatch{
			ContentMatch: m,
			ContentScore: m.Score,
			CFScore:      cfScore,
			FinalScore:   weights.Content*m.Score + weights.Collaborative*cfScore,
		}
	}
	sort.SliceStable(blended, func(a, b int) bool {
		return blended[a].FinalScore > blended[b].FinalScore
	})

	source := cfResult.Source
	if !available {
		source = cf.SourceNone
	}
	metrics.CFSourceTotal.WithLabelValues(source).Inc()

	result = &models.RankResult{
		RequestID:     requestID,
		ContentBased:  head(contentMatches, topN),
		Collaborative: head(cfResult.Matches, topN),
		HybridTop:     head(blended, topN),
		Weights:       weights,
		CFSource:      source,
		CFAvailable:   available,
	}

	span.SetAttributes(
		attribute.String("cf.source", source),
		attribute.Int("results", len(result.HybridTop)),
	)
	r.logger.Info("ranking complete", map[string]interface{}{
		"requestId":     requestID,
		"candidateId":   req.CandidateID,
		"contentCount":  len(contentMatches),
		"cfSource":      source,
		"contentWeight": weights.Content,
		"cfWeight":      weights.Collaborative,
		"returned":      len(result.HybridTop),
		"durationMs":    time.Since(start).Milliseconds(),
	})
	return result, nil
}

func (r *Ranker) collaborative(ctx context.Context, req Request, contentMatches []models.ContentMatch) cf.Result {
	if req.CandidateID <= 0 || r.cf == nil {
		return cf.Result{ColdStart: true, Source: cf.SourceNone}
	}

	universe := make([]int64, 0, len(req.JobUniverse)+len(contentMatches))
	seen := make(map[int64]struct{}, cap(universe))
	add := func(id int64) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		universe = append(universe, id)
	}
	for _, id := range req.JobUniverse {
		add(id)
	}
	for _, m := range contentMatches {
		add(m.JobID)
	}
	if len(universe) == 0 {
		return cf.Result{ColdStart: true, Source: cf.SourceNone}
	}

	cfCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		cfCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	res, err := r.cf.Score(cfCtx, req.CandidateID, universe, len(universe))
	if err != nil {
		metrics.CollaboratorErrors.WithLabelValues("cf", string(apperrors.CodeOf(err))).Inc()
		r.logger.Warn("collaborative scoring failed, using content only", map[string]interface{}{
			"candidateId": req.CandidateID,
			"error":       err.Error(),
		})
		return cf.Result{ColdStart: true, Source: cf.SourceNone}
	}
	return res
}

func head[T any](items []T, n int) []T {
	if len(items) > n {
		return items[:n]
	}
	return items
}
