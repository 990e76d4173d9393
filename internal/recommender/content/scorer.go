// Package content scores job postings against a profile by semantic
// similarity, skill overlap and shared title terms.
package content

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"
	"time"

	"job-recommender/internal/common/config"
	apperrors "job-recommender/internal/common/errors"
	"job-recommender/internal/common/logger"
	"job-recommender/internal/common/metrics"
	"job-recommender/internal/common/observability"
	"job-recommender/internal/models"
	"job-recommender/internal/recommender/skills"

	"go.opentelemetry.io/otel/attribute"
)

// minRetrievalMultiplier keeps enough ANN headroom for threshold filtering.
const minRetrievalMultiplier = 3

// Embedder turns text into a semantic vector. Blank text yields a nil vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Retriever returns the postings nearest to a vector.
type Retriever interface {
	NearVector(ctx context.Context, vector []float32, limit int, statuses []string) ([]models.JobCandidate, error)
}

// Options are the per-request scoring knobs.
type Options struct {
	TopN         int
	Weights      config.FieldWeights
	SkillWeight  float64
	MinThreshold float64
}

// Scorer implements content-based recommendation.
type Scorer struct {
	embedder  Embedder
	retriever Retriever
	policy    config.RecommenderConfig
	timeout   time.Duration
	logger    logger.Logger
}

// NewScorer creates a content Scorer. policy supplies the retrieval
// multiplier, title boost, zero-overlap penalty, status filter and the
// per-call collaborator timeout.
func NewScorer(embedder Embedder, retriever Retriever, policy config.RecommenderConfig, log logger.Logger) *Scorer {
	if policy.RetrievalMultiplier < minRetrievalMultiplier {
		policy.RetrievalMultiplier = minRetrievalMultiplier
	}
	policy.ActiveStatuses = normalizeStatuses(policy.ActiveStatuses)
	return &Scorer{
		embedder:  embedder,
		retriever: retriever,
		policy:    policy,
		timeout:   config.GetDuration(policy.CollaboratorTimeout),
		logger:    log.WithFields(map[string]interface{}{"component": "content"}),
	}
}

// normalizeStatuses matches the indexer, which stores statuses upper-cased.
func normalizeStatuses(in []string) []string {
	out := make([]string, 0, len(in))
	for _, st := range in {
		if st = strings.ToUpper(strings.TrimSpace(st)); st != "" {
			out = append(out, st)
		}
	}
	return out
}

// DefaultOptions returns the configured defaults for a request of size topN.
func (s *Scorer) DefaultOptions(topN int) Options {
	return Options{
		TopN:         topN,
		Weights:      s.policy.FieldWeights,
		SkillWeight:  s.policy.SkillWeight,
		MinThreshold: s.policy.MinThreshold,
	}
}

// Recommend returns up to opts.TopN postings ranked by content score.
func (s *Scorer) Recommend(ctx context.Context, profile models.Profile, opts Options) (matches []models.ContentMatch, err error) {
	if opts.TopN <= 0 {
		return nil, apperrors.NewInvalidInputError("topN must be positive")
	}
	if opts.SkillWeight < 0 || opts.SkillWeight > 1 {
		return nil, apperrors.NewInvalidInputError("skillWeight must be within [0,1]")
	}

	text, err := WeightedText(profile, opts.Weights)
	if err != nil {
		return nil, err
	}
	if text == "" {
		return nil, apperrors.NewEmptyQueryError()
	}

	ctx, span := observability.StartSpan(ctx, "content.recommend",
		attribute.Int("top_n", opts.TopN))
	defer func() { observability.EndSpan(span, err) }()

	vector, err := s.embed(ctx, text)
	if err != nil {
		return nil, err
	}

	limit := opts.TopN * s.policy.RetrievalMultiplier
	candidates, err := s.retrieve(ctx, vector, limit)
	if err != nil {
		return nil, err
	}

	matches = s.Rank(profile, candidates, opts)
	span.SetAttributes(
		attribute.Int("candidates", len(candidates)),
		attribute.Int("matches", len(matches)),
	)
	s.logger.Debug("content scoring complete", map[string]interface{}{
		"retrieved": len(candidates),
		"returned":  len(matches),
	})
	return matches, nil
}

// Rank scores already-retrieved candidates, drops those below the threshold
// and returns the best opts.TopN. A job retrieved twice keeps its closest hit.
func (s *Scorer) Rank(profile models.Profile, candidates []models.JobCandidate, opts Options) []models.ContentMatch {
	best := make(map[int64]models.ContentMatch, len(candidates))
	for _, cand := range candidates {
		m := s.score(profile, cand, opts.SkillWeight)
		if m.Score < opts.MinThreshold {
			continue
		}
		if prev, ok := best[m.JobID]; ok && prev.Score >= m.Score {
			continue
		}
		best[m.JobID] = m
	}

	out := make([]models.ContentMatch, 0, len(best))
	for _, m := range best {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].JobID < out[j].JobID
	})
	if len(out) > opts.TopN {
		out = out[:opts.TopN]
	}
	return out
}

func (s *Scorer) score(profile models.Profile, cand models.JobCandidate, skillWeight float64) models.ContentMatch {
	semantic := SemanticSimilarity(cand.SemanticDistance)
	overlap := skills.RecallScore(profile.Skills, cand.Skills)
	base := (1-skillWeight)*semantic + skillWeight*overlap

	m := models.ContentMatch{
		JobID:              cand.JobID,
		Title:              cand.Title,
		Skills:             cand.Skills,
		Description:        cand.Description,
		SemanticSimilarity: semantic,
		SkillOverlap:       overlap,
	}
	if overlap == 0 {
		m.Score = base * s.policy.ZeroOverlapPenalty
		return m
	}
	m.TitleBoost = TitleBoost(profile.Title, cand.Title, s.policy.TitleBoostPerToken, s.policy.TitleBoostCap)
	m.Score = base + m.TitleBoost
	return m
}

func (s *Scorer) embed(ctx context.Context, text string) ([]float32, error) {
	callCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	vector, err := s.embedder.Embed(callCtx, text)
	if err != nil {
		var stdErr *apperrors.StandardError
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			stdErr = apperrors.NewEmbeddingTimeoutError(s.timeout, err)
		} else {
			stdErr = apperrors.NewEmbeddingError(err)
		}
		metrics.CollaboratorErrors.WithLabelValues("embedding", string(stdErr.Code)).Inc()
		return nil, stdErr
	}
	if len(vector) == 0 {
		metrics.CollaboratorErrors.WithLabelValues("embedding", string(apperrors.ErrCodeEmbeddingFailed)).Inc()
		return nil, apperrors.NewEmbeddingError(errors.New("embedding service returned no vector"))
	}
	return vector, nil
}

func (s *Scorer) retrieve(ctx context.Context, vector []float32, limit int) ([]models.JobCandidate, error) {
	callCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	candidates, err := s.retriever.NearVector(callCtx, vector, limit, s.policy.ActiveStatuses)
	if err != nil {
		var stdErr *apperrors.StandardError
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			stdErr = apperrors.NewRetrievalTimeoutError(s.timeout, err)
		} else {
			stdErr = apperrors.NewRetrievalError(err)
		}
		metrics.CollaboratorErrors.WithLabelValues("vector_search", string(stdErr.Code)).Inc()
		return nil, stdErr
	}
	return candidates, nil
}

func (s *Scorer) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// WeightedText repeats each non-empty profile field floor(weight*10) times
// and joins the parts with spaces. Skills render as "a, b, c".
func WeightedText(profile models.Profile, weights config.FieldWeights) (string, error) {
	if weights.Skills < 0 || weights.Title < 0 || weights.Description < 0 {
		return "", apperrors.NewInvalidInputError("field weights must be non-negative")
	}

	var parts []string
	add := func(text string, weight float64) {
		text = strings.TrimSpace(text)
		if text == "" {
			return
		}
		for i := 0; i < repeats(weight); i++ {
			parts = append(parts, text)
		}
	}

	add(joinSkills(profile.Skills), weights.Skills)
	add(profile.Title, weights.Title)
	add(profile.Description, weights.Description)
	return strings.Join(parts, " "), nil
}

func repeats(weight float64) int {
	return int(math.Floor(weight*10 + 1e-9))
}

func joinSkills(list []string) string {
	cleaned := make([]string, 0, len(list))
	for _, s := range list {
		if s = strings.TrimSpace(s); s != "" {
			cleaned = append(cleaned, s)
		}
	}
	return strings.Join(cleaned, ", ")
}

// SemanticSimilarity maps cosine distance in [0,2] onto [0,1].
func SemanticSimilarity(distance float64) float64 {
	return math.Max(0, math.Min(1, (2-distance)/2))
}

// TitleBoost awards perToken for every lowercase whitespace token the two
// titles share, capped at limit.
func TitleBoost(queryTitle, jobTitle string, perToken, limit float64) float64 {
	query := strings.Fields(strings.ToLower(queryTitle))
	if len(query) == 0 {
		return 0
	}
	job := make(map[string]struct{})
	for _, tok := range strings.Fields(strings.ToLower(jobTitle)) {
		job[tok] = struct{}{}
	}

	shared := make(map[string]struct{})
	for _, tok := range query {
		if _, ok := job[tok]; ok {
			shared[tok] = struct{}{}
		}
	}
	return math.Min(perToken*float64(len(shared)), limit)
}
