// Package indexer keeps the vector index in step with the job_posting table.
package indexer

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"job-recommender/internal/common/config"
	apperrors "job-recommender/internal/common/errors"
	"job-recommender/internal/common/logger"
	"job-recommender/internal/common/metrics"
	"job-recommender/internal/models"
	"job-recommender/internal/recommender/vectorindex"

	"golang.org/x/sync/errgroup"
)

// PostingSource loads postings to index.
type PostingSource interface {
	ListForIndexing(ctx context.Context, ids []int64, limit int) ([]models.JobPosting, error)
	IsActive(p models.JobPosting, today time.Time) bool
}

// Index is the write side of the vector index.
type Index interface {
	EnsureIndex(ctx context.Context) error
	Upsert(ctx context.Context, doc vectorindex.Document) error
	Delete(ctx context.Context, jobID int64) (bool, error)
}

// Embedder turns posting text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Request selects what to sync. With JobIDs set only those postings are
// touched: active ones are indexed, missing or inactive ones removed unless
// IncludeInactive is set. Without JobIDs up to Limit active postings are
// indexed.
type Request struct {
	JobIDs          []int64
	Limit           int
	IncludeInactive bool
}

// Indexer syncs postings into the vector index.
type Indexer struct {
	postings PostingSource
	index    Index
	embedder Embedder
	cfg      config.IndexerConfig
	now      func() time.Time
	logger   logger.Logger
}

// New creates an Indexer.
func New(postings PostingSource, index Index, embedder Embedder, cfg config.IndexerConfig, log logger.Logger) *Indexer {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return &Indexer{
		postings: postings,
		index:    index,
		embedder: embedder,
		cfg:      cfg,
		now:      time.Now,
		logger:   log.WithFields(map[string]interface{}{"component": "indexer"}),
	}
}

// DocumentText is the text embedded for a posting: title, skills, description.
func DocumentText(p models.JobPosting) string {
	parts := make([]string, 0, 3)
	for _, s := range []string{p.Title, strings.Join(p.Skills, " "), p.Description} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// Sync runs one synchronisation pass. Per-posting failures are reported in
// the result; only failures to read postings or prepare the index abort it.
func (ix *Indexer) Sync(ctx context.Context, req Request) (*models.IndexResult, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = ix.cfg.BatchLimit
	}

	if err := ix.index.EnsureIndex(ctx); err != nil {
		return nil, apperrors.NewIndexingFailedError(0, err)
	}

	postings, err := ix.postings.ListForIndexing(ctx, req.JobIDs, limit)
	if err != nil {
		return nil, err
	}

	var (
		toIndex  []models.JobPosting
		toRemove []int64
		today    = ix.now()
	)
	found := make(map[int64]struct{}, len(postings))
	for _, p := range postings {
		found[p.ID] = struct{}{}
		if req.IncludeInactive || ix.postings.IsActive(p, today) {
			toIndex = append(toIndex, p)
			continue
		}
		toRemove = append(toRemove, p.ID)
	}
	for _, id := range req.JobIDs {
		if _, ok := found[id]; !ok {
			toRemove = append(toRemove, id)
			found[id] = struct{}{}
		}
	}

	result := &models.IndexResult{Total: len(toIndex)}
	var mu sync.Mutex
	fail := func(jobID int64, err error) {
		mu.Lock()
		defer mu.Unlock()
		result.Failed++
		result.FailedJobIDs = append(result.FailedJobIDs, jobID)
		metrics.IndexedJobs.WithLabelValues("failed").Inc()
		ix.logger.Warn("failed to index posting", map[string]interface{}{
			"jobId": jobID,
			"error": err.Error(),
		})
	}

	g := new(errgroup.Group)
	g.SetLimit(ix.cfg.Concurrency)
	for _, p := range toIndex {
		p := p
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				fail(p.ID, err)
				return nil
			}
			if err := ix.indexOne(ctx, p); err != nil {
				fail(p.ID, err)
				return nil
			}
			mu.Lock()
			result.Success++
			mu.Unlock()
			metrics.IndexedJobs.WithLabelValues("indexed").Inc()
			return nil
		})
	}
	_ = g.Wait()

	for _, id := range toRemove {
		removed, err := ix.index.Delete(ctx, id)
		if err != nil {
			ix.logger.Warn("failed to remove posting from index", map[string]interface{}{
				"jobId": id,
				"error": err.Error(),
			})
			continue
		}
		if removed {
			result.Removed++
			metrics.IndexedJobs.WithLabelValues("removed").Inc()
		}
	}

	sort.Slice(result.FailedJobIDs, func(a, b int) bool { return result.FailedJobIDs[a] < result.FailedJobIDs[b] })
	ix.logger.Info("index sync finished", map[string]interface{}{
		"total":   result.Total,
		"success": result.Success,
		"failed":  result.Failed,
		"removed": result.Removed,
	})
	return result, nil
}

func (ix *Indexer) indexOne(ctx context.Context, p models.JobPosting) error {
	text := DocumentText(p)
	if text == "" {
		return apperrors.NewIndexingFailedError(p.ID, apperrors.NewEmptyQueryError())
	}
	vec, err := ix.embedder.Embed(ctx, text)
	if err != nil {
		return apperrors.NewIndexingFailedError(p.ID, err)
	}
	if len(vec) == 0 {
		return apperrors.NewIndexingFailedError(p.ID, apperrors.NewEmbeddingError(nil))
	}

	doc := vectorindex.Document{
		JobID:         p.ID,
		Title:         p.Title,
		Skills:        p.Skills,
		Description:   p.Description,
		Status:        strings.ToUpper(strings.TrimSpace(p.Status)),
		ContentVector: vec,
	}
	if err := ix.index.Upsert(ctx, doc); err != nil {
		return apperrors.NewIndexingFailedError(p.ID, err)
	}
	return nil
}
