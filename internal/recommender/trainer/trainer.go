// Package trainer rebuilds the latent-factor model from the feedback log and
// reports on the model currently served.
package trainer

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"job-recommender/internal/common/config"
	apperrors "job-recommender/internal/common/errors"
	"job-recommender/internal/common/logger"
	"job-recommender/internal/common/metrics"
	"job-recommender/internal/common/observability"
	"job-recommender/internal/models"
	"job-recommender/internal/recommender/interactions"
	"job-recommender/internal/recommender/latentfactor"
	"job-recommender/internal/recommender/modelstore"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// InteractionSource reads the feedback log.
type InteractionSource interface {
	Snapshot(ctx context.Context) (*interactions.Snapshot, error)
	FeedbackBreakdown(ctx context.Context) (map[models.FeedbackType]int, int, error)
}

// BundleStore persists trained models.
type BundleStore interface {
	Save(ctx context.Context, payload []byte, attrs map[string]string) (modelstore.Metadata, error)
	Path(version int) string
	Exists() bool
}

// CacheInvalidator drops cached embeddings after a swap.
type CacheInvalidator interface {
	Invalidate(ctx context.Context) (int, error)
}

// Notifier announces finished training runs.
type Notifier interface {
	PublishJSON(ctx context.Context, subject string, payload interface{}, attrs map[string]string) (string, error)
}

// Request overrides training parameters; zero values use the configuration.
type Request struct {
	EmbeddingSize int
	LearningRate  float64
	Epochs        int
}

// Trainer is the single writer of the live model.
type Trainer struct {
	source   InteractionSource
	store    BundleStore
	handle   *latentfactor.Handle
	cache    CacheInvalidator
	notifier Notifier
	cfg      config.TrainingConfig
	logger   logger.Logger

	mu sync.Mutex
}

// New creates a Trainer. cache and notifier may be nil.
func New(source InteractionSource, store BundleStore, handle *latentfactor.Handle, cache CacheInvalidator, notifier Notifier, cfg config.TrainingConfig, log logger.Logger) *Trainer {
	return &Trainer{
		source:   source,
		store:    store,
		handle:   handle,
		cache:    cache,
		notifier: notifier,
		cfg:      cfg,
		logger:   log.WithFields(map[string]interface{}{"component": "trainer"}),
	}
}

// Params resolves req against the configured defaults.
func (t *Trainer) Params(req Request) latentfactor.Params {
	p := latentfactor.ParamsFromConfig(t.cfg)
	if req.EmbeddingSize != 0 {
		p.Factors = req.EmbeddingSize
	}
	if req.LearningRate != 0 {
		p.LearningRate = req.LearningRate
	}
	if req.Epochs != 0 {
		p.Epochs = req.Epochs
	}
	return p
}

// Train fits a new model, persists it and swaps it in. Only one run may be in
// flight; a concurrent call fails with TRAINING_IN_PROGRESS. Any failure
// before the bundle is written leaves the served model untouched.
func (t *Trainer) Train(ctx context.Context, req Request) (report *models.TrainingReport, err error) {
	if !t.mu.TryLock() {
		metrics.TrainingRuns.WithLabelValues("rejected").Inc()
		return nil, apperrors.NewTrainingInProgressError()
	}
	defer t.mu.Unlock()

	start := time.Now()
	runID := uuid.NewString()
	params := t.Params(req)

	ctx, span := observability.StartSpan(ctx, "trainer.train",
		attribute.String("run.id", runID),
		attribute.Int("factors", params.Factors),
		attribute.Int("epochs", params.Epochs),
	)
	defer func() {
		observability.EndSpan(span, err)
		status := "success"
		if err != nil {
			status = "failed"
			if apperrors.HasCode(err, apperrors.ErrCodeInsufficientData) {
				status = "insufficient_data"
			}
		}
		metrics.TrainingRuns.WithLabelValues(status).Inc()
	}()

	log := t.logger.WithFields(map[string]interface{}{"runId": runID})
	log.Info("training started", map[string]interface{}{"params": params.String()})

	snap, err := t.source.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	model, err := latentfactor.Fit(ctx, snap, params, log)
	if err != nil {
		return nil, err
	}

	validation := map[string]float64{"final_loss": model.FinalLoss}
	if t.cfg.Validate {
		for k, v := range t.validate(ctx, snap, params, log) {
			validation[k] = v
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	payload, err := model.MarshalBinary()
	if err != nil {
		return nil, apperrors.NewModelPersistFailedError(err)
	}
	meta, err := t.store.Save(ctx, payload, map[string]string{
		"runId":     runID,
		"modelType": latentfactor.ModelType,
		"factors":   strconv.Itoa(params.Factors),
	})
	if err != nil {
		return nil, err
	}
	model.Version = meta.Version
	t.handle.Swap(model)

	if t.cache != nil {
		if _, err := t.cache.Invalidate(ctx); err != nil {
			log.Warn("embedding cache invalidation failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	duration := time.Since(start)
	metrics.TrainingDuration.Observe(duration.Seconds())
	report = &models.TrainingReport{
		RunID:             runID,
		ModelVersion:      meta.Version,
		ModelPath:         t.store.Path(meta.Version),
		NumUsers:          model.NumUsers(),
		NumJobs:           model.NumItems(),
		NumInteractions:   model.NumInteractions,
		EmbeddingSize:     params.Factors,
		LearningRate:      params.LearningRate,
		Epochs:            params.Epochs,
		ValidationMetrics: validation,
		TrainedAt:         model.TrainedAt,
		DurationMs:        duration.Milliseconds(),
	}
	span.SetAttributes(attribute.Int("model.version", meta.Version))

	t.notify(ctx, report, log)
	log.Info("training completed", map[string]interface{}{
		"version":    meta.Version,
		"users":      report.NumUsers,
		"jobs":       report.NumJobs,
		"durationMs": report.DurationMs,
	})
	return report, nil
}

// validate fits a throwaway model with one positive per user held out and
// ranks the held-out jobs. It never fails the run.
func (t *Trainer) validate(ctx context.Context, snap *interactions.Snapshot, params latentfactor.Params, log logger.Logger) map[string]float64 {
	held := LeaveOneOut(snap, rand.New(rand.NewSource(params.Seed)))
	if len(held) == 0 {
		log.Info("no users eligible for validation", nil)
		return nil
	}

	evalModel, err := latentfactor.Fit(ctx, snap.Without(held), params, log)
	if err != nil {
		log.Warn("validation fit failed", map[string]interface{}{"error": err.Error()})
		return nil
	}

	k := t.cfg.EvalK
	ev := latentfactor.Evaluate(evalModel, held, k)
	return map[string]float64{
		fmt.Sprintf("hit_rate@%d", k): ev.HitRate,
		fmt.Sprintf("ndcg@%d", k):     ev.NDCG,
		"validation_users":            float64(ev.Users),
	}
}

func (t *Trainer) notify(ctx context.Context, report *models.TrainingReport, log logger.Logger) {
	if t.notifier == nil {
		return
	}
	msgID, err := t.notifier.PublishJSON(ctx, "recommender model trained", report, map[string]string{
		"modelType":    latentfactor.ModelType,
		"modelVersion": strconv.Itoa(report.ModelVersion),
	})
	if err != nil {
		log.Warn("training notification failed", map[string]interface{}{"error": err.Error()})
		return
	}
	log.Debug("training notification sent", map[string]interface{}{"messageId": msgID})
}

// ModelStats describes the served model and the feedback volume behind it.
func (t *Trainer) ModelStats(ctx context.Context) (*models.ModelStats, error) {
	m := t.handle.Current()
	if m == nil {
		if err := t.handle.Load(ctx); err != nil && !apperrors.HasCode(err, apperrors.ErrCodeModelNotFound) {
			t.logger.Warn("could not load model for stats", map[string]interface{}{"error": err.Error()})
		}
		m = t.handle.Current()
	}

	breakdown, total, err := t.source.FeedbackBreakdown(ctx)
	if err != nil {
		return nil, err
	}
	for _, ft := range models.FeedbackTypes {
		if _, ok := breakdown[ft]; !ok {
			breakdown[ft] = 0
		}
	}

	stats := &models.ModelStats{
		TotalInteractions: total,
		FeedbackBreakdown: breakdown,
		EmbeddingSize:     t.cfg.EmbeddingSize,
		ModelType:         latentfactor.ModelType,
		ModelExists:       t.store.Exists(),
	}
	if m != nil {
		trainedAt := m.TrainedAt
		stats.NumUsers = m.NumUsers()
		stats.NumJobs = m.NumItems()
		stats.EmbeddingSize = m.Factors()
		stats.ModelVersion = m.Version
		stats.ModelPath = t.store.Path(m.Version)
		stats.TrainedAt = &trainedAt
	}
	return stats, nil
}
