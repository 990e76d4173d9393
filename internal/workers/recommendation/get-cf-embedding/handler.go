package getcfembedding

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	apperrors "job-recommender/internal/common/errors"
	"job-recommender/internal/common/logger"
	"job-recommender/internal/common/metrics"
	"job-recommender/internal/common/validation"
	"job-recommender/internal/recommender/latentfactor"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "get-cf-embedding"

// EmbeddingSource looks up latent vectors in the live model.
type EmbeddingSource interface {
	Embedding(ctx context.Context, kind latentfactor.EntityKind, id int64) (vec []float64, version int, err error)
}

type Handler struct {
	config       *Config
	source       EmbeddingSource
	schema       *validation.Schema
	errorHandler *apperrors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(cfg *Config, source EmbeddingSource, log logger.Logger) (*Handler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}
	doc := cfg.InputSchema
	if len(doc) == 0 {
		doc = GetInputSchema()
	}
	schema, err := validation.Compile(doc)
	if err != nil {
		return nil, fmt.Errorf("%s input schema: %w", TaskType, err)
	}

	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       cfg,
		source:       source,
		schema:       schema,
		errorHandler: apperrors.NewErrorHandler(log),
		logger:       log,
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	input, err := h.parseInput(job)
	var output *Output
	if err == nil {
		output, err = h.Execute(ctx, input)
	}
	if err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(apperrors.Normalize(err).Code)).Inc()
		h.errorHandler.HandleJobError(context.Background(), client, job, err)
		return
	}

	cmd, err := client.NewCompleteJobCommand().JobKey(job.GetKey()).VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return
	}
	if _, err := cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	variables, err := job.GetVariablesAsMap()
	if err != nil {
		return nil, apperrors.NewInvalidInputError(fmt.Sprintf("parse job variables: %v", err))
	}
	if err := h.schema.Check(variables); err != nil {
		return nil, err
	}

	var input Input
	if err := json.Unmarshal([]byte(job.GetVariables()), &input); err != nil {
		return nil, apperrors.NewInvalidInputError(fmt.Sprintf("decode input: %v", err))
	}
	return &input, nil
}

// Execute fetches one vector. No loaded model fails with MODEL_NOT_FOUND.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, apperrors.NewInvalidInputError("input cannot be nil")
	}
	kind := latentfactor.EntityKind(input.EntityType)
	if kind != latentfactor.EntityUser && kind != latentfactor.EntityJob {
		return nil, apperrors.NewInvalidInputError(fmt.Sprintf("entityType must be %q or %q", latentfactor.EntityUser, latentfactor.EntityJob))
	}
	if input.EntityID <= 0 {
		return nil, apperrors.NewInvalidInputError("entityId must be positive")
	}

	vec, version, err := h.source.Embedding(ctx, kind, input.EntityID)
	if err != nil {
		return nil, err
	}
	if vec == nil {
		vec = []float64{}
	}

	h.logger.Debug("embedding served", map[string]interface{}{
		"entityType":   input.EntityType,
		"entityId":     input.EntityID,
		"modelVersion": version,
		"found":        len(vec) > 0,
	})
	return &Output{
		EntityType:   input.EntityType,
		EntityID:     input.EntityID,
		ModelVersion: version,
		Found:        len(vec) > 0,
		Dimensions:   len(vec),
		Embedding:    vec,
	}, nil
}
