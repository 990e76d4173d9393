package rankjobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	apperrors "job-recommender/internal/common/errors"
	"job-recommender/internal/common/logger"
	"job-recommender/internal/common/metrics"
	"job-recommender/internal/common/observability"
	"job-recommender/internal/common/validation"
	"job-recommender/internal/models"
	"job-recommender/internal/recommender/hybrid"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "rank-jobs"

// Ranker produces the hybrid ranking for one request.
type Ranker interface {
	Rank(ctx context.Context, req hybrid.Request) (*models.RankResult, error)
}

type Handler struct {
	config       *Config
	ranker       Ranker
	schema       *validation.Schema
	errorHandler *apperrors.ErrorHandler
	obs          *observability.Observability
	logger       logger.Logger
}

// NewHandler creates the rank-jobs handler. obs may be nil.
func NewHandler(cfg *Config, ranker Ranker, obs *observability.Observability, log logger.Logger) (*Handler, error) {
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
		ranker:       ranker,
		schema:       schema,
		errorHandler: apperrors.NewErrorHandler(log),
		obs:          obs,
		logger:       log,
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.GetKey(),
		"workflowKey": job.GetProcessInstanceKey(),
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.process(ctx, job)
	status := "completed"
	if err != nil {
		status = "failed"
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(apperrors.Normalize(err).Code)).Inc()
		h.errorHandler.HandleJobError(context.Background(), client, job, err)
	} else {
		h.completeJob(client, job, output)
		metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	}

	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	h.obs.RecordJobProcessed(ctx, TaskType, status)
	h.obs.RecordJobDuration(ctx, TaskType, time.Since(start), status)
}

func (h *Handler) process(ctx context.Context, job entities.Job) (*Output, error) {
	input, err := h.parseInput(job)
	if err != nil {
		return nil, err
	}
	return h.Execute(ctx, input)
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

// Execute ranks jobs for input.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, apperrors.NewInvalidInputError("input cannot be nil")
	}
	if input.TopN < 0 || input.TopN > h.config.MaxTopN {
		return nil, apperrors.NewInvalidInputError(fmt.Sprintf("topN must be between 1 and %d", h.config.MaxTopN))
	}

	result, err := h.ranker.Rank(ctx, hybrid.Request{
		CandidateID: input.CandidateID,
		Profile:     input.Profile,
		JobUniverse: input.JobUniverse,
		TopN:        input.TopN,
	})
	if err != nil {
		return nil, err
	}

	h.logger.Info("ranking completed", map[string]interface{}{
		"requestId":   result.RequestID,
		"candidateId": input.CandidateID,
		"results":     len(result.HybridTop),
		"cfSource":    result.CFSource,
	})
	return &Output{RankResult: *result, ResultCount: len(result.HybridTop)}, nil
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.GetKey()).
		VariablesFromObject(output)
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
	}
}
