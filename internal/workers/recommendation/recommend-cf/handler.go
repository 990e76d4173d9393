package recommendcf

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	apperrors "job-recommender/internal/common/errors"
	"job-recommender/internal/common/logger"
	"job-recommender/internal/common/metrics"
	"job-recommender/internal/common/validation"
	"job-recommender/internal/models"
	"job-recommender/internal/recommender/cf"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "recommend-cf"

type Handler struct {
	config       *Config
	scorer       cf.Scorer
	schema       *validation.Schema
	errorHandler *apperrors.ErrorHandler
	logger       logger.Logger
}

// NewHandler creates the recommend-cf handler. scorer is usually the CF
// fallback chain, so a candidate unknown to the trained model still gets
// memory-based scores.
func NewHandler(cfg *Config, scorer cf.Scorer, log logger.Logger) (*Handler, error) {
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
		scorer:       scorer,
		schema:       schema,
		errorHandler: apperrors.NewErrorHandler(log),
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

	h.completeJob(client, job, output)
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

// Execute returns the candidate's collaborative top-N. A cold-start candidate
// completes with an empty list and ColdStart set.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, apperrors.NewInvalidInputError("input cannot be nil")
	}
	if input.CandidateID <= 0 {
		return nil, apperrors.NewInvalidInputError("candidateId must be positive")
	}
	topN := input.TopN
	if topN == 0 {
		topN = h.config.DefaultTopN
	}
	if topN < 0 || topN > h.config.MaxTopN {
		return nil, apperrors.NewInvalidInputError(fmt.Sprintf("topN must be between 1 and %d", h.config.MaxTopN))
	}

	res, err := h.scorer.Score(ctx, input.CandidateID, input.JobIDs, topN)
	if err != nil {
		return nil, err
	}

	output := &Output{
		Recommendations: res.Matches,
		Source:          res.Source,
		ColdStart:       !res.Available(),
		ResultCount:     len(res.Matches),
	}
	if output.Recommendations == nil {
		output.Recommendations = []models.CFMatch{}
	}
	h.logger.Info("cf recommendations ready", map[string]interface{}{
		"candidateId": input.CandidateID,
		"source":      output.Source,
		"results":     output.ResultCount,
	})
	return output, nil
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
