package cf

import (
	"context"

	apperrors "job-recommender/internal/common/errors"
	"job-recommender/internal/common/logger"
	"job-recommender/internal/common/metrics"
	"job-recommender/internal/common/observability"

	"go.opentelemetry.io/otel/attribute"
)

// Chain tries each scorer in order and returns the first usable result.
// Errors are logged and counted, never returned.
type Chain struct {
	scorers []Scorer
	logger  logger.Logger
}

// NewChain builds a chain; order is preference order.
func NewChain(log logger.Logger, scorers ...Scorer) *Chain {
	return &Chain{
		scorers: scorers,
		logger:  log.WithFields(map[string]interface{}{"component": "cf-chain"}),
	}
}

func (c *Chain) Name() string { return "chain" }

// Score never fails; an exhausted chain yields a cold-start result with
// SourceNone.
func (c *Chain) Score(ctx context.Context, candidateID int64, jobIDs []int64, n int) (Result, error) {
	for _, s := range c.scorers {
		if err := ctx.Err(); err != nil {
			break
		}

		spanCtx, span := observability.StartSpan(ctx, "cf."+s.Name(),
			attribute.Int64("candidate.id", candidateID),
			attribute.Int("jobs", len(jobIDs)),
		)
		res, err := s.Score(spanCtx, candidateID, jobIDs, n)
		observability.EndSpan(span, err)

		if err != nil {
			code := apperrors.CodeOf(err)
			metrics.CollaboratorErrors.WithLabelValues("cf_"+s.Name(), string(code)).Inc()
			c.logger.Warn("cf scorer failed, falling back", map[string]interface{}{
				"scorer":      s.Name(),
				"candidateId": candidateID,
				"error":       err.Error(),
			})
			continue
		}
		if !res.Available() {
			c.logger.Debug("cf scorer has no signal", map[string]interface{}{
				"scorer":      s.Name(),
				"candidateId": candidateID,
			})
			continue
		}
		res.Source = s.Name()
		return res, nil
	}
	return coldStart(SourceNone), nil
}
