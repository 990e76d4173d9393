package interactions

import (
	"context"
	"database/sql"
	"fmt"

	apperrors "job-recommender/internal/common/errors"
	"job-recommender/internal/common/logger"
	"job-recommender/internal/common/metrics"
	"job-recommender/internal/models"
)

const (
	selectFeedbackSQL = `
		SELECT candidate_id, job_id, feedback_type, score, created_at
		FROM job_feedback
		ORDER BY created_at ASC`

	feedbackBreakdownSQL = `
		SELECT LOWER(TRIM(feedback_type)) AS feedback_type, COUNT(*)
		FROM job_feedback
		GROUP BY LOWER(TRIM(feedback_type))`
)

// Store is a read-only view over the job_feedback table.
type Store struct {
	db      *sql.DB
	weights models.FeedbackWeights
	logger  logger.Logger
}

// NewStore creates a Store. weights decides which feedback counts as positive.
func NewStore(db *sql.DB, weights models.FeedbackWeights, log logger.Logger) *Store {
	return &Store{
		db:      db,
		weights: weights,
		logger:  log.WithFields(map[string]interface{}{"component": "interactions"}),
	}
}

// Weights returns the feedback weight table the store applies.
func (s *Store) Weights() models.FeedbackWeights {
	return s.weights
}

// Snapshot reads the whole feedback log. Rows with an unknown feedback type
// are skipped and counted.
func (s *Store) Snapshot(ctx context.Context) (*Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, selectFeedbackSQL)
	if err != nil {
		return nil, apperrors.NewInteractionQueryFailedError(err)
	}
	defer rows.Close()

	var (
		records []models.Interaction
		skipped int
	)
	for rows.Next() {
		var (
			in       models.Interaction
			rawType  string
			rawScore sql.NullFloat64
		)
		if err := rows.Scan(&in.CandidateID, &in.JobID, &rawType, &rawScore, &in.CreatedAt); err != nil {
			return nil, apperrors.NewInteractionQueryFailedError(fmt.Errorf("scan feedback row: %w", err))
		}
		ft, err := models.ParseFeedbackType(rawType)
		if err != nil {
			skipped++
			continue
		}
		in.FeedbackType = ft
		if rawScore.Valid {
			score := rawScore.Float64
			in.Score = &score
		}
		records = append(records, in)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInteractionQueryFailedError(err)
	}

	if skipped > 0 {
		metrics.SkippedInteractions.Add(float64(skipped))
		s.logger.Warn("skipped feedback rows with unknown type", map[string]interface{}{
			"skipped": skipped,
		})
	}

	return BuildSnapshot(records, s.weights), nil
}

// FeedbackBreakdown counts stored feedback per type without loading the log.
func (s *Store) FeedbackBreakdown(ctx context.Context) (map[models.FeedbackType]int, int, error) {
	rows, err := s.db.QueryContext(ctx, feedbackBreakdownSQL)
	if err != nil {
		return nil, 0, apperrors.NewInteractionQueryFailedError(err)
	}
	defer rows.Close()

	breakdown := make(map[models.FeedbackType]int)
	total := 0
	for rows.Next() {
		var (
			rawType string
			count   int
		)
		if err := rows.Scan(&rawType, &count); err != nil {
			return nil, 0, apperrors.NewInteractionQueryFailedError(err)
		}
		total += count
		ft, err := models.ParseFeedbackType(rawType)
		if err != nil {
			continue
		}
		breakdown[ft] += count
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperrors.NewInteractionQueryFailedError(err)
	}
	return breakdown, total, nil
}
