// Package postings reads job postings from Postgres: the active filter used by
// collaborative filtering and the source rows for vector indexing.
package postings

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	apperrors "job-recommender/internal/common/errors"
	"job-recommender/internal/common/logger"
	"job-recommender/internal/models"

	"github.com/lib/pq"
)

const (
	activeJobIDsSQL = `
		SELECT id
		FROM job_posting
		WHERE id = ANY($1)
		  AND UPPER(status) = ANY($2)
		  AND expiration_date >= CURRENT_DATE`

	postingsByIDSQL = `
		SELECT id, title, COALESCE(description, ''), status, expiration_date
		FROM job_posting
		WHERE id = ANY($1)
		ORDER BY id`

	activePostingsSQL = `
		SELECT id, title, COALESCE(description, ''), status, expiration_date
		FROM job_posting
		WHERE UPPER(status) = ANY($1)
		  AND expiration_date >= CURRENT_DATE
		ORDER BY id
		LIMIT $2`

	postingSkillsSQL = `
		SELECT jd.job_posting_id, s.name
		FROM job_descriptions jd
		JOIN jd_skills s ON jd.skill_id = s.id
		WHERE jd.job_posting_id = ANY($1)
		ORDER BY jd.job_posting_id, s.name`
)

// Repository queries the job_posting table.
type Repository struct {
	db       *sql.DB
	statuses []string
	logger   logger.Logger
}

// NewRepository creates a Repository. statuses are the posting states that
// count as active; comparison is case-insensitive.
func NewRepository(db *sql.DB, statuses []string, log logger.Logger) *Repository {
	return &Repository{
		db:       db,
		statuses: upper(statuses),
		logger:   log.WithFields(map[string]interface{}{"component": "postings"}),
	}
}

// Statuses returns the active statuses, upper-cased.
func (r *Repository) Statuses() []string {
	return r.statuses
}

// ActiveJobIDs returns the subset of ids that are active and not expired.
// Postings without an expiration date are treated as expired.
func (r *Repository) ActiveJobIDs(ctx context.Context, ids []int64) (map[int64]struct{}, error) {
	active := make(map[int64]struct{})
	if len(ids) == 0 {
		return active, nil
	}

	rows, err := r.db.QueryContext(ctx, activeJobIDsSQL, pq.Array(ids), pq.Array(r.statuses))
	if err != nil {
		return nil, apperrors.NewPostingQueryFailedError(err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, apperrors.NewPostingQueryFailedError(err)
		}
		active[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewPostingQueryFailedError(err)
	}
	return active, nil
}

// ListForIndexing loads postings with their skills. With ids set it returns
// those postings whatever their status, so the caller can remove inactive ones
// from the index; otherwise it returns up to limit active postings.
func (r *Repository) ListForIndexing(ctx context.Context, ids []int64, limit int) ([]models.JobPosting, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if len(ids) > 0 {
		rows, err = r.db.QueryContext(ctx, postingsByIDSQL, pq.Array(ids))
	} else {
		if limit <= 0 {
			return nil, apperrors.NewInvalidInputError("limit must be positive when no job ids are given")
		}
		rows, err = r.db.QueryContext(ctx, activePostingsSQL, pq.Array(r.statuses), limit)
	}
	if err != nil {
		return nil, apperrors.NewPostingQueryFailedError(err)
	}

	var postings []models.JobPosting
	for rows.Next() {
		var (
			p       models.JobPosting
			expires sql.NullTime
		)
		if err := rows.Scan(&p.ID, &p.Title, &p.Description, &p.Status, &expires); err != nil {
			rows.Close()
			return nil, apperrors.NewPostingQueryFailedError(fmt.Errorf("scan posting row: %w", err))
		}
		if expires.Valid {
			t := expires.Time
			p.ExpirationDate = &t
		}
		postings = append(postings, p)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, apperrors.NewPostingQueryFailedError(err)
	}

	if len(postings) == 0 {
		return postings, nil
	}
	if err := r.attachSkills(ctx, postings); err != nil {
		return nil, err
	}

	r.logger.Debug("loaded postings for indexing", map[string]interface{}{
		"count": len(postings),
	})
	return postings, nil
}

func (r *Repository) attachSkills(ctx context.Context, postings []models.JobPosting) error {
	ids := make([]int64, len(postings))
	index := make(map[int64]int, len(postings))
	for i, p := range postings {
		ids[i] = p.ID
		index[p.ID] = i
	}

	rows, err := r.db.QueryContext(ctx, postingSkillsSQL, pq.Array(ids))
	if err != nil {
		return apperrors.NewPostingQueryFailedError(err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			jobID int64
			name  string
		)
		if err := rows.Scan(&jobID, &name); err != nil {
			return apperrors.NewPostingQueryFailedError(err)
		}
		if i, ok := index[jobID]; ok {
			postings[i].Skills = append(postings[i].Skills, name)
		}
	}
	if err := rows.Err(); err != nil {
		return apperrors.NewPostingQueryFailedError(err)
	}
	return nil
}

// IsActive applies the same rule as ActiveJobIDs to an already loaded posting.
func (r *Repository) IsActive(p models.JobPosting, today time.Time) bool {
	if p.ExpirationDate == nil {
		return false
	}
	y, m, d := today.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, today.Location())
	if p.ExpirationDate.Before(start) {
		return false
	}
	status := strings.ToUpper(strings.TrimSpace(p.Status))
	for _, s := range r.statuses {
		if s == status {
			return true
		}
	}
	return false
}

func upper(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
