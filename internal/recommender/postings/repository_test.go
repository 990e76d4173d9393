package postings

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	apperrors "job-recommender/internal/common/errors"
	"job-recommender/internal/common/logger"
	"job-recommender/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func newTestRepository(t *testing.T, db *sql.DB) *Repository {
	return NewRepository(db, []string{"active", " Approved "}, logger.NewTestLogger(t))
}

func postingColumns() []string {
	return []string{"id", "title", "description", "status", "expiration_date"}
}

// ==========================
// ActiveJobIDs Tests
// ==========================

func TestActiveJobIDs(t *testing.T) {
	db, mock := setupMockDB(t)
	mock.ExpectQuery(`SELECT id FROM job_posting WHERE id = ANY\(\$1\)`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3).AddRow(7))

	repo := newTestRepository(t, db)
	assert.Equal(t, []string{"ACTIVE", "APPROVED"}, repo.Statuses())

	active, err := repo.ActiveJobIDs(context.Background(), []int64{3, 5, 7})
	require.NoError(t, err)
	assert.Equal(t, map[int64]struct{}{3: {}, 7: {}}, active)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActiveJobIDs_EmptyInputSkipsQuery(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := newTestRepository(t, db)

	active, err := repo.ActiveJobIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, active)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActiveJobIDs_QueryError(t *testing.T) {
	db, mock := setupMockDB(t)
	mock.ExpectQuery(`SELECT id FROM job_posting`).WillReturnError(errors.New("timeout"))

	_, err := newTestRepository(t, db).ActiveJobIDs(context.Background(), []int64{1})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodePostingQueryFailed))
}

// ==========================
// ListForIndexing Tests
// ==========================

func TestListForIndexing_ByIDs(t *testing.T) {
	db, mock := setupMockDB(t)
	expires := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT (.+) FROM job_posting WHERE id = ANY\(\$1\) ORDER BY id`).
		WillReturnRows(sqlmock.NewRows(postingColumns()).
			AddRow(1, "Backend Engineer", "Go services", "ACTIVE", expires).
			AddRow(2, "Closed Role", "", "closed", nil))
	mock.ExpectQuery(`SELECT jd.job_posting_id, s.name FROM job_descriptions jd JOIN jd_skills s`).
		WillReturnRows(sqlmock.NewRows([]string{"job_posting_id", "name"}).
			AddRow(1, "go").
			AddRow(1, "postgresql").
			AddRow(99, "orphan"))

	postings, err := newTestRepository(t, db).ListForIndexing(context.Background(), []int64{1, 2}, 0)
	require.NoError(t, err)
	require.Len(t, postings, 2)

	assert.Equal(t, []string{"go", "postgresql"}, postings[0].Skills)
	require.NotNil(t, postings[0].ExpirationDate)
	assert.True(t, expires.Equal(*postings[0].ExpirationDate))
	assert.Nil(t, postings[1].ExpirationDate)
	assert.Empty(t, postings[1].Skills)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListForIndexing_ActiveWithLimit(t *testing.T) {
	db, mock := setupMockDB(t)
	mock.ExpectQuery(`SELECT (.+) FROM job_posting WHERE UPPER\(status\) = ANY\(\$1\)`).
		WithArgs(sqlmock.AnyArg(), 50).
		WillReturnRows(sqlmock.NewRows(postingColumns()))

	postings, err := newTestRepository(t, db).ListForIndexing(context.Background(), nil, 50)
	require.NoError(t, err)
	assert.Empty(t, postings)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListForIndexing_Errors(t *testing.T) {
	t.Run("non-positive limit", func(t *testing.T) {
		db, _ := setupMockDB(t)
		_, err := newTestRepository(t, db).ListForIndexing(context.Background(), nil, 0)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})

	t.Run("skills query fails", func(t *testing.T) {
		db, mock := setupMockDB(t)
		mock.ExpectQuery(`FROM job_posting`).
			WillReturnRows(sqlmock.NewRows(postingColumns()).AddRow(1, "t", "d", "ACTIVE", nil))
		mock.ExpectQuery(`FROM job_descriptions`).WillReturnError(errors.New("relation does not exist"))

		_, err := newTestRepository(t, db).ListForIndexing(context.Background(), []int64{1}, 0)
		require.Error(t, err)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodePostingQueryFailed))
	})
}

// ==========================
// IsActive Tests
// ==========================

func TestIsActive(t *testing.T) {
	repo := NewRepository(nil, []string{"ACTIVE"}, logger.NewNoOpLogger())
	today := time.Date(2025, 6, 10, 15, 0, 0, 0, time.UTC)
	date := func(y int, m time.Month, d int) *time.Time {
		v := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		return &v
	}

	tests := []struct {
		name     string
		posting  models.JobPosting
		expected bool
	}{
		{"active future", models.JobPosting{Status: "active", ExpirationDate: date(2025, 7, 1)}, true},
		{"expires today", models.JobPosting{Status: "ACTIVE", ExpirationDate: date(2025, 6, 10)}, true},
		{"expired", models.JobPosting{Status: "ACTIVE", ExpirationDate: date(2025, 6, 9)}, false},
		{"no expiration", models.JobPosting{Status: "ACTIVE"}, false},
		{"inactive status", models.JobPosting{Status: "DRAFT", ExpirationDate: date(2026, 1, 1)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, repo.IsActive(tt.posting, today))
		})
	}
}
