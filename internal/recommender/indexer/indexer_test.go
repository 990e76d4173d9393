package indexer

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"job-recommender/internal/common/config"
	apperrors "job-recommender/internal/common/errors"
	"job-recommender/internal/common/logger"
	"job-recommender/internal/models"
	"job-recommender/internal/recommender/vectorindex"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

type fakePostings struct {
	postings []models.JobPosting
	err      error
	gotIDs   []int64
	gotLimit int
}

func (f *fakePostings) ListForIndexing(ctx context.Context, ids []int64, limit int) ([]models.JobPosting, error) {
	f.gotIDs = ids
	f.gotLimit = limit
	return f.postings, f.err
}

func (f *fakePostings) IsActive(p models.JobPosting, today time.Time) bool {
	return strings.EqualFold(p.Status, "active")
}

type fakeIndex struct {
	mu        sync.Mutex
	ensureErr error
	upsertErr map[int64]error
	docs      map[int64]vectorindex.Document
	present   map[int64]bool
	deleted   []int64
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{
		upsertErr: map[int64]error{},
		docs:      map[int64]vectorindex.Document{},
		present:   map[int64]bool{},
	}
}

func (f *fakeIndex) EnsureIndex(ctx context.Context) error { return f.ensureErr }

func (f *fakeIndex) Upsert(ctx context.Context, doc vectorindex.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.upsertErr[doc.JobID]; err != nil {
		return err
	}
	f.docs[doc.JobID] = doc
	return nil
}

func (f *fakeIndex) Delete(ctx context.Context, jobID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, jobID)
	ok := f.present[jobID]
	delete(f.present, jobID)
	return ok, nil
}

type fakeEmbedder struct {
	mu    sync.Mutex
	fail  map[string]bool
	texts []string
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	if f.fail[text] {
		return nil, errors.New("model unavailable")
	}
	return []float32{0.1, 0.2}, nil
}

func testConfig() config.IndexerConfig {
	return config.IndexerConfig{Concurrency: 2, BatchLimit: 100}
}

// ==========================
// Core Functionality Tests
// ==========================

func TestSync_IndexesActivePostings(t *testing.T) {
	postings := &fakePostings{postings: []models.JobPosting{
		{ID: 1, Title: "Backend Engineer", Skills: []string{"go", "sql"}, Description: "APIs", Status: "active"},
		{ID: 2, Title: "Data Engineer", Skills: []string{"python"}, Status: "Active"},
	}}
	idx := newFakeIndex()
	ix := New(postings, idx, &fakeEmbedder{}, testConfig(), logger.NewTestLogger(t))

	result, err := ix.Sync(context.Background(), Request{})
	require.NoError(t, err)

	assert.Equal(t, &models.IndexResult{Total: 2, Success: 2}, result)
	assert.Equal(t, 100, postings.gotLimit, "default limit from config")
	require.Contains(t, idx.docs, int64(1))
	assert.Equal(t, "ACTIVE", idx.docs[2].Status)
	assert.Equal(t, []float32{0.1, 0.2}, idx.docs[1].ContentVector)
}

func TestSync_PartialFailure(t *testing.T) {
	postings := &fakePostings{postings: []models.JobPosting{
		{ID: 3, Title: "A", Status: "active"},
		{ID: 1, Title: "B", Status: "active"},
		{ID: 2, Title: "C", Status: "active"},
		{ID: 4, Status: "active"},
	}}
	idx := newFakeIndex()
	idx.upsertErr[2] = errors.New("mapping conflict")
	emb := &fakeEmbedder{fail: map[string]bool{"A": true}}
	ix := New(postings, idx, emb, testConfig(), logger.NewTestLogger(t))

	result, err := ix.Sync(context.Background(), Request{Limit: 10})
	require.NoError(t, err)

	assert.Equal(t, 4, result.Total)
	assert.Equal(t, 1, result.Success)
	assert.Equal(t, 3, result.Failed)
	assert.Equal(t, []int64{2, 3, 4}, result.FailedJobIDs, "sorted, empty text fails")
	assert.Equal(t, 10, postings.gotLimit)
}

func TestSync_RemovesMissingAndInactive(t *testing.T) {
	postings := &fakePostings{postings: []models.JobPosting{
		{ID: 1, Title: "Open", Status: "active"},
		{ID: 2, Title: "Closed", Status: "closed"},
	}}
	idx := newFakeIndex()
	idx.present[2] = true
	idx.present[3] = true
	ix := New(postings, idx, &fakeEmbedder{}, testConfig(), logger.NewTestLogger(t))

	result, err := ix.Sync(context.Background(), Request{JobIDs: []int64{1, 2, 3, 4}})
	require.NoError(t, err)

	assert.Equal(t, []int64{1, 2, 3, 4}, postings.gotIDs)
	assert.Equal(t, 1, result.Success)
	assert.Equal(t, 2, result.Removed, "job 4 was never indexed")
	assert.ElementsMatch(t, []int64{2, 3, 4}, idx.deleted)
	assert.NotContains(t, idx.docs, int64(2))
}

func TestSync_IncludeInactive(t *testing.T) {
	postings := &fakePostings{postings: []models.JobPosting{
		{ID: 2, Title: "Closed", Status: "closed"},
	}}
	idx := newFakeIndex()
	ix := New(postings, idx, &fakeEmbedder{}, testConfig(), logger.NewTestLogger(t))

	result, err := ix.Sync(context.Background(), Request{JobIDs: []int64{2}, IncludeInactive: true})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Success)
	assert.Equal(t, "CLOSED", idx.docs[2].Status)
	assert.Empty(t, idx.deleted)
}

func TestSync_Errors(t *testing.T) {
	t.Run("ensure index fails", func(t *testing.T) {
		idx := newFakeIndex()
		idx.ensureErr = errors.New("cluster red")
		ix := New(&fakePostings{}, idx, &fakeEmbedder{}, testConfig(), logger.NewTestLogger(t))

		_, err := ix.Sync(context.Background(), Request{})
		require.Error(t, err)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeIndexingFailed))
	})

	t.Run("posting query fails", func(t *testing.T) {
		postings := &fakePostings{err: apperrors.NewPostingQueryFailedError(errors.New("timeout"))}
		ix := New(postings, newFakeIndex(), &fakeEmbedder{}, testConfig(), logger.NewTestLogger(t))

		_, err := ix.Sync(context.Background(), Request{})
		require.Error(t, err)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodePostingQueryFailed))
	})
}

// ==========================
// Helper Function Tests
// ==========================

func TestDocumentText(t *testing.T) {
	tests := []struct {
		name     string
		posting  models.JobPosting
		expected string
	}{
		{"all fields", models.JobPosting{Title: "Engineer", Skills: []string{"go", "sql"}, Description: "build"}, "Engineer go sql build"},
		{"no skills", models.JobPosting{Title: "Engineer", Description: "build"}, "Engineer build"},
		{"only description", models.JobPosting{Description: " build "}, "build"},
		{"empty", models.JobPosting{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DocumentText(tt.posting))
		})
	}
}
