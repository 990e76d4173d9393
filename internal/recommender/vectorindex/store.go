// Package vectorindex stores job posting vectors in Elasticsearch and serves
// approximate nearest-neighbour lookups over them.
package vectorindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"job-recommender/internal/common/config"
	"job-recommender/internal/common/logger"
	"job-recommender/internal/common/resilience"
	"job-recommender/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	gobreaker "github.com/sony/gobreaker/v2"
)

const vectorField = "content_vector"

// Document is the indexed form of a job posting.
type Document struct {
	JobID         int64     `json:"job_id"`
	Title         string    `json:"title"`
	Skills        []string  `json:"skills"`
	Description   string    `json:"description"`
	Status        string    `json:"status"`
	ContentVector []float32 `json:"content_vector,omitempty"`
}

// Store is an Elasticsearch dense_vector index of job postings.
type Store struct {
	client  *elasticsearch.Client
	index   string
	dims    int
	breaker *gobreaker.CircuitBreaker[[]models.JobCandidate]
	logger  logger.Logger
}

// NewStore creates a Store over index.
func NewStore(client *elasticsearch.Client, cfg config.ElasticsearchConfig, breaker config.BreakerConfig, log logger.Logger) *Store {
	log = log.WithFields(map[string]interface{}{"component": "vectorindex", "index": cfg.Index})
	return &Store{
		client:  client,
		index:   cfg.Index,
		dims:    cfg.VectorDims,
		breaker: resilience.NewBreaker[[]models.JobCandidate]("vector-search", breaker, log),
		logger:  log,
	}
}

// NearVector returns up to limit postings closest to vector, restricted to the
// given statuses when any are supplied. Distances follow the cosine-distance
// convention: 0 is identical and 2 is opposite.
func (s *Store) NearVector(ctx context.Context, vector []float32, limit int, statuses []string) ([]models.JobCandidate, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("near vector: empty query vector")
	}
	if limit <= 0 {
		return nil, nil
	}
	return s.breaker.Execute(func() ([]models.JobCandidate, error) {
		return s.search(ctx, vector, limit, statuses)
	})
}

func (s *Store) search(ctx context.Context, vector []float32, limit int, statuses []string) ([]models.JobCandidate, error) {
	knn := map[string]interface{}{
		"field":          vectorField,
		"query_vector":   vector,
		"k":              limit,
		"num_candidates": limit * 2,
	}
	if len(statuses) > 0 {
		knn["filter"] = map[string]interface{}{
			"terms": map[string]interface{}{"status": statuses},
		}
	}

	body, err := json.Marshal(map[string]interface{}{
		"knn":     knn,
		"size":    limit,
		"_source": map[string]interface{}{"excludes": []string{vectorField}},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal knn query: %w", err)
	}

	req := esapi.SearchRequest{
		Index: []string{s.index},
		Body:  bytes.NewReader(body),
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return nil, fmt.Errorf("knn search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("knn search failed: %s", res.String())
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode knn response: %w", err)
	}

	out := make([]models.JobCandidate, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		jobID := hit.Source.JobID
		if jobID == 0 {
			if id, err := strconv.ParseInt(hit.ID, 10, 64); err == nil {
				jobID = id
			}
		}
		out = append(out, models.JobCandidate{
			JobID:            jobID,
			Title:            hit.Source.Title,
			Skills:           hit.Source.Skills,
			Description:      hit.Source.Description,
			SemanticDistance: ScoreToDistance(hit.Score),
		})
	}
	return out, nil
}

// ScoreToDistance maps an Elasticsearch cosine similarity score, which is
// (1+cos)/2, to cosine distance 1-cos.
func ScoreToDistance(score float64) float64 {
	d := 2 * (1 - score)
	if d < 0 {
		return 0
	}
	return d
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			ID     string    `json:"_id"`
			Score  float64   `json:"_score"`
			Source sourceDoc `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

type sourceDoc struct {
	JobID       int64     `json:"job_id"`
	Title       string    `json:"title"`
	Skills      skillList `json:"skills"`
	Description string    `json:"description"`
}

// skillList accepts either a JSON array or a comma separated string.
type skillList []string

func (s *skillList) UnmarshalJSON(data []byte) error {
	var arr []string
	if err := json.Unmarshal(data, &arr); err == nil {
		*s = arr
		return nil
	}
	var joined string
	if err := json.Unmarshal(data, &joined); err != nil {
		return err
	}
	var out []string
	for _, p := range strings.Split(joined, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	*s = out
	return nil
}

// Upsert writes doc under its job id.
func (s *Store) Upsert(ctx context.Context, doc Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      s.index,
		DocumentID: strconv.FormatInt(doc.JobID, 10),
		Body:       bytes.NewReader(body),
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("index job %d: %w", doc.JobID, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index job %d failed: %s", doc.JobID, res.String())
	}
	return nil
}

// Delete removes a job's document. A missing document is not an error.
func (s *Store) Delete(ctx context.Context, jobID int64) (bool, error) {
	req := esapi.DeleteRequest{
		Index:      s.index,
		DocumentID: strconv.FormatInt(jobID, 10),
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return false, fmt.Errorf("delete job %d: %w", jobID, err)
	}
	defer res.Body.Close()

	if res.StatusCode == 404 {
		return false, nil
	}
	if res.IsError() {
		return false, fmt.Errorf("delete job %d failed: %s", jobID, res.String())
	}
	return true, nil
}

// EnsureIndex creates the index with a cosine dense_vector mapping when it
// does not exist yet.
func (s *Store) EnsureIndex(ctx context.Context) error {
	exists := esapi.IndicesExistsRequest{Index: []string{s.index}}
	res, err := exists.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("check index %s: %w", s.index, err)
	}
	res.Body.Close()
	if res.StatusCode == 200 {
		return nil
	}

	mapping := map[string]interface{}{
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				"job_id":      map[string]interface{}{"type": "long"},
				"title":       map[string]interface{}{"type": "text"},
				"skills":      map[string]interface{}{"type": "keyword"},
				"description": map[string]interface{}{"type": "text"},
				"status":      map[string]interface{}{"type": "keyword"},
				vectorField: map[string]interface{}{
					"type":       "dense_vector",
					"dims":       s.dims,
					"index":      true,
					"similarity": "cosine",
				},
			},
		},
	}
	body, _ := json.Marshal(mapping)

	create := esapi.IndicesCreateRequest{Index: s.index, Body: bytes.NewReader(body)}
	res, err = create.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("create index %s: %w", s.index, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("create index %s failed: %s", s.index, res.String())
	}
	s.logger.Info("created vector index", map[string]interface{}{"dims": s.dims})
	return nil
}
