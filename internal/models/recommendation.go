package models

import "time"

// Profile is the query side of a ranking request.
type Profile struct {
	Skills      []string `json:"skills"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
}

// JobCandidate is one hit returned by the vector index.
type JobCandidate struct {
	JobID            int64     `json:"jobId"`
	Title            string    `json:"title"`
	Skills           []string  `json:"skills"`
	Description      string    `json:"description"`
	ContentVector    []float32 `json:"contentVector,omitempty"`
	SemanticDistance float64   `json:"semanticDistance"`
}

// JobPosting is a posting row from the relational store.
type JobPosting struct {
	ID             int64      `json:"id"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Status         string     `json:"status"`
	ExpirationDate *time.Time `json:"expirationDate,omitempty"`
	Skills         []string   `json:"skills"`
}

// ContentMatch is a content-scored job with its sub-scores.
type ContentMatch struct {
	JobID              int64    `json:"jobId"`
	Title              string   `json:"title"`
	Skills             []string `json:"skills"`
	Description        string   `json:"description,omitempty"`
	SemanticSimilarity float64  `json:"semanticSimilarity"`
	SkillOverlap       float64  `json:"skillOverlap"`
	TitleBoost         float64  `json:"titleBoost"`
	Score              float64  `json:"score"`
}

// CFMatch is a collaborative score for one job. Score is normalized to
// [0,1]; RawScore keeps the scorer's native value.
type CFMatch struct {
	JobID    int64   `json:"jobId"`
	Score    float64 `json:"score"`
	RawScore float64 `json:"rawScore"`
	Source   string  `json:"source"`
}

// HybridMatch is a content match after blending in collaborative signal.
type HybridMatch struct {
	ContentMatch
	ContentScore float64 `json:"contentScore"`
	CFScore      float64 `json:"cfScore"`
	FinalScore   float64 `json:"finalScore"`
}

// BlendWeights is the content/CF split applied to a request.
type BlendWeights struct {
	Content       float64 `json:"content"`
	Collaborative float64 `json:"collaborative"`
}

// RankResult carries the three parallel rankings of one request.
type RankResult struct {
	RequestID     string         `json:"requestId"`
	ContentBased  []ContentMatch `json:"contentBased"`
	Collaborative []CFMatch      `json:"collaborative"`
	HybridTop     []HybridMatch  `json:"hybridTop"`
	Weights       BlendWeights   `json:"weights"`
	CFSource      string         `json:"cfSource"`
	CFAvailable   bool           `json:"cfAvailable"`
}

// TrainingReport summarizes a successful training run.
type TrainingReport struct {
	RunID             string             `json:"runId"`
	ModelVersion      int                `json:"modelVersion"`
	ModelPath         string             `json:"modelPath"`
	NumUsers          int                `json:"numUsers"`
	NumJobs           int                `json:"numJobs"`
	NumInteractions   int                `json:"numInteractions"`
	EmbeddingSize     int                `json:"embeddingSize"`
	LearningRate      float64            `json:"learningRate"`
	Epochs            int                `json:"epochs"`
	ValidationMetrics map[string]float64 `json:"validationMetrics"`
	TrainedAt         time.Time          `json:"trainedAt"`
	DurationMs        int64              `json:"durationMs"`
}

// ModelStats is a read-only snapshot of model and interaction volume.
type ModelStats struct {
	NumUsers          int                  `json:"numUsers"`
	NumJobs           int                  `json:"numJobs"`
	TotalInteractions int                  `json:"totalInteractions"`
	FeedbackBreakdown map[FeedbackType]int `json:"feedbackBreakdown"`
	EmbeddingSize     int                  `json:"embeddingSize"`
	ModelType         string               `json:"modelType"`
	ModelVersion      int                  `json:"modelVersion"`
	ModelPath         string               `json:"modelPath,omitempty"`
	ModelExists       bool                 `json:"modelExists"`
	TrainedAt         *time.Time           `json:"trainedAt,omitempty"`
}

// IndexResult summarizes a vector index sync.
type IndexResult struct {
	Total        int     `json:"total"`
	Success      int     `json:"success"`
	Failed       int     `json:"failed"`
	FailedJobIDs []int64 `json:"failedJobIds,omitempty"`
	Removed      int     `json:"removed"`
}
