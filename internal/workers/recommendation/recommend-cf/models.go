package recommendcf

import "job-recommender/internal/models"

type Input struct {
	CandidateID int64   `json:"candidateId"`
	JobIDs      []int64 `json:"jobIds,omitempty"`
	TopN        int     `json:"topN,omitempty"`
}

type Output struct {
	Recommendations []models.CFMatch `json:"recommendations"`
	Source          string           `json:"source"`
	ColdStart       bool             `json:"coldStart"`
	ResultCount     int              `json:"resultCount"`
}
