package indexjobpostings

import "job-recommender/internal/models"

type Input struct {
	JobIDs          []int64 `json:"jobIds,omitempty"`
	Limit           int     `json:"limit,omitempty"`
	IncludeInactive bool    `json:"includeInactive,omitempty"`
}

type Output struct {
	IndexResult *models.IndexResult `json:"indexResult"`
}
