package rankjobs

import "job-recommender/internal/models"

type Input struct {
	CandidateID int64          `json:"candidateId"`
	Profile     models.Profile `json:"profile"`
	JobUniverse []int64        `json:"jobUniverse,omitempty"`
	TopN        int            `json:"topN,omitempty"`
}

type Output struct {
	models.RankResult
	ResultCount int `json:"resultCount"`
}
