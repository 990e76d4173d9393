package getmodelstats

import "job-recommender/internal/models"

type Output struct {
	ModelStats *models.ModelStats `json:"modelStats"`
}
