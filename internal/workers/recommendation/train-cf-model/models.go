package traincfmodel

import "job-recommender/internal/models"

// Input overrides training hyperparameters; zero values use the configured defaults.
type Input struct {
	EmbeddingSize int     `json:"embeddingSize,omitempty"`
	LearningRate  float64 `json:"learningRate,omitempty"`
	Epochs        int     `json:"epochs,omitempty"`
}

type Output struct {
	Status string                 `json:"trainingStatus"`
	Report *models.TrainingReport `json:"trainingReport"`
}
