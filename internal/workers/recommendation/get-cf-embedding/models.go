package getcfembedding

type Input struct {
	EntityType string `json:"entityType"`
	EntityID   int64  `json:"entityId"`
}

// Output carries the latent vector. Found is false, with an empty vector,
// when the entity had no interactions in the training data.
type Output struct {
	EntityType   string    `json:"entityType"`
	EntityID     int64     `json:"entityId"`
	ModelVersion int       `json:"modelVersion"`
	Found        bool      `json:"found"`
	Dimensions   int       `json:"dimensions"`
	Embedding    []float64 `json:"embedding"`
}
