package traincfmodel

func GetInputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"embeddingSize": map[string]interface{}{
				"type":    "integer",
				"minimum": 1,
				"maximum": 1024,
			},
			"learningRate": map[string]interface{}{
				"type":    "number",
				"minimum": 0,
				"maximum": 1,
			},
			"epochs": map[string]interface{}{
				"type":    "integer",
				"minimum": 1,
				"maximum": 10000,
			},
		},
	}
}
