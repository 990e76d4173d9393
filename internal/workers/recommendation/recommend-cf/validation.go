package recommendcf

// GetInputSchema is used when the activity registry has no schema for recommend-cf.
func GetInputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":     "object",
		"required": []interface{}{"candidateId"},
		"properties": map[string]interface{}{
			"candidateId": map[string]interface{}{
				"type":    "integer",
				"minimum": 1,
			},
			"jobIds": map[string]interface{}{
				"type":        "array",
				"items":       map[string]interface{}{"type": "integer", "minimum": 1},
				"uniqueItems": true,
			},
			"topN": map[string]interface{}{
				"type":    "integer",
				"minimum": 1,
			},
		},
	}
}
