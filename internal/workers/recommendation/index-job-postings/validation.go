package indexjobpostings

func GetInputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"jobIds": map[string]interface{}{
				"type":        "array",
				"items":       map[string]interface{}{"type": "integer", "minimum": 1},
				"uniqueItems": true,
			},
			"limit": map[string]interface{}{
				"type":    "integer",
				"minimum": 1,
			},
			"includeInactive": map[string]interface{}{
				"type": "boolean",
			},
		},
	}
}
