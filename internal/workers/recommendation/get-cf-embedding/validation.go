package getcfembedding

func GetInputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":     "object",
		"required": []interface{}{"entityType", "entityId"},
		"properties": map[string]interface{}{
			"entityType": map[string]interface{}{
				"type": "string",
				"enum": []interface{}{"user", "job"},
			},
			"entityId": map[string]interface{}{
				"type":    "integer",
				"minimum": 1,
			},
		},
	}
}
