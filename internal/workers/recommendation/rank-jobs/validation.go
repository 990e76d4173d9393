package rankjobs

// GetInputSchema is used when the activity registry has no schema for rank-jobs.
func GetInputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":     "object",
		"required": []interface{}{"profile"},
		"properties": map[string]interface{}{
			"candidateId": map[string]interface{}{
				"type":        "integer",
				"description": "Candidate id; 0 or absent for anonymous requests",
			},
			"profile": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"skills": map[string]interface{}{
						"type":  "array",
						"items": map[string]interface{}{"type": "string"},
					},
					"title":       map[string]interface{}{"type": "string"},
					"description": map[string]interface{}{"type": "string"},
				},
			},
			"jobUniverse": map[string]interface{}{
				"type":  "array",
				"items": map[string]interface{}{"type": "integer", "minimum": 1},
			},
			"topN": map[string]interface{}{
				"type":    "integer",
				"minimum": 1,
			},
		},
	}
}
