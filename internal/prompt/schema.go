package prompt

// ResponseSchema is the strict structured-output contract sent with every
// AI request. All properties are listed as required (the strict mode of
// OpenAI-style APIs demands it); optional fields are typed nullable
// instead of omittable, and additionalProperties is disallowed.
func ResponseSchema() map[string]any {
	return map[string]any{
		"name":   "marketplace_query_params",
		"strict": true,
		"schema": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"keywords":          map[string]any{"type": "string"},
				"excluded_keywords": map[string]any{"type": []string{"string", "null"}},
				"category_id":       map[string]any{"type": []string{"string", "null"}},
				"max_search_results": map[string]any{
					"type": "string",
					"enum": []string{"60", "120", "240"},
				},
				"remove_outliers": map[string]any{"type": "boolean"},
				"site_id":         map[string]any{"type": "string"},
				"aspects": map[string]any{
					"type": []string{"array", "null"},
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"name":  map[string]any{"type": "string"},
							"value": map[string]any{"type": "string"},
						},
						"required":             []string{"name", "value"},
						"additionalProperties": false,
					},
				},
				"confidence": map[string]any{"type": "number"},
			},
			"required": []string{
				"keywords", "excluded_keywords", "category_id",
				"max_search_results", "remove_outliers", "site_id",
				"aspects", "confidence",
			},
			"additionalProperties": false,
		},
	}
}
