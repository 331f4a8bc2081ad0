package httpapi

// rfqSchema validates the inbound submission before it becomes a typed
// RFQRequest. Shape errors are rejected here so untyped data never reaches
// the scoring path.
var rfqSchema = map[string]interface{}{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type":    "object",
	"properties": map[string]interface{}{
		"category":    map[string]interface{}{"type": "string", "maxLength": 200},
		"description": map[string]interface{}{"type": "string", "maxLength": 5000},
		"quantity":    map[string]interface{}{"type": []interface{}{"string", "number"}, "maxLength": 200},
		"budget":      map[string]interface{}{"type": []interface{}{"string", "number"}, "maxLength": 200},
		"deadline":    map[string]interface{}{"type": "string", "format": "date-time"},
		"urgency": map[string]interface{}{
			"type": "string",
			"enum": []interface{}{"low", "normal", "high"},
		},
		"specTags": map[string]interface{}{
			"type":     "array",
			"maxItems": 50,
			"items":    map[string]interface{}{"type": "string", "maxLength": 100},
		},
		"location": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"region":  map[string]interface{}{"type": "string", "maxLength": 100},
				"country": map[string]interface{}{"type": "string", "maxLength": 100},
			},
			"additionalProperties": false,
		},
	},
	"additionalProperties": false,
}
