package http

import (
	"net/url"
	"strings"
)

// queryInput keeps the first non-blank value of every key.
func queryInput(values url.Values) map[string]interface{} {
	input := make(map[string]interface{}, len(values))
	for key, vs := range values {
		if len(vs) == 0 {
			continue
		}
		if v := strings.TrimSpace(vs[0]); v != "" {
			input[key] = v
		}
	}
	return input
}

// dropBlank removes empty strings and nulls so they fall back to base values.
func dropBlank(input map[string]interface{}) map[string]interface{} {
	for key, v := range input {
		switch val := v.(type) {
		case nil:
			delete(input, key)
		case string:
			if strings.TrimSpace(val) == "" {
				delete(input, key)
			}
		}
	}
	return input
}
