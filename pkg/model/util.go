package model

import "encoding/json"

// parseJSONObject decodes a JSON object string into a map, returning
// an empty map (never an error) on malformed input — function-calling
// argument parsing must degrade gracefully, never block a turn.
func parseJSONObject(raw string) (map[string]any, error) {
	if raw == "" {
		return map[string]any{}, nil
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return map[string]any{}, nil
	}
	return out, nil
}
