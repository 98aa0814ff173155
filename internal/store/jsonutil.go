package store

import (
	"encoding/json"
	"log/slog"
)

// encodeJSON marshals v, falling back to "null" (never panicking) so a
// corrupt in-memory value can't crash an insert.
func encodeJSON(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		slog.Warn("store_json_encode_failed", slog.String("error", err.Error()))
		return "null"
	}
	return string(raw)
}

// decodeStringSlice parses a JSON string-array column defensively: on
// corruption it logs a warning and returns the empty slice sentinel rather
// than propagating the error, per the engine's "never crash on stored JSON"
// contract.
func decodeStringSlice(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		slog.Warn("store_json_decode_failed", slog.String("column", "string_slice"), slog.String("error", err.Error()))
		return nil
	}
	return out
}

func decodeMap(raw string) map[string]any {
	if raw == "" {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		slog.Warn("store_json_decode_failed", slog.String("column", "map"), slog.String("error", err.Error()))
		return nil
	}
	return out
}
