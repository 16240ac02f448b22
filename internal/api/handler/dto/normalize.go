package dto

import (
	"encoding/json"
	"sort"
	"strings"
)

// normalizeKeys rewrites top-level snake_case keys to their camelCase
// form so request payloads are accepted in either convention. Normalizing
// happens once, here; everything past the DTO layer sees camelCase only.
// An existing camelCase key wins over its snake_case twin; when several
// snake_case keys collapse to the same name, the lexicographically first
// wins so the outcome never depends on map iteration order.
func normalizeKeys(data []byte) ([]byte, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(raw))
	for key := range raw {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	norm := make(map[string]json.RawMessage, len(raw))
	for _, key := range keys {
		camel := camelKey(key)
		if camel != key {
			if _, exists := raw[camel]; exists {
				continue
			}
			if _, taken := norm[camel]; taken {
				continue
			}
		}
		norm[camel] = raw[key]
	}

	return json.Marshal(norm)
}

// decodeNormalized runs a payload through key normalization before
// decoding it into the target DTO.
func decodeNormalized(data []byte, v any) error {
	norm, err := normalizeKeys(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(norm, v)
}

func camelKey(key string) string {
	if !strings.Contains(key, "_") {
		return key
	}

	parts := strings.Split(key, "_")
	var b strings.Builder
	for i, part := range parts {
		if part == "" {
			continue
		}
		if i == 0 {
			b.WriteString(part)
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}
	return b.String()
}
