package llm

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

// ErrNoJSONObject indicates no parseable JSON object could be extracted.
var ErrNoJSONObject = errors.New("no JSON object found in response")

var fencedBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// ExtractJSONObject pulls a JSON object out of raw model output.
// Providers honour JSON-only requests inconsistently, so extraction is
// tiered:
//
//  1. The trimmed response is itself a valid object.
//  2. The response wraps the object in a fenced code block.
//  3. Greedy span from the first '{' to the last '}'.
//
// Only after all tiers fail is the response declared unparseable.
func ExtractJSONObject(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if isJSONObject(trimmed) {
		return trimmed, nil
	}

	for _, match := range fencedBlockRe.FindAllStringSubmatch(trimmed, -1) {
		candidate := strings.TrimSpace(match[1])
		if isJSONObject(candidate) {
			return candidate, nil
		}
	}

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start >= 0 && end > start {
		candidate := trimmed[start : end+1]
		if isJSONObject(candidate) {
			return candidate, nil
		}
	}

	return "", ErrNoJSONObject
}

func isJSONObject(s string) bool {
	if !strings.HasPrefix(s, "{") {
		return false
	}
	var obj map[string]any
	return json.Unmarshal([]byte(s), &obj) == nil
}
