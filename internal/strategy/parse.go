package strategy

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hexclash/arena/pkg/arena"
)

// ParseDecision extracts a Decision from a model reply. Models wrap JSON in
// code fences or preamble often enough that we cut out the outermost object
// before unmarshalling. Structural validity is the guardrail layer's job;
// this only demands well-formed JSON with a prediction present.
func ParseDecision(raw string) (arena.Decision, error) {
	body, err := extractObject(raw)
	if err != nil {
		return arena.Decision{}, err
	}

	var d arena.Decision
	if err := json.Unmarshal([]byte(body), &d); err != nil {
		return arena.Decision{}, fmt.Errorf("decode decision: %w", err)
	}
	if d.Prediction.Asset == "" && d.Prediction.Direction == "" {
		return arena.Decision{}, fmt.Errorf("decision missing prediction")
	}
	return d, nil
}

// extractObject returns the first balanced top-level JSON object in s.
func extractObject(s string) (string, error) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", fmt.Errorf("no JSON object in reply")
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], nil
			}
		}
	}
	return "", fmt.Errorf("unterminated JSON object in reply")
}
