package extractor

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/inquira/kgraph/domain/extraction"
)

// ErrUnparseable indicates the model response contained no usable JSON.
var ErrUnparseable = errors.New("unparseable extraction response")

// responsePayload mirrors the JSON shape the system prompt asks for.
type responsePayload struct {
	Entities []struct {
		Type       string         `json:"type"`
		Name       string         `json:"name"`
		Attributes map[string]any `json:"attributes"`
		Confidence float64        `json:"confidence"`
	} `json:"entities"`
	Relationships []struct {
		Type       string         `json:"type"`
		Source     string         `json:"source"`
		Target     string         `json:"target"`
		Attributes map[string]any `json:"attributes"`
	} `json:"relationships"`
}

// ParseResponse parses a model completion into candidates. Models wrap JSON
// in markdown fences or prose often enough that the parser extracts the
// outermost JSON object rather than requiring a clean body. Candidates with
// an empty name or type are dropped here; schema validation happens later.
func ParseResponse(raw string) (extraction.Candidates, error) {
	body, ok := extractJSONObject(raw)
	if !ok {
		return extraction.Candidates{}, fmt.Errorf("%w: no JSON object found", ErrUnparseable)
	}

	var payload responsePayload
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return extraction.Candidates{}, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}

	var out extraction.Candidates
	for _, e := range payload.Entities {
		name := strings.TrimSpace(e.Name)
		typ := strings.TrimSpace(e.Type)
		if name == "" || typ == "" {
			continue
		}
		out.Entities = append(out.Entities, extraction.EntityCandidate{
			Type:       typ,
			Name:       name,
			Attributes: e.Attributes,
			Confidence: e.Confidence,
		})
	}
	for _, r := range payload.Relationships {
		typ := strings.TrimSpace(r.Type)
		source := strings.TrimSpace(r.Source)
		target := strings.TrimSpace(r.Target)
		if typ == "" || source == "" || target == "" {
			continue
		}
		out.Relationships = append(out.Relationships, extraction.RelationshipCandidate{
			Type:       typ,
			SourceName: source,
			TargetName: target,
			Attributes: r.Attributes,
		})
	}
	return out, nil
}

// extractJSONObject returns the substring from the first '{' to the matching
// closing brace, tracking strings so braces inside values do not miscount.
func extractJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
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
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
