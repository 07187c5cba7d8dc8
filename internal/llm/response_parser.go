package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Decision is the adjudicator's verdict on one candidate pair.
type Decision string

const (
	DecisionMatch     Decision = "match"
	DecisionNoMatch   Decision = "no_match"
	DecisionUncertain Decision = "uncertain"
)

// AdjudicationResponse is the parsed model output for one pair.
type AdjudicationResponse struct {
	Decision      Decision `json:"decision"`
	LinkType      string   `json:"link_type"`
	Confidence    float64  `json:"confidence"`
	Justification string   `json:"justification"`
}

// validLinkTypes mirrors the link_type enum; anything else in a model
// response is a parse failure, handled conservatively by the caller.
var validLinkTypes = map[string]bool{
	"same_referent":        true,
	"orthographic_variant": true,
	"cross_linguistic":     true,
	"derivation":           true,
	"conceptual_overlap":   true,
	"contested_identity":   true,
}

// extractJSON pulls the first JSON object out of a response that may be
// wrapped in markdown fences or surrounded by stray prose. Models add
// both despite instructions.
func extractJSON(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	text = strings.TrimSpace(text)

	start := strings.Index(text, "{")
	if start == -1 {
		return text
	}
	depth := 0
	for i := start; i < len(text); i++ {
		switch text[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return text[start:]
}

// ParseAdjudication parses and validates a model adjudication response.
// Any structural problem is an error; the decision engine maps parse
// errors to the conservative NO_MATCH outcome.
func ParseAdjudication(raw string) (*AdjudicationResponse, error) {
	var resp AdjudicationResponse
	if err := json.Unmarshal([]byte(extractJSON(raw)), &resp); err != nil {
		return nil, fmt.Errorf("failed to parse adjudication response: %w", err)
	}

	switch resp.Decision {
	case DecisionMatch, DecisionNoMatch, DecisionUncertain:
	default:
		return nil, fmt.Errorf("invalid decision %q", resp.Decision)
	}
	if !validLinkTypes[resp.LinkType] {
		return nil, fmt.Errorf("invalid link_type %q", resp.LinkType)
	}
	if resp.Confidence < 0 || resp.Confidence > 1 {
		return nil, fmt.Errorf("confidence %.2f out of range", resp.Confidence)
	}
	return &resp, nil
}
