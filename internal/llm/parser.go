package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// batchResponse is the wire shape we ask providers to return.
type batchResponse struct {
	Suggestions []struct {
		Bucket     string  `json:"bucket"`
		Index      int     `json:"index"`
		Confidence float64 `json:"confidence"`
	} `json:"suggestions"`
}

// parseBatchResponse extracts suggestions from a model response. Models
// sometimes wrap JSON in markdown fences or prose, so the parser carves out
// the outermost object before decoding. Confidences are clamped to
// [0, ceiling]; suggestions with a blank bucket or an index outside the
// requested set are dropped rather than failing the whole batch.
func parseBatchResponse(content string, requested map[int]struct{}, ceiling float64) (map[int]BatchSuggestion, error) {
	raw := extractJSON(content)
	if raw == "" {
		return nil, fmt.Errorf("no JSON object found in response")
	}

	var resp batchResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response JSON: %w", err)
	}

	suggestions := make(map[int]BatchSuggestion, len(resp.Suggestions))
	for _, s := range resp.Suggestions {
		bucket := strings.TrimSpace(s.Bucket)
		if bucket == "" {
			continue
		}
		if _, ok := requested[s.Index]; !ok {
			continue
		}

		confidence := s.Confidence
		if confidence < 0 {
			confidence = 0
		}
		if confidence > ceiling {
			confidence = ceiling
		}

		suggestions[s.Index] = BatchSuggestion{
			Bucket:     bucket,
			Confidence: confidence,
		}
	}

	if len(suggestions) == 0 && len(resp.Suggestions) > 0 {
		return nil, fmt.Errorf("response contained no usable suggestions")
	}
	return suggestions, nil
}

// extractJSON returns the outermost {...} object in content, tolerating
// markdown fences and surrounding prose.
func extractJSON(content string) string {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return ""
	}
	return content[start : end+1]
}
