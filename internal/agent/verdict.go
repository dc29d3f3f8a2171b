package agent

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/baitline/baitline/internal/intel"
)

// verdict is the JSON object the model is asked to produce.
type verdict struct {
	IsScam     bool        `json:"is_scam"`
	Confidence float64     `json:"confidence"`
	ScamType   string      `json:"scam_type"`
	Extracted  intel.Delta `json:"extracted"`
	Reply      string      `json:"reply"`
	AgentNote  string      `json:"agent_note"`
}

// parseVerdict decodes the model output, tolerating the usual wrapping
// junk (markdown fences, prose before or after the object).
func parseVerdict(raw string) (verdict, error) {
	var v verdict

	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	if err := json.Unmarshal([]byte(cleaned), &v); err == nil {
		return v, clampVerdict(&v)
	}

	// Second pass: cut out the outermost object.
	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start < 0 || end <= start {
		return v, fmt.Errorf("no json object in model output")
	}
	if err := json.Unmarshal([]byte(cleaned[start:end+1]), &v); err != nil {
		return v, fmt.Errorf("decode model output: %w", err)
	}
	return v, clampVerdict(&v)
}

func clampVerdict(v *verdict) error {
	if v.Confidence < 0 {
		v.Confidence = 0
	}
	if v.Confidence > 1 {
		v.Confidence = 1
	}
	v.Reply = strings.TrimSpace(v.Reply)
	return nil
}
