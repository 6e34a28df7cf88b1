package semantic

import (
	"encoding/json"
	"strings"

	"unpack/internal/core/model"
)

// ParseResponse decodes an oracle reply. Surrounding whitespace and one
// markdown code fence are ignored. The payload must be a JSON object with a
// string summary; lists, when present, must be string arrays. Anything else
// becomes a raw-text result and structured is false.
func ParseResponse(raw string) (result model.SemanticResult, structured bool) {
	payload := stripFence(strings.TrimSpace(raw))

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(payload), &fields); err != nil || fields == nil {
		return model.RawSemantic(raw), false
	}

	var summary string
	rawSummary, ok := fields["summary"]
	if !ok || json.Unmarshal(rawSummary, &summary) != nil || string(rawSummary) == "null" {
		return model.RawSemantic(raw), false
	}

	threats, ok := stringList(fields["potentialThreats"])
	if !ok {
		return model.RawSemantic(raw), false
	}
	recs, ok := stringList(fields["recommendations"])
	if !ok {
		return model.RawSemantic(raw), false
	}

	return model.SemanticResult{Summary: summary, PotentialThreats: threats, Recommendations: recs}, true
}

func stringList(raw json.RawMessage) ([]string, bool) {
	if len(raw) == 0 {
		return []string{}, true
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, false
	}
	if out == nil {
		out = []string{}
	}
	return out, true
}

func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	nl := strings.IndexByte(s, '\n')
	if nl < 0 {
		return s
	}
	body := strings.TrimSpace(s[nl+1:])
	body = strings.TrimSuffix(body, "```")
	return strings.TrimSpace(body)
}
