package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// reviewEnvelope is the JSON structure providers are prompted to return.
type reviewEnvelope struct {
	Summary  string `json:"summary"`
	Findings []struct {
		File     string `json:"file"`
		Severity string `json:"severity"`
		Comment  string `json:"comment"`
	} `json:"findings"`
}

// normalizeResponse turns a raw model response into review markdown.
// Models wrap JSON in code fences, truncate it at token limits, or drift
// from the schema in small ways, so unmarshalling falls back to the
// jsonrepair library before the response is declared malformed.
func normalizeResponse(raw string) (string, error) {
	jsonStr := extractJSON(raw)
	if jsonStr == "" {
		return "", &ProviderError{
			Kind: KindMalformed,
			Err:  fmt.Errorf("no JSON object found in model response (%d chars)", len(raw)),
		}
	}

	var env reviewEnvelope
	if err := json.Unmarshal([]byte(jsonStr), &env); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(jsonStr)
		if repairErr != nil {
			return "", &ProviderError{
				Kind: KindMalformed,
				Err:  fmt.Errorf("unparseable model response: %w", err),
			}
		}
		if err := json.Unmarshal([]byte(repaired), &env); err != nil {
			return "", &ProviderError{
				Kind: KindMalformed,
				Err:  fmt.Errorf("model response unparseable even after repair: %w", err),
			}
		}
	}

	return renderEnvelope(env), nil
}

// extractJSON pulls the JSON object out of a response that may wrap it in
// a markdown code fence or surround it with prose.
func extractJSON(response string) string {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start == -1 {
		return ""
	}
	if end <= start {
		// Truncated object: keep everything from the opening brace and
		// let the repair pass close it.
		return response[start:]
	}
	return response[start : end+1]
}

// renderEnvelope renders the structured review as markdown.
func renderEnvelope(env reviewEnvelope) string {
	var sb strings.Builder

	if env.Summary != "" {
		sb.WriteString(strings.TrimSpace(env.Summary))
		sb.WriteString("\n")
	}

	for _, f := range env.Findings {
		if f.Comment == "" {
			continue
		}
		sb.WriteString("\n")
		sev := strings.ToLower(strings.TrimSpace(f.Severity))
		switch sev {
		case "critical", "warning", "info":
		default:
			sev = "info"
		}
		if f.File != "" {
			sb.WriteString(fmt.Sprintf("- **%s** `%s`: %s\n", sev, f.File, strings.TrimSpace(f.Comment)))
		} else {
			sb.WriteString(fmt.Sprintf("- **%s**: %s\n", sev, strings.TrimSpace(f.Comment)))
		}
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		text = "No issues found in this part of the diff."
	}
	return text
}
