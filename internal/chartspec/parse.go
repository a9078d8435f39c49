package chartspec

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

var jsonFencePattern = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// Parse extracts a chart spec from raw model output. It tolerates
// markdown fences, surrounding prose and mildly broken JSON, repairing
// the latter before giving up.
func Parse(raw string) (Spec, error) {
	text := strings.TrimSpace(raw)
	if match := jsonFencePattern.FindStringSubmatch(text); match != nil {
		text = strings.TrimSpace(match[1])
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return Spec{}, fmt.Errorf("no JSON object in response")
	}
	text = text[start : end+1]

	var spec Spec
	if err := json.Unmarshal([]byte(text), &spec); err == nil {
		return spec, nil
	}

	repaired, err := jsonrepair.JSONRepair(text)
	if err != nil {
		return Spec{}, fmt.Errorf("response is not valid JSON and could not be repaired: %w", err)
	}
	if err := json.Unmarshal([]byte(repaired), &spec); err != nil {
		return Spec{}, fmt.Errorf("repaired response is still not a chart spec: %w", err)
	}
	return spec, nil
}
