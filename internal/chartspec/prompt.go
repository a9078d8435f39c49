package chartspec

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ridepulse/ridepulse/internal/engine"
)

// PromptBuilder renders the chart spec generation and correction
// prompts from the question and the shape of the query result.
type PromptBuilder struct{}

func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

const specRules = `Spec format (JSON only, no markdown, no explanation):
{
  "type": "line | bar | scatter | histogram | box | heatmap | none",
  "title": "short chart title",
  "x": {"col": "column_name", "dtype": "datetime | category | number", "sort": true},
  "y": "column_name",
  "series": "column_name or null",
  "top_k": {"k": 10, "by": "column_name", "order": "desc"},
  "orientation": "vertical | horizontal",
  "stacked": false,
  "limits": {"max_points": 500}
}
Rules:
- Every column name must come from the result columns listed above.
- Use "none" when the result is a single value or a chart adds nothing.
- x and y may be bare column names; only add dtype or sort when needed.
- Use top_k for ranking questions, series for per-group comparisons.`

func (b *PromptBuilder) InitialSpec(question string, result engine.Result, sampleRows int) string {
	var sb strings.Builder
	sb.WriteString("Choose a chart for this query result.\n\n")
	sb.WriteString("Question: ")
	sb.WriteString(strings.TrimSpace(question))
	sb.WriteString("\n\nResult columns:\n")
	for _, col := range result.Columns {
		sb.WriteString(fmt.Sprintf("- %s (%s)\n", col.Name, col.Type))
	}
	sb.WriteString(fmt.Sprintf("\nResult rows: %d", result.ReturnedRows))
	if sample := result.RowMaps(sampleRows); len(sample) > 0 {
		if encoded, err := json.Marshal(sample); err == nil {
			sb.WriteString("\nSample rows: ")
			sb.Write(encoded)
		}
	}
	sb.WriteString("\n\n")
	sb.WriteString(specRules)
	sb.WriteString("\n\nSpec:")
	return sb.String()
}

func (b *PromptBuilder) CorrectionSpec(question, lastSpec string, findings []string, result engine.Result) string {
	var sb strings.Builder
	sb.WriteString("Your previous chart spec was rejected.\n\n")
	sb.WriteString("Question: ")
	sb.WriteString(strings.TrimSpace(question))
	sb.WriteString("\n\nRejected spec:\n")
	sb.WriteString(strings.TrimSpace(lastSpec))
	sb.WriteString("\n\nProblems found:\n")
	for i, finding := range findings {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, finding))
	}
	sb.WriteString("\nResult columns:\n")
	for _, col := range result.Columns {
		sb.WriteString(fmt.Sprintf("- %s (%s)\n", col.Name, col.Type))
	}
	sb.WriteString("\n")
	sb.WriteString(specRules)
	sb.WriteString("\n\nWrite a corrected spec.\nSpec:")
	return sb.String()
}
