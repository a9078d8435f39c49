package sqlgen

import (
	"fmt"
	"strings"

	"github.com/ridepulse/ridepulse/internal/schema"
)

// PromptBuilder renders the generation and correction prompts for the
// SQL stage. Prompts are plain text; the provider decides how to wrap
// them into its chat protocol.
type PromptBuilder struct {
	catalog *schema.Catalog
}

func NewPromptBuilder(catalog *schema.Catalog) *PromptBuilder {
	return &PromptBuilder{catalog: catalog}
}

const sqlRules = `Rules:
- Write exactly one DuckDB SELECT statement. No DDL, no DML, no comments.
- Query fhv_with_company for trip questions; it already joins zones and company names.
- Use taxi_zones only for zone metadata questions.
- Aggregate rather than returning raw trips. Alias every aggregate column.
- Prefer date_trunc, extract and dayname for time grouping; pickup_date,
  pickup_hour and pickup_weekday are precomputed on fhv_with_company.
- Add an ORDER BY when ranking and a LIMIT when the question asks for a top N.
- Return only the SQL statement, with no explanation and no markdown fences.`

func (b *PromptBuilder) InitialSQL(question string) string {
	var sb strings.Builder
	sb.WriteString("You translate analytics questions about NYC for-hire vehicle trips into DuckDB SQL.\n\n")
	sb.WriteString("Available tables:\n")
	sb.WriteString(b.catalog.PromptSummary())
	sb.WriteString("\n\n")
	sb.WriteString(sqlRules)
	sb.WriteString("\n\nQuestion: ")
	sb.WriteString(strings.TrimSpace(question))
	sb.WriteString("\nSQL:")
	return sb.String()
}

// CorrectionSQL feeds the validator findings back so the next attempt
// can repair the previous statement instead of starting over.
func (b *PromptBuilder) CorrectionSQL(question, lastSQL string, findings []string) string {
	var sb strings.Builder
	sb.WriteString("Your previous DuckDB SQL statement was rejected.\n\n")
	sb.WriteString("Question: ")
	sb.WriteString(strings.TrimSpace(question))
	sb.WriteString("\n\nRejected statement:\n")
	sb.WriteString(strings.TrimSpace(lastSQL))
	sb.WriteString("\n\nProblems found:\n")
	for i, finding := range findings {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, finding))
	}
	sb.WriteString("\nAvailable tables:\n")
	sb.WriteString(b.catalog.PromptSummary())
	sb.WriteString("\n\n")
	sb.WriteString(sqlRules)
	sb.WriteString("\n\nWrite a corrected statement.\nSQL:")
	return sb.String()
}
