package pipeline

import (
	"fmt"
	"strings"

	"github.com/ridepulse/ridepulse/internal/engine"
)

// phraseAnswer turns a query result into a short deterministic sentence.
// No model is involved; the wording depends only on the result shape.
func phraseAnswer(result engine.Result) string {
	if result.ReturnedRows == 0 {
		return "The query returned no rows."
	}

	if result.ReturnedRows == 1 && len(result.Columns) == 1 {
		col := result.Columns[0]
		return fmt.Sprintf("%s is %s.", humanize(col.Name), formatLabel(result.Rows[0][0]))
	}

	if result.ReturnedRows == 1 {
		parts := make([]string, 0, len(result.Columns))
		for i, col := range result.Columns {
			parts = append(parts, fmt.Sprintf("%s %s", humanize(col.Name), formatLabel(result.Rows[0][i])))
		}
		return fmt.Sprintf("One row matched: %s.", strings.Join(parts, ", "))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "The query returned %d rows", result.ReturnedRows)
	if result.Truncated {
		sb.WriteString(" (truncated at the row limit)")
	}
	sb.WriteString(".")
	if len(result.Columns) >= 2 {
		top := result.Rows[0]
		fmt.Fprintf(&sb, " The first row has %s %s with %s %s.",
			humanize(result.Columns[0].Name), formatLabel(top[0]),
			humanize(result.Columns[1].Name), formatLabel(top[1]))
	}
	return sb.String()
}

func humanize(column string) string {
	return strings.ReplaceAll(strings.ToLower(column), "_", " ")
}

func formatLabel(value any) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%.2f", v)
	case float32:
		return formatLabel(float64(v))
	default:
		return fmt.Sprintf("%v", v)
	}
}
