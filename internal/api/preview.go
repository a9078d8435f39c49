package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

const previewRowLimit = 100

// handlePreview returns the first rows of one exposed relation. The
// statement is built server-side, so the validator only ever sees a
// known-good shape.
func handlePreview(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	table := strings.TrimSpace(r.URL.Query().Get("table"))
	if table == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "MISSING_TABLE", "table query parameter is required", false)
		return
	}
	def, ok := deps.Catalog.Table(table)
	if !ok {
		writeError(r.Context(), w, http.StatusNotFound, "UNKNOWN_TABLE", fmt.Sprintf("table %q is not exposed", table), false)
		return
	}

	rows := deps.PreviewRows
	if rows <= 0 {
		rows = 10
	}
	if raw := r.URL.Query().Get("rows"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(r.Context(), w, http.StatusBadRequest, "INVALID_ROWS", "rows must be a positive integer", false)
			return
		}
		rows = parsed
	}
	if rows > previewRowLimit {
		rows = previewRowLimit
	}

	result, err := deps.Pipeline.Direct(r.Context(), fmt.Sprintf("SELECT * FROM %s LIMIT %d", def.Name, rows))
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "PREVIEW_FAILED", err.Error(), true)
		return
	}
	if result.Error != "" {
		writeError(r.Context(), w, http.StatusBadGateway, "PREVIEW_FAILED", result.Error, true)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"table":   def.Name,
		"columns": result.Columns,
		"rows":    result.Data,
	})
}
