package api

import (
	"net/http"
)

// handleSchema exposes the queryable tables, the schema version that
// keys the response cache, and the dataset manifest when one was built.
func handleSchema(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	tables := make([]map[string]any, 0)
	for _, table := range deps.Catalog.Tables() {
		columns := make([]map[string]string, 0, len(table.Columns))
		for _, col := range table.Columns {
			columns = append(columns, map[string]string{"name": col.Name, "type": col.Type})
		}
		tables = append(tables, map[string]any{"name": table.Name, "columns": columns})
	}

	payload := map[string]any{
		"version": deps.Catalog.Version(),
		"tables":  tables,
	}
	if deps.Manifest != nil {
		payload["dataset"] = deps.Manifest
	}
	writeJSON(w, http.StatusOK, payload)
}
