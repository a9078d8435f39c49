package api

import (
	"net/http"
	"path/filepath"
	"regexp"
)

// Chart files are written with UUID names, so anything else is rejected
// before touching the filesystem.
var chartNamePattern = regexp.MustCompile(`^[a-f0-9-]{36}\.png$`)

func handleChartImage(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if !chartNamePattern.MatchString(name) {
		writeError(r.Context(), w, http.StatusNotFound, "UNKNOWN_CHART", "no such chart", false)
		return
	}
	path := filepath.Join(deps.ChartDir, name)
	w.Header().Set("Content-Type", "image/png")
	http.ServeFile(w, r, path)
}
