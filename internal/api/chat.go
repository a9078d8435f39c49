package api

import (
	"encoding/json"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/ridepulse/ridepulse/internal/pipeline"
)

type chatRequest struct {
	Question string `json:"question"`
	SQL      string `json:"sql"`
}

type chatResponse struct {
	pipeline.Result
	ChartImageURL string `json:"chart_image_url,omitempty"`
	TraceID       string `json:"trace_id,omitempty"`
}

// handleChat answers a natural language question, or runs caller-written
// SQL directly when the request carries an sql field instead.
func handleChat(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_BODY", "request body must be JSON", false)
		return
	}
	req.Question = strings.TrimSpace(req.Question)
	req.SQL = strings.TrimSpace(req.SQL)
	if req.Question == "" && req.SQL == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "EMPTY_REQUEST", "provide a question or an sql statement", false)
		return
	}
	if req.Question != "" && req.SQL != "" {
		writeError(r.Context(), w, http.StatusBadRequest, "AMBIGUOUS_REQUEST", "provide either a question or an sql statement, not both", false)
		return
	}

	var (
		result pipeline.Result
		err    error
	)
	if req.SQL != "" {
		result, err = deps.Pipeline.Direct(r.Context(), req.SQL)
	} else {
		result, err = deps.Pipeline.Ask(r.Context(), req.Question)
	}
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "PIPELINE_FAILED", err.Error(), true)
		return
	}

	resp := chatResponse{Result: result}
	if result.ChartImagePath != "" {
		resp.ChartImageURL = "/v1/charts/" + filepath.Base(result.ChartImagePath)
	}
	writeJSON(w, http.StatusOK, resp)
}
