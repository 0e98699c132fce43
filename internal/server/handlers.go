package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/seeql-labs/seeql/internal/executor"
	"github.com/seeql-labs/seeql/internal/export"
	"github.com/seeql-labs/seeql/internal/translate"
)

const (
	sessionName   = "seeql"
	maxUploadSize = 10 << 20 // 10 MiB
)

// queryRequest is the body of /api/query, /api/explain and
// /api/export.
type queryRequest struct {
	SQL string `json:"sql"`
}

// queryErrorResponse is returned when the engine rejects a query. The
// HTTP status is still 200: a bad query is a normal outcome for a
// learner, not a failed request.
type queryErrorResponse struct {
	ErrorExplanation translate.Explanation `json:"error_explanation"`
	RawError         string                `json:"raw_error"`
	Source           string                `json:"source"`
}

// handleCreateSession issues a short learner id backed by a cookie
// session.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	session, _ := s.sessionStore.Get(r, sessionName)

	userID, ok := session.Values["user_id"].(string)
	if !ok || userID == "" {
		userID = uuid.New().String()[:8]
		session.Values["user_id"] = userID
		if err := session.Save(r, w); err != nil {
			s.respondError(w, http.StatusInternalServerError, "failed to save session")
			return
		}
	}

	s.respondJSON(w, http.StatusOK, map[string]string{"user_id": userID})
}

// handleListDatasets lists all registered datasets.
func (s *Server) handleListDatasets(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]any{
		"datasets": s.registry.List(),
	})
}

// handleGetDataset returns one dataset with its examples.
func (s *Server) handleGetDataset(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	ds, ok := s.registry.Get(name)
	if !ok {
		s.respondError(w, http.StatusNotFound, fmt.Sprintf("dataset %q not found", name))
		return
	}
	s.respondJSON(w, http.StatusOK, ds)
}

// handleUpload registers a CSV file as a new dataset.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer func() { _ = f.Close() }()

	if !strings.HasSuffix(strings.ToLower(header.Filename), ".csv") {
		s.respondError(w, http.StatusBadRequest, "only CSV files allowed")
		return
	}

	name := strings.TrimSuffix(header.Filename, ".csv")
	ds, err := s.registry.RegisterCSV(r.Context(), name, f)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]any{
		"message":    "Dataset uploaded successfully",
		"table_name": ds.Table,
		"columns":    ds.Columns,
	})
}

// handleQuery runs a query. Engine errors become explanations in a
// 200 response; guard violations are 403.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	sql, ok := s.readSQL(w, r)
	if !ok {
		return
	}

	result, err := s.engine.Execute(r.Context(), sql)
	if err != nil {
		var blocked *executor.BlockedError
		if errors.As(err, &blocked) {
			s.respondError(w, http.StatusForbidden, blocked.Error())
			return
		}
		s.respondJSON(w, http.StatusOK, s.explainError(r, err))
		return
	}

	s.respondJSON(w, http.StatusOK, result)
}

// explainError builds the error payload, preferring the remote
// augmenter and falling back to the rule-based translator. Canned
// output is authoritative whenever the remote call fails or returns
// malformed data.
func (s *Server) explainError(r *http.Request, err error) queryErrorResponse {
	raw := err.Error()

	if exp, augErr := s.augmenter.ExplainError(r.Context(), raw); augErr == nil && exp != nil {
		return queryErrorResponse{ErrorExplanation: *exp, RawError: raw, Source: "remote"}
	}

	return queryErrorResponse{
		ErrorExplanation: translate.Translate(raw),
		RawError:         raw,
		Source:           "rules",
	}
}

// handleExplain returns step-by-step sentences for a query without
// running it.
func (s *Server) handleExplain(w http.ResponseWriter, r *http.Request) {
	sql, ok := s.readSQL(w, r)
	if !ok {
		return
	}

	steps, method := s.explainer.Explain(r.Context(), sql)
	s.respondJSON(w, http.StatusOK, map[string]any{
		"steps":  steps,
		"method": method,
	})
}

// handleExport runs a query and streams the result as CSV or JSON.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	sql, ok := s.readSQL(w, r)
	if !ok {
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "json" {
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("unsupported format %q", format))
		return
	}

	result, err := s.engine.Execute(r.Context(), sql)
	if err != nil {
		var blocked *executor.BlockedError
		if errors.As(err, &blocked) {
			s.respondError(w, http.StatusForbidden, blocked.Error())
			return
		}
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	switch format {
	case "json":
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", `attachment; filename="export.json"`)
		if err := export.WriteJSON(w, result); err != nil {
			s.logger.Error("export failed", "format", format, "error", err)
		}
	default:
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="export.csv"`)
		if err := export.WriteCSV(w, result); err != nil {
			s.logger.Error("export failed", "format", format, "error", err)
		}
	}
}

// readSQL decodes the request body and validates the query text.
func (s *Server) readSQL(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return "", false
	}

	sql := strings.TrimSpace(req.SQL)
	if sql == "" {
		s.respondError(w, http.StatusBadRequest, "query cannot be empty")
		return "", false
	}
	return sql, true
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, msg string) {
	s.respondJSON(w, status, map[string]string{"error": msg})
}
