package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"swingvote/api/internal/search"
	"swingvote/api/internal/session"
)

const sessionHeader = "x-session-id"

type HTTPServer struct {
	service    *Service
	corsOrigin string
	logger     *zap.Logger
}

func NewHTTPServer(service *Service, corsOrigin string, logger *zap.Logger) *HTTPServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPServer{service: service, corsOrigin: corsOrigin, logger: logger.Named("http")}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if isRead(r) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if isRead(r) && r.URL.Path == "/api/ready" {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := "ready"
		statusCode := http.StatusOK
		checks := map[string]any{
			"database": map[string]any{"status": "ok"},
		}

		if err := s.service.Ping(ctx); err != nil {
			status = "not_ready"
			statusCode = http.StatusServiceUnavailable
			checks["database"] = map[string]any{
				"status": "error",
				"error":  err.Error(),
			}
		}

		writeJSON(w, statusCode, map[string]any{
			"ok":     status == "ready",
			"status": status,
			"checks": checks,
		})
		return
	}

	parts := splitPath(r.URL.Path)
	if len(parts) < 2 || parts[0] != "api" {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}

	switch parts[1] {
	case "bills":
		s.handleBills(w, r, parts[2:])
		return
	case "sync":
		if len(parts) != 2 {
			break
		}
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		report, err := s.service.Sync(r.Context())
		if err != nil {
			s.fail(w, r, err, "Sync failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"message": "Sync complete", "report": report})
		return
	case "topics":
		if len(parts) != 2 {
			break
		}
		if !isRead(r) {
			methodNotAllowed(w)
			return
		}
		topics, err := s.service.ListTopics(r.Context())
		if err != nil {
			s.fail(w, r, err, "Server error")
			return
		}
		writeJSON(w, http.StatusOK, topics)
		return
	case "preferences":
		if len(parts) != 2 {
			break
		}
		s.handlePreferences(w, r)
		return
	case "email":
		if len(parts) != 3 || parts[2] != "draft" {
			break
		}
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		s.handleDraftEmail(w, r)
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) handleBills(w http.ResponseWriter, r *http.Request, parts []string) {
	if !isRead(r) {
		methodNotAllowed(w)
		return
	}

	switch {
	case len(parts) == 0:
		bills, err := s.service.ListBills(r.Context())
		if err != nil {
			s.fail(w, r, err, "Server error")
			return
		}
		writeJSON(w, http.StatusOK, bills)
	case len(parts) == 1 && parts[0] == "search":
		query, err := parseSearchQuery(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
			return
		}
		writeJSON(w, http.StatusOK, s.service.SearchBills(r.Context(), query))
	case len(parts) == 1:
		bill, err := s.service.GetBill(r.Context(), parts[0])
		if err != nil {
			s.fail(w, r, err, "Server error")
			return
		}
		writeJSON(w, http.StatusOK, bill)
	case len(parts) == 2 && parts[1] == "analyze":
		result, err := s.service.AnalyzeBill(r.Context(), parts[0])
		if err != nil {
			s.fail(w, r, err, "Server error")
			return
		}
		writeJSON(w, http.StatusOK, result)
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handlePreferences(w http.ResponseWriter, r *http.Request) {
	sessionID := session.ResolveID(r.Header.Get(sessionHeader))

	switch {
	case isRead(r):
		prefs, err := s.service.GetPreferences(r.Context(), sessionID)
		if err != nil {
			s.fail(w, r, err, "Server error")
			return
		}
		writeJSON(w, http.StatusOK, prefs)
	case r.Method == http.MethodPost:
		var body PreferencesInput
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		saved, err := s.service.SavePreferences(r.Context(), sessionID, body)
		if err != nil {
			s.fail(w, r, err, "Server error")
			return
		}
		writeJSON(w, http.StatusOK, saved)
	default:
		methodNotAllowed(w)
	}
}

func (s *HTTPServer) handleDraftEmail(w http.ResponseWriter, r *http.Request) {
	var body DraftEmailInput
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	sessionID := session.ResolveID(r.Header.Get(sessionHeader))
	result, err := s.service.DraftEmail(r.Context(), sessionID, body)
	if err != nil {
		s.fail(w, r, err, "Failed to generate email draft")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// fail writes err as a JSON error. Unexpected errors are logged and reported
// with serverMessage.
func (s *HTTPServer) fail(w http.ResponseWriter, r *http.Request, err error, serverMessage string) {
	status, code, message, details := mapError(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("request_id", requestIDFrom(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		message = serverMessage
	}
	writeError(w, status, code, message, details)
}

func parseSearchQuery(r *http.Request) (search.Query, error) {
	values := r.URL.Query()
	query := search.Query{Text: strings.TrimSpace(values.Get("q"))}
	if raw := values.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return search.Query{}, fmt.Errorf("limit must be an integer")
		}
		query.Limit = limit
	}
	if raw := values.Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil {
			return search.Query{}, fmt.Errorf("offset must be an integer")
		}
		query.Offset = offset
	}
	return query.Normalize(), nil
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		s.logger.Info("request",
			zap.String("request_id", requestID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", writer.status),
			zap.Int64("duration_ms", time.Since(started).Milliseconds()),
		)
	})
}

type requestIDKey struct{}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID, X-Session-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":    code,
		"message": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
}

// decodeBody decodes a JSON object into target. An empty body decodes as {}
// so that field validation reports what is missing.
func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, http.ErrBodyReadAfterClose) {
			return nil
		}
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return fmt.Errorf("%s has an invalid type", typeErr.Field)
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func isRead(r *http.Request) bool {
	return r.Method == http.MethodGet || r.Method == http.MethodHead
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	if errors.Is(err, sql.ErrNoRows) {
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
