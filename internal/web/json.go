package web

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/joestump/retroboard/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("writeJSON: encode error: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps a service-layer error to the appropriate HTTP
// status and an error envelope that carries the taxonomy's kind and
// optional sub-kind so clients can branch on it without string matching.
func writeServiceError(w http.ResponseWriter, err error) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		log.Printf("unclassified error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	body := map[string]any{
		"error": appErr.Kind.String(),
	}
	if appErr.Sub != "" {
		body["sub_kind"] = appErr.Sub
	}
	if appErr.Message != "" {
		body["message"] = appErr.Message
	}
	if appErr.Kind == apperr.LimitExceeded {
		body["current"] = appErr.Current
		body["limit"] = appErr.Limit
	}

	switch appErr.Kind {
	case apperr.Validation:
		writeJSON(w, http.StatusBadRequest, body)
	case apperr.Unauthenticated:
		writeJSON(w, http.StatusUnauthorized, body)
	case apperr.Forbidden:
		writeJSON(w, http.StatusForbidden, body)
	case apperr.NotFound:
		writeJSON(w, http.StatusNotFound, body)
	case apperr.Conflict:
		writeJSON(w, http.StatusConflict, body)
	case apperr.LimitExceeded:
		writeJSON(w, http.StatusTooManyRequests, body)
	case apperr.RateLimited:
		writeJSON(w, http.StatusTooManyRequests, body)
	default:
		log.Printf("internal error: %v", appErr)
		writeJSON(w, http.StatusInternalServerError, body)
	}
}

// requireJSON checks the Content-Type header and returns false (with a
// 415 response) if it is not application/json.
func requireJSON(w http.ResponseWriter, r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(ct, "application/json") {
		writeError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}
	return true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if !requireJSON(w, r) {
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

// decodeJSONOptional decodes the request body into v if present, ignoring
// a missing or malformed body. Used by endpoints (like DELETE) where the
// caller may pass parameters via query string instead of a JSON body.
func decodeJSONOptional(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	return json.NewDecoder(r.Body).Decode(v)
}
