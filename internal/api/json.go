package api

import (
	"net/http"

	json "github.com/goccy/go-json"
)

// ErrorBody is the envelope of every error response.
type ErrorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
	Hint      string `json:"hint"`
}

// Error codes.
const (
	codeUnauthorized      = "unauthorized"
	codeForbidden         = "forbidden"
	codeNotFound          = "not_found"
	codeInvalidRequest    = "invalid_request"
	codeInvalidUnlocode   = "invalid_unlocode"
	codeDependencyMissing = "dependency_missing"
	codeRateLimited       = "rate_limited"
	codeInternal          = "internal"
	codeNotReady          = "not_ready"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"code":"internal","message":"encode failed","request_id":"","hint":""}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(b)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message, hint string) {
	rid := requestIDFrom(r.Context())
	if rid != "" {
		w.Header().Set(headerRequestID, rid)
	}
	writeJSON(w, status, ErrorBody{Code: code, Message: message, RequestID: rid, Hint: hint})
}
