package api

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"

	json "github.com/goccy/go-json"
)

const (
	contentTypeJSON = "application/json"
	contentTypeCSV  = "text/csv; charset=utf-8"
	cacheControl    = "public, max-age=300, no-transform"
)

// ETag returns the strong validator for body: the quoted hex SHA-256.
func ETag(body []byte) string {
	sum := sha256.Sum256(body)
	return `"` + hex.EncodeToString(sum[:]) + `"`
}

// etagMatches reports whether an If-None-Match header value names etag.
// Weak forms and "*" match too.
func etagMatches(header, etag string) bool {
	for _, c := range strings.Split(header, ",") {
		c = strings.TrimSpace(c)
		if c == "*" || c == etag || strings.TrimPrefix(c, "W/") == etag {
			return true
		}
	}
	return false
}

// writeBody sends a 200 with validators, or a bare 304 when the client
// already holds the same representation. HEAD gets headers only.
func writeBody(w http.ResponseWriter, r *http.Request, contentType string, body []byte) {
	etag := ETag(body)
	h := w.Header()
	h.Set("ETag", etag)
	h.Set("Cache-Control", cacheControl)
	h.Set("Vary", "Accept-Encoding")
	if inm := r.Header.Get("If-None-Match"); inm != "" && etagMatches(inm, etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	h.Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	_, _ = w.Write(body)
}

func writeDataJSON(w http.ResponseWriter, r *http.Request, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, codeInternal, "Internal server error", "")
		return
	}
	writeBody(w, r, contentTypeJSON, b)
}

func writeDataCSV(w http.ResponseWriter, r *http.Request, body []byte) {
	writeBody(w, r, contentTypeCSV, body)
}
