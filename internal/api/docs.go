package api

import (
	_ "embed"
	"net/http"
	"sync"

	json "github.com/goccy/go-json"
	yaml "gopkg.in/yaml.v3"
)

//go:embed openapi.yaml
var openAPIYAML []byte

var (
	openAPIJSON    []byte
	openAPIJSONErr error
	openAPIOnce    sync.Once
)

// openAPIAsJSON converts the embedded document once.
func openAPIAsJSON() ([]byte, error) {
	openAPIOnce.Do(func() {
		var doc map[string]any
		if openAPIJSONErr = yaml.Unmarshal(openAPIYAML, &doc); openAPIJSONErr != nil {
			return
		}
		openAPIJSON, openAPIJSONErr = json.Marshal(doc)
	})
	return openAPIJSON, openAPIJSONErr
}

// OpenAPIHandler serves the OpenAPI document as YAML.
func (s *Server) OpenAPIHandler(w http.ResponseWriter, r *http.Request) {
	writeBody(w, r, "application/yaml", openAPIYAML)
}

// OpenAPIJSONHandler serves the same document as JSON.
func (s *Server) OpenAPIJSONHandler(w http.ResponseWriter, r *http.Request) {
	b, err := openAPIAsJSON()
	if err != nil {
		s.Log.Error("openapi conversion failed", "err", err)
		writeError(w, r, http.StatusInternalServerError, codeInternal, "OpenAPI document not available", "")
		return
	}
	writeBody(w, r, contentTypeJSON, b)
}

// DocsHandler serves a minimal ReDoc page referencing /openapi.yaml
func (s *Server) DocsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`<!DOCTYPE html><html><head><title>PortPulse API</title>
<meta charset="utf-8"/>
<meta name="viewport" content="width=device-width, initial-scale=1">
<script src="https://cdn.jsdelivr.net/npm/redoc@next/bundles/redoc.standalone.js"></script>
</head><body>
<redoc spec-url="/openapi.yaml"></redoc>
</body></html>`))
}
