package api

import (
	"net/http"

	"portpulse/internal/model"
)

type sourcesParams struct {
	SinceHours int    `query:"since_hours" validate:"min=0,max=8760"`
	Format     string `query:"format" validate:"omitempty,oneof=json csv"`
}

type metaSourcesResponse struct {
	SinceHours int            `json:"since_hours"`
	Items      []model.Source `json:"items"`
}

// SourcesHandler lists the data-source catalog as a bare array.
func (s *Server) SourcesHandler(w http.ResponseWriter, r *http.Request) {
	s.serveSources(w, r, 0, false)
}

// MetaSourcesHandler lists sources updated within since_hours (default 720)
// wrapped in an object.
func (s *Server) MetaSourcesHandler(w http.ResponseWriter, r *http.Request) {
	s.serveSources(w, r, 720, true)
}

func (s *Server) serveSources(w http.ResponseWriter, r *http.Request, defSince int, wrap bool) {
	since, err := queryInt(r, "since_hours", defSince)
	if writeParamError(w, r, err) {
		return
	}
	p := sourcesParams{SinceHours: since, Format: formatParam(r)}
	if writeParamError(w, r, check(p)) {
		return
	}
	items, err := s.Store.ListSources(r.Context(), p.SinceHours)
	if err != nil {
		s.writeStoreError(w, r, err, "No sources")
		return
	}
	if p.Format == formatCSV {
		body, err := encodeCSV(items)
		if err != nil {
			s.writeStoreError(w, r, err, "")
			return
		}
		writeDataCSV(w, r, body)
		return
	}
	if wrap {
		writeDataJSON(w, r, metaSourcesResponse{SinceHours: p.SinceHours, Items: items})
		return
	}
	writeDataJSON(w, r, items)
}
