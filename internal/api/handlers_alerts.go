package api

import (
	"net/http"

	"portpulse/internal/alerts"
	"portpulse/internal/metrics"
)

const alertMetric = "dwell_hours"

type alertsParams struct {
	Unlocode string `query:"unlocode" validate:"unlocode"`
	Window   int    `query:"window" validate:"min=7,max=60"`
	Format   string `query:"format" validate:"omitempty,oneof=json csv"`
}

type alertsResponse struct {
	Unlocode   string         `json:"unlocode"`
	WindowDays int            `json:"window_days"`
	Items      []alerts.Alert `json:"items"`
}

// AlertsHandler runs the dwell change heuristic over the last window days.
// The window counts back from today and includes it, so window=14 reads up
// to 15 daily rows.
func (s *Server) AlertsHandler(w http.ResponseWriter, r *http.Request) {
	window, err := parseWindow(r.URL.Query().Get("window"), 14)
	if writeParamError(w, r, err) {
		return
	}
	p := alertsParams{Unlocode: portParam(r), Window: window, Format: formatParam(r)}
	if writeParamError(w, r, check(p)) {
		return
	}
	rows, err := s.Store.ListDwell(r.Context(), p.Unlocode, p.Window)
	if err != nil {
		s.writeStoreError(w, r, err, "No dwell data for "+p.Unlocode)
		return
	}
	if len(rows) == 0 {
		writeError(w, r, http.StatusNotFound, codeNotFound, "No dwell data for "+p.Unlocode, "Try a different port or a wider window")
		return
	}

	points := make([]alerts.Point, len(rows))
	for i, d := range rows {
		points[i] = alerts.Point{Date: d.Date, Value: d.DwellHours}
	}
	items := alerts.Compute(points, alertMetric)
	for _, a := range items {
		metrics.AlertsRaised.WithLabelValues(a.Metric, string(a.Severity)).Inc()
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
	writeDataJSON(w, r, alertsResponse{Unlocode: p.Unlocode, WindowDays: p.Window, Items: items})
}
