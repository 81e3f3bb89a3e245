package api

import (
	"net/http"
	"slices"
	"strconv"

	"portpulse/internal/metrics"
	"portpulse/internal/model"
)

type portParams struct {
	Unlocode string `query:"unlocode" validate:"unlocode"`
	Format   string `query:"format" validate:"omitempty,oneof=json csv"`
}

type snapshotFields struct {
	SnapshotTS      string  `json:"snapshot_ts"`
	Vessels         int     `json:"vessels"`
	AvgWaitHours    float64 `json:"avg_wait_hours"`
	CongestionScore float64 `json:"congestion_score"`
	Src             string  `json:"src"`
	SrcLoadedAt     string  `json:"src_loaded_at"`
}

type snapshotResponse struct {
	Unlocode string         `json:"unlocode"`
	Snapshot snapshotFields `json:"snapshot"`
}

type snapshotRow struct {
	Unlocode        string  `csv:"unlocode"`
	SnapshotTS      string  `csv:"snapshot_ts"`
	Vessels         int     `csv:"vessels"`
	AvgWaitHours    float64 `csv:"avg_wait_hours"`
	CongestionScore float64 `csv:"congestion_score"`
	Src             string  `csv:"src"`
	SrcLoadedAt     string  `csv:"src_loaded_at"`
}

func toSnapshotFields(s model.PortSnapshot) snapshotFields {
	return snapshotFields{
		SnapshotTS:      formatTime(s.SnapshotTS),
		Vessels:         s.Vessels,
		AvgWaitHours:    s.AvgWaitHours,
		CongestionScore: s.CongestionScore,
		Src:             s.Src,
		SrcLoadedAt:     formatTime(s.SrcLoadedAt),
	}
}

// SnapshotHandler serves the latest snapshot row of a port.
func (s *Server) SnapshotHandler(w http.ResponseWriter, r *http.Request) {
	p := portParams{Unlocode: portParam(r), Format: formatParam(r)}
	if writeParamError(w, r, check(p)) {
		return
	}
	snap, err := s.Store.LatestSnapshot(r.Context(), p.Unlocode)
	if err != nil {
		s.writeStoreError(w, r, err, "No snapshot for "+p.Unlocode)
		return
	}
	fields := toSnapshotFields(snap)
	if p.Format == formatCSV {
		body, err := encodeCSV([]snapshotRow{{
			Unlocode:        p.Unlocode,
			SnapshotTS:      fields.SnapshotTS,
			Vessels:         fields.Vessels,
			AvgWaitHours:    fields.AvgWaitHours,
			CongestionScore: fields.CongestionScore,
			Src:             fields.Src,
			SrcLoadedAt:     fields.SrcLoadedAt,
		}})
		if err != nil {
			s.writeStoreError(w, r, err, "")
			return
		}
		writeDataCSV(w, r, body)
		return
	}
	writeDataJSON(w, r, snapshotResponse{Unlocode: p.Unlocode, Snapshot: fields})
}

type overviewMetrics struct {
	Vessels         int     `json:"vessels"`
	AvgWaitHours    float64 `json:"avg_wait_hours"`
	CongestionScore float64 `json:"congestion_score"`
}

type overviewSource struct {
	Src         string `json:"src"`
	SrcLoadedAt string `json:"src_loaded_at"`
}

type overviewResponse struct {
	Unlocode string          `json:"unlocode"`
	AsOf     string          `json:"as_of"`
	Metrics  overviewMetrics `json:"metrics"`
	Source   overviewSource  `json:"source"`
}

type overviewRow struct {
	Unlocode        string  `csv:"unlocode"`
	AsOf            string  `csv:"as_of"`
	Vessels         int     `csv:"vessels"`
	AvgWaitHours    float64 `csv:"avg_wait_hours"`
	CongestionScore float64 `csv:"congestion_score"`
}

const headerCSVSource = "X-CSV-Source"

// OverviewHandler serves the current state of a port. The CSV rendering is
// cached for Cache.CSVTTL under overview_csv:{UNLOCODE}.
func (s *Server) OverviewHandler(w http.ResponseWriter, r *http.Request) {
	p := portParams{Unlocode: portParam(r), Format: formatParam(r)}
	if writeParamError(w, r, check(p)) {
		return
	}
	ctx := r.Context()
	key := "overview_csv:" + p.Unlocode
	if p.Format == formatCSV {
		if body, ok := s.Cache.Get(ctx, key); ok {
			metrics.CacheLookups.WithLabelValues(s.Cache.Name(), "hit").Inc()
			w.Header().Set(headerCSVSource, "cache")
			writeDataCSV(w, r, body)
			return
		}
		metrics.CacheLookups.WithLabelValues(s.Cache.Name(), "miss").Inc()
	}

	snap, err := s.Store.LatestSnapshot(ctx, p.Unlocode)
	if err != nil {
		s.writeStoreError(w, r, err, "No overview for "+p.Unlocode)
		return
	}
	asOf := formatTime(snap.SnapshotTS)

	if p.Format == formatCSV {
		body, err := encodeCSV([]overviewRow{{
			Unlocode:        p.Unlocode,
			AsOf:            asOf,
			Vessels:         snap.Vessels,
			AvgWaitHours:    snap.AvgWaitHours,
			CongestionScore: snap.CongestionScore,
		}})
		if err != nil {
			s.writeStoreError(w, r, err, "")
			return
		}
		s.Cache.Set(ctx, key, body)
		w.Header().Set(headerCSVSource, "db")
		writeDataCSV(w, r, body)
		return
	}

	writeDataJSON(w, r, overviewResponse{
		Unlocode: p.Unlocode,
		AsOf:     asOf,
		Metrics: overviewMetrics{
			Vessels:         snap.Vessels,
			AvgWaitHours:    snap.AvgWaitHours,
			CongestionScore: snap.CongestionScore,
		},
		Source: overviewSource{Src: snap.Src, SrcLoadedAt: formatTime(snap.SrcLoadedAt)},
	})
}

type dwellParams struct {
	Unlocode string `query:"unlocode" validate:"unlocode"`
	Days     int    `query:"days" validate:"min=1,max=365"`
	Format   string `query:"format" validate:"omitempty,oneof=json csv"`
}

type dwellPoint struct {
	Date       string  `json:"date" csv:"date"`
	DwellHours float64 `json:"dwell_hours" csv:"dwell_hours"`
	Src        string  `json:"src" csv:"src"`
}

type dwellResponse struct {
	Unlocode string       `json:"unlocode"`
	Days     int          `json:"days"`
	Points   []dwellPoint `json:"points"`
}

// DwellHandler serves the daily dwell series of the last days days.
func (s *Server) DwellHandler(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days", 30)
	if writeParamError(w, r, err) {
		return
	}
	p := dwellParams{Unlocode: portParam(r), Days: days, Format: formatParam(r)}
	if writeParamError(w, r, check(p)) {
		return
	}
	rows, err := s.Store.ListDwell(r.Context(), p.Unlocode, p.Days)
	if err != nil {
		s.writeStoreError(w, r, err, "No dwell data for "+p.Unlocode)
		return
	}
	points := make([]dwellPoint, len(rows))
	for i, d := range rows {
		points[i] = dwellPoint{Date: d.Date.UTC().Format(dateLayout), DwellHours: d.DwellHours, Src: d.Src}
	}
	if p.Format == formatCSV {
		body, err := encodeCSV(points)
		if err != nil {
			s.writeStoreError(w, r, err, "")
			return
		}
		writeDataCSV(w, r, body)
		return
	}
	writeDataJSON(w, r, dwellResponse{Unlocode: p.Unlocode, Days: p.Days, Points: points})
}

var trendFields = []string{"vessels", "avg_wait_hours", "congestion_score"}

type trendParams struct {
	Unlocode string   `query:"unlocode" validate:"unlocode"`
	Days     int      `query:"days" validate:"min=1,max=365"`
	Fields   []string `query:"fields" validate:"dive,oneof=vessels avg_wait_hours congestion_score"`
	Limit    int      `query:"limit" validate:"min=0,max=1000"`
	Offset   int      `query:"offset" validate:"min=0"`
	Format   string   `query:"format" validate:"omitempty,oneof=json csv"`
}

type trendResponse struct {
	Unlocode string           `json:"unlocode"`
	Days     int              `json:"days"`
	Fields   []string         `json:"fields"`
	Total    int              `json:"total"`
	Limit    int              `json:"limit"`
	Offset   int              `json:"offset"`
	Points   []map[string]any `json:"points"`
}

// TrendHandler serves a daily series built from the last snapshot of each
// day. fields selects metric columns; date and src are always present.
func (s *Server) TrendHandler(w http.ResponseWriter, r *http.Request) {
	p := trendParams{Unlocode: portParam(r), Format: formatParam(r)}
	var err error
	if p.Days, err = queryInt(r, "days", 30); writeParamError(w, r, err) {
		return
	}
	if p.Limit, err = queryInt(r, "limit", 0); writeParamError(w, r, err) {
		return
	}
	if p.Offset, err = queryInt(r, "offset", 0); writeParamError(w, r, err) {
		return
	}
	for _, f := range splitList(r.URL.Query().Get("fields")) {
		if !slices.Contains(p.Fields, f) {
			p.Fields = append(p.Fields, f)
		}
	}
	if writeParamError(w, r, check(p)) {
		return
	}
	if len(p.Fields) == 0 {
		p.Fields = trendFields
	}

	rows, err := s.Store.ListTrend(r.Context(), p.Unlocode, p.Days)
	if err != nil {
		s.writeStoreError(w, r, err, "No trend data for "+p.Unlocode)
		return
	}
	total := len(rows)
	rows = page(rows, p.Offset, p.Limit)

	if p.Format == formatCSV {
		header := append(append([]string{"date"}, p.Fields...), "src")
		records := make([][]string, len(rows))
		for i, t := range rows {
			rec := []string{t.Date.UTC().Format(dateLayout)}
			for _, f := range p.Fields {
				rec = append(rec, trendValueString(t, f))
			}
			records[i] = append(rec, t.Src)
		}
		body, err := encodeTable(header, records)
		if err != nil {
			s.writeStoreError(w, r, err, "")
			return
		}
		writeDataCSV(w, r, body)
		return
	}

	points := make([]map[string]any, len(rows))
	for i, t := range rows {
		pt := map[string]any{"date": t.Date.UTC().Format(dateLayout), "src": t.Src}
		for _, f := range p.Fields {
			pt[f] = trendValue(t, f)
		}
		points[i] = pt
	}
	writeDataJSON(w, r, trendResponse{
		Unlocode: p.Unlocode,
		Days:     p.Days,
		Fields:   p.Fields,
		Total:    total,
		Limit:    p.Limit,
		Offset:   p.Offset,
		Points:   points,
	})
}

func trendValue(t model.TrendPoint, field string) any {
	switch field {
	case "vessels":
		return t.Vessels
	case "avg_wait_hours":
		return t.AvgWaitHours
	case "congestion_score":
		return t.CongestionScore
	}
	return nil
}

func trendValueString(t model.TrendPoint, field string) string {
	switch v := trendValue(t, field).(type) {
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

// page applies offset and limit; limit 0 means no limit.
func page[T any](rows []T, offset, limit int) []T {
	if offset >= len(rows) {
		return rows[:0]
	}
	rows = rows[offset:]
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows
}
