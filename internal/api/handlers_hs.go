package api

import (
	"math"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

type hsParams struct {
	Code   string `query:"code" validate:"hscode"`
	Frm    string `query:"frm" validate:"required,alpha,min=2,max=3"`
	To     string `query:"to" validate:"required,alpha,min=2,max=3"`
	Months int    `query:"months" validate:"min=1,max=36"`
	Format string `query:"format" validate:"omitempty,oneof=json csv"`
}

type hsPoint struct {
	Month string  `json:"month" csv:"month"`
	Value float64 `json:"value" csv:"value"`
	Src   string  `json:"src" csv:"src"`
}

type hsResponse struct {
	Code   string    `json:"code"`
	Frm    string    `json:"frm"`
	To     string    `json:"to"`
	AsOf   *string   `json:"as_of"`
	Points []hsPoint `json:"points"`
}

// HSImportsHandler serves monthly imports into country to for every HS code
// starting with {code}. frm is echoed; the fact table has no origin column.
func (s *Server) HSImportsHandler(w http.ResponseWriter, r *http.Request) {
	if !s.Config.Features.HSImports {
		writeError(w, r, http.StatusForbidden, codeForbidden, "HS imports beta is closed", "Set HS_IMPORTS_ENABLED=true to enable this endpoint")
		return
	}
	months, err := queryInt(r, "months", 6)
	if writeParamError(w, r, err) {
		return
	}
	q := r.URL.Query()
	p := hsParams{
		Code:   strings.TrimSpace(chi.URLParam(r, "code")),
		Frm:    strings.ToUpper(strings.TrimSpace(q.Get("frm"))),
		To:     strings.ToUpper(strings.TrimSpace(q.Get("to"))),
		Months: months,
		Format: formatParam(r),
	}
	if writeParamError(w, r, check(p)) {
		return
	}
	rows, err := s.Store.ListTradeMonthly(r.Context(), p.Code, p.To, p.Months)
	if err != nil {
		s.writeStoreError(w, r, err, "No imports for HS "+p.Code)
		return
	}
	points := make([]hsPoint, len(rows))
	for i, t := range rows {
		points[i] = hsPoint{Month: t.Month.UTC().Format(dateLayout), Value: math.Round(t.ValueUSD*100) / 100, Src: t.Src}
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
	resp := hsResponse{Code: p.Code, Frm: p.Frm, To: p.To, Points: points}
	if n := len(points); n > 0 {
		resp.AsOf = &points[n-1].Month
	}
	writeDataJSON(w, r, resp)
}
