package model

import "time"

// Source is a row of the static data-source catalog.
type Source struct {
	ID          int64     `json:"id" csv:"id"`
	Name        string    `json:"name" csv:"name"`
	URL         string    `json:"url" csv:"url"`
	LastUpdated time.Time `json:"last_updated" csv:"last_updated"`
}

// PortSnapshot is one observation of a port; the latest row is the port's
// current state.
type PortSnapshot struct {
	Unlocode        string
	SnapshotTS      time.Time
	Vessels         int
	AvgWaitHours    float64
	CongestionScore float64
	Src             string
	SrcLoadedAt     time.Time
}

// DwellPoint is the daily dwell aggregate of a port.
type DwellPoint struct {
	Date       time.Time
	DwellHours float64
	Src        string
}

// TrendPoint is the last snapshot of a UTC day.
type TrendPoint struct {
	Date            time.Time
	Vessels         int
	AvgWaitHours    float64
	CongestionScore float64
	Src             string
}

// TradePoint is a monthly import total for an HS code prefix.
type TradePoint struct {
	Month    time.Time
	ValueUSD float64
	Src      string
}
