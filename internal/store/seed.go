package store

import (
	"math"
	"time"

	"portpulse/internal/model"
)

// DemoPorts are the ports filled by SeedDemo.
var DemoPorts = []string{"USLAX", "USNYC", "SGSIN", "CNSHA", "NLRTM"}

// SeedDemo fills m with a deterministic dataset anchored at now: 45 days of
// dwell and snapshots per demo port, 24 months of imports into USA for a few
// HS codes. USLAX and USNYC end on a dwell spike so their alerts fire.
func SeedDemo(m *Memory, now time.Time) {
	now = now.UTC()
	today := truncDay(now)

	m.AddSource(model.Source{ID: 1, Name: "AIS port calls", URL: "https://example.org/ais", LastUpdated: now.Add(-2 * time.Hour)})
	m.AddSource(model.Source{ID: 2, Name: "Terminal dwell feed", URL: "https://example.org/dwell", LastUpdated: now.Add(-26 * time.Hour)})
	m.AddSource(model.Source{ID: 3, Name: "UN Comtrade monthly", URL: "https://comtrade.un.org", LastUpdated: now.Add(-40 * 24 * time.Hour)})

	for pi, u := range DemoPorts {
		base := 20 + 6*float64(pi)
		spike := u == "USLAX" || u == "USNYC"
		for d := 44; d >= 0; d-- {
			day := today.AddDate(0, 0, -d)
			v := base + 1.5*math.Sin(float64(d)/3)
			if spike && d < 3 {
				v += 12
			}
			m.AddDwell(u, model.DwellPoint{Date: day, DwellHours: round2(v), Src: "demo"})

			for h := 0; h < 24; h += 6 {
				ts := day.Add(time.Duration(h) * time.Hour)
				if ts.After(now) {
					break
				}
				vessels := 40 + 5*pi + (d*7+h)%11
				m.AddSnapshot(model.PortSnapshot{
					Unlocode:        u,
					SnapshotTS:      ts,
					Vessels:         vessels,
					AvgWaitHours:    round2(v / 2),
					CongestionScore: round1(math.Min(100, float64(vessels)*1.2)),
					Src:             "demo",
					SrcLoadedAt:     ts.Add(10 * time.Minute),
				})
			}
		}
	}

	month := firstOfMonth(now)
	for i, hs := range []string{"851712", "851762", "940360", "847130"} {
		for mo := 23; mo >= 0; mo-- {
			m.AddTrade("USA", hs, model.TradePoint{
				Month:    month.AddDate(0, -mo, 0),
				ValueUSD: float64(10000+1000*i) + float64((mo*37)%1200),
				Src:      "demo",
			})
		}
	}
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }
