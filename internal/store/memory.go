package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"portpulse/internal/model"
)

type tradeRow struct {
	country string
	hsCode  string
	point   model.TradePoint
}

// Memory is an in-process store used when no DATABASE_URL is set and in
// tests.
type Memory struct {
	mu        sync.RWMutex
	now       func() time.Time
	sources   []model.Source
	snapshots map[string][]model.PortSnapshot // unlocode -> rows
	dwell     map[string][]model.DwellPoint   // unlocode -> rows by date
	trade     []tradeRow
}

func NewMemory() *Memory {
	return &Memory{
		now:       time.Now,
		snapshots: map[string][]model.PortSnapshot{},
		dwell:     map[string][]model.DwellPoint{},
	}
}

// SetClock replaces the time source used for window cut-offs.
func (m *Memory) SetClock(now func() time.Time) {
	m.mu.Lock()
	m.now = now
	m.mu.Unlock()
}

func (m *Memory) AddSource(s model.Source) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sources = append(m.sources, s)
}

func (m *Memory) AddSnapshot(s model.PortSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[s.Unlocode] = append(m.snapshots[s.Unlocode], s)
}

// AddDwell upserts by (unlocode, date).
func (m *Memory) AddDwell(unlocode string, d model.DwellPoint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d.Date = truncDay(d.Date)
	rows := m.dwell[unlocode]
	for i := range rows {
		if rows[i].Date.Equal(d.Date) {
			rows[i] = d
			return
		}
	}
	rows = append(rows, d)
	sort.Slice(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })
	m.dwell[unlocode] = rows
}

func (m *Memory) AddTrade(country, hsCode string, t model.TradePoint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.Month = firstOfMonth(t.Month)
	m.trade = append(m.trade, tradeRow{country: strings.ToUpper(country), hsCode: hsCode, point: t})
}

func (m *Memory) Ping(ctx context.Context) error { return ctx.Err() }

func (m *Memory) Close() error { return nil }

func (m *Memory) ListSources(ctx context.Context, sinceHours int) ([]model.Source, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cutoff := m.now().Add(-time.Duration(sinceHours) * time.Hour)
	out := []model.Source{}
	for _, s := range m.sources {
		if sinceHours > 0 && s.LastUpdated.Before(cutoff) {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) LatestSnapshot(ctx context.Context, unlocode string) (model.PortSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rows := m.snapshots[unlocode]
	if len(rows) == 0 {
		return model.PortSnapshot{}, ErrNotFound
	}
	latest := rows[0]
	for _, s := range rows[1:] {
		if s.SnapshotTS.After(latest.SnapshotTS) {
			latest = s
		}
	}
	return latest, nil
}

func (m *Memory) ListDwell(ctx context.Context, unlocode string, days int) ([]model.DwellPoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cutoff := truncDay(m.now()).AddDate(0, 0, -days)
	out := []model.DwellPoint{}
	for _, d := range m.dwell[unlocode] {
		if !d.Date.Before(cutoff) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *Memory) ListTrend(ctx context.Context, unlocode string, days int) ([]model.TrendPoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cutoff := m.now().Add(-time.Duration(days) * 24 * time.Hour)
	byDay := map[time.Time]model.PortSnapshot{}
	for _, s := range m.snapshots[unlocode] {
		if s.SnapshotTS.Before(cutoff) {
			continue
		}
		day := truncDay(s.SnapshotTS)
		if cur, ok := byDay[day]; !ok || s.SnapshotTS.After(cur.SnapshotTS) {
			byDay[day] = s
		}
	}
	out := make([]model.TrendPoint, 0, len(byDay))
	for day, s := range byDay {
		out = append(out, model.TrendPoint{
			Date:            day,
			Vessels:         s.Vessels,
			AvgWaitHours:    s.AvgWaitHours,
			CongestionScore: s.CongestionScore,
			Src:             s.Src,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (m *Memory) ListTradeMonthly(ctx context.Context, hsCode, country string, months int) ([]model.TradePoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cutoff := firstOfMonth(m.now()).AddDate(0, -months, 0)
	country = strings.ToUpper(country)
	sums := map[time.Time]*model.TradePoint{}
	for _, r := range m.trade {
		if r.country != country || !strings.HasPrefix(r.hsCode, hsCode) || r.point.Month.Before(cutoff) {
			continue
		}
		p, ok := sums[r.point.Month]
		if !ok {
			p = &model.TradePoint{Month: r.point.Month, Src: r.point.Src}
			sums[r.point.Month] = p
		}
		p.ValueUSD += r.point.ValueUSD
		if r.point.Src < p.Src {
			p.Src = r.point.Src
		}
	}
	out := make([]model.TradePoint, 0, len(sums))
	for _, p := range sums {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month.Before(out[j].Month) })
	return out, nil
}

func truncDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func firstOfMonth(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
