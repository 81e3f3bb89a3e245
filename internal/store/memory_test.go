package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"portpulse/internal/model"
)

var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func newTestMemory() *Memory {
	m := NewMemory()
	m.SetClock(func() time.Time { return testNow })
	return m
}

func TestMemoryLatestSnapshot(t *testing.T) {
	m := newTestMemory()
	ctx := context.Background()
	if _, err := m.LatestSnapshot(ctx, "USLAX"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	m.AddSnapshot(model.PortSnapshot{Unlocode: "USLAX", SnapshotTS: testNow.Add(-2 * time.Hour), Vessels: 10})
	m.AddSnapshot(model.PortSnapshot{Unlocode: "USLAX", SnapshotTS: testNow.Add(-1 * time.Hour), Vessels: 12})
	m.AddSnapshot(model.PortSnapshot{Unlocode: "USLAX", SnapshotTS: testNow.Add(-3 * time.Hour), Vessels: 8})
	s, err := m.LatestSnapshot(ctx, "USLAX")
	if err != nil {
		t.Fatalf("LatestSnapshot: %v", err)
	}
	if s.Vessels != 12 {
		t.Fatalf("want latest row, got vessels=%d", s.Vessels)
	}
}

func TestMemoryDwellWindowAndUpsert(t *testing.T) {
	m := newTestMemory()
	ctx := context.Background()
	for d := 0; d < 10; d++ {
		m.AddDwell("SGSIN", model.DwellPoint{Date: testNow.AddDate(0, 0, -d), DwellHours: float64(d), Src: "t"})
	}
	m.AddDwell("SGSIN", model.DwellPoint{Date: testNow, DwellHours: 99, Src: "t"})

	pts, err := m.ListDwell(ctx, "SGSIN", 3)
	if err != nil {
		t.Fatalf("ListDwell: %v", err)
	}
	if len(pts) != 4 {
		t.Fatalf("want 4 points (today and 3 days back), got %d", len(pts))
	}
	for i := 1; i < len(pts); i++ {
		if !pts[i-1].Date.Before(pts[i].Date) {
			t.Fatalf("points not ascending at %d", i)
		}
	}
	if pts[len(pts)-1].DwellHours != 99 {
		t.Fatalf("upsert lost: %v", pts[len(pts)-1])
	}
}

func TestMemoryTrendLatestPerDay(t *testing.T) {
	m := newTestMemory()
	day := truncDay(testNow)
	m.AddSnapshot(model.PortSnapshot{Unlocode: "NLRTM", SnapshotTS: day.Add(1 * time.Hour), Vessels: 1})
	m.AddSnapshot(model.PortSnapshot{Unlocode: "NLRTM", SnapshotTS: day.Add(9 * time.Hour), Vessels: 2})
	m.AddSnapshot(model.PortSnapshot{Unlocode: "NLRTM", SnapshotTS: day.Add(-20 * time.Hour), Vessels: 3})
	m.AddSnapshot(model.PortSnapshot{Unlocode: "NLRTM", SnapshotTS: day.AddDate(0, 0, -40), Vessels: 4})

	pts, err := m.ListTrend(context.Background(), "NLRTM", 30)
	if err != nil {
		t.Fatalf("ListTrend: %v", err)
	}
	if len(pts) != 2 {
		t.Fatalf("want 2 days, got %d", len(pts))
	}
	if pts[0].Vessels != 3 || pts[1].Vessels != 2 {
		t.Fatalf("unexpected trend: %+v", pts)
	}
}

func TestMemoryTradePrefixSum(t *testing.T) {
	m := newTestMemory()
	month := firstOfMonth(testNow)
	m.AddTrade("usa", "851712", model.TradePoint{Month: month, ValueUSD: 100, Src: "b"})
	m.AddTrade("USA", "851762", model.TradePoint{Month: month, ValueUSD: 50, Src: "a"})
	m.AddTrade("USA", "940360", model.TradePoint{Month: month, ValueUSD: 7, Src: "a"})
	m.AddTrade("CHN", "851712", model.TradePoint{Month: month, ValueUSD: 9, Src: "a"})
	m.AddTrade("USA", "851712", model.TradePoint{Month: month.AddDate(0, -12, 0), ValueUSD: 1, Src: "a"})

	pts, err := m.ListTradeMonthly(context.Background(), "8517", "USA", 6)
	if err != nil {
		t.Fatalf("ListTradeMonthly: %v", err)
	}
	if len(pts) != 1 {
		t.Fatalf("want 1 month, got %d", len(pts))
	}
	if pts[0].ValueUSD != 150 || pts[0].Src != "a" {
		t.Fatalf("unexpected point: %+v", pts[0])
	}
}

func TestMemorySourcesSince(t *testing.T) {
	m := newTestMemory()
	m.AddSource(model.Source{ID: 2, Name: "old", LastUpdated: testNow.Add(-48 * time.Hour)})
	m.AddSource(model.Source{ID: 1, Name: "new", LastUpdated: testNow.Add(-1 * time.Hour)})
	all, _ := m.ListSources(context.Background(), 0)
	if len(all) != 2 || all[0].ID != 1 {
		t.Fatalf("all sources: %+v", all)
	}
	recent, _ := m.ListSources(context.Background(), 24)
	if len(recent) != 1 || recent[0].Name != "new" {
		t.Fatalf("recent sources: %+v", recent)
	}
}

func TestSeedDemo(t *testing.T) {
	m := newTestMemory()
	SeedDemo(m, testNow)
	ctx := context.Background()
	for _, u := range DemoPorts {
		if _, err := m.LatestSnapshot(ctx, u); err != nil {
			t.Fatalf("%s snapshot: %v", u, err)
		}
		pts, err := m.ListDwell(ctx, u, 14)
		if err != nil || len(pts) != 15 {
			t.Fatalf("%s dwell: %d points, err=%v", u, len(pts), err)
		}
	}
	pts, _ := m.ListTradeMonthly(ctx, "8517", "USA", 6)
	if len(pts) != 7 {
		t.Fatalf("trade months: got %d", len(pts))
	}
}
