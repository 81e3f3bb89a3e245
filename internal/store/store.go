package store

import (
	"context"
	"errors"

	"portpulse/internal/model"
)

// Store is the read interface used by the API server. Implementations return
// series in ascending date order.
type Store interface {
	ListSources(ctx context.Context, sinceHours int) ([]model.Source, error)
	LatestSnapshot(ctx context.Context, unlocode string) (model.PortSnapshot, error)
	ListDwell(ctx context.Context, unlocode string, days int) ([]model.DwellPoint, error)
	ListTrend(ctx context.Context, unlocode string, days int) ([]model.TrendPoint, error)
	ListTradeMonthly(ctx context.Context, hsCode, country string, months int) ([]model.TradePoint, error)
	Ping(ctx context.Context) error
	Close() error
}

var (
	ErrNotFound = errors.New("not found")
	// ErrSchema reports a missing table or column, typically an ETL job that
	// has not populated the database yet.
	ErrSchema = errors.New("schema object missing")
)
