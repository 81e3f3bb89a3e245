package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"portpulse/internal/config"
	"portpulse/internal/model"
)

// Postgres codes surfaced as ErrSchema.
const (
	pgUndefinedTable  = "42P01"
	pgUndefinedColumn = "42703"
)

type Postgres struct {
	db *sql.DB
}

// NewPostgres opens a pooled connection to cfg.URL and verifies it.
func NewPostgres(ctx context.Context, cfg config.DatabaseConfig) (*Postgres, error) {
	db, err := sql.Open("pgx", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxConns)
	db.SetMaxIdleConns(max(cfg.MinConns, 1))
	if cfg.ConnLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnLifetime)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

func (p *Postgres) Close() error { return p.db.Close() }

// MigrateDir executes every *.sql file in dir in lexical order. Files must be
// idempotent; there is no version bookkeeping.
func (p *Postgres) MigrateDir(ctx context.Context, dir string) error {
	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		return err
	}
	sort.Strings(files)
	for _, f := range files {
		b, err := os.ReadFile(f)
		if err != nil {
			return fmt.Errorf("read %s: %w", f, err)
		}
		if strings.TrimSpace(string(b)) == "" {
			continue
		}
		if _, err := p.db.ExecContext(ctx, string(b)); err != nil {
			return fmt.Errorf("apply %s: %w", filepath.Base(f), err)
		}
	}
	return nil
}

func (p *Postgres) ListSources(ctx context.Context, sinceHours int) ([]model.Source, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, name, COALESCE(url, ''), last_updated
		FROM sources
		WHERE $1::int = 0 OR last_updated >= now() - ($1::int * interval '1 hour')
		ORDER BY id`, sinceHours)
	if err != nil {
		return nil, mapErr("list sources", err)
	}
	defer rows.Close()
	out := []model.Source{}
	for rows.Next() {
		var s model.Source
		var updated sql.NullTime
		if err := rows.Scan(&s.ID, &s.Name, &s.URL, &updated); err != nil {
			return nil, mapErr("scan source", err)
		}
		s.LastUpdated = updated.Time.UTC()
		out = append(out, s)
	}
	return out, mapErr("list sources", rows.Err())
}

func (p *Postgres) LatestSnapshot(ctx context.Context, unlocode string) (model.PortSnapshot, error) {
	var s model.PortSnapshot
	err := p.db.QueryRowContext(ctx, `
		SELECT unlocode, snapshot_ts, COALESCE(vessels, 0),
		       COALESCE(avg_wait_hours, 0)::float8, COALESCE(congestion_score, 0)::float8,
		       COALESCE(src, ''), COALESCE(src_loaded_at, snapshot_ts)
		FROM port_snapshots
		WHERE unlocode = $1
		ORDER BY snapshot_ts DESC
		LIMIT 1`, unlocode).
		Scan(&s.Unlocode, &s.SnapshotTS, &s.Vessels, &s.AvgWaitHours, &s.CongestionScore, &s.Src, &s.SrcLoadedAt)
	if err != nil {
		return model.PortSnapshot{}, mapErr("latest snapshot", err)
	}
	s.Unlocode = strings.TrimSpace(s.Unlocode)
	s.SnapshotTS = s.SnapshotTS.UTC()
	s.SrcLoadedAt = s.SrcLoadedAt.UTC()
	return s, nil
}

func (p *Postgres) ListDwell(ctx context.Context, unlocode string, days int) ([]model.DwellPoint, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT date, dwell_hours::float8, COALESCE(src, '')
		FROM port_dwell
		WHERE unlocode = $1 AND date >= CURRENT_DATE - $2::int
		ORDER BY date ASC`, unlocode, days)
	if err != nil {
		return nil, mapErr("list dwell", err)
	}
	defer rows.Close()
	out := []model.DwellPoint{}
	for rows.Next() {
		var d model.DwellPoint
		if err := rows.Scan(&d.Date, &d.DwellHours, &d.Src); err != nil {
			return nil, mapErr("scan dwell", err)
		}
		out = append(out, d)
	}
	return out, mapErr("list dwell", rows.Err())
}

// ListTrend returns the last snapshot of each UTC day within the window.
func (p *Postgres) ListTrend(ctx context.Context, unlocode string, days int) ([]model.TrendPoint, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT day, vessels, avg_wait_hours, congestion_score, src FROM (
			SELECT DISTINCT ON ((snapshot_ts AT TIME ZONE 'UTC')::date)
			       (snapshot_ts AT TIME ZONE 'UTC')::date AS day,
			       COALESCE(vessels, 0) AS vessels,
			       COALESCE(avg_wait_hours, 0)::float8 AS avg_wait_hours,
			       COALESCE(congestion_score, 0)::float8 AS congestion_score,
			       COALESCE(src, '') AS src
			FROM port_snapshots
			WHERE unlocode = $1 AND snapshot_ts >= now() - ($2::int * interval '1 day')
			ORDER BY (snapshot_ts AT TIME ZONE 'UTC')::date, snapshot_ts DESC
		) t
		ORDER BY day ASC`, unlocode, days)
	if err != nil {
		return nil, mapErr("list trend", err)
	}
	defer rows.Close()
	out := []model.TrendPoint{}
	for rows.Next() {
		var t model.TrendPoint
		if err := rows.Scan(&t.Date, &t.Vessels, &t.AvgWaitHours, &t.CongestionScore, &t.Src); err != nil {
			return nil, mapErr("scan trend", err)
		}
		out = append(out, t)
	}
	return out, mapErr("list trend", rows.Err())
}

// ListTradeMonthly sums imports of every HS code starting with hsCode into
// country, per month, over the last months months.
func (p *Postgres) ListTradeMonthly(ctx context.Context, hsCode, country string, months int) ([]model.TradePoint, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT period, SUM(value_usd)::float8, COALESCE(MIN(src), '')
		FROM fact_trade_monthly
		WHERE upper(country_iso3) = upper($1)
		  AND hs_code LIKE $2 || '%'
		  AND period >= date_trunc('month', CURRENT_DATE) - ($3::int * interval '1 month')
		GROUP BY period
		ORDER BY period ASC`, country, hsCode, months)
	if err != nil {
		return nil, mapErr("list trade", err)
	}
	defer rows.Close()
	out := []model.TradePoint{}
	for rows.Next() {
		var t model.TradePoint
		if err := rows.Scan(&t.Month, &t.ValueUSD, &t.Src); err != nil {
			return nil, mapErr("scan trade", err)
		}
		out = append(out, t)
	}
	return out, mapErr("list trade", rows.Err())
}

// mapErr translates driver errors into the package sentinels.
func mapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && (pgErr.Code == pgUndefinedTable || pgErr.Code == pgUndefinedColumn) {
		return fmt.Errorf("%s: %w: %s", op, ErrSchema, pgErr.Message)
	}
	return fmt.Errorf("%s: %w", op, err)
}
