package repository

import (
	"context"
	"time"

	"daily-bias-engine/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/trace"
)

const createBarsTable = `
CREATE TABLE IF NOT EXISTS bars (
    symbol      TEXT        NOT NULL,
    resolution  TEXT        NOT NULL,
    open_time   TIMESTAMPTZ NOT NULL,
    open        NUMERIC     NOT NULL,
    high        NUMERIC     NOT NULL,
    low         NUMERIC     NOT NULL,
    close       NUMERIC     NOT NULL,
    volume      NUMERIC     NOT NULL,
    PRIMARY KEY (symbol, resolution, open_time)
);

CREATE INDEX IF NOT EXISTS idx_bars_symbol_resolution_time
    ON bars (symbol, resolution, open_time DESC);
`

type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type BarRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewBarRepository(pool PgxPool, tracer trace.Tracer) *BarRepository {
	return &BarRepository{pool: pool, tracer: tracer}
}

func (r *BarRepository) RunMigrations(ctx context.Context) error {
	_, span := r.tracer.Start(ctx, "bar-repo.run-migrations")
	defer span.End()

	_, err := r.pool.Exec(ctx, createBarsTable)
	return err
}

func (r *BarRepository) UpsertBars(ctx context.Context, bars []*domain.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	_, span := r.tracer.Start(ctx, "bar-repo.upsert-bars")
	defer span.End()

	batch := &pgx.Batch{}
	for _, b := range bars {
		batch.Queue(
			`INSERT INTO bars (symbol, resolution, open_time, open, high, low, close, volume)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 ON CONFLICT (symbol, resolution, open_time) DO UPDATE SET
			     open = EXCLUDED.open,
			     high = EXCLUDED.high,
			     low = EXCLUDED.low,
			     close = EXCLUDED.close,
			     volume = EXCLUDED.volume`,
			b.Symbol, string(b.Resolution), b.OpenTime.UTC(), b.Open, b.High, b.Low, b.Close, b.Volume,
		)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range bars {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

func (r *BarRepository) GetBars(ctx context.Context, symbol string, resolution domain.Resolution, limit int) ([]*domain.Bar, error) {
	_, span := r.tracer.Start(ctx, "bar-repo.get-bars")
	defer span.End()

	rows, err := r.pool.Query(ctx,
		`SELECT symbol, resolution, open_time, open, high, low, close, volume
		 FROM bars
		 WHERE symbol = $1 AND resolution = $2
		 ORDER BY open_time DESC
		 LIMIT $3`,
		symbol, string(resolution), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bars, err := scanBars(rows)
	if err != nil {
		return nil, err
	}
	// The level calculator wants ascending open time.
	reverseBars(bars)
	return bars, nil
}

func (r *BarRepository) GetBarsInRange(ctx context.Context, symbol string, resolution domain.Resolution, from, to time.Time) ([]*domain.Bar, error) {
	_, span := r.tracer.Start(ctx, "bar-repo.get-bars-in-range")
	defer span.End()

	rows, err := r.pool.Query(ctx,
		`SELECT symbol, resolution, open_time, open, high, low, close, volume
		 FROM bars
		 WHERE symbol = $1 AND resolution = $2 AND open_time >= $3 AND open_time <= $4
		 ORDER BY open_time ASC`,
		symbol, string(resolution), from.UTC(), to.UTC(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanBars(rows)
}

// GetBarAt returns the bar with the exact open time, or nil when absent.
func (r *BarRepository) GetBarAt(ctx context.Context, symbol string, resolution domain.Resolution, openTime time.Time) (*domain.Bar, error) {
	_, span := r.tracer.Start(ctx, "bar-repo.get-bar-at")
	defer span.End()

	row := r.pool.QueryRow(ctx,
		`SELECT symbol, resolution, open_time, open, high, low, close, volume
		 FROM bars
		 WHERE symbol = $1 AND resolution = $2 AND open_time = $3`,
		symbol, string(resolution), openTime.UTC(),
	)

	b := &domain.Bar{}
	var resolution2 string
	if err := row.Scan(&b.Symbol, &resolution2, &b.OpenTime, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	b.Resolution = domain.Resolution(resolution2)
	b.OpenTime = b.OpenTime.UTC()
	return b, nil
}

func scanBars(rows pgx.Rows) ([]*domain.Bar, error) {
	var bars []*domain.Bar
	for rows.Next() {
		b := &domain.Bar{}
		var resolution string
		if err := rows.Scan(&b.Symbol, &resolution, &b.OpenTime, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, err
		}
		b.Resolution = domain.Resolution(resolution)
		b.OpenTime = b.OpenTime.UTC()
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

func reverseBars(bars []*domain.Bar) {
	for i, j := 0, len(bars)-1; i < j; i, j = i+1, j-1 {
		bars[i], bars[j] = bars[j], bars[i]
	}
}
