package repository

import (
	"context"
	"time"

	"daily-bias-engine/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"go.opentelemetry.io/otel/trace"
)

const createPredictionsTable = `
CREATE TABLE IF NOT EXISTS intraday_predictions (
    id              BIGSERIAL   PRIMARY KEY,
    symbol          TEXT        NOT NULL,
    trade_date      DATE        NOT NULL,
    reference_hour  SMALLINT    NOT NULL,
    prediction      TEXT        NOT NULL,
    confidence      DOUBLE PRECISION NOT NULL,
    base_confidence DOUBLE PRECISION NOT NULL,
    decay_factor    DOUBLE PRECISION NOT NULL,
    status          TEXT        NOT NULL,
    reference_open  DOUBLE PRECISION,
    target_close    DOUBLE PRECISION,
    outcome         TEXT,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    verified_at     TIMESTAMPTZ,
    UNIQUE (symbol, trade_date, reference_hour)
);

CREATE INDEX IF NOT EXISTS idx_intraday_predictions_status
    ON intraday_predictions (status, trade_date);
`

type PredictionRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewPredictionRepository(pool PgxPool, tracer trace.Tracer) *PredictionRepository {
	return &PredictionRepository{pool: pool, tracer: tracer}
}

func (r *PredictionRepository) RunMigrations(ctx context.Context) error {
	_, span := r.tracer.Start(ctx, "prediction-repo.run-migrations")
	defer span.End()

	_, err := r.pool.Exec(ctx, createPredictionsTable)
	return err
}

// UpsertPrediction writes one (symbol, trade date, reference hour) slot.
// VERIFIED rows are frozen: a later upsert never overwrites a settled
// outcome.
func (r *PredictionRepository) UpsertPrediction(ctx context.Context, p domain.IntradayPrediction) (*domain.IntradayPrediction, error) {
	_, span := r.tracer.Start(ctx, "prediction-repo.upsert")
	defer span.End()

	row := r.pool.QueryRow(ctx, `
INSERT INTO intraday_predictions (
    symbol, trade_date, reference_hour,
    prediction, confidence, base_confidence, decay_factor,
    status, reference_open, target_close, outcome, verified_at
) VALUES (
    $1, $2, $3,
    $4, $5, $6, $7,
    $8, $9, $10, $11, $12
)
ON CONFLICT (symbol, trade_date, reference_hour) DO UPDATE SET
    prediction = EXCLUDED.prediction,
    confidence = EXCLUDED.confidence,
    base_confidence = EXCLUDED.base_confidence,
    decay_factor = EXCLUDED.decay_factor,
    status = EXCLUDED.status,
    reference_open = EXCLUDED.reference_open,
    target_close = EXCLUDED.target_close,
    outcome = EXCLUDED.outcome,
    verified_at = EXCLUDED.verified_at
WHERE intraday_predictions.status <> 'VERIFIED'
RETURNING id, symbol, trade_date, reference_hour,
          prediction, confidence, base_confidence, decay_factor,
          status, reference_open, target_close, outcome,
          created_at, verified_at`,
		p.Symbol,
		p.TradeDate.UTC(),
		int16(p.ReferenceHour),
		string(p.Prediction),
		p.Confidence,
		p.BaseConfidence,
		p.DecayFactor,
		string(p.Status),
		p.ReferenceOpen,
		p.TargetClose,
		outcomeText(p.Outcome),
		p.VerifiedAt,
	)
	out, err := scanPredictionRow(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			// Conflict with a VERIFIED row; return the frozen record.
			return r.getPrediction(ctx, p.Symbol, p.TradeDate, p.ReferenceHour)
		}
		return nil, err
	}
	return out, nil
}

// ListUnverified returns LOCKED-or-earlier rows whose trade date is at or
// before cutoff, oldest first, for the verifier job.
func (r *PredictionRepository) ListUnverified(ctx context.Context, cutoff time.Time, limit int) ([]domain.IntradayPrediction, error) {
	_, span := r.tracer.Start(ctx, "prediction-repo.list-unverified")
	defer span.End()

	if limit <= 0 {
		limit = 200
	}
	rows, err := r.pool.Query(ctx, `
SELECT id, symbol, trade_date, reference_hour,
       prediction, confidence, base_confidence, decay_factor,
       status, reference_open, target_close, outcome,
       created_at, verified_at
FROM intraday_predictions
WHERE status <> 'VERIFIED'
  AND trade_date <= $1
ORDER BY trade_date ASC, reference_hour ASC
LIMIT $2`, cutoff.UTC(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.IntradayPrediction, 0, limit)
	for rows.Next() {
		p, err := scanPredictionRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// MarkVerified settles a row; only non-VERIFIED rows are touched.
func (r *PredictionRepository) MarkVerified(ctx context.Context, id int64, outcome domain.PredictionOutcome, referenceOpen, targetClose float64) error {
	_, span := r.tracer.Start(ctx, "prediction-repo.mark-verified")
	defer span.End()

	tag, err := r.pool.Exec(ctx, `
UPDATE intraday_predictions
SET status = 'VERIFIED',
    outcome = $2,
    reference_open = $3,
    target_close = $4,
    verified_at = NOW()
WHERE id = $1
  AND status <> 'VERIFIED'`, id, string(outcome), referenceOpen, targetClose)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *PredictionRepository) ListBySymbol(ctx context.Context, symbol string, limit int) ([]domain.IntradayPrediction, error) {
	_, span := r.tracer.Start(ctx, "prediction-repo.list-by-symbol")
	defer span.End()

	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
SELECT id, symbol, trade_date, reference_hour,
       prediction, confidence, base_confidence, decay_factor,
       status, reference_open, target_close, outcome,
       created_at, verified_at
FROM intraday_predictions
WHERE symbol = $1
ORDER BY trade_date DESC, reference_hour DESC
LIMIT $2`, symbol, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.IntradayPrediction
	for rows.Next() {
		p, err := scanPredictionRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *PredictionRepository) Accuracy(ctx context.Context, symbol string, since time.Time) (*domain.AccuracyStats, error) {
	_, span := r.tracer.Start(ctx, "prediction-repo.accuracy")
	defer span.End()

	row := r.pool.QueryRow(ctx, `
SELECT COUNT(*) FILTER (WHERE status = 'VERIFIED'),
       COUNT(*) FILTER (WHERE outcome = 'CORRECT')
FROM intraday_predictions
WHERE symbol = $1
  AND trade_date >= $2`, symbol, since.UTC())

	stats := &domain.AccuracyStats{Symbol: symbol}
	if err := row.Scan(&stats.Verified, &stats.Correct); err != nil {
		return nil, err
	}
	if stats.Verified > 0 {
		stats.HitRate = float64(stats.Correct) / float64(stats.Verified)
	}
	return stats, nil
}

func (r *PredictionRepository) getPrediction(ctx context.Context, symbol string, tradeDate time.Time, referenceHour int) (*domain.IntradayPrediction, error) {
	row := r.pool.QueryRow(ctx, `
SELECT id, symbol, trade_date, reference_hour,
       prediction, confidence, base_confidence, decay_factor,
       status, reference_open, target_close, outcome,
       created_at, verified_at
FROM intraday_predictions
WHERE symbol = $1 AND trade_date = $2 AND reference_hour = $3`,
		symbol, tradeDate.UTC(), int16(referenceHour))
	return scanPredictionRow(row)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPredictionRow(s scanner) (*domain.IntradayPrediction, error) {
	var out domain.IntradayPrediction
	var prediction, status string
	var referenceHour int16
	var referenceOpen, targetClose pgtype.Float8
	var outcome pgtype.Text
	var verifiedAt pgtype.Timestamptz

	if err := s.Scan(
		&out.ID,
		&out.Symbol,
		&out.TradeDate,
		&referenceHour,
		&prediction,
		&out.Confidence,
		&out.BaseConfidence,
		&out.DecayFactor,
		&status,
		&referenceOpen,
		&targetClose,
		&outcome,
		&out.CreatedAt,
		&verifiedAt,
	); err != nil {
		return nil, err
	}
	out.ReferenceHour = int(referenceHour)
	out.Prediction = domain.Direction(prediction)
	out.Status = domain.PredictionStatus(status)
	out.TradeDate = out.TradeDate.UTC()
	out.CreatedAt = out.CreatedAt.UTC()

	if referenceOpen.Valid {
		v := referenceOpen.Float64
		out.ReferenceOpen = &v
	}
	if targetClose.Valid {
		v := targetClose.Float64
		out.TargetClose = &v
	}
	if outcome.Valid {
		v := domain.PredictionOutcome(outcome.String)
		out.Outcome = &v
	}
	if verifiedAt.Valid {
		t := verifiedAt.Time.UTC()
		out.VerifiedAt = &t
	}
	return &out, nil
}

func outcomeText(o *domain.PredictionOutcome) *string {
	if o == nil {
		return nil
	}
	s := string(*o)
	return &s
}
