package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"daily-bias-engine/internal/domain"
	"daily-bias-engine/internal/intraday"
	"daily-bias-engine/internal/levels"
	"daily-bias-engine/internal/scoring"
	"daily-bias-engine/internal/session"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"
)

// Lookback spans for the bar series one forecast reads. Minute bars must
// reach back past the previous day's kill zones even across a weekend;
// hourly bars back the degraded-open fallbacks; daily bars back the
// previous-week and monthly anchors.
const (
	minuteLookback = 4 * 24 * time.Hour
	hourlyLookback = 8 * 24 * time.Hour
	dailyLookback  = 95 * 24 * time.Hour
)

type MarketData interface {
	GetCurrentPrice(ctx context.Context, symbol string) (*domain.PriceSnapshot, error)
	GetBarsInRange(ctx context.Context, symbol string, resolution domain.Resolution, from, to time.Time) ([]*domain.Bar, error)
	GetBarAt(ctx context.Context, symbol string, resolution domain.Resolution, openTime time.Time) (*domain.Bar, error)
}

type PredictionStore interface {
	UpsertPrediction(ctx context.Context, p domain.IntradayPrediction) (*domain.IntradayPrediction, error)
	ListUnverified(ctx context.Context, cutoff time.Time, limit int) ([]domain.IntradayPrediction, error)
	MarkVerified(ctx context.Context, id int64, outcome domain.PredictionOutcome, referenceOpen, targetClose float64) error
	ListBySymbol(ctx context.Context, symbol string, limit int) ([]domain.IntradayPrediction, error)
	Accuracy(ctx context.Context, symbol string, since time.Time) (*domain.AccuracyStats, error)
}

// LevelsReport is the transport view of one level-calculation pass.
type LevelsReport struct {
	Symbol       string              `json:"symbol"`
	AsOf         time.Time           `json:"as_of"`
	CurrentPrice float64             `json:"current_price"`
	Levels       []domain.LevelValue `json:"levels"`
}

// ForecastService runs the full pipeline: bars in, reference levels,
// weighted scoring, intraday lifecycle, persistence, caching.
type ForecastService struct {
	tracer      trace.Tracer
	market      MarketData
	predictions PredictionStore
	calculator  *levels.Calculator
	scorer      *scoring.Scorer
	evaluator   *intraday.Evaluator
	resolver    *session.Resolver
	redis       RedisClient
	cacheTTL    time.Duration
	now         func() time.Time
}

func NewForecastService(
	tracer trace.Tracer,
	market MarketData,
	predictions PredictionStore,
	calculator *levels.Calculator,
	scorer *scoring.Scorer,
	evaluator *intraday.Evaluator,
	resolver *session.Resolver,
	redisClient RedisClient,
	cacheTTL time.Duration,
) *ForecastService {
	return &ForecastService{
		tracer:      tracer,
		market:      market,
		predictions: predictions,
		calculator:  calculator,
		scorer:      scorer,
		evaluator:   evaluator,
		resolver:    resolver,
		redis:       redisClient,
		cacheTTL:    cacheTTL,
		now:         time.Now,
	}
}

// GetForecast returns the cached forecast when fresh, otherwise computes,
// persists and caches a new one.
func (s *ForecastService) GetForecast(ctx context.Context, symbol string) (*domain.Forecast, error) {
	ctx, span := s.tracer.Start(ctx, "forecast-service.get-forecast")
	defer span.End()

	if _, ok := domain.Instruments[symbol]; !ok {
		return nil, fmt.Errorf("unsupported symbol: %s", symbol)
	}

	if s.redis != nil {
		cached, err := s.getForecastCache(ctx, symbol)
		if err != nil {
			log.Printf("redis cache read error: %v", err)
		}
		if cached != nil {
			return cached, nil
		}
	}

	forecast, err := s.ComputeForecast(ctx, symbol)
	if err != nil {
		return nil, err
	}

	if s.redis != nil {
		_ = s.setForecastCache(ctx, forecast)
	}
	return forecast, nil
}

// ComputeForecast always runs the full pipeline, bypassing the cache.
func (s *ForecastService) ComputeForecast(ctx context.Context, symbol string) (*domain.Forecast, error) {
	ctx, span := s.tracer.Start(ctx, "forecast-service.compute-forecast")
	defer span.End()

	inst, ok := domain.Instruments[symbol]
	if !ok {
		return nil, fmt.Errorf("unsupported symbol: %s", symbol)
	}
	now := s.now().UTC()

	in, err := s.loadInput(ctx, inst, now)
	if err != nil {
		return nil, err
	}

	price, err := s.currentPrice(ctx, in)
	if err != nil {
		return nil, err
	}

	snap := s.calculator.Compute(in)
	result := s.scorer.Score(price, snap)

	forecast := &domain.Forecast{
		Symbol:       symbol,
		AsOf:         now,
		CurrentPrice: price,
		Window:       string(s.resolver.PredictionWindow(now, inst)),
		Result:       result,
	}

	for _, refHour := range intraday.ReferenceHours {
		pred := s.evaluateHour(ctx, inst, now, refHour, result)
		if s.predictions != nil {
			stored, err := s.predictions.UpsertPrediction(ctx, pred)
			if err != nil {
				log.Printf("persist prediction %s h%d: %v", symbol, refHour, err)
			} else if stored != nil {
				pred = *stored
			}
		}
		forecast.Intraday = append(forecast.Intraday, pred)
	}

	return forecast, nil
}

// GetLevels computes the 18-slot reference snapshot without scoring it.
func (s *ForecastService) GetLevels(ctx context.Context, symbol string) (*LevelsReport, error) {
	ctx, span := s.tracer.Start(ctx, "forecast-service.get-levels")
	defer span.End()

	inst, ok := domain.Instruments[symbol]
	if !ok {
		return nil, fmt.Errorf("unsupported symbol: %s", symbol)
	}
	now := s.now().UTC()

	in, err := s.loadInput(ctx, inst, now)
	if err != nil {
		return nil, err
	}
	price, err := s.currentPrice(ctx, in)
	if err != nil {
		return nil, err
	}

	snap := s.calculator.Compute(in)
	report := &LevelsReport{Symbol: symbol, AsOf: now, CurrentPrice: price}
	for _, name := range snap.Names() {
		level, _ := snap.Get(name)
		report.Levels = append(report.Levels, domain.ViewOf(name, level))
	}
	return report, nil
}

// ResolvePending settles every prediction whose target hour plus settle
// delay has elapsed and whose bars are available. Returns the number of
// predictions verified.
func (s *ForecastService) ResolvePending(ctx context.Context) (int, error) {
	ctx, span := s.tracer.Start(ctx, "forecast-service.resolve-pending")
	defer span.End()

	if s.predictions == nil {
		return 0, nil
	}
	now := s.now().UTC()

	pending, err := s.predictions.ListUnverified(ctx, now, 200)
	if err != nil {
		return 0, err
	}

	verified := 0
	for _, p := range pending {
		inst, ok := domain.Instruments[p.Symbol]
		if !ok {
			continue
		}

		// Rebuild the reference hour's UTC instant from the stored local
		// trade date.
		loc := s.resolver.Location(inst)
		refStart := time.Date(p.TradeDate.Year(), p.TradeDate.Month(), p.TradeDate.Day(),
			p.ReferenceHour, 0, 0, 0, loc).UTC()
		lockAt := refStart.Add(2 * time.Hour).Add(intraday.SettleDelay)
		if now.Before(lockAt) {
			continue
		}

		refBar, err := s.market.GetBarAt(ctx, p.Symbol, domain.Resolution1h, refStart)
		if err != nil || refBar == nil {
			continue
		}
		targetBar, err := s.market.GetBarAt(ctx, p.Symbol, domain.Resolution1h, refStart.Add(time.Hour))
		if err != nil || targetBar == nil {
			continue
		}

		outcome := intraday.Verify(p.Prediction, refBar.Open, targetBar.Close)
		if err := s.predictions.MarkVerified(ctx, p.ID, outcome, refBar.Open, targetBar.Close); err != nil {
			log.Printf("mark verified %s %s h%d: %v", p.Symbol, p.TradeDate.Format("2006-01-02"), p.ReferenceHour, err)
			continue
		}
		verified++
	}
	return verified, nil
}

// History lists recent intraday predictions for a symbol, newest first.
func (s *ForecastService) History(ctx context.Context, symbol string, limit int) ([]domain.IntradayPrediction, error) {
	ctx, span := s.tracer.Start(ctx, "forecast-service.history")
	defer span.End()

	if s.predictions == nil {
		return nil, nil
	}
	return s.predictions.ListBySymbol(ctx, symbol, limit)
}

// Accuracy aggregates verified outcomes over the trailing window.
func (s *ForecastService) Accuracy(ctx context.Context, symbol string, days int) (*domain.AccuracyStats, error) {
	ctx, span := s.tracer.Start(ctx, "forecast-service.accuracy")
	defer span.End()

	if s.predictions == nil {
		return &domain.AccuracyStats{Symbol: symbol}, nil
	}
	if days <= 0 {
		days = 30
	}
	since := s.now().UTC().AddDate(0, 0, -days)
	return s.predictions.Accuracy(ctx, symbol, since)
}

func (s *ForecastService) evaluateHour(ctx context.Context, inst domain.Instrument, now time.Time, refHour int, result domain.PredictionResult) domain.IntradayPrediction {
	in := intraday.Input{
		Instrument:    inst,
		Now:           now,
		ReferenceHour: refHour,
		Result:        result,
	}

	refStart := s.resolver.LocalHourInstant(now, refHour, 0, inst)
	if refBar, err := s.market.GetBarAt(ctx, inst.Symbol, domain.Resolution1h, refStart); err == nil && refBar != nil {
		open := refBar.Open
		in.ReferenceOpen = &open
	}
	if targetBar, err := s.market.GetBarAt(ctx, inst.Symbol, domain.Resolution1h, refStart.Add(time.Hour)); err == nil && targetBar != nil {
		cl := targetBar.Close
		in.TargetClose = &cl
	}

	return s.evaluator.Evaluate(in)
}

func (s *ForecastService) loadInput(ctx context.Context, inst domain.Instrument, now time.Time) (levels.Input, error) {
	in := levels.Input{Instrument: inst, Now: now}

	minute, err := s.market.GetBarsInRange(ctx, inst.Symbol, domain.Resolution1m, now.Add(-minuteLookback), now)
	if err != nil {
		return in, fmt.Errorf("load minute bars for %s: %w", inst.Symbol, err)
	}
	hourly, err := s.market.GetBarsInRange(ctx, inst.Symbol, domain.Resolution1h, now.Add(-hourlyLookback), now)
	if err != nil {
		return in, fmt.Errorf("load hourly bars for %s: %w", inst.Symbol, err)
	}
	daily, err := s.market.GetBarsInRange(ctx, inst.Symbol, domain.Resolution1d, now.Add(-dailyLookback), now)
	if err != nil {
		return in, fmt.Errorf("load daily bars for %s: %w", inst.Symbol, err)
	}

	in.Minute = derefBars(minute)
	in.Hourly = derefBars(hourly)
	in.Daily = derefBars(daily)
	return in, nil
}

// currentPrice prefers the live quote and falls back to the latest stored
// minute close so a vendor outage degrades the forecast instead of killing
// it.
func (s *ForecastService) currentPrice(ctx context.Context, in levels.Input) (float64, error) {
	snap, err := s.market.GetCurrentPrice(ctx, in.Instrument.Symbol)
	if err == nil && snap != nil && snap.Price > 0 {
		return snap.Price, nil
	}
	if err != nil {
		log.Printf("live price for %s unavailable: %v", in.Instrument.Symbol, err)
	}
	if n := len(in.Minute); n > 0 {
		return in.Minute[n-1].Close, nil
	}
	return 0, fmt.Errorf("no price available for %s", in.Instrument.Symbol)
}

func derefBars(bars []*domain.Bar) []domain.Bar {
	out := make([]domain.Bar, 0, len(bars))
	for _, b := range bars {
		if b != nil {
			out = append(out, *b)
		}
	}
	return out
}

func (s *ForecastService) setForecastCache(ctx context.Context, forecast *domain.Forecast) error {
	data, err := json.Marshal(forecast)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, "forecast:"+forecast.Symbol, data, s.cacheTTL).Err()
}

func (s *ForecastService) getForecastCache(ctx context.Context, symbol string) (*domain.Forecast, error) {
	data, err := s.redis.Get(ctx, "forecast:"+symbol).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var forecast domain.Forecast
	if err := json.Unmarshal(data, &forecast); err != nil {
		return nil, err
	}
	return &forecast, nil
}
