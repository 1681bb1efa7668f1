package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"daily-bias-engine/internal/domain"
	"daily-bias-engine/internal/session"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"
)

const priceCacheTTL = 90 * time.Second

// Free-tier series sizes. Minute bars cover the current and previous local
// day plus slack for the overnight kill zones; hourly and daily cover the
// weekly/monthly anchors.
const (
	minuteOutputSize = 3000
	hourlyOutputSize = 1500
	dailyOutputSize  = 120
)

type BarProvider interface {
	FetchSeries(ctx context.Context, symbol string, resolution domain.Resolution, outputSize int) ([]*domain.Bar, error)
	FetchPrice(ctx context.Context, symbol string) (*domain.PriceSnapshot, error)
}

type BarRepository interface {
	UpsertBars(ctx context.Context, bars []*domain.Bar) error
	GetBars(ctx context.Context, symbol string, resolution domain.Resolution, limit int) ([]*domain.Bar, error)
	GetBarsInRange(ctx context.Context, symbol string, resolution domain.Resolution, from, to time.Time) ([]*domain.Bar, error)
	GetBarAt(ctx context.Context, symbol string, resolution domain.Resolution, openTime time.Time) (*domain.Bar, error)
}

type RedisClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

// MarketDataService orchestrates bar fetching, session filtering, storage,
// and spot-price caching.
type MarketDataService struct {
	tracer   trace.Tracer
	provider BarProvider
	repo     BarRepository
	resolver *session.Resolver
	redis    RedisClient
}

func NewMarketDataService(
	tracer trace.Tracer,
	provider BarProvider,
	repo BarRepository,
	resolver *session.Resolver,
	redisClient RedisClient,
) *MarketDataService {
	return &MarketDataService{
		tracer:   tracer,
		provider: provider,
		repo:     repo,
		resolver: resolver,
		redis:    redisClient,
	}
}

// GetCurrentPrice returns the latest cached price for a symbol, falling back
// to a live API call when the cache is empty or expired.
func (s *MarketDataService) GetCurrentPrice(ctx context.Context, symbol string) (*domain.PriceSnapshot, error) {
	_, span := s.tracer.Start(ctx, "marketdata-service.get-current-price")
	defer span.End()

	if _, ok := domain.Instruments[symbol]; !ok {
		return nil, fmt.Errorf("unsupported symbol: %s", symbol)
	}

	if s.redis != nil {
		cached, err := s.getPriceCache(ctx, symbol)
		if err != nil {
			log.Printf("redis cache read error: %v", err)
		}
		if cached != nil {
			return cached, nil
		}
	}

	snap, err := s.provider.FetchPrice(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if s.redis != nil {
		_ = s.setPriceCache(ctx, snap)
	}
	return snap, nil
}

// RefreshIntradayBars fetches minute and hourly series for one symbol,
// drops out-of-session bars per the instrument's venue calendar, and stores
// the rest.
func (s *MarketDataService) RefreshIntradayBars(ctx context.Context, symbol string) error {
	_, span := s.tracer.Start(ctx, "marketdata-service.refresh-intraday-bars")
	defer span.End()

	if err := s.refreshSeries(ctx, symbol, domain.Resolution1m, minuteOutputSize); err != nil {
		return err
	}
	return s.refreshSeries(ctx, symbol, domain.Resolution1h, hourlyOutputSize)
}

// RefreshDailyBars fetches the daily series backing the weekly, monthly and
// previous-day levels.
func (s *MarketDataService) RefreshDailyBars(ctx context.Context, symbol string) error {
	_, span := s.tracer.Start(ctx, "marketdata-service.refresh-daily-bars")
	defer span.End()

	return s.refreshSeries(ctx, symbol, domain.Resolution1d, dailyOutputSize)
}

func (s *MarketDataService) refreshSeries(ctx context.Context, symbol string, resolution domain.Resolution, outputSize int) error {
	inst, ok := domain.Instruments[symbol]
	if !ok {
		return fmt.Errorf("unsupported symbol: %s", symbol)
	}
	if s.repo == nil {
		// Cache-only mode: nowhere to store bars, so don't spend the
		// vendor rate budget fetching them.
		return nil
	}

	bars, err := s.provider.FetchSeries(ctx, symbol, resolution, outputSize)
	if err != nil {
		return err
	}

	// Daily bars are date-stamped (00:00 UTC) and aggregate a whole trading
	// day; checking their wall-clock instant against the venue session would
	// drop every daily bar for venues with cash hours. The filter only
	// applies to intraday resolutions.
	kept := bars
	if resolution != domain.Resolution1d {
		kept = s.filterInSession(bars, inst)
	}
	if err := s.repo.UpsertBars(ctx, kept); err != nil {
		return fmt.Errorf("upsert %s bars for %s: %w", resolution, symbol, err)
	}

	log.Printf("Refreshed %s bars for %s (%d fetched, %d in session)", resolution, symbol, len(bars), len(kept))
	return nil
}

// GetBars returns stored bars in ascending open-time order. Without a bar
// store every read comes back empty and downstream levels stay absent.
func (s *MarketDataService) GetBars(ctx context.Context, symbol string, resolution domain.Resolution, limit int) ([]*domain.Bar, error) {
	if s.repo == nil {
		return nil, nil
	}
	return s.repo.GetBars(ctx, symbol, resolution, limit)
}

func (s *MarketDataService) GetBarsInRange(ctx context.Context, symbol string, resolution domain.Resolution, from, to time.Time) ([]*domain.Bar, error) {
	if s.repo == nil {
		return nil, nil
	}
	return s.repo.GetBarsInRange(ctx, symbol, resolution, from, to)
}

func (s *MarketDataService) GetBarAt(ctx context.Context, symbol string, resolution domain.Resolution, openTime time.Time) (*domain.Bar, error) {
	if s.repo == nil {
		return nil, nil
	}
	return s.repo.GetBarAt(ctx, symbol, resolution, openTime)
}

func (s *MarketDataService) filterInSession(bars []*domain.Bar, inst domain.Instrument) []*domain.Bar {
	kept := make([]*domain.Bar, 0, len(bars))
	for _, b := range bars {
		if s.resolver.InSession(b.OpenTime, inst) {
			kept = append(kept, b)
		}
	}
	return kept
}

func (s *MarketDataService) setPriceCache(ctx context.Context, snapshot *domain.PriceSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, "price:"+snapshot.Symbol, data, priceCacheTTL).Err()
}

func (s *MarketDataService) getPriceCache(ctx context.Context, symbol string) (*domain.PriceSnapshot, error) {
	data, err := s.redis.Get(ctx, "price:"+symbol).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var snapshot domain.PriceSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}
