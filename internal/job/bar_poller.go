package job

import (
	"context"
	"log"
	"time"

	"daily-bias-engine/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

// BarPoller runs background goroutines that keep the bar store current
// within the vendor's rate budget.
type BarPoller struct {
	tracer       trace.Tracer
	market       BarRefresher
	pollInterval time.Duration
}

type BarRefresher interface {
	RefreshIntradayBars(ctx context.Context, symbol string) error
	RefreshDailyBars(ctx context.Context, symbol string) error
}

func NewBarPoller(tracer trace.Tracer, market BarRefresher, pollIntervalSecs int) *BarPoller {
	return &BarPoller{
		tracer:       tracer,
		market:       market,
		pollInterval: time.Duration(pollIntervalSecs) * time.Second,
	}
}

// Start launches the polling goroutines and blocks until ctx is cancelled.
func (p *BarPoller) Start(ctx context.Context) {
	log.Println("Bar poller starting...")

	// Tier 1: intraday bars, 2 instruments per tick, round-robin.
	go p.pollIntraday(ctx)

	// Tier 2: daily bars, 1 instrument every 30 minutes, round-robin.
	go p.pollDaily(ctx)

	<-ctx.Done()
	log.Println("Bar poller stopped")
}

func (p *BarPoller) pollIntraday(ctx context.Context) {
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	idx := 0
	perTick := 2

	p.refreshIntradayBatch(ctx, &idx, perTick)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.refreshIntradayBatch(ctx, &idx, perTick)
		}
	}
}

func (p *BarPoller) refreshIntradayBatch(ctx context.Context, idx *int, count int) {
	symbols := domain.SupportedSymbols
	for i := 0; i < count; i++ {
		symbol := symbols[*idx%len(symbols)]
		*idx++

		if err := p.market.RefreshIntradayBars(ctx, symbol); err != nil {
			log.Printf("intraday bar refresh error for %s: %v", symbol, err)
		}
	}
}

func (p *BarPoller) pollDaily(ctx context.Context) {
	// Stagger behind the intraday tier so both don't burn tokens at once.
	select {
	case <-ctx.Done():
		return
	case <-time.After(30 * time.Second):
	}

	ticker := time.NewTicker(30 * time.Minute)
	defer ticker.Stop()

	idx := 0

	p.refreshDailyBatch(ctx, &idx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.refreshDailyBatch(ctx, &idx)
		}
	}
}

func (p *BarPoller) refreshDailyBatch(ctx context.Context, idx *int) {
	symbols := domain.SupportedSymbols
	symbol := symbols[*idx%len(symbols)]
	*idx++

	if err := p.market.RefreshDailyBars(ctx, symbol); err != nil {
		log.Printf("daily bar refresh error for %s: %v", symbol, err)
	}
}
