package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"daily-bias-engine/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

const defaultBaseURL = "https://api.twelvedata.com"

// providerSymbol maps our instrument symbols to the vendor's tickers.
var providerSymbol = map[string]string{
	"ES":    "ES=F",
	"NQ":    "NQ=F",
	"BTC":   "BTC/USD",
	"ETH":   "ETH/USD",
	"SPX":   "SPX",
	"UK100": "UK100",
}

// providerInterval maps our bar resolutions to the vendor's interval codes.
var providerInterval = map[domain.Resolution]string{
	domain.Resolution1m:  "1min",
	domain.Resolution5m:  "5min",
	domain.Resolution15m: "15min",
	domain.Resolution30m: "30min",
	domain.Resolution1h:  "1h",
	domain.Resolution1d:  "1day",
}

// MarketDataProvider fetches OHLCV series and spot prices from the Twelve
// Data REST API.
type MarketDataProvider struct {
	client  *http.Client
	baseURL string
	apiKey  string
	tracer  trace.Tracer
	limiter *RateLimiter
}

// NewMarketDataProvider creates a provider with built-in rate limiting.
// The free tier allows 8 requests per minute, so one token every 7.5s.
func NewMarketDataProvider(baseURL, apiKey string, tracer trace.Tracer) *MarketDataProvider {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &MarketDataProvider{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: baseURL,
		apiKey:  apiKey,
		tracer:  tracer,
		limiter: NewRateLimiter(8, 7500*time.Millisecond),
	}
}

// FetchSeries fetches up to outputSize bars for one symbol and resolution.
// Bars come back ascending by open time, timestamps in UTC.
func (p *MarketDataProvider) FetchSeries(ctx context.Context, symbol string, resolution domain.Resolution, outputSize int) ([]*domain.Bar, error) {
	_, span := p.tracer.Start(ctx, "marketdata.fetch-series")
	defer span.End()

	vendorSymbol, ok := providerSymbol[symbol]
	if !ok {
		return nil, fmt.Errorf("unsupported symbol: %s", symbol)
	}
	interval, ok := providerInterval[resolution]
	if !ok {
		return nil, fmt.Errorf("unsupported resolution: %s", resolution)
	}
	if outputSize <= 0 {
		outputSize = 500
	}

	q := url.Values{}
	q.Set("symbol", vendorSymbol)
	q.Set("interval", interval)
	q.Set("outputsize", strconv.Itoa(outputSize))
	q.Set("timezone", "UTC")
	q.Set("apikey", p.apiKey)

	body, err := p.doRequest(ctx, p.baseURL+"/time_series?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("fetch series for %s %s: %w", symbol, resolution, err)
	}

	// Response shape: {"status":"ok","values":[{"datetime":"2025-01-15 14:30:00",
	// "open":"6010.25",...}]} with values newest first and OHLCV as strings.
	var raw struct {
		Status  string `json:"status"`
		Message string `json:"message"`
		Values  []struct {
			Datetime string `json:"datetime"`
			Open     string `json:"open"`
			High     string `json:"high"`
			Low      string `json:"low"`
			Close    string `json:"close"`
			Volume   string `json:"volume"`
		} `json:"values"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parse series for %s: %w", symbol, err)
	}
	if raw.Status != "" && raw.Status != "ok" {
		return nil, fmt.Errorf("vendor error for %s: %s", symbol, raw.Message)
	}

	bars := make([]*domain.Bar, 0, len(raw.Values))
	for _, v := range raw.Values {
		openTime, err := time.ParseInLocation("2006-01-02 15:04:05", v.Datetime, time.UTC)
		if err != nil {
			// Daily bars come back date-only.
			openTime, err = time.ParseInLocation("2006-01-02", v.Datetime, time.UTC)
			if err != nil {
				return nil, fmt.Errorf("parse bar time %q for %s: %w", v.Datetime, symbol, err)
			}
		}
		bar := &domain.Bar{
			Symbol:     symbol,
			Resolution: resolution,
			OpenTime:   openTime,
		}
		if bar.Open, err = strconv.ParseFloat(v.Open, 64); err != nil {
			return nil, fmt.Errorf("parse open for %s: %w", symbol, err)
		}
		if bar.High, err = strconv.ParseFloat(v.High, 64); err != nil {
			return nil, fmt.Errorf("parse high for %s: %w", symbol, err)
		}
		if bar.Low, err = strconv.ParseFloat(v.Low, 64); err != nil {
			return nil, fmt.Errorf("parse low for %s: %w", symbol, err)
		}
		if bar.Close, err = strconv.ParseFloat(v.Close, 64); err != nil {
			return nil, fmt.Errorf("parse close for %s: %w", symbol, err)
		}
		// Index series carry no volume.
		if v.Volume != "" {
			if bar.Volume, err = strconv.ParseFloat(v.Volume, 64); err != nil {
				return nil, fmt.Errorf("parse volume for %s: %w", symbol, err)
			}
		}
		bars = append(bars, bar)
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].OpenTime.Before(bars[j].OpenTime) })
	return bars, nil
}

// FetchPrice fetches the latest traded price for one symbol.
func (p *MarketDataProvider) FetchPrice(ctx context.Context, symbol string) (*domain.PriceSnapshot, error) {
	_, span := p.tracer.Start(ctx, "marketdata.fetch-price")
	defer span.End()

	vendorSymbol, ok := providerSymbol[symbol]
	if !ok {
		return nil, fmt.Errorf("unsupported symbol: %s", symbol)
	}

	q := url.Values{}
	q.Set("symbol", vendorSymbol)
	q.Set("apikey", p.apiKey)

	body, err := p.doRequest(ctx, p.baseURL+"/price?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("fetch price for %s: %w", symbol, err)
	}

	var raw struct {
		Price   string `json:"price"`
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parse price for %s: %w", symbol, err)
	}
	if raw.Status != "" && raw.Status != "ok" {
		return nil, fmt.Errorf("vendor error for %s: %s", symbol, raw.Message)
	}

	price, err := strconv.ParseFloat(raw.Price, 64)
	if err != nil {
		return nil, fmt.Errorf("parse price %q for %s: %w", raw.Price, symbol, err)
	}

	return &domain.PriceSnapshot{
		Symbol:          symbol,
		Price:           price,
		LastUpdatedUnix: time.Now().Unix(),
	}, nil
}

func (p *MarketDataProvider) doRequest(ctx context.Context, url string) ([]byte, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("market data API error %d: %s", resp.StatusCode, string(body))
	}

	return io.ReadAll(resp.Body)
}
