package domain

import "time"

// Bar represents a single OHLCV bar for an instrument at a given resolution.
// Bars arrive from the data layer already validated and in ascending OpenTime
// order per (symbol, resolution).
type Bar struct {
	Symbol     string     `json:"symbol"`
	Resolution Resolution `json:"resolution"`
	OpenTime   time.Time  `json:"open_time"`
	Open       float64    `json:"open"`
	High       float64    `json:"high"`
	Low        float64    `json:"low"`
	Close      float64    `json:"close"`
	Volume     float64    `json:"volume"`
}

type Resolution string

const (
	Resolution1m  Resolution = "1m"
	Resolution5m  Resolution = "5m"
	Resolution15m Resolution = "15m"
	Resolution30m Resolution = "30m"
	Resolution1h  Resolution = "1h"
	Resolution1d  Resolution = "1d"
)

// SupportedResolutions defines the bar resolutions we store.
var SupportedResolutions = []Resolution{
	Resolution1m, Resolution5m, Resolution15m, Resolution30m, Resolution1h, Resolution1d,
}

func (r Resolution) IsValid() bool {
	for _, known := range SupportedResolutions {
		if r == known {
			return true
		}
	}
	return false
}

// PriceSnapshot represents the latest traded price for an instrument.
type PriceSnapshot struct {
	Symbol          string  `json:"symbol"`
	Price           float64 `json:"price"`
	LastUpdatedUnix int64   `json:"last_updated_unix"`
}
