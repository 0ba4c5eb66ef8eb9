package models

import (
	"time"
)

// SecurityType tags a universe member as an index or a single stock
type SecurityType string

const (
	TypeIndex SecurityType = "Index"
	TypeStock SecurityType = "Stock"
)

// Security is one member of the screened universe
type Security struct {
	Symbol string       `json:"symbol" yaml:"symbol"`
	Type   SecurityType `json:"type" yaml:"type"`
}

// Bar represents a single OHLCV price bar
type Bar struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume,omitempty"`
}

// Lookback describes how much history to request. When Start is set the
// window is used and Bars is ignored.
type Lookback struct {
	Bars  int
	Start time.Time
	End   time.Time
}

// IsWindow reports whether the lookback is an explicit date window
func (l Lookback) IsWindow() bool {
	return !l.Start.IsZero()
}

// SeriesRequest is what the aggregator asks a SeriesSource for
type SeriesRequest struct {
	Symbol   string
	Interval string
	Lookback Lookback
	Location *time.Location
}

// TwelveResponse represents the API response from Twelve Data
type TwelveResponse struct {
	Meta struct {
		Symbol           string `json:"symbol"`
		Interval         string `json:"interval"`
		ExchangeTimezone string `json:"exchange_timezone"`
		Type             string `json:"type"`
	} `json:"meta"`
	Values []struct {
		Datetime string  `json:"datetime"`
		Open     float64 `json:"open,string"`
		High     float64 `json:"high,string"`
		Low      float64 `json:"low,string"`
		Close    float64 `json:"close,string"`
		Volume   int64   `json:"volume,string,omitempty"`
	} `json:"values"`
	Status  string `json:"status"`
	Code    int    `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}
