// Package dto defines data transfer objects for the Twelve Data API responses.
package dto

import "encoding/json"

// ErrorResponse is the body Twelve Data returns with status "error".
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// TimeSeriesResponse represents the JSON response from the Twelve Data time_series endpoint.
type TimeSeriesResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Meta    struct {
		Symbol   string `json:"symbol"`
		Interval string `json:"interval"`
		Currency string `json:"currency"`
		Exchange string `json:"exchange"`
	} `json:"meta"`
	Values []struct {
		Datetime string `json:"datetime"`
		Open     string `json:"open"`
		High     string `json:"high"`
		Low      string `json:"low"`
		Close    string `json:"close"`
		Volume   string `json:"volume"`
	} `json:"values"`
}

// QuoteResponse represents the JSON response from the Twelve Data quote endpoint.
// Numeric fields arrive as strings.
type QuoteResponse struct {
	Status        string `json:"status,omitempty"`
	Message       string `json:"message,omitempty"`
	Symbol        string `json:"symbol"`
	Name          string `json:"name"`
	Exchange      string `json:"exchange"`
	Currency      string `json:"currency"`
	Datetime      string `json:"datetime"`
	Timestamp     int64  `json:"timestamp"`
	Open          string `json:"open"`
	High          string `json:"high"`
	Low           string `json:"low"`
	Close         string `json:"close"`
	Volume        string `json:"volume"`
	PreviousClose string `json:"previous_close"`
	FiftyTwoWeek  struct {
		Low  string `json:"low"`
		High string `json:"high"`
	} `json:"fifty_two_week"`
}

// ProfileResponse represents the JSON response from the Twelve Data profile endpoint.
type ProfileResponse struct {
	Status   string `json:"status,omitempty"`
	Message  string `json:"message,omitempty"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Exchange string `json:"exchange"`
	Sector   string `json:"sector"`
	Industry string `json:"industry"`
}

// StatisticsResponse represents the JSON response from the Twelve Data statistics endpoint.
// Numeric fields arrive as JSON numbers or null.
type StatisticsResponse struct {
	Status     string `json:"status,omitempty"`
	Message    string `json:"message,omitempty"`
	Statistics struct {
		ValuationsMetrics struct {
			MarketCapitalization json.Number `json:"market_capitalization"`
			TrailingPE           json.Number `json:"trailing_pe"`
		} `json:"valuations_metrics"`
		StockPriceSummary struct {
			Beta json.Number `json:"beta"`
		} `json:"stock_price_summary"`
		DividendsAndSplits struct {
			ForwardAnnualDividendYield  json.Number `json:"forward_annual_dividend_yield"`
			TrailingAnnualDividendYield json.Number `json:"trailing_annual_dividend_yield"`
		} `json:"dividends_and_splits"`
	} `json:"statistics"`
}
