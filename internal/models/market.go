package models

import "time"

// RealTimeQuote is a delayed live price from the market data provider.
type RealTimeQuote struct {
	Code          string    `json:"code"`
	Open          float64   `json:"open"`
	High          float64   `json:"high"`
	Low           float64   `json:"low"`
	Close         float64   `json:"close"`          // current/last price
	PreviousClose float64   `json:"previous_close"` // previous day's close
	Change        float64   `json:"change"`
	ChangePct     float64   `json:"change_p"`
	Volume        int64     `json:"volume"`
	Timestamp     time.Time `json:"timestamp"`
}

// EODBar represents a single end-of-day price bar
type EODBar struct {
	Date     time.Time `json:"date"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	AdjClose float64   `json:"adjusted_close"`
	Volume   int64     `json:"volume"`
}

// EODResponse holds EOD bars for one ticker.
type EODResponse struct {
	Ticker string   `json:"ticker"`
	Data   []EODBar `json:"data"`
}

// Fundamentals holds the subset of company data the health score needs.
// Growth5Y is a percentage; TotalCash and TotalDebt come from the latest
// quarterly balance sheet.
type Fundamentals struct {
	Ticker      string    `json:"ticker"`
	Name        string    `json:"name"`
	Currency    string    `json:"currency"`
	Sector      string    `json:"sector"`
	Industry    string    `json:"industry"`
	IsETF       bool      `json:"is_etf"`
	Beta        float64   `json:"beta"`
	PE          float64   `json:"pe_ratio"`
	PEGRatio    float64   `json:"peg_ratio"`
	Growth5Y    float64   `json:"growth_5y"`
	TotalCash   float64   `json:"total_cash"`
	TotalDebt   float64   `json:"total_debt"`
	LastUpdated time.Time `json:"last_updated"`
}
