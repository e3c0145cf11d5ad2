// Package models defines data structures for Folio
package models

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Number is a float that tolerates sloppy JSON input. It decodes from a JSON
// number or a numeric string; anything else (null, "", "N/A", objects) is 0.
type Number float64

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*n = 0
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*n = Number(f)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		d, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(s), ",", ""))
		if err != nil {
			*n = 0
			return nil
		}
		*n = Number(d.InexactFloat64())
		return nil
	}

	*n = 0
	return nil
}

// Float returns the value as float64 with NaN and ±Inf mapped to 0.
func (n Number) Float() float64 {
	f := float64(n)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// Lot is one purchase of a ticker. TotalCost is in the base currency (USD).
type Lot struct {
	ID           string `json:"id"`
	Ticker       string `json:"ticker"`
	Shares       Number `json:"shares"`
	TotalCost    Number `json:"total_cost"`
	PurchaseDate string `json:"purchase_date"` // YYYY-MM-DD
	Category     string `json:"category"`
}

// PurchaseTime parses PurchaseDate. ok is false when the date is missing or malformed.
func (l Lot) PurchaseTime() (t time.Time, ok bool) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(l.PurchaseDate))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Portfolio is a named collection of lots owned by a user.
type Portfolio struct {
	Name      string    `json:"name"`
	Lots      []Lot     `json:"lots"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FindLot returns the index of the lot with id, or -1.
func (p *Portfolio) FindLot(id string) int {
	for i := range p.Lots {
		if p.Lots[i].ID == id {
			return i
		}
	}
	return -1
}
