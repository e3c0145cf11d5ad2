package analytics

import (
	"math"

	"github.com/bobmcallan/folio/internal/models"
)

// ValueLot prices a lot in the display currency. rate is display units per
// base unit; a non-positive or non-finite rate is treated as 1. The lot's
// category and the quote's sector are normalized on the way through.
func ValueLot(lot models.Lot, quote models.Quote, rate float64) models.ValuedLot {
	rate = sanitizeRate(rate)
	quote = sanitizeQuote(quote)

	shares := lot.Shares.Float()
	cost := lot.TotalCost.Float()

	lot.Shares = models.Number(shares)
	lot.TotalCost = models.Number(cost)
	lot.Category = NormalizeCategory(lot.Category)

	currentValue := finite(quote.Price * rate * shares)
	principal := finite(cost * rate)

	return models.ValuedLot{
		Lot:          lot,
		Quote:        quote,
		CurrentValue: currentValue,
		Principal:    principal,
		Performance:  simpleReturn(currentValue, principal),
	}
}

func simpleReturn(value, principal float64) float64 {
	if principal <= 0 {
		return 0
	}
	return finite((value - principal) / principal * 100)
}

func sanitizeRate(rate float64) float64 {
	if rate <= 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return 1
	}
	return rate
}

// sanitizeQuote zeroes non-finite fields and applies the default beta.
func sanitizeQuote(q models.Quote) models.Quote {
	q.Price = finite(q.Price)
	q.Beta = finite(q.Beta)
	if q.Beta == 0 {
		q.Beta = 1
	}
	q.Sector = NormalizeSector(q.Sector)
	q.Growth = finite(q.Growth)
	q.PEGRatio = finite(q.PEGRatio)
	q.TotalCash = finite(q.TotalCash)
	q.TotalDebt = finite(q.TotalDebt)
	return q
}

func finite(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
