package twr

import (
	"sort"
	"time"

	"github.com/bobmcallan/folio/internal/analytics"
	"github.com/bobmcallan/folio/internal/models"
)

const (
	dateLayout = "2006-01-02"
	day        = 24 * time.Hour

	// minBasis guards the daily return against division by a near-zero basis.
	minBasis = 0.001
)

type flow struct {
	ticker string
	shares float64
	cost   float64
}

// series is a ticker's daily close history, ascending by date.
type series struct {
	dates  []time.Time
	closes []float64
	byDay  map[time.Time]float64
}

func newSeries(bars []models.EODBar) series {
	sorted := make([]models.EODBar, 0, len(bars))
	for _, b := range bars {
		price := b.AdjClose
		if price <= 0 {
			price = b.Close
		}
		if price <= 0 || b.Date.IsZero() {
			continue
		}
		b.AdjClose = price
		sorted = append(sorted, b)
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	s := series{byDay: make(map[time.Time]float64, len(sorted))}
	for _, b := range sorted {
		d := truncateDay(b.Date)
		if _, dup := s.byDay[d]; !dup {
			s.dates = append(s.dates, d)
			s.closes = append(s.closes, b.AdjClose)
		} else {
			s.closes[len(s.closes)-1] = b.AdjClose
		}
		s.byDay[d] = b.AdjClose
	}
	return s
}

// toBase divides each close by the rate in effect on its date. Rates are
// forward-filled; closes before the first rate use the first rate. It
// reports false when there are no rates to convert with.
func (s series) toBase(rates series) (series, bool) {
	if len(rates.closes) == 0 {
		return series{}, false
	}
	out := series{byDay: make(map[time.Time]float64, len(s.dates))}
	for i, d := range s.dates {
		r, ok := rates.asOf(d)
		if !ok {
			r = rates.closes[0]
		}
		out.push(d, s.closes[i]/r)
	}
	return out, true
}

// scale multiplies every close by f.
func (s series) scale(f float64) series {
	out := series{byDay: make(map[time.Time]float64, len(s.dates))}
	for i, d := range s.dates {
		out.push(d, s.closes[i]*f)
	}
	return out
}

func (s *series) push(d time.Time, c float64) {
	s.dates = append(s.dates, d)
	s.closes = append(s.closes, c)
	s.byDay[d] = c
}

// asOf returns the latest close on or before d.
func (s series) asOf(d time.Time) (float64, bool) {
	i := sort.Search(len(s.dates), func(i int) bool { return s.dates[i].After(d) })
	if i == 0 {
		return 0, false
	}
	return s.closes[i-1], true
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// emptyDataset is returned for empty or unusable input.
func emptyDataset() *models.TWRDataset {
	zero := 0.0
	return &models.TWRDataset{TotalTWR: &zero, Tickers: map[string]float64{}}
}

// collectFlows groups lots by purchase day. Lots with unparseable dates are
// skipped. Tickers are returned in first-appearance order.
func collectFlows(lots []models.Lot) (map[time.Time][]flow, []string) {
	flows := make(map[time.Time][]flow)
	var tickers []string
	seen := make(map[string]bool)

	for _, lot := range lots {
		key := analytics.TickerKey(lot.Ticker)
		if key == "" {
			continue
		}
		d, ok := lot.PurchaseTime()
		if !ok {
			continue
		}
		if !seen[key] {
			seen[key] = true
			tickers = append(tickers, key)
		}
		d = truncateDay(d)
		flows[d] = append(flows[d], flow{ticker: key, shares: lot.Shares.Float(), cost: lot.TotalCost.Float()})
	}
	return flows, tickers
}

func firstFlowDate(flows map[time.Time][]flow) time.Time {
	var first time.Time
	for d := range flows {
		if first.IsZero() || d.Before(first) {
			first = d
		}
	}
	return first
}

type tickerState struct {
	shares    float64
	twr       float64
	prevValue float64
	lastPrice float64
}

// calculate runs a daily GIPS time-weighted return with start-of-day flows.
// Each day's basis is the previous close value plus that day's purchase
// cost; the day's return is end value over basis. Prices are forward-filled
// and a ticker's first known price falls back to its purchase cost per share.
func calculate(flows map[time.Time][]flow, tickers []string, history map[string]series, today time.Time) *models.TWRDataset {
	if len(flows) == 0 {
		return emptyDataset()
	}

	start := firstFlowDate(flows)
	end := truncateDay(today)

	states := make(map[string]*tickerState, len(tickers))
	for _, t := range tickers {
		states[t] = &tickerState{twr: 1}
	}

	portfolioTWR := 1.0
	prevClose := 0.0
	var chart []models.TWRPoint

	for d := start; !d.After(end); d = d.Add(day) {
		totalInflow := 0.0
		inflows := make(map[string]float64, len(tickers))

		for _, f := range flows[d] {
			st := states[f.ticker]
			st.shares += f.shares
			totalInflow += f.cost
			inflows[f.ticker] += f.cost
			if st.lastPrice == 0 && f.shares > 0 {
				st.lastPrice = f.cost / f.shares
			}
		}

		endValue := 0.0
		values := make(map[string]float64, len(tickers))
		for _, t := range tickers {
			st := states[t]
			if st.shares == 0 {
				continue
			}
			price := priceOn(st, history[t], d)
			values[t] = st.shares * price
			endValue += values[t]
		}

		if basis := prevClose + totalInflow; basis > minBasis {
			portfolioTWR *= endValue / basis
		}
		chart = append(chart, models.TWRPoint{Date: d.Format(dateLayout), Value: (portfolioTWR - 1) * 100})
		prevClose = endValue

		for _, t := range tickers {
			st := states[t]
			if basis := st.prevValue + inflows[t]; basis > minBasis {
				st.twr *= values[t] / basis
			}
			st.prevValue = values[t]
		}
	}

	total := (portfolioTWR - 1) * 100
	result := &models.TWRDataset{
		TotalTWR:  &total,
		Tickers:   make(map[string]float64, len(tickers)),
		ChartData: chart,
	}
	for _, t := range tickers {
		result.Tickers[t] = (states[t].twr - 1) * 100
	}
	return result
}

// priceOn resolves a ticker's price for day d and updates its last known
// price. Exact closes win, then the last known price, then the latest close
// before d.
func priceOn(st *tickerState, s series, d time.Time) float64 {
	if p, ok := s.byDay[d]; ok {
		st.lastPrice = p
		return p
	}
	if st.lastPrice > 0 {
		return st.lastPrice
	}
	if p, ok := s.asOf(d); ok {
		st.lastPrice = p
		return p
	}
	return 0
}

// rebase turns a benchmark close series into a cumulative percentage return
// from start through end. Days before the first available close are skipped.
func rebase(s series, start, end time.Time) []models.TWRPoint {
	base, ok := s.asOf(start)
	var points []models.TWRPoint
	for d := start; !d.After(end); d = d.Add(day) {
		price, has := s.asOf(d)
		if !has {
			continue
		}
		if !ok {
			base, ok = price, true
		}
		points = append(points, models.TWRPoint{Date: d.Format(dateLayout), Value: (price/base - 1) * 100})
	}
	return points
}
