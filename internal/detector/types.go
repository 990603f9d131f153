// Package detector scores prediction-market trades for insider-style signals.
//
// Everything here is pure computation over an already-fetched batch: no I/O
// happens unless a WalletLookup is plugged into the Detector.
package detector

import "time"

// Trade sides
const (
	SideBuy  = "BUY"
	SideSell = "SELL"
)

// Trade is one public trade event. Field names follow the Data API JSON.
type Trade struct {
	ProxyWallet     string  `json:"proxyWallet"`
	Side            string  `json:"side"`
	Size            float64 `json:"size"`
	Price           float64 `json:"price"`
	Timestamp       int64   `json:"timestamp"` // Unix seconds
	Title           string  `json:"title,omitempty"`
	Slug            string  `json:"slug,omitempty"`
	EventSlug       string  `json:"eventSlug,omitempty"`
	Icon            string  `json:"icon,omitempty"`
	Pseudonym       string  `json:"pseudonym,omitempty"`
	Name            string  `json:"name,omitempty"`
	ConditionID     string  `json:"conditionId,omitempty"`
	Outcome         string  `json:"outcome,omitempty"`
	TransactionHash string  `json:"transactionHash,omitempty"`
}

// Value returns the USD-equivalent notional of the trade
func (t Trade) Value() float64 {
	return t.Size * t.Price
}

// PriceInCents returns the price on a 0-100 scale
func (t Trade) PriceInCents() float64 {
	return t.Price * 100
}

// IsAnonymous reports whether the wallet has neither a pseudonym nor a name
func (t Trade) IsAnonymous() bool {
	return t.Pseudonym == "" && t.Name == ""
}

// WalletInfo is optional wallet history. Nil fields mean unknown.
type WalletInfo struct {
	UniqueMarkets *int `json:"uniqueMarkets,omitempty"`
	DaysOld       *int `json:"daysOld,omitempty"`
}

// SignalType tags a triggered rule
type SignalType string

const (
	SignalFreshWallet     SignalType = "FRESH_WALLET"
	SignalNewWallet       SignalType = "NEW_WALLET"
	SignalAnonymous       SignalType = "ANONYMOUS"
	SignalExtremeWhale    SignalType = "EXTREME_WHALE"
	SignalWhaleTrade      SignalType = "WHALE_TRADE"
	SignalLargeTrade      SignalType = "LARGE_TRADE"
	SignalExtremeLowEntry SignalType = "EXTREME_LOW_ENTRY"
	SignalLowPriceEntry   SignalType = "LOW_PRICE_ENTRY"
)

// Severity of a single signal
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Signal is one triggered heuristic
type Signal struct {
	Type     SignalType `json:"type"`
	Severity Severity   `json:"severity"`
	Value    *float64   `json:"value,omitempty"`
}

// ScoreResult is the outcome of scoring one trade
type ScoreResult struct {
	Score        int        `json:"score"`
	Signals      []Signal   `json:"signals"`
	AlertLevel   AlertLevel `json:"alertLevel"`
	TradeValue   float64    `json:"tradeValue"`
	PriceInCents float64    `json:"priceInCents"`
}

// HasSignal reports whether a signal of type st fired
func (r ScoreResult) HasSignal(st SignalType) bool {
	for _, s := range r.Signals {
		if s.Type == st {
			return true
		}
	}
	return false
}

// Alert is a scored trade that met the minimum alert score
type Alert struct {
	Trade Trade `json:"trade"`
	ScoreResult
	Timestamp string `json:"timestamp"`
}

// AnalysisResult is the output of one analysis pass
type AnalysisResult struct {
	Alerts         []Alert `json:"alerts"`
	TotalTrades    int     `json:"totalTrades"`
	SportsFiltered int     `json:"sportsFiltered"`
	Analyzed       int     `json:"analyzed"`
}

// CountByLevel returns how many alerts carry the given level
func (r AnalysisResult) CountByLevel(level AlertLevel) int {
	n := 0
	for _, a := range r.Alerts {
		if a.AlertLevel == level {
			n++
		}
	}
	return n
}

// isoTimestamp matches JavaScript's Date.prototype.toISOString
const isoTimestamp = "2006-01-02T15:04:05.000Z"

// FormatTimestamp renders Unix seconds as an ISO-8601 UTC string
func FormatTimestamp(unix int64) string {
	return time.Unix(unix, 0).UTC().Format(isoTimestamp)
}

func floatPtr(v float64) *float64 {
	return &v
}
