package dataapi

import "github.com/liamashdown/insiderdetector/internal/detector"

// Trade represents a trade from the Data API
type Trade struct {
	ProxyWallet     string  `json:"proxyWallet"`
	Side            string  `json:"side"` // BUY, SELL
	Asset           string  `json:"asset"`
	ConditionID     string  `json:"conditionId"`
	Size            float64 `json:"size"`
	Price           float64 `json:"price"`
	Timestamp       int64   `json:"timestamp"` // Unix timestamp in seconds
	Title           string  `json:"title"`
	Slug            string  `json:"slug"`
	Icon            string  `json:"icon"`
	EventSlug       string  `json:"eventSlug"`
	Outcome         string  `json:"outcome"`
	OutcomeIndex    int     `json:"outcomeIndex"`
	Name            string  `json:"name"`
	Pseudonym       string  `json:"pseudonym"`
	Bio             string  `json:"bio"`
	ProfileImage    string  `json:"profileImage"`
	TransactionHash string  `json:"transactionHash"`
}

// ToDetector converts the API record into the analyzer's trade type
func (t Trade) ToDetector() detector.Trade {
	return detector.Trade{
		ProxyWallet:     t.ProxyWallet,
		Side:            t.Side,
		Size:            t.Size,
		Price:           t.Price,
		Timestamp:       t.Timestamp,
		Title:           t.Title,
		Slug:            t.Slug,
		EventSlug:       t.EventSlug,
		Icon:            t.Icon,
		Pseudonym:       t.Pseudonym,
		Name:            t.Name,
		ConditionID:     t.ConditionID,
		Outcome:         t.Outcome,
		TransactionHash: t.TransactionHash,
	}
}

// ToDetectorTrades converts a batch
func ToDetectorTrades(trades []Trade) []detector.Trade {
	out := make([]detector.Trade, 0, len(trades))
	for _, t := range trades {
		out = append(out, t.ToDetector())
	}
	return out
}

// ActivityEvent represents an activity event for a wallet
type ActivityEvent struct {
	ProxyWallet     string `json:"proxyWallet"`
	Type            string `json:"type"`
	ConditionID     string `json:"conditionId"`
	Timestamp       int64  `json:"timestamp"` // Unix timestamp in seconds
	TransactionHash string `json:"transactionHash"`
}

// TradedMarkets is the /traded response: how many distinct markets a user
// has traded
type TradedMarkets struct {
	User   string `json:"user"`
	Traded int    `json:"traded"`
}

// TradesResponse wraps the trades API response
type TradesResponse struct {
	Trades []Trade `json:"data"`
	Count  int     `json:"count"`
}
