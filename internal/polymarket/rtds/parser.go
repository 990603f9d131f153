// Package rtds consumes the Polymarket real-time data stream and turns trade
// activity into batches for the analyzer.
package rtds

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/liamashdown/insiderdetector/internal/detector"
)

// Message outcomes, also used as metric labels
const (
	ResultTrade   = "trade"
	ResultIgnored = "ignored"
	ResultInvalid = "invalid"
)

type envelope struct {
	Type         string          `json:"type"`
	ActivityType string          `json:"activity_type"`
	Data         json.RawMessage `json:"data"`
}

type tradeData struct {
	MarketTitle     string    `json:"market_title"`
	Title           string    `json:"title"`
	Slug            string    `json:"slug"`
	EventSlug       string    `json:"event_slug"`
	Icon            string    `json:"icon"`
	Side            string    `json:"side"`
	Size            flexFloat `json:"size"`
	Price           flexFloat `json:"price"`
	Timestamp       flexFloat `json:"timestamp"`
	ProxyWallet     string    `json:"proxy_wallet"`
	UserAddress     string    `json:"user_address"`
	ProxyWalletName string    `json:"proxy_wallet_name"`
	UserName        string    `json:"user_name"`
	Pseudonym       string    `json:"pseudonym"`
	ConditionID     string    `json:"condition_id"`
	Outcome         string    `json:"outcome"`
	TransactionHash string    `json:"transaction_hash"`
}

// flexFloat accepts a JSON number or a numeric string
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*f = 0
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("parse number %q: %w", s, err)
		}
		*f = flexFloat(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = flexFloat(v)
	return nil
}

// ParseMessage decodes one stream frame. It returns the trade and
// ResultTrade for trade activity, ResultIgnored for any other message, and
// ResultInvalid with an error for frames that cannot be used. Trades with a
// zero or non-finite size or price are invalid.
func ParseMessage(raw []byte, now time.Time) (detector.Trade, string, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return detector.Trade{}, ResultInvalid, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Type != "activity" || env.ActivityType != "trade" {
		return detector.Trade{}, ResultIgnored, nil
	}

	var d tradeData
	if err := json.Unmarshal(env.Data, &d); err != nil {
		return detector.Trade{}, ResultInvalid, fmt.Errorf("decode trade: %w", err)
	}

	size, price := float64(d.Size), float64(d.Price)
	if !usable(size) || !usable(price) {
		return detector.Trade{}, ResultInvalid, fmt.Errorf("missing size or price")
	}

	trade := detector.Trade{
		Title:           firstNonEmpty(d.MarketTitle, d.Title, "Unknown"),
		Slug:            firstNonEmpty(d.Slug, d.EventSlug),
		EventSlug:       d.EventSlug,
		Icon:            d.Icon,
		Side:            strings.ToUpper(firstNonEmpty(d.Side, detector.SideBuy)),
		Size:            size,
		Price:           price,
		Timestamp:       normalizeTimestamp(float64(d.Timestamp), now),
		ProxyWallet:     firstNonEmpty(d.ProxyWallet, d.UserAddress),
		Name:            firstNonEmpty(d.ProxyWalletName, d.UserName),
		Pseudonym:       d.Pseudonym,
		ConditionID:     d.ConditionID,
		Outcome:         d.Outcome,
		TransactionHash: d.TransactionHash,
	}
	return trade, ResultTrade, nil
}

func usable(v float64) bool {
	return v != 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}

// normalizeTimestamp accepts seconds or milliseconds and falls back to now
func normalizeTimestamp(ts float64, now time.Time) int64 {
	if ts <= 0 || math.IsNaN(ts) || math.IsInf(ts, 0) {
		return now.Unix()
	}
	if ts > 1e12 {
		return int64(ts / 1000)
	}
	return int64(ts)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
