package alerts

import (
	"fmt"
	"strings"

	"github.com/liamashdown/insiderdetector/internal/detector"
	"github.com/shopspring/decimal"
)

const polymarketURL = "https://polymarket.com"

// formatUSD renders a dollar amount with two decimals, e.g. "$1234.50"
func formatUSD(v float64) string {
	return "$" + decimal.NewFromFloat(v).StringFixed(2)
}

// formatCents renders a price in cents with one decimal, e.g. "7.5¢"
func formatCents(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(1) + "¢"
}

func marketURL(t detector.Trade) string {
	return fmt.Sprintf("%s/event/%s", polymarketURL, t.EventSlug)
}

func walletURL(t detector.Trade) string {
	return fmt.Sprintf("%s/profile/%s", polymarketURL, t.ProxyWallet)
}

func marketTitle(t detector.Trade) string {
	if t.Title == "" {
		return "Unknown"
	}
	return t.Title
}

func signalNames(signals []detector.Signal) []string {
	names := make([]string, 0, len(signals))
	for _, s := range signals {
		names = append(names, string(s.Type))
	}
	return names
}

// alertMessage is the plain-text body shared by text channels
func alertMessage(a *detector.Alert) string {
	return fmt.Sprintf("Market: %s\nSide: %s\nValue: %s\nPrice: %s\nSignals: %s",
		marketTitle(a.Trade),
		a.Trade.Side,
		formatUSD(a.TradeValue),
		formatCents(a.PriceInCents),
		strings.Join(signalNames(a.Signals), ", "),
	)
}

func shortAddress(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
