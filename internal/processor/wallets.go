package processor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/liamashdown/insiderdetector/internal/detector"
	"github.com/liamashdown/insiderdetector/internal/polymarket/dataapi"
)

// WalletHistory is the part of the Data API the wallet lookup needs
type WalletHistory interface {
	GetTradedMarkets(ctx context.Context, wallet string) (*dataapi.TradedMarkets, error)
	GetWalletFirstActivity(ctx context.Context, wallet string) (*dataapi.ActivityEvent, error)
}

// DataAPIWallets answers wallet lookups from the Data API
type DataAPIWallets struct {
	history WalletHistory
	now     func() time.Time
}

// NewDataAPIWallets creates a wallet lookup backed by the Data API
func NewDataAPIWallets(history WalletHistory) *DataAPIWallets {
	return &DataAPIWallets{history: history, now: time.Now}
}

// LookupWallet returns the distinct market count and the age in whole days
// of a wallet. Whichever half succeeds is returned; an error comes back only
// when neither does.
func (w *DataAPIWallets) LookupWallet(ctx context.Context, address string) (detector.WalletInfo, error) {
	var info detector.WalletInfo
	if address == "" {
		return info, nil
	}

	traded, marketsErr := w.history.GetTradedMarkets(ctx, address)
	if marketsErr == nil {
		markets := traded.Traded
		info.UniqueMarkets = &markets
	}

	first, ageErr := w.history.GetWalletFirstActivity(ctx, address)
	switch {
	case ageErr == nil:
		days := int(w.now().Sub(time.Unix(first.Timestamp, 0)).Hours() / 24)
		if days < 0 {
			days = 0
		}
		info.DaysOld = &days
	case errors.Is(ageErr, dataapi.ErrNoActivity):
		// No history at all: the trade being scored is its first
		days := 0
		info.DaysOld = &days
		ageErr = nil
	}

	if marketsErr != nil && ageErr != nil {
		return info, fmt.Errorf("wallet %s: markets: %v; age: %w", address, marketsErr, ageErr)
	}
	return info, nil
}
