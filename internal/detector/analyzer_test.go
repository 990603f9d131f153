package detector

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/liamashdown/insiderdetector/internal/config"
)

type fakeWallets struct {
	mu    sync.Mutex
	info  map[string]WalletInfo
	fail  map[string]bool
	calls []string
}

func (f *fakeWallets) LookupWallet(_ context.Context, address string) (WalletInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, address)
	if f.fail[address] {
		return WalletInfo{}, errors.New("lookup failed")
	}
	return f.info[address], nil
}

func TestAnalyzeEndToEnd(t *testing.T) {
	d := New(config.DefaultDetection())

	tests := []struct {
		name             string
		trades           []Trade
		expectAlerts     int
		expectSports     int
		expectAnalyzed   int
		expectFirstScore int
		description      string
	}{
		{
			name: "crypto market below minimum size",
			trades: []Trade{
				{Size: 100, Price: 0.05, Side: SideBuy, Title: "Will X reach $100k?", Timestamp: 1700000000},
			},
			expectAlerts:   0,
			expectAnalyzed: 1,
			description:    "Value 5 is dropped before scoring",
		},
		{
			name: "random market below minimum size",
			trades: []Trade{
				{Size: 2000, Price: 0.05, Side: SideBuy, Title: "Random Market", Slug: "xyz-123"},
			},
			expectAlerts:   0,
			expectAnalyzed: 1,
		},
		{
			name: "random market at minimum size",
			trades: []Trade{
				{Size: 20000, Price: 0.05, Side: SideBuy, Title: "Random Market", Slug: "xyz-123"},
			},
			expectAlerts:     1,
			expectAnalyzed:   1,
			expectFirstScore: 80,
		},
		{
			name: "sports slug excluded regardless of size",
			trades: []Trade{
				{Size: 1000000, Price: 0.02, Side: SideBuy, Title: "Chiefs vs. Bills", Slug: "nfl-chiefs-vs-bills"},
			},
			expectAlerts:   0,
			expectSports:   1,
			expectAnalyzed: 0,
		},
		{
			name:   "empty batch",
			trades: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := d.Analyze(context.Background(), tt.trades)

			if len(got.Alerts) != tt.expectAlerts {
				t.Fatalf("alerts = %d, want %d (%s)", len(got.Alerts), tt.expectAlerts, tt.description)
			}
			if got.SportsFiltered != tt.expectSports {
				t.Errorf("SportsFiltered = %d, want %d", got.SportsFiltered, tt.expectSports)
			}
			if got.Analyzed != tt.expectAnalyzed {
				t.Errorf("Analyzed = %d, want %d", got.Analyzed, tt.expectAnalyzed)
			}
			if got.TotalTrades != got.Analyzed+got.SportsFiltered {
				t.Errorf("TotalTrades %d != Analyzed %d + SportsFiltered %d", got.TotalTrades, got.Analyzed, got.SportsFiltered)
			}
			if tt.expectAlerts > 0 && got.Alerts[0].Score != tt.expectFirstScore {
				t.Errorf("first score = %d, want %d", got.Alerts[0].Score, tt.expectFirstScore)
			}
			if got.Alerts == nil {
				t.Error("Alerts should be an empty slice, not nil")
			}
		})
	}
}

func TestAnalyzeSortsByScoreStable(t *testing.T) {
	d := New(config.DefaultDetection())

	trades := []Trade{
		// 80: anonymous + large + extreme low
		{TransactionHash: "a", Size: 20000, Price: 0.05, Side: SideBuy, Title: "Market A"},
		// 45: below alert score
		{TransactionHash: "b", Size: 20000, Price: 0.05, Side: SideSell, Title: "Market B"},
		// 115: anonymous + extreme whale + extreme low
		{TransactionHash: "c", Size: 200000, Price: 0.06, Side: SideBuy, Title: "Market C"},
		// 80 again, must stay after "a"
		{TransactionHash: "d", Size: 20000, Price: 0.05, Side: SideBuy, Title: "Market D"},
		// sports
		{TransactionHash: "e", Size: 200000, Price: 0.06, Side: SideBuy, Title: "Lakers vs Celtics"},
	}

	got := d.Analyze(context.Background(), trades)

	want := []string{"c", "a", "d"}
	if len(got.Alerts) != len(want) {
		t.Fatalf("alerts = %d, want %d", len(got.Alerts), len(want))
	}
	for i, hash := range want {
		if got.Alerts[i].Trade.TransactionHash != hash {
			t.Errorf("alert %d = %s, want %s", i, got.Alerts[i].Trade.TransactionHash, hash)
		}
	}
	for i := 1; i < len(got.Alerts); i++ {
		if got.Alerts[i].Score > got.Alerts[i-1].Score {
			t.Errorf("alerts not sorted at %d", i)
		}
	}
	if got.SportsFiltered != 1 || got.Analyzed != 4 || got.TotalTrades != 5 {
		t.Errorf("counts = %+v", got)
	}
	if got.CountByLevel(LevelCritical) != 1 || got.CountByLevel(LevelHigh) != 2 {
		t.Errorf("level counts: critical=%d high=%d", got.CountByLevel(LevelCritical), got.CountByLevel(LevelHigh))
	}
}

func TestAnalyzeAttachesTimestamp(t *testing.T) {
	d := New(config.DefaultDetection())

	got := d.Analyze(context.Background(), []Trade{
		{Size: 20000, Price: 0.05, Side: SideBuy, Title: "Random Market", Timestamp: 1700000000},
	})

	if len(got.Alerts) != 1 {
		t.Fatalf("alerts = %d, want 1", len(got.Alerts))
	}
	if got.Alerts[0].Timestamp != "2023-11-14T22:13:20.000Z" {
		t.Errorf("Timestamp = %s", got.Alerts[0].Timestamp)
	}
}

func TestAnalyzeWithWalletLookup(t *testing.T) {
	wallets := &fakeWallets{
		info: map[string]WalletInfo{
			"0xfresh": {UniqueMarkets: intPtr(1), DaysOld: intPtr(2)},
		},
		fail: map[string]bool{"0xbroken": true},
	}
	d := New(config.DefaultDetection(), WithWalletLookup(wallets), WithLookupWorkers(2))

	trades := []Trade{
		// 25 + 30 + 20 = 75 with wallet context
		{ProxyWallet: "0xfresh", Size: 4000, Price: 0.5, Side: SideSell, Name: "n", Title: "Market"},
		// 25 without wallet context, lookup failure is not fatal
		{ProxyWallet: "0xbroken", Size: 4000, Price: 0.5, Side: SideSell, Name: "n", Title: "Market"},
		// below minimum size, never looked up
		{ProxyWallet: "0xtiny", Size: 10, Price: 0.5, Side: SideSell, Name: "n", Title: "Market"},
	}

	got := d.Analyze(context.Background(), trades)

	if len(got.Alerts) != 1 {
		t.Fatalf("alerts = %d, want 1", len(got.Alerts))
	}
	alert := got.Alerts[0]
	if alert.Trade.ProxyWallet != "0xfresh" || alert.Score != 75 || alert.AlertLevel != LevelHigh {
		t.Errorf("alert = %s score %d level %s", alert.Trade.ProxyWallet, alert.Score, alert.AlertLevel)
	}
	if !alert.HasSignal(SignalFreshWallet) || !alert.HasSignal(SignalNewWallet) {
		t.Errorf("missing wallet signals: %v", signalTypes(alert.Signals))
	}
	if len(wallets.calls) != 2 {
		t.Errorf("lookups = %v, want 2 calls", wallets.calls)
	}
}

func TestAnalyzeWithoutLookupUsesEmptyWallet(t *testing.T) {
	d := New(config.DefaultDetection())

	got := d.Analyze(context.Background(), []Trade{
		{Size: 200000, Price: 0.5, Side: SideBuy, Title: "Market"},
	})

	if len(got.Alerts) != 1 {
		t.Fatalf("alerts = %d, want 1", len(got.Alerts))
	}
	if got.Alerts[0].HasSignal(SignalFreshWallet) || got.Alerts[0].HasSignal(SignalNewWallet) {
		t.Error("wallet signals fired without wallet lookup")
	}
}
