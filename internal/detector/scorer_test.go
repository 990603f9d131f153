package detector

import (
	"testing"

	"github.com/liamashdown/insiderdetector/internal/config"
)

func intPtr(v int) *int { return &v }

func signalTypes(signals []Signal) []SignalType {
	out := make([]SignalType, 0, len(signals))
	for _, s := range signals {
		out = append(out, s.Type)
	}
	return out
}

func equalTypes(a, b []SignalType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestScoreTrade(t *testing.T) {
	d := New(config.DefaultDetection())

	tests := []struct {
		name          string
		trade         Trade
		wallet        WalletInfo
		expectScore   int
		expectLevel   AlertLevel
		expectSignals []SignalType
		description   string
	}{
		{
			name:          "anonymous large low entry buy",
			trade:         Trade{Size: 20000, Price: 0.05, Side: SideBuy},
			expectScore:   80,
			expectLevel:   LevelHigh,
			expectSignals: []SignalType{SignalAnonymous, SignalLargeTrade, SignalExtremeLowEntry},
			description:   "20 + 25 + 35",
		},
		{
			name:          "same trade as sell",
			trade:         Trade{Size: 20000, Price: 0.05, Side: SideSell},
			expectScore:   45,
			expectLevel:   LevelLow,
			expectSignals: []SignalType{SignalAnonymous, SignalLargeTrade},
			description:   "SELL never gets a price-entry signal",
		},
		{
			name:          "named whale at fair price",
			trade:         Trade{Size: 10000, Price: 0.6, Side: SideBuy, Name: "alice"},
			expectScore:   40,
			expectLevel:   LevelLow,
			expectSignals: []SignalType{SignalWhaleTrade},
		},
		{
			name:          "extreme whale with pseudonym",
			trade:         Trade{Size: 50000, Price: 0.3, Side: SideBuy, Pseudonym: "Quiet-Fox"},
			expectScore:   60,
			expectLevel:   LevelMedium,
			expectSignals: []SignalType{SignalExtremeWhale},
		},
		{
			name:          "low price entry tier",
			trade:         Trade{Size: 10000, Price: 0.12, Side: SideBuy, Name: "bob"},
			expectScore:   45,
			expectLevel:   LevelLow,
			expectSignals: []SignalType{SignalLargeTrade, SignalLowPriceEntry},
			description:   "1200 USD at 12 cents",
		},
		{
			name:          "fresh new anonymous whale",
			trade:         Trade{Size: 100000, Price: 0.08, Side: SideBuy},
			wallet:        WalletInfo{UniqueMarkets: intPtr(2), DaysOld: intPtr(5)},
			expectScore:   145,
			expectLevel:   LevelCritical,
			expectSignals: []SignalType{SignalFreshWallet, SignalNewWallet, SignalAnonymous, SignalWhaleTrade, SignalExtremeLowEntry},
			description:   "30 + 20 + 20 + 40 + 35",
		},
		{
			name:          "wallet thresholds are inclusive",
			trade:         Trade{Size: 10, Price: 0.5, Side: SideSell, Name: "carol"},
			wallet:        WalletInfo{UniqueMarkets: intPtr(4), DaysOld: intPtr(30)},
			expectScore:   50,
			expectLevel:   LevelMedium,
			expectSignals: []SignalType{SignalFreshWallet, SignalNewWallet},
		},
		{
			name:          "wallet just past thresholds",
			trade:         Trade{Size: 10, Price: 0.5, Side: SideSell, Name: "carol"},
			wallet:        WalletInfo{UniqueMarkets: intPtr(5), DaysOld: intPtr(31)},
			expectScore:   0,
			expectLevel:   LevelLow,
			expectSignals: []SignalType{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := d.ScoreTrade(tt.trade, tt.wallet)
			if got.Score != tt.expectScore {
				t.Errorf("Score = %d, want %d (%s)", got.Score, tt.expectScore, tt.description)
			}
			if got.AlertLevel != tt.expectLevel {
				t.Errorf("AlertLevel = %s, want %s", got.AlertLevel, tt.expectLevel)
			}
			if types := signalTypes(got.Signals); !equalTypes(types, tt.expectSignals) {
				t.Errorf("Signals = %v, want %v", types, tt.expectSignals)
			}
		})
	}
}

func TestScoreTradeDerivedValues(t *testing.T) {
	d := New(config.DefaultDetection())

	got := d.ScoreTrade(Trade{Size: 400, Price: 0.25, Side: SideBuy}, WalletInfo{})
	if got.TradeValue != 100 {
		t.Errorf("TradeValue = %v, want 100", got.TradeValue)
	}
	if got.PriceInCents != 25 {
		t.Errorf("PriceInCents = %v, want 25", got.PriceInCents)
	}
}

func TestScoreTradeSizeTiersAreMonotonic(t *testing.T) {
	d := New(config.DefaultDetection())

	tests := []struct {
		size        float64
		expectScore int
	}{
		{size: 1998, expectScore: 0},
		{size: 2000, expectScore: 25},
		{size: 9998, expectScore: 25},
		{size: 10000, expectScore: 40},
		{size: 19998, expectScore: 40},
		{size: 20000, expectScore: 60},
	}

	prev := -1
	for _, tt := range tests {
		got := d.ScoreTrade(Trade{Size: tt.size, Price: 0.5, Side: SideSell, Name: "n"}, WalletInfo{})
		if got.Score != tt.expectScore {
			t.Errorf("size %v: Score = %d, want %d", tt.size, got.Score, tt.expectScore)
		}
		if got.Score < prev {
			t.Errorf("size %v: score decreased from %d to %d", tt.size, prev, got.Score)
		}
		prev = got.Score
	}
}

func TestScoreTradeUsesConfiguredPoints(t *testing.T) {
	cfg := config.DefaultDetection()
	cfg.Scores.AnonymousWallet = 1
	cfg.Scores.LargeTrade = 2
	d := New(cfg)

	got := d.ScoreTrade(Trade{Size: 4000, Price: 0.5, Side: SideSell}, WalletInfo{})
	if got.Score != 3 {
		t.Errorf("Score = %d, want 3", got.Score)
	}
}

func TestSignalValues(t *testing.T) {
	d := New(config.DefaultDetection())

	got := d.ScoreTrade(
		Trade{Size: 100000, Price: 0.5, Side: SideBuy, Name: "n"},
		WalletInfo{UniqueMarkets: intPtr(3)},
	)

	for _, s := range got.Signals {
		if s.Value == nil {
			t.Errorf("signal %s has no value", s.Type)
			continue
		}
		switch s.Type {
		case SignalFreshWallet:
			if *s.Value != 3 {
				t.Errorf("FRESH_WALLET value = %v, want 3", *s.Value)
			}
			if s.Severity != SeverityHigh {
				t.Errorf("FRESH_WALLET severity = %s, want high", s.Severity)
			}
		case SignalExtremeWhale:
			if *s.Value != 50000 {
				t.Errorf("EXTREME_WHALE value = %v, want 50000", *s.Value)
			}
			if s.Severity != SeverityCritical {
				t.Errorf("EXTREME_WHALE severity = %s, want critical", s.Severity)
			}
		}
	}
}
