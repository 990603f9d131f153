package detector

// ScoreTrade scores one trade against the detection thresholds. It never
// fails: missing wallet fields simply skip the wallet signals.
func (d *Detector) ScoreTrade(trade Trade, wallet WalletInfo) ScoreResult {
	cfg := d.cfg
	value := trade.Value()
	cents := trade.PriceInCents()

	var score int
	signals := make([]Signal, 0, 4)
	add := func(points int, st SignalType, sev Severity, v *float64) {
		score += points
		signals = append(signals, Signal{Type: st, Severity: sev, Value: v})
	}

	if wallet.UniqueMarkets != nil && *wallet.UniqueMarkets <= cfg.MaxUniqueMarketsForFreshWallet {
		add(cfg.Scores.FreshWallet, SignalFreshWallet, SeverityHigh, floatPtr(float64(*wallet.UniqueMarkets)))
	}

	if wallet.DaysOld != nil && *wallet.DaysOld <= cfg.MaxWalletAgeDaysForNew {
		add(cfg.Scores.NewWallet, SignalNewWallet, SeverityMedium, floatPtr(float64(*wallet.DaysOld)))
	}

	if trade.IsAnonymous() {
		add(cfg.Scores.AnonymousWallet, SignalAnonymous, SeverityLow, nil)
	}

	switch {
	case value >= cfg.ExtremeWhaleTradeUSD:
		add(cfg.Scores.ExtremeWhaleTrade, SignalExtremeWhale, SeverityCritical, floatPtr(value))
	case value >= cfg.WhaleTradeUSD:
		add(cfg.Scores.WhaleTrade, SignalWhaleTrade, SeverityHigh, floatPtr(value))
	case value >= cfg.MinSuspiciousTradeUSD:
		add(cfg.Scores.LargeTrade, SignalLargeTrade, SeverityMedium, floatPtr(value))
	}

	// Entry price only matters for directional exposure, so SELL is skipped.
	if trade.Side == SideBuy {
		switch {
		case cents <= cfg.ExtremeLowPriceEntryCents:
			add(cfg.Scores.ExtremeLowPriceEntry, SignalExtremeLowEntry, SeverityHigh, floatPtr(cents))
		case cents <= cfg.MaxLowPriceEntryCents:
			add(cfg.Scores.LowPriceEntry, SignalLowPriceEntry, SeverityMedium, floatPtr(cents))
		}
	}

	return ScoreResult{
		Score:        score,
		Signals:      signals,
		AlertLevel:   d.levels.Classify(score),
		TradeValue:   value,
		PriceInCents: cents,
	}
}
