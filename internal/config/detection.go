package config

import (
	"fmt"
	"os"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// Scores holds the points each signal adds to a trade's score
type Scores struct {
	FreshWallet          int `yaml:"fresh_wallet" default:"30" validate:"gte=0"`
	NewWallet            int `yaml:"new_wallet" default:"20" validate:"gte=0"`
	AnonymousWallet      int `yaml:"anonymous_wallet" default:"20" validate:"gte=0"`
	LargeTrade           int `yaml:"large_trade" default:"25" validate:"gte=0"`
	WhaleTrade           int `yaml:"whale_trade" default:"40" validate:"gtefield=LargeTrade"`
	ExtremeWhaleTrade    int `yaml:"extreme_whale_trade" default:"60" validate:"gtefield=WhaleTrade"`
	LowPriceEntry        int `yaml:"low_price_entry" default:"20" validate:"gte=0"`
	ExtremeLowPriceEntry int `yaml:"extreme_low_price_entry" default:"35" validate:"gtefield=LowPriceEntry"`
}

// Detection holds every threshold the scorer and classifier read.
// Scoring is a pure function of (trade, wallet info, Detection).
type Detection struct {
	// Wallet thresholds
	MaxUniqueMarketsForFreshWallet int `yaml:"max_unique_markets_fresh_wallet" default:"4" validate:"gte=0"`
	MaxWalletAgeDaysForNew         int `yaml:"max_wallet_age_days_new" default:"30" validate:"gte=0"`

	// Trade size thresholds (USD notional)
	MinSuspiciousTradeUSD float64 `yaml:"min_suspicious_trade_usd" default:"1000" validate:"gt=0"`
	WhaleTradeUSD         float64 `yaml:"whale_trade_usd" default:"5000" validate:"gtfield=MinSuspiciousTradeUSD"`
	ExtremeWhaleTradeUSD  float64 `yaml:"extreme_whale_trade_usd" default:"10000" validate:"gtfield=WhaleTradeUSD"`

	// Entry price thresholds (cents)
	MaxLowPriceEntryCents     float64 `yaml:"max_low_price_entry_cents" default:"15" validate:"gt=0,lte=100"`
	ExtremeLowPriceEntryCents float64 `yaml:"extreme_low_price_entry_cents" default:"10" validate:"gt=0,ltefield=MaxLowPriceEntryCents"`

	Scores Scores `yaml:"scores"`

	// Alert level thresholds
	MinAlertScore     int `yaml:"min_alert_score" default:"50" validate:"gt=0"`
	HighPriorityScore int `yaml:"high_priority_score" default:"75" validate:"gtfield=MinAlertScore"`
	CriticalScore     int `yaml:"critical_score" default:"100" validate:"gtfield=HighPriorityScore"`
}

// DefaultDetection returns the reference thresholds
func DefaultDetection() Detection {
	var d Detection
	// Only fails on malformed tags, which are fixed at compile time.
	if err := defaults.Set(&d); err != nil {
		panic(fmt.Sprintf("detection defaults: %v", err))
	}
	return d
}

// LoadDetection builds the detection config from defaults, then overlays the
// YAML file at path when one is given.
func LoadDetection(path string) (*Detection, error) {
	d := DefaultDetection()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read detection config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &d); err != nil {
			return nil, fmt.Errorf("parse detection config %s: %w", path, err)
		}
	}

	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// Validate checks threshold ordering and ranges
func (d *Detection) Validate() error {
	if err := validate.Struct(d); err != nil {
		return fmt.Errorf("invalid detection config: %w", err)
	}
	return nil
}
