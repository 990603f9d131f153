package detector

import (
	"context"
	"io"
	"sort"
	"sync"

	"github.com/liamashdown/insiderdetector/internal/config"
	"github.com/sirupsen/logrus"
)

// WalletLookup fetches wallet history for the wallet signals
type WalletLookup interface {
	LookupWallet(ctx context.Context, address string) (WalletInfo, error)
}

// Detector runs the sports filter, scorer and level classifier over batches
type Detector struct {
	cfg        config.Detection
	levels     *LevelClassifier
	sports     *SportsClassifier
	wallets    WalletLookup
	workerPool chan struct{}
	log        *logrus.Logger
}

// Option configures a Detector
type Option func(*Detector)

// WithWalletLookup enables per-trade wallet history during Analyze
func WithWalletLookup(w WalletLookup) Option {
	return func(d *Detector) { d.wallets = w }
}

// WithLookupWorkers bounds concurrent wallet lookups
func WithLookupWorkers(n int) Option {
	return func(d *Detector) {
		if n > 0 {
			d.workerPool = make(chan struct{}, n)
		}
	}
}

// WithSportsRules replaces the default sports rule table
func WithSportsRules(rules []Rule) Option {
	return func(d *Detector) { d.sports = NewSportsClassifier(rules) }
}

// WithLogger sets the logger
func WithLogger(log *logrus.Logger) Option {
	return func(d *Detector) { d.log = log }
}

// New creates a detector from the detection thresholds
func New(cfg config.Detection, opts ...Option) *Detector {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	d := &Detector{
		cfg:        cfg,
		levels:     NewLevelClassifier(cfg),
		sports:     defaultSports,
		workerPool: make(chan struct{}, 5),
		log:        discard,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Config returns the thresholds the detector was built with
func (d *Detector) Config() config.Detection {
	return d.cfg
}

// ClassifyLevel maps a score to an alert level
func (d *Detector) ClassifyLevel(score int) AlertLevel {
	return d.levels.Classify(score)
}

// Sports returns the sports classifier in use
func (d *Detector) Sports() *SportsClassifier {
	return d.sports
}

// Analyze filters sports markets, scores what is left and returns the
// alerts at or above the minimum alert score, highest score first.
// Equal scores keep their input order.
func (d *Detector) Analyze(ctx context.Context, trades []Trade) AnalysisResult {
	result := AnalysisResult{
		Alerts:      []Alert{},
		TotalTrades: len(trades),
	}

	candidates := make([]Trade, 0, len(trades))
	for _, t := range trades {
		if v := d.sports.Classify(t); v.IsSports {
			result.SportsFiltered++
			d.log.WithFields(logrus.Fields{
				"rule":  v.Rule,
				"title": t.Title,
			}).Debug("Skipping sports trade")
			continue
		}
		result.Analyzed++

		// Below the smallest size tier nothing can reach the alert score.
		if t.Value() < d.cfg.MinSuspiciousTradeUSD {
			continue
		}
		candidates = append(candidates, t)
	}

	wallets := d.lookupWallets(ctx, candidates)

	for i, t := range candidates {
		scored := d.ScoreTrade(t, wallets[i])
		if scored.Score < d.cfg.MinAlertScore {
			continue
		}
		result.Alerts = append(result.Alerts, Alert{
			Trade:       t,
			ScoreResult: scored,
			Timestamp:   FormatTimestamp(t.Timestamp),
		})
	}

	sort.SliceStable(result.Alerts, func(i, j int) bool {
		return result.Alerts[i].Score > result.Alerts[j].Score
	})

	return result
}

// lookupWallets resolves wallet info for each trade, index-aligned. A failed
// lookup leaves that trade with empty wallet info.
func (d *Detector) lookupWallets(ctx context.Context, trades []Trade) []WalletInfo {
	infos := make([]WalletInfo, len(trades))
	if d.wallets == nil || len(trades) == 0 {
		return infos
	}

	var wg sync.WaitGroup
	for i, t := range trades {
		wg.Add(1)
		go func(i int, address string) {
			defer wg.Done()

			select {
			case d.workerPool <- struct{}{}:
			case <-ctx.Done():
				return
			}
			defer func() { <-d.workerPool }()

			info, err := d.wallets.LookupWallet(ctx, address)
			if err != nil {
				d.log.WithError(err).WithField("wallet", address).Warn("Wallet lookup failed")
				return
			}
			infos[i] = info
		}(i, t.ProxyWallet)
	}
	wg.Wait()

	return infos
}
