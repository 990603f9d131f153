package processor

import (
	"context"
	"fmt"
	"io"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/liamashdown/insiderdetector/internal/alerts"
	"github.com/liamashdown/insiderdetector/internal/config"
	"github.com/liamashdown/insiderdetector/internal/detector"
	"github.com/liamashdown/insiderdetector/internal/metrics"
	"github.com/liamashdown/insiderdetector/internal/polymarket/dataapi"
	"github.com/liamashdown/insiderdetector/internal/storage"
	"github.com/sirupsen/logrus"
)

// Run sources, used as metric and log labels
// maxPollPages caps how far one poll pages back through its window
const maxPollPages = 10

const (
	SourcePoll      = "poll"
	SourceStream    = "stream"
	SourceDashboard = "dashboard"
)

// TradeSource fetches public trades
type TradeSource interface {
	GetTrades(ctx context.Context, params dataapi.TradeParams) (*dataapi.TradesResponse, error)
}

// Notifier delivers one alert to the configured channels
type Notifier interface {
	Dispatch(ctx context.Context, alert *detector.Alert) alerts.DispatchResult
}

// NotificationOutcome is one alert that qualified for notification
type NotificationOutcome struct {
	Market   string              `json:"market"`
	Level    detector.AlertLevel `json:"level"`
	Score    int                 `json:"score"`
	Notified bool                `json:"notified"`
}

// RunReport summarizes one batch run
type RunReport struct {
	Source        string
	TradesChecked int
	Rejected      int
	Result        detector.AnalysisResult
	Notifications []NotificationOutcome
}

// NotifiedCount counts the alerts at least one channel accepted
func (r *RunReport) NotifiedCount() int {
	n := 0
	for _, o := range r.Notifications {
		if o.Notified {
			n++
		}
	}
	return n
}

// DashboardReport is the trailing-window view served to the dashboard
type DashboardReport struct {
	TradesChecked int
	Alerts        []detector.Alert
	Result        detector.AnalysisResult
	LastUpdated   string
}

// Processor feeds trade batches through enrichment, analysis and notification
type Processor struct {
	cfg       *config.Config
	detector  *detector.Detector
	trades    TradeSource
	enricher  *MarketEnricher
	notifier  Notifier
	state     storage.StateStore
	notifyMin detector.AlertLevel
	log       *logrus.Logger
	now       func() time.Time

	// mu keeps poll runs from overlapping so the watermark moves monotonically
	mu sync.Mutex
}

// Option configures a Processor
type Option func(*Processor)

// WithEnricher fills missing market metadata before classification
func WithEnricher(e *MarketEnricher) Option {
	return func(p *Processor) { p.enricher = e }
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(p *Processor) { p.now = now }
}

// New creates a new processor
func New(
	cfg *config.Config,
	det *detector.Detector,
	trades TradeSource,
	notifier Notifier,
	state storage.StateStore,
	log *logrus.Logger,
	opts ...Option,
) *Processor {
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}

	p := &Processor{
		cfg:       cfg,
		detector:  det,
		trades:    trades,
		notifier:  notifier,
		state:     state,
		notifyMin: detector.ParseAlertLevel(cfg.NotifyMinLevel),
		log:       log,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProcessTrades fetches every trade since the watermark, analyzes them and
// notifies. The watermark only moves after a successful fetch.
func (p *Processor) ProcessTrades(ctx context.Context) (report *RunReport, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	defer func() { metrics.RecordRun(SourcePoll, err) }()

	start, err := p.windowStart(ctx)
	if err != nil {
		return nil, err
	}

	fetched, err := p.fetchSince(ctx, start)
	if err != nil {
		return nil, err
	}

	p.log.WithFields(logrus.Fields{
		"count": len(fetched),
		"start": start,
	}).Info("Fetched trades from Data API")

	report = p.run(ctx, SourcePoll, dataapi.ToDetectorTrades(fetched))

	next := p.now().Unix()
	if len(fetched) > 0 {
		next = maxTimestamp(fetched)
	}
	if err := p.state.SetState(ctx, storage.KeyLastProcessedTS, strconv.FormatInt(next, 10)); err != nil {
		p.log.WithError(err).Error("Failed to update checkpoint")
	}

	return report, nil
}

// fetchSince pages through the window newest first until a short page comes
// back. Any page failure fails the whole fetch so the watermark stays put.
func (p *Processor) fetchSince(ctx context.Context, start int64) ([]dataapi.Trade, error) {
	params := dataapi.TradeParams{
		Limit:         p.cfg.PollLimit,
		FilterType:    "CASH",
		FilterAmount:  p.cfg.Detection.MinSuspiciousTradeUSD,
		Start:         start,
		SortBy:        "TIMESTAMP",
		SortDirection: "DESC",
	}

	var all []dataapi.Trade
	seen := make(map[string]struct{})
	for page := 0; page < maxPollPages; page++ {
		params.Offset = page * params.Limit

		resp, err := p.trades.GetTrades(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("fetch trades (offset %d): %w", params.Offset, err)
		}
		// Trades landing mid-scan shift offsets and can repeat across pages
		for _, t := range resp.Trades {
			key := t.TransactionHash + "|" + t.Asset
			if t.TransactionHash != "" {
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
			}
			all = append(all, t)
		}

		if params.Limit <= 0 || len(resp.Trades) < params.Limit {
			return all, nil
		}
	}

	p.log.WithFields(logrus.Fields{
		"pages": maxPollPages,
		"limit": params.Limit,
		"start": start,
	}).Warn("Poll window exceeds page cap; older trades in the window were skipped")
	return all, nil
}

// ProcessBatch analyzes a batch handed over by a push feed and notifies
func (p *Processor) ProcessBatch(ctx context.Context, source string, trades []detector.Trade) *RunReport {
	report := p.run(ctx, source, trades)
	metrics.RecordRun(source, nil)
	return report
}

// Dashboard analyzes the trailing window without touching the watermark
func (p *Processor) Dashboard(ctx context.Context) (report *DashboardReport, err error) {
	defer func() { metrics.RecordRun(SourceDashboard, err) }()

	now := p.now()
	params := dataapi.TradeParams{
		Limit:         p.cfg.DashboardLimit,
		FilterType:    "CASH",
		FilterAmount:  p.cfg.Detection.MinSuspiciousTradeUSD,
		Start:         now.Add(-time.Duration(p.cfg.DashboardWindowHours) * time.Hour).Unix(),
		SortBy:        "CASH",
		SortDirection: "DESC",
	}

	resp, err := p.trades.GetTrades(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("fetch trades: %w", err)
	}

	trades, _ := p.prepare(ctx, dataapi.ToDetectorTrades(resp.Trades))

	started := time.Now()
	result := p.detector.Analyze(ctx, trades)
	metrics.RecordAnalysis(SourceDashboard, time.Since(started), result.SportsFiltered, result.Analyzed)

	top := result.Alerts
	if n := p.cfg.DashboardTopN; n > 0 && len(top) > n {
		top = top[:n]
	}

	return &DashboardReport{
		TradesChecked: len(resp.Trades),
		Alerts:        top,
		Result:        result,
		LastUpdated:   now.UTC().Format("2006-01-02T15:04:05.000Z"),
	}, nil
}

func (p *Processor) run(ctx context.Context, source string, trades []detector.Trade) *RunReport {
	valid, rejected := p.prepare(ctx, trades)

	started := time.Now()
	result := p.detector.Analyze(ctx, valid)
	metrics.RecordAnalysis(source, time.Since(started), result.SportsFiltered, result.Analyzed)

	report := &RunReport{
		Source:        source,
		TradesChecked: len(trades),
		Rejected:      rejected,
		Result:        result,
		Notifications: []NotificationOutcome{},
	}

	for i := range result.Alerts {
		alert := &result.Alerts[i]
		metrics.RecordAlert(string(alert.AlertLevel), alert.Score)

		p.log.WithFields(logrus.Fields{
			"source": source,
			"market": alert.Trade.Title,
			"wallet": alert.Trade.ProxyWallet,
			"score":  alert.Score,
			"level":  alert.AlertLevel,
			"value":  alert.TradeValue,
		}).Info("Suspicious trade detected")

		if !alert.AlertLevel.AtLeast(p.notifyMin) {
			continue
		}

		dispatched := p.notifier.Dispatch(ctx, alert)
		report.Notifications = append(report.Notifications, NotificationOutcome{
			Market:   alert.Trade.Title,
			Level:    alert.AlertLevel,
			Score:    alert.Score,
			Notified: dispatched.Delivered,
		})
	}

	p.log.WithFields(logrus.Fields{
		"source":          source,
		"trades":          len(trades),
		"rejected":        rejected,
		"sports_filtered": result.SportsFiltered,
		"alerts":          len(result.Alerts),
		"notified":        report.NotifiedCount(),
	}).Info("Batch analyzed")

	return report
}

// prepare drops malformed trades and fills missing market metadata
func (p *Processor) prepare(ctx context.Context, trades []detector.Trade) ([]detector.Trade, int) {
	valid := make([]detector.Trade, 0, len(trades))
	for _, t := range trades {
		if !validTrade(t) {
			p.log.WithFields(logrus.Fields{
				"size":  t.Size,
				"price": t.Price,
				"title": t.Title,
			}).Debug("Rejecting malformed trade")
			continue
		}
		valid = append(valid, t)
	}

	rejected := len(trades) - len(valid)
	if rejected > 0 {
		metrics.RecordRejectedTrades(rejected)
	}

	if p.enricher != nil {
		p.enricher.Enrich(ctx, valid)
	}
	return valid, rejected
}

func (p *Processor) windowStart(ctx context.Context) (int64, error) {
	raw, err := p.state.GetState(ctx, storage.KeyLastProcessedTS)
	if err != nil {
		return 0, fmt.Errorf("get last processed ts: %w", err)
	}

	if raw != "" {
		ts, err := strconv.ParseInt(raw, 10, 64)
		if err == nil && ts > 0 {
			return ts, nil
		}
		p.log.WithField("value", raw).Warn("Ignoring unreadable checkpoint")
	}

	return p.now().Add(-time.Duration(p.cfg.PollLookbackSec) * time.Second).Unix(), nil
}

func validTrade(t detector.Trade) bool {
	if math.IsNaN(t.Size) || math.IsInf(t.Size, 0) || t.Size <= 0 {
		return false
	}
	if math.IsNaN(t.Price) || math.IsInf(t.Price, 0) || t.Price <= 0 || t.Price > 1 {
		return false
	}
	return true
}

func maxTimestamp(trades []dataapi.Trade) int64 {
	var maxTS int64
	for _, t := range trades {
		if t.Timestamp > maxTS {
			maxTS = t.Timestamp
		}
	}
	return maxTS
}
