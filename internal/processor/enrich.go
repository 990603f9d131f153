package processor

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/liamashdown/insiderdetector/internal/detector"
	"github.com/liamashdown/insiderdetector/internal/polymarket/gammaapi"
	"github.com/sirupsen/logrus"
)

const marketCacheTTL = 24 * time.Hour

// MarketLookup resolves market metadata by condition ID
type MarketLookup interface {
	GetMarketByConditionID(ctx context.Context, conditionID string) (*gammaapi.Market, error)
}

type cachedMarket struct {
	market    *gammaapi.Market
	fetchedAt time.Time
}

// MarketEnricher fills slug, icon and title on trades that arrive without
// them, so the sports filter has something to match on. Lookups are cached
// in process.
type MarketEnricher struct {
	lookup   MarketLookup
	minValue float64
	log      *logrus.Logger
	now      func() time.Time

	mu    sync.Mutex
	cache map[string]cachedMarket
}

// NewMarketEnricher creates an enricher for trades worth at least minValue
func NewMarketEnricher(lookup MarketLookup, minValue float64, log *logrus.Logger) *MarketEnricher {
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}
	return &MarketEnricher{
		lookup:   lookup,
		minValue: minValue,
		log:      log,
		now:      time.Now,
		cache:    make(map[string]cachedMarket),
	}
}

// Enrich updates trades in place. A failed lookup leaves the trade as is.
func (e *MarketEnricher) Enrich(ctx context.Context, trades []detector.Trade) {
	for i := range trades {
		t := &trades[i]
		if !e.needsLookup(*t) {
			continue
		}

		market, err := e.resolve(ctx, t.ConditionID)
		if err != nil {
			e.log.WithError(err).WithField("condition_id", t.ConditionID).Warn("Failed to resolve market")
			continue
		}
		applyMarket(t, market)
	}
}

func (e *MarketEnricher) needsLookup(t detector.Trade) bool {
	return t.Slug == "" && t.Icon == "" && t.ConditionID != "" && t.Value() >= e.minValue
}

func (e *MarketEnricher) resolve(ctx context.Context, conditionID string) (*gammaapi.Market, error) {
	e.mu.Lock()
	cached, ok := e.cache[conditionID]
	e.mu.Unlock()
	if ok && e.now().Sub(cached.fetchedAt) < marketCacheTTL {
		return cached.market, nil
	}

	market, err := e.lookup.GetMarketByConditionID(ctx, conditionID)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.cache[conditionID] = cachedMarket{market: market, fetchedAt: e.now()}
	e.mu.Unlock()

	return market, nil
}

func applyMarket(t *detector.Trade, m *gammaapi.Market) {
	t.Slug = m.Slug
	t.Icon = m.IconURL()
	if t.EventSlug == "" {
		t.EventSlug = m.EventSlug()
	}
	if (t.Title == "" || t.Title == "Unknown") && m.Question != "" {
		t.Title = m.Question
	}
}
