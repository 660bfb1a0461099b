package collab

import (
	"context"
	"errors"
	"strings"
	"time"

	"FinBrief/internal/domain/models"
	domsvc "FinBrief/internal/domain/service"
	"FinBrief/pkg/cache"
	applogger "FinBrief/pkg/logger"
)

// CachedMarketFetcher serves market records from cache for ttl and falls
// through to next on a miss. Cache failures never fail a lookup.
type CachedMarketFetcher struct {
	next  domsvc.MarketDataFetcher
	cache cache.Service
	ttl   time.Duration
	log   *applogger.Logger
}

func NewCachedMarketFetcher(next domsvc.MarketDataFetcher, c cache.Service, ttl time.Duration, l *applogger.Logger) *CachedMarketFetcher {
	if l == nil {
		l = applogger.Nop()
	}
	return &CachedMarketFetcher{next: next, cache: c, ttl: ttl, log: l}
}

func marketKey(companyID string) string {
	return "market:" + strings.ToUpper(companyID)
}

func (f *CachedMarketFetcher) FetchMarketData(ctx context.Context, companyID string) (models.MarketRecord, error) {
	key := marketKey(companyID)

	var rec models.MarketRecord
	err := f.cache.Get(ctx, key, &rec)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		f.log.Warn("market cache read failed", applogger.String("key", key), applogger.Error(err))
	}

	rec, err = f.next.FetchMarketData(ctx, companyID)
	if err != nil {
		return models.MarketRecord{}, err
	}
	if err := f.cache.Set(ctx, key, rec, f.ttl); err != nil {
		f.log.Warn("market cache write failed", applogger.String("key", key), applogger.Error(err))
	}
	return rec, nil
}

var _ domsvc.MarketDataFetcher = (*CachedMarketFetcher)(nil)
