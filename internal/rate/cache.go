package rate

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// CachedProvider decorates a BenchmarkProvider with a redis cache keyed by
// benchmark and date. Cache failures degrade to the inner provider; they
// never surface as rate-resolution errors.
type CachedProvider struct {
	inner BenchmarkProvider
	redis *redis.Client
	ttl   time.Duration
}

func NewCachedProvider(inner BenchmarkProvider, redisClient *redis.Client, ttl time.Duration) *CachedProvider {
	return &CachedProvider{
		inner: inner,
		redis: redisClient,
		ttl:   ttl,
	}
}

func (p *CachedProvider) Rate(ctx context.Context, benchmark string, asOf time.Time) (decimal.Decimal, error) {
	key := fmt.Sprintf("benchmark:%s:%s", benchmark, asOf.Format("2006-01-02"))

	if cached, err := p.redis.Get(ctx, key).Result(); err == nil {
		if rate, parseErr := decimal.NewFromString(cached); parseErr == nil {
			return rate, nil
		}
	}

	rate, err := p.inner.Rate(ctx, benchmark, asOf)
	if err != nil {
		return decimal.Zero, err
	}

	if err := p.redis.Set(ctx, key, rate.String(), p.ttl).Err(); err != nil {
		log.Printf("benchmark cache set failed for %s: %v", key, err)
	}

	return rate, nil
}
