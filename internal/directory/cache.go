package directory

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	schoolCachePrefix = "campusnotify:school:"
	schoolCacheTTL    = 10 * time.Minute
)

// SchoolFinder loads school branding by tenant id.
type SchoolFinder interface {
	FindSchool(ctx context.Context, id string) (*School, error)
}

// CachedSchools memoizes school lookups in Redis. Cache failures fall
// through to the backing finder.
type CachedSchools struct {
	next   SchoolFinder
	redis  *redis.Client
	logger *zap.Logger
}

func NewCachedSchools(next SchoolFinder, client *redis.Client, logger *zap.Logger) *CachedSchools {
	return &CachedSchools{next: next, redis: client, logger: logger}
}

func (c *CachedSchools) FindSchool(ctx context.Context, id string) (*School, error) {
	if c.redis == nil || id == "" {
		return c.next.FindSchool(ctx, id)
	}
	key := schoolCachePrefix + id
	raw, err := c.redis.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var s School
		if jerr := json.Unmarshal(raw, &s); jerr == nil {
			return &s, nil
		}
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("school cache read failed", zap.String("tenant", id), zap.Error(err))
	}

	s, err := c.next.FindSchool(ctx, id)
	if err != nil || s == nil {
		return s, err
	}
	if b, jerr := json.Marshal(s); jerr == nil {
		if serr := c.redis.Set(ctx, key, b, schoolCacheTTL).Err(); serr != nil {
			c.logger.Warn("school cache write failed", zap.String("tenant", id), zap.Error(serr))
		}
	}
	return s, nil
}
