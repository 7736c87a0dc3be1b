package directory

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/md-rashed-zaman/vetbook/libs/cache"
	"github.com/md-rashed-zaman/vetbook/services/booking-service/internal/model"
)

// CachedProfiles serves profiles from a cache and falls back to the wrapped
// source. Cache failures degrade to a direct lookup.
type CachedProfiles struct {
	next   Profiles
	cache  cache.Cache
	ttl    time.Duration
	logger *slog.Logger
}

func NewCachedProfiles(next Profiles, c cache.Cache, ttl time.Duration, logger *slog.Logger) *CachedProfiles {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedProfiles{next: next, cache: c, ttl: ttl, logger: logger}
}

func (c *CachedProfiles) Profile(ctx context.Context, userID string) (model.Profile, error) {
	key := "profile:" + userID

	raw, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.Warn("profile cache read failed", "user_id", userID, "err", err)
	} else if ok {
		var p model.Profile
		if err := json.Unmarshal(raw, &p); err == nil {
			return p, nil
		}
	}

	p, err := c.next.Profile(ctx, userID)
	if err != nil {
		return model.Profile{}, err
	}

	if raw, err := json.Marshal(p); err == nil {
		if err := c.cache.Set(ctx, key, raw, c.ttl); err != nil {
			c.logger.Warn("profile cache write failed", "user_id", userID, "err", err)
		}
	}
	return p, nil
}
