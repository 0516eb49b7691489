package usecase

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/polkiloo/fulfillrelay/internal/config"
	"github.com/polkiloo/fulfillrelay/internal/domain/model"
)

// AllowListCache serves the reviewer allow-list with a TTL.
// Refreshes are collapsed and a failed refresh falls back to the last good list.
type AllowListCache struct {
	source AllowListSource
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger

	group     singleflight.Group
	mu        sync.RWMutex
	users     []model.AllowedUser
	fetchedAt time.Time
	loaded    bool
}

// NewAllowListCache constructs AllowListCache.
func NewAllowListCache(cfg *config.Config, source AllowListSource, logger *slog.Logger) *AllowListCache {
	return &AllowListCache{
		source: source,
		ttl:    cfg.Approval.AllowedUsersTTL,
		now:    time.Now,
		logger: logger,
	}
}

// Users returns the allow-list, or an empty list when it was never loaded.
func (c *AllowListCache) Users(ctx context.Context) []model.AllowedUser {
	if users, ok := c.fresh(); ok {
		return users
	}

	v, err, _ := c.group.Do("allowlist", func() (any, error) {
		users, err := c.source.Fetch(ctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.users, c.fetchedAt, c.loaded = users, c.now(), true
		c.mu.Unlock()
		return users, nil
	})
	if err == nil {
		return v.([]model.AllowedUser)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.loaded {
		c.logger.Warn("allow-list refresh failed, serving stale list", slog.String("error", err.Error()))
		return c.users
	}
	c.logger.Error("allow-list unavailable", slog.String("error", err.Error()))
	return []model.AllowedUser{}
}

func (c *AllowListCache) fresh() ([]model.AllowedUser, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.loaded && c.now().Sub(c.fetchedAt) < c.ttl {
		return c.users, true
	}
	return nil, false
}
