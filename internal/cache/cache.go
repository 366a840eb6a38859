// Package cache provides the content-addressed decision cache and its storage backends.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/Veraticus/rivalwatch/internal/common"
	"github.com/Veraticus/rivalwatch/internal/model"
)

// ErrMiss is returned by a Store when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

// DefaultTTL is how long a cached decision stays valid.
const DefaultTTL = time.Hour

const keyPrefix = "decision:"

// Store is a raw key/value engine with per-entry expiry.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Close() error
}

// Observer is notified of every lookup outcome ("hit", "miss", "error").
type Observer interface {
	CacheLookup(result string)
}

// DecisionCache maps extracted-context fingerprints to final recommendations.
// It fails open: no store fault ever reaches the caller.
type DecisionCache struct {
	store    Store
	observer Observer
	logger   *slog.Logger
	ttl      time.Duration
}

// Option configures a DecisionCache.
type Option func(*DecisionCache)

// WithObserver reports lookup outcomes to o.
func WithObserver(o Observer) Option {
	return func(c *DecisionCache) { c.observer = o }
}

// WithLogger sets the logger used for store faults.
func WithLogger(logger *slog.Logger) Option {
	return func(c *DecisionCache) { c.logger = logger }
}

// NewDecisionCache wraps store. A nil store yields a cache that always misses.
func NewDecisionCache(store Store, ttl time.Duration, opts ...Option) *DecisionCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &DecisionCache{store: store, ttl: ttl}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = common.LoggerOrDefault(c.logger)
	return c
}

// Key returns the namespaced store key for a fingerprint.
func Key(fingerprint string) string {
	return keyPrefix + fingerprint
}

// Get returns the cached recommendation for fingerprint.
func (c *DecisionCache) Get(ctx context.Context, fingerprint string) (model.Recommendation, bool) {
	if c == nil || c.store == nil {
		return model.Recommendation{}, false
	}

	data, err := c.store.Get(ctx, Key(fingerprint))
	if errors.Is(err, ErrMiss) {
		c.observe("miss")
		return model.Recommendation{}, false
	}
	if err != nil {
		c.observe("error")
		common.LogError(ctx, c.logger, err, "decision cache read failed",
			common.Fields{"fingerprint": fingerprint})
		return model.Recommendation{}, false
	}

	var rec model.Recommendation
	if err := json.Unmarshal(data, &rec); err != nil || rec.StrategyType == "" {
		c.observe("error")
		c.logger.Warn("discarding corrupt cache entry",
			"fingerprint", fingerprint,
			"error", err)
		return model.Recommendation{}, false
	}

	c.observe("hit")
	c.logger.Debug("decision cache hit", "fingerprint", fingerprint)
	return rec, true
}

// Put stores rec under fingerprint. Failures are logged and ignored.
func (c *DecisionCache) Put(ctx context.Context, fingerprint string, rec model.Recommendation) {
	if c == nil || c.store == nil {
		return
	}

	// Per-request fields are not part of the cached decision. Warnings stay:
	// they describe the decision itself and must survive a hit.
	rec.DecisionID = ""
	rec.CacheHit = false

	data, err := json.Marshal(rec)
	if err != nil {
		c.logger.Warn("failed to encode cache entry", "fingerprint", fingerprint, "error", err)
		return
	}

	if err := c.store.Set(ctx, Key(fingerprint), data, c.ttl); err != nil {
		common.LogError(ctx, c.logger, err, "decision cache write failed",
			common.Fields{"fingerprint": fingerprint})
	}
}

// Close releases the underlying store.
func (c *DecisionCache) Close() error {
	if c == nil || c.store == nil {
		return nil
	}
	return c.store.Close()
}

func (c *DecisionCache) observe(result string) {
	if c.observer != nil {
		c.observer.CacheLookup(result)
	}
}
