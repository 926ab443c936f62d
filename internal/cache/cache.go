// Package cache keeps normalized profiles and the merged contest list in a
// fiber.Storage, JSON encoded, with an eviction job on the scheduler.
package cache

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/gofiber/fiber/v2"
	"uocsclub.net/cpstats/internal/logger"
	"uocsclub.net/cpstats/internal/types"
)

const ContestsKey = "contests:all"

func ProfileKey(platform types.Platform, handle string) string {
	return fmt.Sprintf("profile:%s:%s", platform, handle)
}

// Cache holds values of one kind. Entries live until their TTL runs out or
// the next Evict, whichever comes first.
type Cache[T any] struct {
	store  fiber.Storage
	name   string
	ttl    time.Duration
	logger *slog.Logger
}

func New[T any](store fiber.Storage, name string, ttl time.Duration, log *slog.Logger) *Cache[T] {
	if log == nil {
		log = logger.Discard()
	}
	return &Cache[T]{
		store:  store,
		name:   name,
		ttl:    ttl,
		logger: log,
	}
}

// Get reports a miss for absent keys and for entries that no longer decode.
// The latter are deleted.
func (c *Cache[T]) Get(key string) (T, bool, error) {
	var zero T

	data, err := c.store.Get(key)
	if err != nil {
		return zero, false, fmt.Errorf("cache %s: failed to read %q: %w", c.name, key, err)
	}
	if len(data) == 0 {
		return zero, false, nil
	}

	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		c.logger.Warn("dropping undecodable cache entry", "cache", c.name, "key", key, "error", err)
		if err := c.store.Delete(key); err != nil {
			return zero, false, fmt.Errorf("cache %s: failed to delete %q: %w", c.name, key, err)
		}
		return zero, false, nil
	}
	return value, true, nil
}

func (c *Cache[T]) Put(key string, value T) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache %s: failed to encode %q: %w", c.name, key, err)
	}
	if err := c.store.Set(key, data, c.ttl); err != nil {
		return fmt.Errorf("cache %s: failed to write %q: %w", c.name, key, err)
	}
	return nil
}

func (c *Cache[T]) Delete(key string) error {
	if err := c.store.Delete(key); err != nil {
		return fmt.Errorf("cache %s: failed to delete %q: %w", c.name, key, err)
	}
	return nil
}

// Evict drops every entry.
func (c *Cache[T]) Evict() error {
	if err := c.store.Reset(); err != nil {
		return fmt.Errorf("cache %s: failed to evict: %w", c.name, err)
	}
	return nil
}

// Schedule registers a job that evicts the cache every interval and then
// runs each of then in order. Duration jobs don't fire on start.
func (c *Cache[T]) Schedule(s gocron.Scheduler, every time.Duration, then ...func()) (gocron.Job, error) {
	return s.NewJob(
		gocron.DurationJob(every),
		gocron.NewTask(func() {
			if err := c.Evict(); err != nil {
				c.logger.Error("scheduled eviction failed", "cache", c.name, "error", err)
				return
			}
			c.logger.Info("cache evicted", "cache", c.name)
			for _, fn := range then {
				fn()
			}
		}),
		gocron.WithName("evict "+c.name),
	)
}

func (c *Cache[T]) Close() error {
	return c.store.Close()
}
