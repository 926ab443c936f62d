// Package contests merges the contest calendars of every platform into one
// list ordered live, upcoming, then finished.
package contests

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"uocsclub.net/cpstats/internal/cache"
	"uocsclub.net/cpstats/internal/fetcher"
	"uocsclub.net/cpstats/internal/governor"
	"uocsclub.net/cpstats/internal/logger"
	"uocsclub.net/cpstats/internal/types"
)

type Service struct {
	listers []fetcher.ContestLister
	cache   *cache.Cache[[]types.ContestListing]
	timeout time.Duration
	logger  *slog.Logger
	flight  singleflight.Group
	now     func() time.Time
}

func NewService(listers []fetcher.ContestLister, c *cache.Cache[[]types.ContestListing], timeout time.Duration, log *slog.Logger) *Service {
	if log == nil {
		log = logger.Discard()
	}
	return &Service{
		listers: listers,
		cache:   c,
		timeout: timeout,
		logger:  log,
		now:     time.Now,
	}
}

// Aggregate asks every platform for its contests at once. Platforms that
// fail or run out of time are left out; the error lists them.
func (s *Service) Aggregate(ctx context.Context) ([]types.ContestListing, error) {
	var mu sync.Mutex
	merged := []types.ContestListing{}

	g := governor.NewGroup(ctx, s.logger, "contest list")
	for _, lister := range s.listers {
		g.Go(string(lister.Platform()), s.timeout, func(ctx context.Context) error {
			found, err := lister.FetchContests(ctx)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			if ctx.Err() != nil {
				return ctx.Err()
			}
			merged = append(merged, found...)
			return nil
		})
	}
	err := g.Wait()

	mu.Lock()
	defer mu.Unlock()
	return merged, err
}

// GetContestList serves the cached list when there is one. On a miss a
// single aggregation runs no matter how many requests are waiting on it.
// Statuses are computed against the current time on every call.
func (s *Service) GetContestList(ctx context.Context) ([]types.ContestListing, error) {
	cached, ok, err := s.cache.Get(cache.ContestsKey)
	if err != nil {
		s.logger.Warn("contest cache read failed", "error", err)
	}
	if ok {
		return Sort(cached, s.now()), nil
	}

	v, _, _ := s.flight.Do(cache.ContestsKey, func() (any, error) {
		return s.refresh(context.WithoutCancel(ctx)), nil
	})
	return Sort(v.([]types.ContestListing), s.now()), nil
}

// Warm rebuilds the cached list.
func (s *Service) Warm(ctx context.Context) {
	s.flight.Do(cache.ContestsKey, func() (any, error) {
		return s.refresh(ctx), nil
	})
}

func (s *Service) refresh(ctx context.Context) []types.ContestListing {
	start := time.Now()
	list, err := s.Aggregate(ctx)
	if err != nil {
		s.logger.Warn("contest list is partial", "error", err, "contests", len(list))
	}

	// an empty list is never cached so the next request tries again
	if len(list) > 0 {
		if err := s.cache.Put(cache.ContestsKey, list); err != nil {
			s.logger.Warn("contest cache write failed", "error", err)
		}
	}
	s.logger.Info("contest list rebuilt", "contests", len(list), "elapsed", time.Since(start).Round(time.Millisecond))
	return list
}

// Sort returns a copy of list with every status set relative to now,
// ordered by priority. Live and upcoming contests run by start time
// ascending, finished ones by start time descending.
func Sort(list []types.ContestListing, now time.Time) []types.ContestListing {
	out := make([]types.ContestListing, len(list))
	copy(out, list)
	for i := range out {
		out[i].Status = out[i].StatusAt(now)
	}

	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := out[i].Status.Priority(), out[j].Status.Priority()
		if pi != pj {
			return pi < pj
		}
		if out[i].Status == types.StatusFinished {
			return out[i].StartTime.After(out[j].StartTime)
		}
		return out[i].StartTime.Before(out[j].StartTime)
	})
	return out
}
