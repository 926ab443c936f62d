// Package profiles resolves a stored account to its platform handles and
// serves the normalized profile for each, from cache when possible.
package profiles

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"
	"uocsclub.net/cpstats/internal/cache"
	"uocsclub.net/cpstats/internal/fetcher"
	"uocsclub.net/cpstats/internal/governor"
	"uocsclub.net/cpstats/internal/logger"
	"uocsclub.net/cpstats/internal/types"
)

// UserStore is the account lookup the service depends on. A missing
// account is reported as a nil record, not an error.
type UserStore interface {
	GetUserByUsername(username string) (*types.UserRecord, error)
	SaveUser(user *types.UserRecord) (*types.UserRecord, error)
	ListUsers() ([]*types.UserRecord, error)
}

type Service struct {
	users    UserStore
	fetchers map[types.Platform]fetcher.ProfileFetcher
	cache    *cache.Cache[*types.PlatformProfile]
	timeout  time.Duration
	logger   *slog.Logger
	flight   singleflight.Group
}

func NewService(
	users UserStore,
	fetchers map[types.Platform]fetcher.ProfileFetcher,
	c *cache.Cache[*types.PlatformProfile],
	timeout time.Duration,
	log *slog.Logger,
) *Service {
	if log == nil {
		log = logger.Discard()
	}
	return &Service{
		users:    users,
		fetchers: fetchers,
		cache:    c,
		timeout:  timeout,
		logger:   log,
	}
}

func (s *Service) lookupUser(username string) (*types.UserRecord, error) {
	user, err := s.users.GetUserByUsername(username)
	if err != nil {
		return nil, fmt.Errorf("failed to load user %q: %w", username, err)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: no account named %q", types.ErrUserNotFound, username)
	}
	return user, nil
}

// FetchProfile returns the profile of the account's handle on platform. An
// unset handle gives an empty profile without touching the upstream.
func (s *Service) FetchProfile(ctx context.Context, platform types.Platform, username string) (*types.PlatformProfile, error) {
	if _, ok := s.fetchers[platform]; !ok {
		return nil, fmt.Errorf("%w: %q", types.ErrUnknownPlatform, platform)
	}
	user, err := s.lookupUser(username)
	if err != nil {
		return nil, err
	}

	handle := user.Handle(platform)
	if handle == "" {
		return types.EmptyProfile(platform), nil
	}
	return s.FetchHandle(ctx, platform, handle)
}

// FetchHandle checks the cache, then fetches and stores. Concurrent misses
// for the same handle share one upstream fetch.
func (s *Service) FetchHandle(ctx context.Context, platform types.Platform, handle string) (*types.PlatformProfile, error) {
	key := cache.ProfileKey(platform, handle)

	cached, ok, err := s.cache.Get(key)
	if err != nil {
		s.logger.Warn("profile cache read failed", "key", key, "error", err)
	}
	if ok {
		return cached, nil
	}

	v, err, _ := s.flight.Do(key, func() (any, error) {
		return s.Refresh(context.WithoutCancel(ctx), platform, handle)
	})
	if err != nil {
		return nil, err
	}
	return v.(*types.PlatformProfile), nil
}

// Refresh fetches from the upstream and overwrites the cached copy. Partial
// profiles are returned but not cached.
func (s *Service) Refresh(ctx context.Context, platform types.Platform, handle string) (*types.PlatformProfile, error) {
	f, ok := s.fetchers[platform]
	if !ok {
		return nil, fmt.Errorf("%w: %q", types.ErrUnknownPlatform, platform)
	}

	start := time.Now()
	profile, err := f.FetchProfile(ctx, handle)
	if err != nil {
		s.logger.Warn("profile fetch failed",
			"platform", platform,
			"handle", handle,
			"elapsed", time.Since(start).Round(time.Millisecond),
			"error", err,
		)
		return nil, err
	}
	s.logger.Debug("profile fetched",
		"platform", platform,
		"handle", handle,
		"partial", profile.Partial,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)

	if profile.Partial {
		return profile, nil
	}
	if err := s.cache.Put(cache.ProfileKey(platform, handle), profile); err != nil {
		s.logger.Warn("profile cache write failed", "platform", platform, "handle", handle, "error", err)
	}
	return profile, nil
}

// FetchAllProfiles fetches every platform of the account at once. Failed
// platforms are left out of the map and listed in the returned error; the
// map is usable whenever the account exists.
func (s *Service) FetchAllProfiles(ctx context.Context, username string) (map[types.Platform]*types.PlatformProfile, error) {
	user, err := s.lookupUser(username)
	if err != nil {
		return nil, err
	}

	profiles := map[types.Platform]*types.PlatformProfile{}
	futures := map[types.Platform]*governor.Future[*types.PlatformProfile]{}

	g := governor.NewGroup(ctx, s.logger, "all profiles "+username)
	for _, platform := range types.Platforms {
		if _, ok := s.fetchers[platform]; !ok {
			continue
		}
		handle := user.Handle(platform)
		if handle == "" {
			profiles[platform] = types.EmptyProfile(platform)
			continue
		}
		futures[platform] = governor.Spawn(g, string(platform), s.timeout, func(ctx context.Context) (*types.PlatformProfile, error) {
			return s.FetchHandle(ctx, platform, handle)
		})
	}
	failed := g.Wait()

	for platform, f := range futures {
		if profile, err := f.Result(); err == nil {
			profiles[platform] = profile
		}
	}
	return profiles, failed
}

// UpdateHandles stores the given handles on the account, creating it when
// needed. Platforms missing from handles keep their current value.
func (s *Service) UpdateHandles(username string, handles map[types.Platform]string) (*types.UserRecord, error) {
	user, err := s.users.GetUserByUsername(username)
	if err != nil {
		return nil, fmt.Errorf("failed to load user %q: %w", username, err)
	}
	if user == nil {
		user = &types.UserRecord{Username: username}
	}
	for platform, handle := range handles {
		if _, ok := s.fetchers[platform]; !ok {
			return nil, fmt.Errorf("%w: %q", types.ErrUnknownPlatform, platform)
		}
		user.SetHandle(platform, handle)
	}

	saved, err := s.users.SaveUser(user)
	if err != nil {
		return nil, fmt.Errorf("failed to save user %q: %w", username, err)
	}
	return saved, nil
}

// Users lists every stored account.
func (s *Service) Users() ([]*types.UserRecord, error) {
	return s.users.ListUsers()
}

// Target is one platform handle to keep warm.
type Target struct {
	Platform types.Platform
	Handle   string
}

// Targets lists every distinct handle set on the given accounts, in
// platform display order.
func Targets(users []*types.UserRecord) []Target {
	seen := map[Target]bool{}
	targets := []Target{}
	for _, platform := range types.Platforms {
		for _, user := range users {
			t := Target{Platform: platform, Handle: user.Handle(platform)}
			if t.Handle == "" || seen[t] {
				continue
			}
			seen[t] = true
			targets = append(targets, t)
		}
	}
	return targets
}
