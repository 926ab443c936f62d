// Package fetcher holds one adapter per competitive-programming platform.
// Adapters call the upstream, decode its native payload and normalize it
// into the types package models.
package fetcher

import (
	"context"
	"log/slog"

	"uocsclub.net/cpstats/internal/config"
	"uocsclub.net/cpstats/internal/types"
)

type ProfileFetcher interface {
	Platform() types.Platform
	FetchProfile(ctx context.Context, handle string) (*types.PlatformProfile, error)
}

type ContestLister interface {
	Platform() types.Platform
	FetchContests(ctx context.Context) ([]types.ContestListing, error)
}

type Set struct {
	Codeforces *CodeforcesAdapter
	AtCoder    *AtCoderAdapter
	CodeChef   *CodeChefAdapter
	LeetCode   *LeetCodeAdapter
}

func NewSet(cfg config.Config, logger *slog.Logger) *Set {
	client := NewClient(cfg.Endpoints, cfg.Timeouts, logger)
	return &Set{
		Codeforces: NewCodeforcesAdapter(client),
		AtCoder:    NewAtCoderAdapter(client),
		CodeChef:   NewCodeChefAdapter(client),
		LeetCode:   NewLeetCodeAdapter(client),
	}
}

func (s *Set) ProfileFetchers() map[types.Platform]ProfileFetcher {
	return map[types.Platform]ProfileFetcher{
		types.Codeforces: s.Codeforces,
		types.AtCoder:    s.AtCoder,
		types.CodeChef:   s.CodeChef,
		types.LeetCode:   s.LeetCode,
	}
}

func (s *Set) ContestListers() []ContestLister {
	return []ContestLister{s.Codeforces, s.AtCoder, s.CodeChef, s.LeetCode}
}
