package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"uocsclub.net/cpstats/internal/governor"
	"uocsclub.net/cpstats/internal/types"
)

const leetcodePastLimit = 4

type LeetCodeAdapter struct {
	client *Client
}

func NewLeetCodeAdapter(client *Client) *LeetCodeAdapter {
	return &LeetCodeAdapter{client: client}
}

func (a *LeetCodeAdapter) Platform() types.Platform {
	return types.LeetCode
}

// query sends a GraphQL query as a GET request and decodes its data field.
func (a *LeetCodeAdapter) query(ctx context.Context, op string, query string, variables map[string]any, out any) error {
	params := url.Values{"query": {strings.Join(strings.Fields(query), " ")}}
	if len(variables) > 0 {
		encoded, err := json.Marshal(variables)
		if err != nil {
			return fetchErr(types.LeetCode, op, fmt.Errorf("%w: %v", types.ErrParse, err))
		}
		params.Set("variables", string(encoded))
	}

	resp := graphqlResponse{}
	if err := a.client.getJSON(ctx, types.LeetCode, op, a.client.endpoints.LeetCode+"/graphql", params, &resp); err != nil {
		return err
	}
	if len(resp.Errors) > 0 {
		msg := resp.Errors[0].Message
		if strings.Contains(strings.ToLower(msg), "does not exist") {
			return fetchErr(types.LeetCode, op, fmt.Errorf("%w: %s", types.ErrUserNotFound, msg))
		}
		return fetchErr(types.LeetCode, op, fmt.Errorf("%w: %s", types.ErrUpstreamUnavailable, msg))
	}
	if len(resp.Data) == 0 || string(resp.Data) == "null" {
		return fetchErr(types.LeetCode, op, fmt.Errorf("%w: empty data", types.ErrParse))
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fetchErr(types.LeetCode, op, fmt.Errorf("%w: %v", types.ErrParse, err))
	}
	return nil
}

func (a *LeetCodeAdapter) FetchProfileStats(ctx context.Context, handle string) (*leetcodeProfileData, error) {
	data := &leetcodeProfileData{}
	if err := a.query(ctx, "userProfile", leetcodeProfileQuery, map[string]any{"username": handle}, data); err != nil {
		return nil, err
	}
	if data.MatchedUser == nil {
		return nil, fetchErr(types.LeetCode, "userProfile", types.ErrUserNotFound)
	}
	return data, nil
}

func (a *LeetCodeAdapter) FetchContestStats(ctx context.Context, handle string) (*leetcodeContestData, error) {
	data := &leetcodeContestData{}
	if err := a.query(ctx, "userContest", leetcodeContestQuery, map[string]any{"username": handle}, data); err != nil {
		return nil, err
	}
	return data, nil
}

// FetchProfile runs the stats and contest queries in parallel. Stats are
// required; without contest data the profile is returned unrated and
// marked partial.
func (a *LeetCodeAdapter) FetchProfile(ctx context.Context, handle string) (*types.PlatformProfile, error) {
	g := governor.NewGroup(ctx, a.client.logger, "leetcode profile")
	stats := governor.Spawn(g, "userProfile", a.client.timeouts.Profile, func(ctx context.Context) (*leetcodeProfileData, error) {
		return a.FetchProfileStats(ctx, handle)
	})
	contest := governor.Spawn(g, "userContest", a.client.timeouts.Profile, func(ctx context.Context) (*leetcodeContestData, error) {
		return a.FetchContestStats(ctx, handle)
	})
	_ = g.Wait()

	profileData, err := stats.Result()
	if err != nil {
		return nil, fetchErr(types.LeetCode, "profile", err)
	}
	contestData, err := contest.Result()
	if err != nil {
		a.client.logger.Warn("leetcode contest ranking unavailable", "handle", handle, "error", err)
	}

	raw := &leetcodeRaw{Profile: profileData, Contest: contestData}
	profile := raw.ToProfile(handle)
	profile.Partial = err != nil
	return profile, nil
}

// FetchContests asks for upcoming and past contests in parallel.
func (a *LeetCodeAdapter) FetchContests(ctx context.Context) ([]types.ContestListing, error) {
	var mu sync.Mutex
	listings := []types.ContestListing{}
	publish := func(ctx context.Context, found []types.ContestListing) {
		mu.Lock()
		defer mu.Unlock()
		if ctx.Err() != nil {
			return
		}
		listings = append(listings, found...)
	}

	g := governor.NewGroup(ctx, a.client.logger, "leetcode contests")
	g.Go("upcomingContests", a.client.timeouts.Contest, func(ctx context.Context) error {
		data := struct {
			UpcomingContests []leetcodeListContest `json:"upcomingContests"`
		}{}
		if err := a.query(ctx, "upcomingContests", leetcodeUpcomingQuery, nil, &data); err != nil {
			return err
		}
		publish(ctx, a.toListings(data.UpcomingContests))
		return nil
	})
	g.Go("pastContests", a.client.timeouts.Contest, func(ctx context.Context) error {
		data := struct {
			PastContests struct {
				Data []leetcodeListContest `json:"data"`
			} `json:"pastContests"`
		}{}
		if err := a.query(ctx, "pastContests", leetcodePastQuery, map[string]any{"pageNo": 1}, &data); err != nil {
			return err
		}
		publish(ctx, latestFinished(a.toListings(data.PastContests.Data), leetcodePastLimit))
		return nil
	})
	err := g.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(listings) == 0 && err != nil {
		return nil, fetchErr(types.LeetCode, "contests", err)
	}
	return listings, nil
}

func (a *LeetCodeAdapter) toListings(contests []leetcodeListContest) []types.ContestListing {
	out := make([]types.ContestListing, 0, len(contests))
	for _, c := range contests {
		out = append(out, types.NewListing(
			types.LeetCode,
			c.TitleSlug,
			c.Title,
			a.client.endpoints.LeetCode+"/contest/"+c.TitleSlug,
			time.Unix(c.StartTime, 0),
			time.Duration(c.Duration)*time.Second,
		))
	}
	return out
}
