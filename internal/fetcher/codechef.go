package fetcher

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"uocsclub.net/cpstats/internal/governor"
	"uocsclub.net/cpstats/internal/types"
)

const codechefPastLimit = 4

type CodeChefAdapter struct {
	client *Client
}

func NewCodeChefAdapter(client *Client) *CodeChefAdapter {
	return &CodeChefAdapter{client: client}
}

func (a *CodeChefAdapter) Platform() types.Platform {
	return types.CodeChef
}

func (a *CodeChefAdapter) FetchRaw(ctx context.Context, handle string) (*codechefResponse, error) {
	resp := &codechefResponse{}
	target := fmt.Sprintf("%s/handle/%s", a.client.endpoints.CodeChefAPI, url.PathEscape(handle))
	if err := a.client.getJSON(ctx, types.CodeChef, "handle", target, nil, resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		if resp.Status == 404 {
			return nil, fetchErr(types.CodeChef, "handle", types.ErrUserNotFound)
		}
		return nil, fetchErr(types.CodeChef, "handle", fmt.Errorf("%w: success=false status=%d", types.ErrUpstreamUnavailable, resp.Status))
	}
	return resp, nil
}

func (a *CodeChefAdapter) FetchProfile(ctx context.Context, handle string) (*types.PlatformProfile, error) {
	raw, err := governor.Await(ctx, a.client.timeouts.Profile, func(ctx context.Context) (*codechefResponse, error) {
		return a.FetchRaw(ctx, handle)
	})
	if err != nil {
		return nil, fetchErr(types.CodeChef, "profile", err)
	}
	return raw.ToProfile(handle), nil
}

func (a *CodeChefAdapter) FetchContests(ctx context.Context) ([]types.ContestListing, error) {
	list := codechefContestList{}
	query := url.Values{
		"sort_by":       {"START"},
		"sorting_order": {"asc"},
		"offset":        {"0"},
		"mode":          {"all"},
	}
	if err := a.client.getJSON(ctx, types.CodeChef, "contests", a.client.endpoints.CodeChefWeb+"/api/list/contests/all", query, &list); err != nil {
		return nil, err
	}
	if list.Status != "success" {
		return nil, fetchErr(types.CodeChef, "contests", fmt.Errorf("%w: status %q: %s", types.ErrUpstreamUnavailable, list.Status, list.Message))
	}

	listings := []types.ContestListing{}
	for _, c := range append(list.PresentContests, list.FutureContests...) {
		if listing, ok := a.toListing(c); ok {
			listings = append(listings, listing)
		}
	}

	past := []types.ContestListing{}
	for _, c := range list.PastContests {
		if listing, ok := a.toListing(c); ok {
			past = append(past, listing)
		}
	}
	return append(listings, latestFinished(past, codechefPastLimit)...), nil
}

func (a *CodeChefAdapter) toListing(c codechefListContest) (types.ContestListing, bool) {
	start, err := time.Parse(time.RFC3339, c.ContestStartISO)
	if err != nil {
		a.client.logger.Debug("skipping codechef contest", "contest", c.ContestCode, "reason", "bad start time", "error", err)
		return types.ContestListing{}, false
	}

	duration := time.Duration(c.ContestDuration) * time.Minute
	if duration <= 0 {
		end, err := time.Parse(time.RFC3339, c.ContestEndISO)
		if err != nil {
			a.client.logger.Debug("skipping codechef contest", "contest", c.ContestCode, "reason", "no duration", "error", err)
			return types.ContestListing{}, false
		}
		duration = end.Sub(start)
	}

	return types.NewListing(
		types.CodeChef,
		c.ContestCode,
		c.ContestName,
		a.client.endpoints.CodeChefWeb+"/"+c.ContestCode,
		start,
		duration,
	), true
}
