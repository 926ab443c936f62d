package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"uocsclub.net/cpstats/internal/governor"
	"uocsclub.net/cpstats/internal/types"
)

const (
	codeforcesPageSize  = 1000
	codeforcesPastLimit = 3
)

type CodeforcesAdapter struct {
	client   *Client
	pageSize int
}

func NewCodeforcesAdapter(client *Client) *CodeforcesAdapter {
	return &CodeforcesAdapter{client: client, pageSize: codeforcesPageSize}
}

func (a *CodeforcesAdapter) Platform() types.Platform {
	return types.Codeforces
}

// call performs one API method and unwraps the status envelope into out.
// Codeforces reports unknown handles as 400 with a "not found" comment.
func (a *CodeforcesAdapter) call(ctx context.Context, method string, query url.Values, out any) error {
	body, status, err := a.client.get(ctx, types.Codeforces, method, a.client.endpoints.CodeforcesAPI+"/"+method, query)
	if err != nil {
		return err
	}
	if status != http.StatusOK && status != http.StatusBadRequest {
		return fetchErr(types.Codeforces, method, checkStatus(status, body))
	}

	envelope := codeforcesEnvelope{}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fetchErr(types.Codeforces, method, fmt.Errorf("%w: %v", types.ErrParse, err))
	}
	if envelope.Status != "OK" {
		if strings.Contains(strings.ToLower(envelope.Comment), "not found") {
			return fetchErr(types.Codeforces, method, fmt.Errorf("%w: %s", types.ErrUserNotFound, envelope.Comment))
		}
		return fetchErr(types.Codeforces, method, fmt.Errorf("%w: status %s: %s", types.ErrUpstreamUnavailable, envelope.Status, envelope.Comment))
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return fetchErr(types.Codeforces, method, fmt.Errorf("%w: %v", types.ErrParse, err))
	}
	return nil
}

func (a *CodeforcesAdapter) FetchUserInfo(ctx context.Context, handle string) (*codeforcesUser, error) {
	users := []codeforcesUser{}
	if err := a.call(ctx, "user.info", url.Values{"handles": {handle}}, &users); err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, fetchErr(types.Codeforces, "user.info", types.ErrUserNotFound)
	}
	return &users[0], nil
}

func (a *CodeforcesAdapter) FetchRatingHistory(ctx context.Context, handle string) ([]codeforcesRatingChange, error) {
	changes := []codeforcesRatingChange{}
	if err := a.call(ctx, "user.rating", url.Values{"handle": {handle}}, &changes); err != nil {
		return nil, err
	}
	return changes, nil
}

// FetchSubmissions walks user.status one page at a time until a page comes
// back shorter than the page size.
func (a *CodeforcesAdapter) FetchSubmissions(ctx context.Context, handle string) ([]codeforcesSubmission, error) {
	all := []codeforcesSubmission{}
	for from := 1; ; from += a.pageSize {
		page := []codeforcesSubmission{}
		query := url.Values{
			"handle": {handle},
			"from":   {strconv.Itoa(from)},
			"count":  {strconv.Itoa(a.pageSize)},
		}
		if err := a.call(ctx, "user.status", query, &page); err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < a.pageSize {
			return all, nil
		}
	}
}

// FetchProfile runs the account lookup (user.info then user.rating) next to
// the submission walk. The account half is required; a failed submission
// walk leaves the submission stats out and marks the profile partial.
func (a *CodeforcesAdapter) FetchProfile(ctx context.Context, handle string) (*types.PlatformProfile, error) {
	g := governor.NewGroup(ctx, a.client.logger, "codeforces profile")

	account := governor.Spawn(g, "user.info+user.rating", a.client.timeouts.Profile, func(ctx context.Context) (*codeforcesRaw, error) {
		user, err := a.FetchUserInfo(ctx, handle)
		if err != nil {
			return nil, err
		}
		ratings, err := a.FetchRatingHistory(ctx, handle)
		if err != nil {
			return nil, err
		}
		return &codeforcesRaw{User: user, Ratings: ratings}, nil
	})
	submissions := governor.Spawn(g, "user.status", a.client.timeouts.Profile, func(ctx context.Context) ([]codeforcesSubmission, error) {
		return a.FetchSubmissions(ctx, handle)
	})

	_ = g.Wait()

	raw, err := account.Result()
	if err != nil {
		return nil, fetchErr(types.Codeforces, "profile", err)
	}
	subs, err := submissions.Result()
	if err != nil {
		a.client.logger.Warn("codeforces submissions unavailable", "handle", handle, "error", err)
		profile := raw.ToProfile()
		profile.Codeforces = nil
		profile.Partial = true
		return profile, nil
	}
	raw.Submissions = subs
	return raw.ToProfile(), nil
}

// FetchContests returns running and upcoming contests plus the most recent
// finished ones.
func (a *CodeforcesAdapter) FetchContests(ctx context.Context) ([]types.ContestListing, error) {
	contests := []codeforcesContest{}
	if err := a.call(ctx, "contest.list", url.Values{"gym": {"false"}}, &contests); err != nil {
		return nil, err
	}

	listings := []types.ContestListing{}
	finished := []types.ContestListing{}
	for _, c := range contests {
		if c.StartTimeSeconds == 0 {
			continue
		}
		start := time.Unix(c.StartTimeSeconds, 0)
		end := start.Add(time.Duration(c.DurationSeconds) * time.Second)
		listing := types.NewListingWithEnd(
			types.Codeforces,
			strconv.Itoa(c.Id),
			c.Name,
			fmt.Sprintf("%s/contest/%d", a.client.endpoints.CodeforcesWeb, c.Id),
			start,
			end,
		)
		if c.Phase != "BEFORE" && c.Phase != "CODING" {
			finished = append(finished, listing)
			continue
		}
		listings = append(listings, listing)
	}

	return append(listings, latestFinished(finished, codeforcesPastLimit)...), nil
}

// latestFinished keeps the n contests that started most recently.
func latestFinished(finished []types.ContestListing, n int) []types.ContestListing {
	sort.SliceStable(finished, func(i, j int) bool {
		return finished[i].StartTime.After(finished[j].StartTime)
	})
	if len(finished) > n {
		finished = finished[:n]
	}
	return finished
}
