package fetcher

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"uocsclub.net/cpstats/internal/governor"
	"uocsclub.net/cpstats/internal/types"
)

const (
	atcoderPastLimit  = 3
	atcoderTimeLayout = "2006-01-02 15:04:05-0700"
)

type AtCoderAdapter struct {
	client *Client
}

func NewAtCoderAdapter(client *Client) *AtCoderAdapter {
	return &AtCoderAdapter{client: client}
}

func (a *AtCoderAdapter) Platform() types.Platform {
	return types.AtCoder
}

func (a *AtCoderAdapter) FetchHistory(ctx context.Context, handle string) (atcoderHistory, error) {
	history := atcoderHistory{}
	target := fmt.Sprintf("%s/users/%s/history/json", a.client.endpoints.AtCoder, url.PathEscape(handle))
	if err := a.client.getJSON(ctx, types.AtCoder, "history", target, nil, &history); err != nil {
		return nil, err
	}
	return history, nil
}

func (a *AtCoderAdapter) FetchProfile(ctx context.Context, handle string) (*types.PlatformProfile, error) {
	history, err := governor.Await(ctx, a.client.timeouts.Profile, func(ctx context.Context) (atcoderHistory, error) {
		return a.FetchHistory(ctx, handle)
	})
	if err != nil {
		return nil, fetchErr(types.AtCoder, "profile", err)
	}
	return history.ToProfile(handle), nil
}

// FetchContests scrapes the contest index (running + upcoming) and the
// archive (finished) in parallel.
func (a *AtCoderAdapter) FetchContests(ctx context.Context) ([]types.ContestListing, error) {
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

	g := governor.NewGroup(ctx, a.client.logger, "atcoder contests")
	g.Go("upcoming", a.client.timeouts.Contest, func(ctx context.Context) error {
		found, err := a.fetchUpcoming(ctx)
		if err != nil {
			return err
		}
		publish(ctx, found)
		return nil
	})
	g.Go("archive", a.client.timeouts.Contest, func(ctx context.Context) error {
		found, err := a.fetchArchive(ctx)
		if err != nil {
			return err
		}
		publish(ctx, found)
		return nil
	})
	err := g.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(listings) == 0 && err != nil {
		return nil, fetchErr(types.AtCoder, "contests", err)
	}
	return listings, nil
}

func (a *AtCoderAdapter) fetchUpcoming(ctx context.Context) ([]types.ContestListing, error) {
	doc, err := a.client.getHTML(ctx, types.AtCoder, "contests", a.client.endpoints.AtCoder+"/contests/", url.Values{"lang": {"en"}})
	if err != nil {
		return nil, err
	}

	listings := []types.ContestListing{}
	for _, id := range []string{"contest-table-action", "contest-table-upcoming"} {
		if table := findByID(doc, id); table != nil {
			listings = append(listings, a.parseContestRows(table)...)
		}
	}
	return listings, nil
}

func (a *AtCoderAdapter) fetchArchive(ctx context.Context) ([]types.ContestListing, error) {
	doc, err := a.client.getHTML(ctx, types.AtCoder, "archive", a.client.endpoints.AtCoder+"/contests/archive", url.Values{"lang": {"en"}})
	if err != nil {
		return nil, err
	}
	return latestFinished(a.parseContestRows(doc), atcoderPastLimit), nil
}

// parseContestRows reads every contest row under root. A row is
// <td><time>start</time></td><td>...<a href="/contests/id">name</a></td><td>HH:MM</td>.
func (a *AtCoderAdapter) parseContestRows(root *html.Node) []types.ContestListing {
	listings := []types.ContestListing{}
	for _, row := range findAll(root, atom.Tr) {
		cells := childElements(row, atom.Td)
		if len(cells) < 3 {
			continue
		}

		timeNode := findFirst(cells[0], atom.Time)
		if timeNode == nil {
			continue
		}
		start, err := time.Parse(atcoderTimeLayout, strings.TrimSpace(textContent(timeNode)))
		if err != nil {
			a.client.logger.Debug("skipping atcoder row", "reason", "bad start time", "error", err)
			continue
		}

		var link *html.Node
		for _, anchor := range findAll(cells[1], atom.A) {
			if strings.HasPrefix(attr(anchor, "href"), "/contests/") {
				link = anchor
			}
		}
		if link == nil {
			continue
		}
		id := strings.TrimPrefix(attr(link, "href"), "/contests/")

		duration, err := parseClockDuration(textContent(cells[2]))
		if err != nil {
			a.client.logger.Debug("skipping atcoder row", "contest", id, "reason", "bad duration", "error", err)
			continue
		}

		listings = append(listings, types.NewListing(
			types.AtCoder,
			id,
			strings.TrimSpace(textContent(link)),
			a.client.endpoints.AtCoder+"/contests/"+id,
			start,
			duration,
		))
	}
	return listings
}

// parseClockDuration reads "HH:MM"; hours may exceed 24 for long contests.
func parseClockDuration(s string) (time.Duration, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute, nil
}
