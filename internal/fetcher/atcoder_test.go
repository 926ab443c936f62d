package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"uocsclub.net/cpstats/internal/types"
)

func TestAtCoderContestName(t *testing.T) {
	cases := []struct {
		raw, name, id string
	}{
		{"AtCoder Beginner Contest 300", "AtCoder Beginner Contest 300", "abc300"},
		{"AtCoder Regular Contest 160 (Sponsored by X)", "AtCoder Regular Contest 160", "arc160"},
		{"atcoder grand contest 062", "atcoder grand contest 062", "agc062"},
		{"AtCoder Heuristic Contest 020", "AtCoder Heuristic Contest 020", "ahc020"},
		{"Japan Final 2023", "Japan Final 2023", "Japan Final 2023"},
	}
	for _, c := range cases {
		name, id := atcoderContestName(c.raw)
		if name != c.name || id != c.id {
			t.Fatalf("%q: expected (%q, %q), got (%q, %q)", c.raw, c.name, c.id, name, id)
		}
	}
}

func TestAtCoderToProfile(t *testing.T) {
	history := atcoderHistory{
		{ContestName: "AtCoder Beginner Contest 290", Place: 1200, OldRating: 0, NewRating: 700},
		{ContestName: "AtCoder Beginner Contest 291", Place: 400, OldRating: 700, NewRating: 1250},
		{ContestName: "AtCoder Beginner Contest 292", Place: 2000, OldRating: 1250, NewRating: 1100},
	}

	p := history.ToProfile("chokudai")
	if p.CurrentRating != 1100 || p.MaxRating != 1250 {
		t.Fatalf("expected rating 1100 / max 1250, got %d / %d", p.CurrentRating, p.MaxRating)
	}
	if p.CurrentRank != "Cyan" || p.MaxRank != "Green" {
		t.Fatalf("unexpected ranks %q / %q", p.CurrentRank, p.MaxRank)
	}
	if p.ContestParticipations != 3 || p.ContestHistory[1].ContestId != "abc291" {
		t.Fatalf("unexpected history: %+v", p.ContestHistory)
	}

	again := history.ToProfile("chokudai")
	if !reflect.DeepEqual(p, again) {
		t.Fatalf("normalizing the same history twice gave different profiles")
	}
}

func TestAtCoderEmptyHistory(t *testing.T) {
	p := atcoderHistory{}.ToProfile("fresh")
	if p.CurrentRank != "Unrated / Newbie" || p.CurrentRating != 0 || p.ContestHistory == nil {
		t.Fatalf("unexpected profile: %+v", p)
	}
}

func TestAtCoderFetchProfileNotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := NewAtCoderAdapter(newTestClient(t, srv)).FetchProfile(context.Background(), "ghost")
	if !errors.Is(err, types.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func atcoderRow(start time.Time, id, name, duration string) string {
	return fmt.Sprintf(`<tr>
<td class="text-center"><a href="http://www.timeanddate.com/"><time class="fixtime">%s</time></a></td>
<td><span title="Algorithm">Ⓐ</span> <a href="/contests/%s">%s</a></td>
<td class="text-center">%s</td>
<td class="text-center"> - 1999</td>
</tr>`, start.Format(atcoderTimeLayout), id, name, duration)
}

func TestAtCoderFetchContests(t *testing.T) {
	jst := time.FixedZone("JST", 9*60*60)
	base := time.Date(2026, 10, 17, 21, 0, 0, 0, jst)

	index := `<html><body>
<div id="contest-table-action"><table><tbody>` +
		atcoderRow(base.Add(-30*time.Minute), "abc420", "AtCoder Beginner Contest 420", "01:40") +
		`</tbody></table></div>
<div id="contest-table-upcoming"><table><thead><tr><th>Start</th><th>Name</th><th>Duration</th></tr></thead><tbody>` +
		atcoderRow(base.Add(24*time.Hour), "arc190", "AtCoder Regular Contest 190", "02:00") +
		atcoderRow(base.Add(48*time.Hour), "ahc050", "AtCoder Heuristic Contest 050", "240:00") +
		`</tbody></table></div>
<div id="contest-table-recent"><table><tbody>` +
		atcoderRow(base.Add(-72*time.Hour), "abc419", "AtCoder Beginner Contest 419", "01:40") +
		`</tbody></table></div>
</body></html>`

	archive := "<html><body><table><tbody>"
	for i := 1; i <= 5; i++ {
		archive += atcoderRow(base.Add(-time.Duration(i)*24*time.Hour), fmt.Sprintf("abc41%d", i), "Old", "01:40")
	}
	archive += "</tbody></table></body></html>"

	mux := http.NewServeMux()
	mux.HandleFunc("/contests/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("lang") != "en" {
			t.Errorf("expected lang=en, got %q", r.URL.RawQuery)
		}
		w.Write([]byte(index))
	})
	mux.HandleFunc("/contests/archive", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(archive))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	listings, err := NewAtCoderAdapter(newTestClient(t, srv)).FetchContests(context.Background())
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}

	ids := map[string]types.ContestListing{}
	for _, l := range listings {
		ids[l.ContestId] = l
	}
	if len(listings) != 6 {
		t.Fatalf("expected 3 open + 3 archived contests, got %d: %v", len(listings), ids)
	}
	if _, ok := ids["abc419"]; ok {
		t.Fatalf("recent table should not be read from the index page")
	}
	for _, id := range []string{"abc411", "abc412", "abc413"} {
		if _, ok := ids[id]; !ok {
			t.Fatalf("expected archived contest %s", id)
		}
	}

	heuristic := ids["ahc050"]
	if heuristic.DurationMinutes != 240*60 {
		t.Fatalf("expected 240h duration, got %d minutes", heuristic.DurationMinutes)
	}
	if heuristic.StartTime.Location() != types.IST || !heuristic.StartTime.Equal(base.Add(48*time.Hour)) {
		t.Fatalf("unexpected start %v", heuristic.StartTime)
	}
	if !strings.HasSuffix(heuristic.Url, "/contests/ahc050") || heuristic.ContestName != "AtCoder Heuristic Contest 050" {
		t.Fatalf("unexpected listing %+v", heuristic)
	}
}

func TestAtCoderFetchContestsArchiveDown(t *testing.T) {
	start := time.Now().Add(24 * time.Hour)
	index := `<html><body><div id="contest-table-upcoming"><table><tbody>` +
		atcoderRow(start, "abc430", "AtCoder Beginner Contest 430", "01:40") +
		`</tbody></table></div></body></html>`

	release := make(chan struct{})
	mux := http.NewServeMux()
	mux.HandleFunc("/contests/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(index))
	})
	mux.HandleFunc("/contests/archive", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	defer close(release)

	client := newTestClient(t, srv)
	client.timeouts.Contest = 200 * time.Millisecond

	listings, err := NewAtCoderAdapter(client).FetchContests(context.Background())
	if err != nil {
		t.Fatalf("expected upcoming contests despite archive timeout, got %v", err)
	}
	if len(listings) != 1 || listings[0].ContestId != "abc430" {
		t.Fatalf("expected only the upcoming contest, got %+v", listings)
	}
}

func TestAtCoderFetchContestsBothDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	listings, err := NewAtCoderAdapter(newTestClient(t, srv)).FetchContests(context.Background())
	if err == nil {
		t.Fatalf("expected error, got %+v", listings)
	}
	if !errors.Is(err, types.ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
}

func TestParseClockDuration(t *testing.T) {
	d, err := parseClockDuration(" 01:40 ")
	if err != nil || d != 100*time.Minute {
		t.Fatalf("expected 100m, got %v (%v)", d, err)
	}
	if _, err := parseClockDuration("forever"); err == nil {
		t.Fatalf("expected error for malformed duration")
	}
}
