package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"uocsclub.net/cpstats/internal/types"
)

func okEnvelope(result any) map[string]any {
	return map[string]any{"status": "OK", "result": result}
}

func makeSubmissions(from, n int) []codeforcesSubmission {
	subs := make([]codeforcesSubmission, 0, n)
	for i := 0; i < n; i++ {
		subs = append(subs, codeforcesSubmission{
			Id:      int64(from + i),
			Verdict: "OK",
			Problem: codeforcesProblem{ContestId: 1000 + from + i, Index: "A", Name: "P"},
		})
	}
	return subs
}

func TestFetchSubmissionsStopsAfterShortPage(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		from, _ := strconv.Atoi(r.URL.Query().Get("from"))
		count, _ := strconv.Atoi(r.URL.Query().Get("count"))
		if count != 3 {
			t.Errorf("expected page size 3, got %d", count)
		}
		// 3 full pages would be from=1,4,7; the third one is short
		n := 3
		if from >= 7 {
			n = 2
		}
		writeJSON(t, w, okEnvelope(makeSubmissions(from, n)))
	}))
	defer srv.Close()

	a := NewCodeforcesAdapter(newTestClient(t, srv))
	a.pageSize = 3

	subs, err := a.FetchSubmissions(context.Background(), "tourist")
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if len(subs) != 8 {
		t.Fatalf("expected 8 submissions, got %d", len(subs))
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 requests, got %d", calls.Load())
	}
}

func TestFetchSubmissionsSingleShortPage(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(t, w, okEnvelope(makeSubmissions(1, 5)))
	}))
	defer srv.Close()

	a := NewCodeforcesAdapter(newTestClient(t, srv))
	if _, err := a.FetchSubmissions(context.Background(), "tourist"); err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected pagination to stop after one request, got %d", calls.Load())
	}
}

func TestCodeforcesToProfile(t *testing.T) {
	subs := []codeforcesSubmission{}
	// 12 submissions, newest first: the same problem solved twice, one WA
	for i := 12; i >= 1; i-- {
		verdict := "OK"
		if i == 5 {
			verdict = "WRONG_ANSWER"
		}
		index := fmt.Sprintf("%c", 'A'+i%4)
		subs = append(subs, codeforcesSubmission{
			Id:                  int64(i),
			CreationTimeSeconds: int64(1700000000 + i),
			Problem:             codeforcesProblem{ContestId: 1900, Index: index, Name: "P" + index},
			Verdict:             verdict,
		})
	}

	raw := &codeforcesRaw{
		User: &codeforcesUser{Handle: "tourist", Rating: 2799, MaxRating: 2800},
		Ratings: []codeforcesRatingChange{
			{ContestId: 1, ContestName: "Round 1", Rank: 10, OldRating: 0, NewRating: 1500},
			{ContestId: 2, ContestName: "Round 2", Rank: 3, OldRating: 1500, NewRating: 2799},
		},
		Submissions: subs,
	}

	p := raw.ToProfile()
	if p.CurrentRank != "Red" || p.MaxRank != "Legend" {
		t.Fatalf("unexpected ranks %q / %q", p.CurrentRank, p.MaxRank)
	}
	if p.ContestParticipations != 2 || p.ContestHistory[0].ContestId != "1" || p.ContestHistory[1].NewRating != 2799 {
		t.Fatalf("unexpected history: %+v", p.ContestHistory)
	}
	stats := p.Codeforces
	if stats.TotalSubmissions != 12 || stats.AcceptedSubmissions != 11 {
		t.Fatalf("unexpected totals: %+v", stats)
	}
	if stats.ProblemsSolved != 4 {
		t.Fatalf("expected 4 distinct solved problems, got %d", stats.ProblemsSolved)
	}
	if len(stats.RecentSubmissions) != 10 || stats.RecentSubmissions[0].Id != "12" {
		t.Fatalf("expected 10 newest submissions, got %d starting at %s", len(stats.RecentSubmissions), stats.RecentSubmissions[0].Id)
	}
}

func TestCodeforcesProfileWithoutContests(t *testing.T) {
	raw := &codeforcesRaw{User: &codeforcesUser{Handle: "newbie"}}
	p := raw.ToProfile()
	if p.CurrentRank != "Unrated / Newbie" || len(p.ContestHistory) != 0 {
		t.Fatalf("unexpected profile: %+v", p)
	}
}

func TestCodeforcesFetchProfileKeepsAccountWhenStatusFails(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/user.info", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, okEnvelope([]codeforcesUser{{Handle: "tourist", Rating: 3000, MaxRating: 3100}}))
	})
	mux.HandleFunc("/api/user.rating", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, okEnvelope([]codeforcesRatingChange{{ContestId: 7, NewRating: 3000}}))
	})
	mux.HandleFunc("/api/user.status", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	p, err := NewCodeforcesAdapter(newTestClient(t, srv)).FetchProfile(context.Background(), "tourist")
	if err != nil {
		t.Fatalf("expected profile despite status failure, got %v", err)
	}
	if p.CurrentRating != 3000 || p.CurrentRank != "Legend" {
		t.Fatalf("unexpected profile: %+v", p)
	}
	if p.Codeforces != nil || !p.Partial {
		t.Fatalf("expected partial profile without submission stats, got %+v", p)
	}
}

func TestCodeforcesUnknownHandle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		writeJSON(t, w, map[string]any{"status": "FAILED", "comment": "handles: User with handle nobody not found"})
	}))
	defer srv.Close()

	_, err := NewCodeforcesAdapter(newTestClient(t, srv)).FetchProfile(context.Background(), "nobody")
	if !errors.Is(err, types.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	var fe *FetchError
	if !errors.As(err, &fe) || fe.Platform != types.Codeforces {
		t.Fatalf("expected codeforces FetchError, got %v", err)
	}
}

func TestCodeforcesFetchContestsCapsFinished(t *testing.T) {
	now := time.Now().Unix()
	contests := []codeforcesContest{
		{Id: 10, Name: "Upcoming", Phase: "BEFORE", StartTimeSeconds: now + 3600, DurationSeconds: 7200},
		{Id: 9, Name: "Running", Phase: "CODING", StartTimeSeconds: now - 600, DurationSeconds: 7200},
		{Id: 11, Name: "Judging", Phase: "SYSTEM_TEST", StartTimeSeconds: now - 3*3600, DurationSeconds: 7200},
		{Id: 8, Name: "Old 1", Phase: "FINISHED", StartTimeSeconds: now - 1*86400, DurationSeconds: 7200},
		{Id: 7, Name: "Old 2", Phase: "FINISHED", StartTimeSeconds: now - 2*86400, DurationSeconds: 7200},
		{Id: 6, Name: "Old 3", Phase: "FINISHED", StartTimeSeconds: now - 3*86400, DurationSeconds: 7200},
		{Id: 5, Name: "Old 4", Phase: "FINISHED", StartTimeSeconds: now - 4*86400, DurationSeconds: 7200},
		{Id: 4, Name: "No start", Phase: "BEFORE"},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, okEnvelope(contests))
	}))
	defer srv.Close()

	listings, err := NewCodeforcesAdapter(newTestClient(t, srv)).FetchContests(context.Background())
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if len(listings) != 5 {
		t.Fatalf("expected 2 open + 3 finished contests, got %d", len(listings))
	}
	ids := map[string]bool{}
	for _, l := range listings {
		ids[l.ContestId] = true
		if l.ContestId == "6" || l.ContestId == "5" || l.ContestId == "4" {
			t.Fatalf("contest %s should have been dropped", l.ContestId)
		}
		if l.DurationMinutes != 120 || l.StartTime.Location() != types.IST {
			t.Fatalf("unexpected listing %+v", l)
		}
	}
	if !ids["11"] {
		t.Fatalf("ended contest in system test should count as finished, got %v", ids)
	}
}
