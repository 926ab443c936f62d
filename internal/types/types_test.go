package types

import (
	"errors"
	"testing"
	"time"
)

func TestStatusAt(t *testing.T) {
	start := time.Date(2026, time.March, 1, 14, 30, 0, 0, time.UTC)
	c := NewListing(Codeforces, "1", "Round", "", start, 2*time.Hour)

	cases := []struct {
		now  time.Time
		want ContestStatus
	}{
		{start.Add(-time.Minute), StatusUpcoming},
		{start.Add(time.Minute), StatusLive},
		{start.Add(2 * time.Hour), StatusFinished},
		{start.Add(3 * time.Hour), StatusFinished},
	}
	for _, tc := range cases {
		if got := c.StatusAt(tc.now); got != tc.want {
			t.Fatalf("at %s expected %s, got %s", tc.now, tc.want, got)
		}
	}
}

func TestNewListingNormalizesToIST(t *testing.T) {
	start := time.Date(2026, time.March, 1, 14, 30, 0, 0, time.UTC)
	c := NewListing(AtCoder, "abc400", "AtCoder Beginner Contest 400", "", start, 100*time.Minute)

	if c.StartTime.Location() != IST || c.EndTime.Location() != IST {
		t.Fatalf("expected IST times, got %s / %s", c.StartTime.Location(), c.EndTime.Location())
	}
	if c.StartTime.Hour() != 20 || c.StartTime.Minute() != 0 {
		t.Fatalf("expected 20:00 IST, got %s", c.StartTime.Format(time.Kitchen))
	}
	if !c.EndTime.Equal(c.StartTime.Add(100 * time.Minute)) {
		t.Fatalf("end time does not match duration")
	}
}

func TestNewListingWithEndDerivesDuration(t *testing.T) {
	start := time.Date(2026, time.March, 1, 14, 35, 0, 0, time.UTC)
	end := start.Add(2*time.Hour + 15*time.Minute)
	c := NewListingWithEnd(Codeforces, "2000", "Div. 2", "", start, end)

	if c.DurationMinutes != 135 {
		t.Fatalf("expected 135 minutes, got %d", c.DurationMinutes)
	}
	if !c.EndTime.Equal(end) {
		t.Fatalf("explicit end time was not kept")
	}
}

func TestParsePlatform(t *testing.T) {
	p, err := ParsePlatform(" LeetCode ")
	if err != nil || p != LeetCode {
		t.Fatalf("expected leetcode, got %q (%v)", p, err)
	}
	if _, err := ParsePlatform("topcoder"); !errors.Is(err, ErrUnknownPlatform) {
		t.Fatalf("expected ErrUnknownPlatform, got %v", err)
	}
}

func TestUserHandle(t *testing.T) {
	u := &UserRecord{}
	u.SetHandle(CodeChef, "chef")
	if u.Handle(CodeChef) != "chef" || u.Handle(Codeforces) != "" {
		t.Fatalf("unexpected handles: %+v", u)
	}
}
