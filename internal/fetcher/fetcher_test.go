package fetcher

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"uocsclub.net/cpstats/internal/config"
)

// newTestClient points every endpoint at srv.
func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	endpoints := config.EndpointsConfig{
		CodeforcesAPI: srv.URL + "/api",
		CodeforcesWeb: srv.URL,
		AtCoder:       srv.URL,
		CodeChefAPI:   srv.URL,
		CodeChefWeb:   srv.URL,
		LeetCode:      srv.URL,
	}
	timeouts := config.TimeoutConfig{
		Profile: 2 * time.Second,
		Contest: 2 * time.Second,
	}
	return NewClient(endpoints, timeouts, nil)
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("encode response: %v", err)
	}
}

func TestRatingRankBoundaries(t *testing.T) {
	cases := map[int]string{
		2800: "Legend",
		2799: "Red",
		2400: "Red",
		2000: "Orange",
		1600: "Yellow",
		1200: "Green",
		800:  "Cyan",
		400:  "Blue",
		399:  "Gray",
		0:    "Gray",
		-1:   "Unrated / Newbie",
	}
	for rating, want := range cases {
		if got := RatingRank(rating); got != want {
			t.Fatalf("rating %d: expected %q, got %q", rating, want, got)
		}
	}
}

func TestCodeChefStars(t *testing.T) {
	cases := map[int]string{
		2500: "7 star",
		2499: "6 star",
		2000: "5 star",
		1800: "4 star",
		1600: "3 star",
		1400: "2 star",
		1399: "1 star",
		0:    "1 star",
		-1:   "Unrated",
	}
	for rating, want := range cases {
		if got := CodeChefStars(rating); got != want {
			t.Fatalf("rating %d: expected %q, got %q", rating, want, got)
		}
	}
}

func TestRoundRatingHalfUp(t *testing.T) {
	cases := map[float64]int{
		1500.4: 1500,
		1499.6: 1500,
		1500.5: 1501,
		1502.5: 1503,
		0:      0,
	}
	for in, want := range cases {
		if got := roundRating(in); got != want {
			t.Fatalf("round(%v): expected %d, got %d", in, want, got)
		}
	}
}

func TestNullableInt(t *testing.T) {
	var payload struct {
		A nullableInt `json:"a"`
		B nullableInt `json:"b"`
		C nullableInt `json:"c"`
		D nullableInt `json:"d"`
	}
	if err := json.Unmarshal([]byte(`{"a": null, "b": "1712", "c": 1650, "d": "n/a"}`), &payload); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if payload.A != 0 || payload.B != 1712 || payload.C != 1650 || payload.D != 0 {
		t.Fatalf("unexpected values: %+v", payload)
	}
}
