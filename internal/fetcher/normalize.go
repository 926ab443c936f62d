package fetcher

import (
	"encoding/json"
	"strconv"
	"strings"

	"uocsclub.net/cpstats/internal/types"
)

// NoContests is the rating used for rank lookup when a user has never been
// rated on a platform.
const NoContests = -1

type rankStep struct {
	min  int
	rank string
}

var ratingRanks = []rankStep{
	{2800, "Legend"},
	{2400, "Red"},
	{2000, "Orange"},
	{1600, "Yellow"},
	{1200, "Green"},
	{800, "Cyan"},
	{400, "Blue"},
	{0, "Gray"},
}

var codechefStars = []rankStep{
	{2500, "7 star"},
	{2200, "6 star"},
	{2000, "5 star"},
	{1800, "4 star"},
	{1600, "3 star"},
	{1400, "2 star"},
	{0, "1 star"},
}

// RatingRank is the color tier shared by Codeforces and AtCoder.
func RatingRank(rating int) string {
	return lookupRank(ratingRanks, rating, "Unrated / Newbie")
}

func CodeChefStars(rating int) string {
	return lookupRank(codechefStars, rating, "Unrated")
}

func lookupRank(table []rankStep, rating int, unrated string) string {
	for _, step := range table {
		if rating >= step.min {
			return step.rank
		}
	}
	return unrated
}

// roundRating rounds half up, so 1500.5 becomes 1501 and 1500.4 becomes 1500.
func roundRating(r float64) int {
	return int(r + 0.5)
}

// reverseHistory flips a newest-first history into chronological order.
func reverseHistory(h []types.ContestHistoryEntry) {
	for i, j := 0, len(h)-1; i < j; i, j = i+1, j-1 {
		h[i], h[j] = h[j], h[i]
	}
}

// chainOldRatings fills OldRating from the previous entry for sources that
// only report the rating after each contest. h must be chronological.
func chainOldRatings(h []types.ContestHistoryEntry) {
	prev := 0
	for i := range h {
		h[i].OldRating = prev
		prev = h[i].NewRating
	}
}

// nullableInt decodes numbers that upstreams send as numbers, quoted
// strings or null. Anything unparseable becomes 0.
type nullableInt int

func (n *nullableInt) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" || raw == `""` {
		*n = 0
		return nil
	}

	var num json.Number
	if err := json.Unmarshal(data, &num); err == nil {
		if i, err := num.Int64(); err == nil {
			*n = nullableInt(i)
			return nil
		}
		if f, err := num.Float64(); err == nil {
			*n = nullableInt(int(f))
			return nil
		}
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			*n = nullableInt(i)
			return nil
		}
	}

	*n = 0
	return nil
}
