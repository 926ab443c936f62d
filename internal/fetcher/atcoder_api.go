package fetcher

import (
	"regexp"
	"strings"
	"unicode"

	"uocsclub.net/cpstats/internal/types"
)

type atcoderHistoryEntry struct {
	IsRated           bool   `json:"IsRated"`
	Place             int    `json:"Place"`
	OldRating         int    `json:"OldRating"`
	NewRating         int    `json:"NewRating"`
	Performance       int    `json:"Performance"`
	ContestName       string `json:"ContestName"`
	ContestScreenName string `json:"ContestScreenName"`
	EndTime           string `json:"EndTime"`
}

// atcoderHistory is the /users/{handle}/history/json payload, oldest first.
type atcoderHistory []atcoderHistoryEntry

var atcoderContestPattern = regexp.MustCompile(`(?i)atcoder\s+(.+?)\s+contest\s+(\d+)`)

// atcoderContestName pulls "AtCoder Beginner Contest 300" and "abc300" out
// of a free-text contest name. Names that don't follow the pattern are
// returned unchanged as both values.
func atcoderContestName(raw string) (name string, id string) {
	m := atcoderContestPattern.FindStringSubmatch(raw)
	if m == nil {
		return raw, raw
	}

	var b strings.Builder
	b.WriteByte('a')
	for _, word := range strings.Fields(m[1]) {
		r := []rune(word)[0]
		b.WriteRune(unicode.ToLower(r))
	}
	b.WriteByte('c')
	b.WriteString(m[2])

	return m[0], b.String()
}

func (h atcoderHistory) ToProfile(handle string) *types.PlatformProfile {
	profile := &types.PlatformProfile{
		Platform:              types.AtCoder,
		Username:              handle,
		ContestParticipations: len(h),
		ContestHistory:        make([]types.ContestHistoryEntry, 0, len(h)),
	}

	if len(h) == 0 {
		profile.CurrentRank = RatingRank(NoContests)
		profile.MaxRank = RatingRank(NoContests)
		return profile
	}

	maxRating := 0
	for _, entry := range h {
		maxRating = max(maxRating, entry.NewRating)

		name, id := atcoderContestName(entry.ContestName)
		profile.ContestHistory = append(profile.ContestHistory, types.ContestHistoryEntry{
			ContestId:   id,
			ContestName: name,
			Standing:    entry.Place,
			OldRating:   entry.OldRating,
			NewRating:   entry.NewRating,
		})
	}

	profile.CurrentRating = h[len(h)-1].NewRating
	profile.MaxRating = maxRating
	profile.CurrentRank = RatingRank(profile.CurrentRating)
	profile.MaxRank = RatingRank(maxRating)
	return profile
}
