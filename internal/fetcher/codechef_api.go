package fetcher

import (
	"encoding/json"
	"strings"

	"uocsclub.net/cpstats/internal/types"
)

type codechefResponse struct {
	Success       bool              `json:"success"`
	Status        int               `json:"status,omitempty"`
	Name          string            `json:"name"`
	CurrentRating nullableInt       `json:"currentRating"`
	HighestRating nullableInt       `json:"highestRating"`
	GlobalRank    nullableInt       `json:"globalRank"`
	Stars         string            `json:"stars"`
	RatingData    codechefRatingSet `json:"ratingData"`
}

type codechefContest struct {
	Code    string      `json:"code"`
	Name    string      `json:"name"`
	Rating  nullableInt `json:"rating"`
	Rank    nullableInt `json:"rank"`
	EndDate string      `json:"end_date"`
}

// codechefRatingSet is the contest history. The aggregator nests it one list
// deeper than needed ([[...]]) and only the first inner list carries the
// rated contests. A flat list is accepted as well.
type codechefRatingSet []codechefContest

func (s *codechefRatingSet) UnmarshalJSON(data []byte) error {
	if strings.TrimSpace(string(data)) == "null" {
		*s = nil
		return nil
	}

	nested := [][]codechefContest{}
	if err := json.Unmarshal(data, &nested); err == nil {
		if len(nested) > 0 {
			*s = nested[0]
		} else {
			*s = nil
		}
		return nil
	}

	flat := []codechefContest{}
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}
	*s = flat
	return nil
}

// ToProfile normalizes the aggregator payload. Its history arrives newest
// first and is reversed here.
func (r *codechefResponse) ToProfile(handle string) *types.PlatformProfile {
	profile := &types.PlatformProfile{
		Platform:              types.CodeChef,
		Username:              handle,
		CurrentRating:         int(r.CurrentRating),
		MaxRating:             int(r.HighestRating),
		ContestParticipations: len(r.RatingData),
		ContestHistory:        make([]types.ContestHistoryEntry, 0, len(r.RatingData)),
	}

	for _, c := range r.RatingData {
		profile.ContestHistory = append(profile.ContestHistory, types.ContestHistoryEntry{
			ContestId:   c.Code,
			ContestName: c.Name,
			Standing:    int(c.Rank),
			NewRating:   int(c.Rating),
		})
	}
	reverseHistory(profile.ContestHistory)
	chainOldRatings(profile.ContestHistory)

	if len(profile.ContestHistory) == 0 {
		profile.CurrentRank = CodeChefStars(NoContests)
		profile.MaxRank = CodeChefStars(NoContests)
		return profile
	}

	for _, h := range profile.ContestHistory {
		profile.MaxRating = max(profile.MaxRating, h.NewRating)
	}
	profile.CurrentRank = CodeChefStars(profile.CurrentRating)
	profile.MaxRank = CodeChefStars(profile.MaxRating)
	return profile
}

type codechefContestList struct {
	Status          string                `json:"status"`
	Message         string                `json:"message,omitempty"`
	PresentContests []codechefListContest `json:"present_contests"`
	FutureContests  []codechefListContest `json:"future_contests"`
	PastContests    []codechefListContest `json:"past_contests"`
}

type codechefListContest struct {
	ContestCode     string      `json:"contest_code"`
	ContestName     string      `json:"contest_name"`
	ContestStartISO string      `json:"contest_start_date_iso"`
	ContestEndISO   string      `json:"contest_end_date_iso"`
	ContestDuration nullableInt `json:"contest_duration"` // minutes
}
