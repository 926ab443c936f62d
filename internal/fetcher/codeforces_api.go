package fetcher

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"uocsclub.net/cpstats/internal/types"
)

// codeforcesEnvelope wraps every Codeforces API response.
type codeforcesEnvelope struct {
	Status  string          `json:"status"`
	Comment string          `json:"comment,omitempty"`
	Result  json.RawMessage `json:"result"`
}

type codeforcesUser struct {
	Handle    string `json:"handle"`
	Rating    int    `json:"rating"`
	MaxRating int    `json:"maxRating"`
	Rank      string `json:"rank"`
	MaxRank   string `json:"maxRank"`
}

type codeforcesRatingChange struct {
	ContestId               int    `json:"contestId"`
	ContestName             string `json:"contestName"`
	Handle                  string `json:"handle"`
	Rank                    int    `json:"rank"`
	RatingUpdateTimeSeconds int64  `json:"ratingUpdateTimeSeconds"`
	OldRating               int    `json:"oldRating"`
	NewRating               int    `json:"newRating"`
}

type codeforcesProblem struct {
	ContestId int    `json:"contestId"`
	Index     string `json:"index"`
	Name      string `json:"name"`
	Rating    int    `json:"rating,omitempty"`
}

type codeforcesSubmission struct {
	Id                  int64             `json:"id"`
	ContestId           int               `json:"contestId"`
	CreationTimeSeconds int64             `json:"creationTimeSeconds"`
	Problem             codeforcesProblem `json:"problem"`
	ProgrammingLanguage string            `json:"programmingLanguage"`
	Verdict             string            `json:"verdict"`
}

type codeforcesContest struct {
	Id               int    `json:"id"`
	Name             string `json:"name"`
	Type             string `json:"type"`
	Phase            string `json:"phase"`
	DurationSeconds  int64  `json:"durationSeconds"`
	StartTimeSeconds int64  `json:"startTimeSeconds"`
}

// codeforcesRaw is everything the profile is built from. Submissions is
// nil when the status walk failed.
type codeforcesRaw struct {
	User        *codeforcesUser
	Ratings     []codeforcesRatingChange
	Submissions []codeforcesSubmission
}

const recentSubmissionLimit = 10

func (r *codeforcesRaw) ToProfile() *types.PlatformProfile {
	if r == nil || r.User == nil {
		return nil
	}

	profile := &types.PlatformProfile{
		Platform:              types.Codeforces,
		Username:              r.User.Handle,
		CurrentRating:         r.User.Rating,
		MaxRating:             r.User.MaxRating,
		ContestParticipations: len(r.Ratings),
		ContestHistory:        make([]types.ContestHistoryEntry, 0, len(r.Ratings)),
	}

	if len(r.Ratings) == 0 {
		profile.CurrentRank = RatingRank(NoContests)
		profile.MaxRank = RatingRank(NoContests)
	} else {
		profile.CurrentRank = RatingRank(r.User.Rating)
		profile.MaxRank = RatingRank(r.User.MaxRating)
	}

	// user.rating is already oldest first
	for _, change := range r.Ratings {
		profile.ContestHistory = append(profile.ContestHistory, types.ContestHistoryEntry{
			ContestId:   strconv.Itoa(change.ContestId),
			ContestName: change.ContestName,
			Standing:    change.Rank,
			OldRating:   change.OldRating,
			NewRating:   change.NewRating,
		})
	}

	profile.Codeforces = summarizeCodeforcesSubmissions(r.Submissions)
	return profile
}

// summarizeCodeforcesSubmissions expects the newest-first order of user.status.
func summarizeCodeforcesSubmissions(subs []codeforcesSubmission) *types.CodeforcesStats {
	stats := &types.CodeforcesStats{
		TotalSubmissions:  len(subs),
		RecentSubmissions: make([]types.Submission, 0, min(len(subs), recentSubmissionLimit)),
	}

	type problemKey struct {
		contestId int
		index     string
	}
	solved := map[problemKey]struct{}{}

	for _, sub := range subs {
		if sub.Verdict == "OK" {
			stats.AcceptedSubmissions++
			solved[problemKey{sub.Problem.ContestId, sub.Problem.Index}] = struct{}{}
		}
		if len(stats.RecentSubmissions) < recentSubmissionLimit {
			stats.RecentSubmissions = append(stats.RecentSubmissions, types.Submission{
				Id:          strconv.FormatInt(sub.Id, 10),
				ProblemName: sub.Problem.Name,
				ProblemId:   fmt.Sprintf("%d%s", sub.Problem.ContestId, sub.Problem.Index),
				Verdict:     sub.Verdict,
				Language:    sub.ProgrammingLanguage,
				SubmittedAt: time.Unix(sub.CreationTimeSeconds, 0).In(types.IST),
			})
		}
	}

	stats.ProblemsSolved = len(solved)
	return stats
}
