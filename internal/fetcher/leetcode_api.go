package fetcher

import (
	"encoding/json"
	"strconv"
	"time"

	"uocsclub.net/cpstats/internal/types"
)

const leetcodeProfileQuery = `query userProfile($username: String!) {
  matchedUser(username: $username) {
    username
    profile { ranking }
    submitStats {
      acSubmissionNum { difficulty count submissions }
      totalSubmissionNum { difficulty count submissions }
    }
  }
  recentAcSubmissionList(username: $username, limit: 10) { id title titleSlug timestamp lang }
}`

const leetcodeContestQuery = `query userContest($username: String!) {
  userContestRanking(username: $username) {
    attendedContestsCount rating globalRanking topPercentage badge { name }
  }
  userContestRankingHistory(username: $username) {
    attended rating ranking contest { title titleSlug startTime }
  }
}`

const leetcodeUpcomingQuery = `query upcomingContests {
  upcomingContests { title titleSlug startTime duration }
}`

const leetcodePastQuery = `query pastContests($pageNo: Int) {
  pastContests(pageNo: $pageNo) { data { title titleSlug startTime duration } }
}`

type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors,omitempty"`
}

type leetcodeSubmissionCount struct {
	Difficulty  string `json:"difficulty"`
	Count       int    `json:"count"`
	Submissions int    `json:"submissions"`
}

type leetcodeProfileData struct {
	MatchedUser *struct {
		Username string `json:"username"`
		Profile  struct {
			Ranking int `json:"ranking"`
		} `json:"profile"`
		SubmitStats struct {
			AcSubmissionNum    []leetcodeSubmissionCount `json:"acSubmissionNum"`
			TotalSubmissionNum []leetcodeSubmissionCount `json:"totalSubmissionNum"`
		} `json:"submitStats"`
	} `json:"matchedUser"`
	RecentAcSubmissionList []struct {
		Id        string `json:"id"`
		Title     string `json:"title"`
		TitleSlug string `json:"titleSlug"`
		Timestamp string `json:"timestamp"`
		Lang      string `json:"lang"`
	} `json:"recentAcSubmissionList"`
}

type leetcodeContestEntry struct {
	Attended bool    `json:"attended"`
	Rating   float64 `json:"rating"`
	Ranking  int     `json:"ranking"`
	Contest  struct {
		Title     string `json:"title"`
		TitleSlug string `json:"titleSlug"`
		StartTime int64  `json:"startTime"`
	} `json:"contest"`
}

type leetcodeContestData struct {
	UserContestRanking *struct {
		AttendedContestsCount int     `json:"attendedContestsCount"`
		Rating                float64 `json:"rating"`
		GlobalRanking         int     `json:"globalRanking"`
		TopPercentage         float64 `json:"topPercentage"`
		Badge                 *struct {
			Name string `json:"name"`
		} `json:"badge"`
	} `json:"userContestRanking"`
	UserContestRankingHistory []leetcodeContestEntry `json:"userContestRankingHistory"`
}

type leetcodeListContest struct {
	Title     string `json:"title"`
	TitleSlug string `json:"titleSlug"`
	StartTime int64  `json:"startTime"`
	Duration  int64  `json:"duration"` // seconds
}

// leetcodeRaw is the profile half plus the contest half, which is nil when
// its call failed.
type leetcodeRaw struct {
	Profile *leetcodeProfileData
	Contest *leetcodeContestData
}

// bucketLevels folds the difficulty rows into Levels, one for solved
// problem counts and one for submission counts.
func bucketLevels(rows []leetcodeSubmissionCount) (count types.Level, submissions types.Level) {
	for _, row := range rows {
		switch row.Difficulty {
		case "All":
			count.All, submissions.All = row.Count, row.Submissions
		case "Easy":
			count.Easy, submissions.Easy = row.Count, row.Submissions
		case "Medium":
			count.Medium, submissions.Medium = row.Count, row.Submissions
		case "Hard":
			count.Hard, submissions.Hard = row.Count, row.Submissions
		}
	}
	return count, submissions
}

func (r *leetcodeRaw) ToProfile(handle string) *types.PlatformProfile {
	if r == nil || r.Profile == nil || r.Profile.MatchedUser == nil {
		return nil
	}
	user := r.Profile.MatchedUser

	solved, accepted := bucketLevels(user.SubmitStats.AcSubmissionNum)
	_, total := bucketLevels(user.SubmitStats.TotalSubmissionNum)

	stats := &types.LeetCodeStats{
		ProblemsSolved:      solved,
		AcceptedSubmissions: accepted,
		TotalSubmissions:    total,
		RecentSubmissions:   make([]types.Submission, 0, len(r.Profile.RecentAcSubmissionList)),
	}
	for _, sub := range r.Profile.RecentAcSubmissionList {
		if len(stats.RecentSubmissions) == recentSubmissionLimit {
			break
		}
		ts, _ := strconv.ParseInt(sub.Timestamp, 10, 64)
		stats.RecentSubmissions = append(stats.RecentSubmissions, types.Submission{
			Id:          sub.Id,
			ProblemName: sub.Title,
			ProblemId:   sub.TitleSlug,
			Verdict:     "Accepted",
			Language:    sub.Lang,
			SubmittedAt: time.Unix(ts, 0).In(types.IST),
		})
	}

	username := user.Username
	if username == "" {
		username = handle
	}
	profile := &types.PlatformProfile{
		Platform:       types.LeetCode,
		Username:       username,
		CurrentRank:    "Unrated",
		MaxRank:        "Unrated",
		ContestHistory: []types.ContestHistoryEntry{},
		LeetCode:       stats,
	}

	if r.Contest == nil {
		return profile
	}

	for _, entry := range r.Contest.UserContestRankingHistory {
		if !entry.Attended {
			continue
		}
		rating := roundRating(entry.Rating)
		profile.ContestHistory = append(profile.ContestHistory, types.ContestHistoryEntry{
			ContestId:   entry.Contest.TitleSlug,
			ContestName: entry.Contest.Title,
			Standing:    entry.Ranking,
			NewRating:   rating,
		})
		profile.MaxRating = max(profile.MaxRating, rating)
	}
	chainOldRatings(profile.ContestHistory)
	profile.ContestParticipations = len(profile.ContestHistory)

	if n := len(profile.ContestHistory); n > 0 {
		profile.CurrentRating = profile.ContestHistory[n-1].NewRating
	}

	if ranking := r.Contest.UserContestRanking; ranking != nil {
		profile.CurrentRating = roundRating(ranking.Rating)
		profile.MaxRating = max(profile.MaxRating, profile.CurrentRating)
		profile.ContestParticipations = max(profile.ContestParticipations, ranking.AttendedContestsCount)
		stats.GlobalRanking = ranking.GlobalRanking
		stats.TopPercentage = ranking.TopPercentage
		if ranking.Badge != nil && ranking.Badge.Name != "" {
			profile.CurrentRank = ranking.Badge.Name
			profile.MaxRank = ranking.Badge.Name
		}
	}
	return profile
}
