package types

import (
	"fmt"
	"strings"
	"time"
)

type Platform string

const (
	Codeforces Platform = "codeforces"
	AtCoder    Platform = "atcoder"
	CodeChef   Platform = "codechef"
	LeetCode   Platform = "leetcode"
)

// Platforms lists every supported platform in display order.
var Platforms = []Platform{Codeforces, AtCoder, CodeChef, LeetCode}

func ParsePlatform(s string) (Platform, error) {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Platforms {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPlatform, s)
}

// PlatformProfile is the normalized view of one user's account on one
// platform. Codeforces and LeetCode carry extra statistics in their own
// sub-structs; the other fields are shared by every platform. Partial is set
// when an optional part of the profile could not be fetched.
type PlatformProfile struct {
	Platform              Platform              `json:"platform"`
	Username              string                `json:"username"`
	CurrentRank           string                `json:"currentRank"`
	CurrentRating         int                   `json:"currentRating"`
	MaxRating             int                   `json:"maxRating"`
	MaxRank               string                `json:"maxRank"`
	ContestParticipations int                   `json:"contestParticipations"`
	ContestHistory        []ContestHistoryEntry `json:"contestHistory"`
	Partial               bool                  `json:"partial,omitempty"`

	Codeforces *CodeforcesStats `json:"codeforces,omitempty"`
	LeetCode   *LeetCodeStats   `json:"leetcode,omitempty"`
}

// EmptyProfile is returned for users that have no handle set on a platform.
func EmptyProfile(platform Platform) *PlatformProfile {
	return &PlatformProfile{
		Platform:       platform,
		ContestHistory: []ContestHistoryEntry{},
	}
}

type ContestHistoryEntry struct {
	ContestId   string `json:"contestId"`
	ContestName string `json:"contestName"`
	Standing    int    `json:"standing"`
	OldRating   int    `json:"oldRating"`
	NewRating   int    `json:"newRating"`
}

type CodeforcesStats struct {
	ProblemsSolved      int          `json:"problemsSolved"`
	TotalSubmissions    int          `json:"totalSubmissions"`
	AcceptedSubmissions int          `json:"acceptedSubmissions"`
	RecentSubmissions   []Submission `json:"recentSubmissions"`
}

type LeetCodeStats struct {
	ProblemsSolved      Level        `json:"problemsSolved"`
	TotalSubmissions    Level        `json:"totalSubmissions"`
	AcceptedSubmissions Level        `json:"acceptedSubmissions"`
	GlobalRanking       int          `json:"globalRanking"`
	TopPercentage       float64      `json:"topPercentage"`
	RecentSubmissions   []Submission `json:"recentSubmissions"`
}

// Level is a per-difficulty counter. All is what gets displayed and is not
// required to equal Easy+Medium+Hard.
type Level struct {
	All    int `json:"all"`
	Easy   int `json:"easy"`
	Medium int `json:"medium"`
	Hard   int `json:"hard"`
}

type Submission struct {
	Id          string    `json:"id"`
	ProblemName string    `json:"problemName"`
	ProblemId   string    `json:"problemId"`
	Verdict     string    `json:"verdict,omitempty"`
	Language    string    `json:"language"`
	SubmittedAt time.Time `json:"submittedAt"`
}
