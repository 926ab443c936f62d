package types

import "time"

type ContestStatus string

const (
	StatusLive     ContestStatus = "live"
	StatusUpcoming ContestStatus = "upcoming"
	StatusFinished ContestStatus = "finished"
)

// IST is the single offset every contest time is stored in.
var IST = time.FixedZone("IST", 5*60*60+30*60)

type ContestListing struct {
	ContestId       string        `json:"contestId"`
	ContestName     string        `json:"contestName"`
	Url             string        `json:"url"`
	Platform        Platform      `json:"platform"`
	StartTime       time.Time     `json:"startTime"`
	EndTime         time.Time     `json:"endTime"`
	DurationMinutes int           `json:"durationMinutes"`
	Status          ContestStatus `json:"status,omitempty"` // set when the list is served
}

// NewListing builds a listing from a start time and a duration. Both times
// are converted to IST.
func NewListing(platform Platform, id, name, url string, start time.Time, duration time.Duration) ContestListing {
	start = start.In(IST)
	return ContestListing{
		ContestId:       id,
		ContestName:     name,
		Url:             url,
		Platform:        platform,
		StartTime:       start,
		EndTime:         start.Add(duration),
		DurationMinutes: int(duration / time.Minute),
	}
}

// NewListingWithEnd builds a listing when the source reports the end time
// itself. The end time wins and the duration is derived from it.
func NewListingWithEnd(platform Platform, id, name, url string, start, end time.Time) ContestListing {
	start, end = start.In(IST), end.In(IST)
	return ContestListing{
		ContestId:       id,
		ContestName:     name,
		Url:             url,
		Platform:        platform,
		StartTime:       start,
		EndTime:         end,
		DurationMinutes: int(end.Sub(start) / time.Minute),
	}
}

// StatusAt classifies the contest relative to now. Live needs now strictly
// inside (start, end); anything that is neither live nor upcoming counts as
// finished, including the exact start instant.
func (c *ContestListing) StatusAt(now time.Time) ContestStatus {
	switch {
	case now.After(c.StartTime) && now.Before(c.EndTime):
		return StatusLive
	case now.Before(c.StartTime):
		return StatusUpcoming
	default:
		return StatusFinished
	}
}

// Priority orders statuses: live first, then upcoming, then finished.
func (s ContestStatus) Priority() int {
	switch s {
	case StatusLive:
		return 1
	case StatusUpcoming:
		return 2
	default:
		return 3
	}
}
