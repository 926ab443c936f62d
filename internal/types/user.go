package types

import "time"

type UserRecord struct {
	Id                 string    `json:"id"`
	Username           string    `json:"username"`
	CodeforcesUsername string    `json:"codeforcesUsername"`
	AtcoderUsername    string    `json:"atcoderUsername"`
	CodechefUsername   string    `json:"codechefUsername"`
	LeetcodeUsername   string    `json:"leetcodeUsername"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// Handle returns the user's handle on the given platform, or "" if unset.
func (u *UserRecord) Handle(platform Platform) string {
	switch platform {
	case Codeforces:
		return u.CodeforcesUsername
	case AtCoder:
		return u.AtcoderUsername
	case CodeChef:
		return u.CodechefUsername
	case LeetCode:
		return u.LeetcodeUsername
	}
	return ""
}

func (u *UserRecord) SetHandle(platform Platform, handle string) {
	switch platform {
	case Codeforces:
		u.CodeforcesUsername = handle
	case AtCoder:
		u.AtcoderUsername = handle
	case CodeChef:
		u.CodechefUsername = handle
	case LeetCode:
		u.LeetcodeUsername = handle
	}
}
