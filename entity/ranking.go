package entity

// RankingKind selects a leaderboard view.
type RankingKind string

const (
	RankingTotal  RankingKind = "total"  // lifetime invited count
	RankingActive RankingKind = "active" // invited minus left, floored at 0
)

func (k RankingKind) Valid() bool {
	return k == RankingTotal || k == RankingActive
}

// UserTotals is one aggregate row from the ledger: a user's lifetime
// invited/left sums across all their invitation records.
type UserTotals struct {
	UserID       int64  `json:"user_id"`
	Username     string `json:"username,omitempty"`
	FirstName    string `json:"first_name,omitempty"`
	TotalInvited int    `json:"total_invited"`
	TotalLeft    int    `json:"total_left"`
}

// RankEntry is one leaderboard line.
type RankEntry struct {
	Rank   int    `json:"rank"`
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
	Count  int    `json:"count"`
}

// RankPosition is a single user's standing within a leaderboard.
type RankPosition struct {
	Rank       int    `json:"rank"`
	UserID     int64  `json:"user_id"`
	Name       string `json:"name"`
	Count      int    `json:"count"`
	TotalUsers int    `json:"total_users"`
}
