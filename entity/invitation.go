package entity

import "time"

// Invitation is a user's durable referral record: one active row per
// inviter, holding the minted code, the shareable link and the running
// join/leave counters. Superseded invitations are deactivated, never
// deleted, so historical counters stay aggregatable.
type Invitation struct {
	InviteCode   string    `json:"invite_code"`
	UserID       int64     `json:"user_id"`
	InviteLink   string    `json:"invite_link"`
	TotalInvited int       `json:"total_invited"`
	TotalLeft    int       `json:"total_left"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// ActiveMembers is the invited count net of leavers, floored at zero.
func (i *Invitation) ActiveMembers() int {
	n := i.TotalInvited - i.TotalLeft
	if n < 0 {
		return 0
	}
	return n
}

// InvitationMember links an invitation to one invited user. There is at
// most one row per (code, user) pair; a leave flips HasLeft in place and
// a rejoin flips it back, so counters never double count.
type InvitationMember struct {
	ID            int64      `json:"id"`
	InviteCode    string     `json:"invite_code"`
	InvitedUserID int64      `json:"invited_user_id"`
	HasLeft       bool       `json:"has_left"`
	JoinedAt      time.Time  `json:"joined_at"`
	LeftAt        *time.Time `json:"left_at,omitempty"`
}

// MemberInfo is a member row joined with its user's display data,
// used by the paginated member list.
type MemberInfo struct {
	UserID   int64      `json:"user_id"`
	Name     string     `json:"name"`
	HasLeft  bool       `json:"has_left"`
	JoinedAt time.Time  `json:"joined_at"`
	LeftAt   *time.Time `json:"left_at,omitempty"`
}

// InvitationStats is the aggregate view behind /link and /stats.
type InvitationStats struct {
	InviteCode    string       `json:"invite_code,omitempty"`
	InviteLink    string       `json:"invite_link,omitempty"`
	TotalInvited  int          `json:"total_invited"`
	TotalLeft     int          `json:"total_left"`
	ActiveMembers int          `json:"active_members"`
	Members       []MemberInfo `json:"members,omitempty"`
}

// MemberPage is one clamped page of an inviter's member list.
type MemberPage struct {
	Members      []MemberInfo `json:"members"`
	CurrentPage  int          `json:"current_page"`
	TotalPages   int          `json:"total_pages"`
	TotalMembers int          `json:"total_members"`
	HasPrevious  bool         `json:"has_previous"`
	HasNext      bool         `json:"has_next"`
}
