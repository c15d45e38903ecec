package entity

import (
	"fmt"
	"time"
)

// User is a chat member known to the bot. Rows are created lazily on
// first interaction (language pick, verification, invite attribution)
// and never deleted.
type User struct {
	UserID          int64     `json:"user_id"`
	Username        string    `json:"username,omitempty"`
	FirstName       string    `json:"first_name,omitempty"`
	LastName        string    `json:"last_name,omitempty"`
	LanguageCode    string    `json:"language_code"`
	IsVerified      bool      `json:"is_verified"`
	InvitedByUserID int64     `json:"invited_by_user_id,omitempty"` // 0 = organic join
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// DisplayName resolves the name shown in stats and rankings.
// Precedence: username, first name, then a placeholder built from the id.
func (u *User) DisplayName() string {
	if u.Username != "" {
		return u.Username
	}
	if u.FirstName != "" {
		return u.FirstName
	}
	return fmt.Sprintf("User %d", u.UserID)
}
