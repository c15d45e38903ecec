package entity

import (
	"encoding/json"
	"time"
)

// Challenge is one in-progress verification attempt. At most one
// unsolved challenge exists per user; creating a new one deletes the
// older ones. The prompt message ids are stored on the row so a restart
// does not orphan the cleanup of sent messages.
type Challenge struct {
	ID            int64      `json:"id"`
	UserID        int64      `json:"user_id"`
	ChatID        int64      `json:"chat_id"`
	Question      string     `json:"question"`
	CorrectAnswer string     `json:"correct_answer"` // option letter A-D
	Options       string     `json:"options"`        // JSON array of the 4 values
	Image         []byte     `json:"-"`
	UserAnswer    string     `json:"user_answer,omitempty"`
	IsSolved      bool       `json:"is_solved"`
	Attempts      int        `json:"attempts"`
	PromptMsgID   int64      `json:"prompt_msg_id,omitempty"`
	ImageMsgID    int64      `json:"image_msg_id,omitempty"`
	ChoiceMsgID   int64      `json:"choice_msg_id,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	SolvedAt      *time.Time `json:"solved_at,omitempty"`
	ExpiresAt     time.Time  `json:"expires_at"`
}

func (c *Challenge) Expired(now time.Time) bool {
	return !c.ExpiresAt.After(now)
}

// OptionValues decodes the serialized 4-choice values. A corrupt or
// empty column yields an empty slice, not an error: the caller falls
// back to an expired-challenge path anyway.
func (c *Challenge) OptionValues() []int {
	if c.Options == "" {
		return nil
	}
	var values []int
	if err := json.Unmarshal([]byte(c.Options), &values); err != nil {
		return nil
	}
	return values
}

// EncodeOptions serializes option values for storage.
func EncodeOptions(values []int) string {
	b, err := json.Marshal(values)
	if err != nil {
		return "[]"
	}
	return string(b)
}
