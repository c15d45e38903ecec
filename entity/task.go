package entity

import "time"

// Task kinds understood by the scheduler's callback registry.
const (
	TaskVerifyTimeout = "verify_timeout" // kick a joiner who did not verify in time
	TaskDeleteMessage = "delete_message" // remove an expired prompt from the chat
)

// ScheduledTask is the durable record of a deferred action. The live
// gocron job is only an optimization: the runner re-reads this row at
// fire time and skips cancelled or completed tasks, and pending rows are
// re-registered after a restart.
type ScheduledTask struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Payload   string    `json:"payload"` // JSON, shape depends on Kind
	RunAt     time.Time `json:"run_at"`
	Cancelled bool      `json:"cancelled"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"created_at"`
}
