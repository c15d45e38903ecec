package clock

import "time"

// Now returns the current UTC time formatted for API responses.
func Now() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05Z")
}

// Bucket maps a time to its unix-minute bucket. Two join events for the
// same user that land in the same bucket are treated as duplicates.
func Bucket(t time.Time) int64 {
	return t.UTC().Unix() / 60
}

// OldestLiveBucket returns the lowest bucket still considered live given
// a retention window; rows below it can be trimmed.
func OldestLiveBucket(t time.Time, retention time.Duration) int64 {
	return Bucket(t.Add(-retention))
}
