package utils

import (
	"time"

	"github.com/google/uuid"
)

// GenerateUUID returns a random UUIDv4 string, used for event ids.
func GenerateUUID() string {
	return uuid.NewString()
}

// UnixTimeToTime converts a UNIX seconds value into a time.Time.
func UnixTimeToTime(ts int64) time.Time {
	return time.Unix(ts, 0)
}
