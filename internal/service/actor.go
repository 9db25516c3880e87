package service

import "time"

// Actor is the authenticated caller of a data operation. Every read and write
// is scoped to Actor.UserID.
type Actor struct {
	UserID   uint   `json:"id"`
	Username string `json:"username"`
}

// Clock returns the current time; tests substitute a fixed one.
type Clock func() time.Time

func systemClock() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}
