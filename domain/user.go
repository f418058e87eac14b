package domain

import "time"

// User is the minimal identity row the orchestrator depends on for its
// foreign-key invariant (§3 User).
type User struct {
	ID              string
	AnpSeq          int64
	Name            string
	TestCompletedAt *time.Time
}
