package domain

import "time"

// ConversationTurn is a single question/answer exchange held in
// process-local conversation memory (see ai/memory), bounded per user.
type ConversationTurn struct {
	UserID    string
	Question  string
	Response  string
	CreatedAt time.Time
}
