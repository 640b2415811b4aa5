package models

import "time"

// Message is the sole persisted resource: a text body plus author name
// and timestamps.
type Message struct {
	ID        int64      `json:"id"`
	Body      string     `json:"body"`
	Username  string     `json:"username"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"` // null until the first update
}
