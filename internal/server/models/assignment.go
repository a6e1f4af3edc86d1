package models

import "time"

// Assignment binds one consumer to exactly one account.
type Assignment struct {
	ID           string
	ConsumerName string
	AccountID    string
	CreatedAt    time.Time
}
