package models

import "time"

// User is a chat identity known to the bot. Users are created
// idempotently on first interaction and never deleted; the table
// doubles as the broadcast recipient list.
type User struct {
	ID          int64  `gorm:"primaryKey"` // channel-assigned identity
	DisplayName string `gorm:"size:128"`
	FirstSeen   time.Time
}
