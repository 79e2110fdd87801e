package models

import "time"

// MaxCommentLen is the cap on comment text length.
const MaxCommentLen = 200

// Comment is a short note left on an ad. Comments are append-only and
// are removed only when their ad is deleted.
type Comment struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	AdID      uint   `gorm:"not null;index"`
	AuthorID  int64  `gorm:"not null"`
	Text      string `gorm:"size:200;not null"`
	CreatedAt time.Time
}
