package models

import "time"

// Find kinds: a found item waiting for its owner, or a lost item
// its owner is looking for.
const (
	FindKindFound = "found"
	FindKindLost  = "lost"
)

// Find is a lost-and-found report.
type Find struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	AuthorID   int64  `gorm:"not null;index"`
	Kind       string `gorm:"size:8;not null;index"`
	Item       string `gorm:"size:256;not null"`
	Details    string `gorm:"type:text"`
	Location   string `gorm:"size:256"`
	OccurredAt string `gorm:"size:64"` // free-form, as entered by the user
	Contact    string `gorm:"size:128"`
	PhotoRefs  string `gorm:"type:text"`
	CreatedAt  time.Time
}

// Photos returns the photo references as a slice.
func (f *Find) Photos() []string {
	return SplitPhotoRefs(f.PhotoRefs)
}

// SetPhotos stores the photo references, truncating to MaxPhotos.
func (f *Find) SetPhotos(refs []string) {
	f.PhotoRefs = JoinPhotoRefs(refs)
}
