package models

import (
	"strings"
	"time"
)

// MaxPhotos is the cap on photo references per ad or find.
const MaxPhotos = 3

// Categories is the fixed set of ad categories. Any other value is
// rejected at the wizard's category step.
var Categories = []string{
	"Недвижимость",
	"Транспорт",
	"Работа/Услуги",
	"Вещи",
	"Отдам даром",
	"Обучение",
}

// ValidCategory reports whether c is one of the fixed categories.
func ValidCategory(c string) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Ad is a classified ad posted by a user.
type Ad struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	AuthorID  int64  `gorm:"not null;index"`
	Category  string `gorm:"size:64;not null;index"`
	Title     string `gorm:"size:256;not null"`
	Body      string `gorm:"type:text"`
	PhotoRefs string `gorm:"type:text"` // comma-joined file references, at most MaxPhotos
	Contact   string `gorm:"size:128"`
	CreatedAt time.Time

	Comments []Comment `gorm:"foreignKey:AdID"`
}

// Photos returns the photo references as a slice.
func (a *Ad) Photos() []string {
	return SplitPhotoRefs(a.PhotoRefs)
}

// SetPhotos stores the photo references, truncating to MaxPhotos.
func (a *Ad) SetPhotos(refs []string) {
	a.PhotoRefs = JoinPhotoRefs(refs)
}

// JoinPhotoRefs joins photo references into the stored column form,
// truncating to MaxPhotos.
func JoinPhotoRefs(refs []string) string {
	if len(refs) > MaxPhotos {
		refs = refs[:MaxPhotos]
	}
	return strings.Join(refs, ",")
}

// SplitPhotoRefs splits the stored column form back into a slice.
// An empty column yields a nil slice.
func SplitPhotoRefs(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
