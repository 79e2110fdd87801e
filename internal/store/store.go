// Package store is the record-store layer over GORM: typed CRUD for the
// four record kinds plus a guarded generic field update used by the edit
// wizards.
package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/ogurtsov/gorodok/internal/models"
	"gorm.io/gorm"
)

// Kind names one of the four persisted record kinds.
type Kind string

const (
	KindAd      Kind = "ad"
	KindFind    Kind = "find"
	KindComment Kind = "comment"
	KindUser    Kind = "user"
)

// ErrNotFound is returned when a record with the given id does not exist.
var ErrNotFound = errors.New("store: record not found")

// ErrFieldNotAllowed is returned by UpdateField for a field name outside
// the per-kind allow-list. The update fails closed: nothing is written.
var ErrFieldNotAllowed = errors.New("store: field not allowed")

// updatableFields maps each kind to the column names an edit may touch.
// Anything else is rejected before a query is built.
var updatableFields = map[Kind]map[string]bool{
	KindAd: {
		"title":   true,
		"body":    true,
		"contact": true,
	},
	KindFind: {
		"item":     true,
		"details":  true,
		"location": true,
		"contact":  true,
	},
}

// Filter narrows List results. Zero values are ignored.
type Filter struct {
	Category string // ads only
	UserID   int64
	FindKind string // finds only: "found" or "lost"
	Limit    int
}

// Store wraps a GORM connection with the record-store surface.
type Store struct {
	db *gorm.DB
}

// New creates a Store.
func New(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("store: db is required")
	}
	return &Store{db: db}, nil
}

// DB exposes the underlying connection for read-only consumers
// (dashboard queries).
func (s *Store) DB() *gorm.DB {
	return s.db
}

// --- Users ---

// EnsureUser creates the user row on first contact. Repeated calls are
// no-ops apart from refreshing the display name.
func (s *Store) EnsureUser(id int64, displayName string) error {
	var u models.User
	err := s.db.Where("id = ?", id).First(&u).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		u = models.User{ID: id, DisplayName: displayName, FirstSeen: time.Now()}
		if err := s.db.Create(&u).Error; err != nil {
			return fmt.Errorf("store: create user %d: %w", id, err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("store: lookup user %d: %w", id, err)
	}
	if displayName != "" && displayName != u.DisplayName {
		if err := s.db.Model(&u).Update("display_name", displayName).Error; err != nil {
			return fmt.Errorf("store: update user %d: %w", id, err)
		}
	}
	return nil
}

// AllUserIDs returns every known user identity, for broadcasts.
func (s *Store) AllUserIDs() ([]int64, error) {
	var ids []int64
	if err := s.db.Model(&models.User{}).Order("id").Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("store: list users: %w", err)
	}
	return ids, nil
}

// --- Ads ---

// CreateAd inserts a new ad and fills in its id.
func (s *Store) CreateAd(ad *models.Ad) error {
	if err := s.db.Create(ad).Error; err != nil {
		return fmt.Errorf("store: create ad: %w", err)
	}
	return nil
}

// GetAd fetches one ad by id.
func (s *Store) GetAd(id uint) (*models.Ad, error) {
	var ad models.Ad
	if err := s.db.First(&ad, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: get ad %d: %w", id, err)
	}
	return &ad, nil
}

// ListAds returns ads matching the filter, newest first.
func (s *Store) ListAds(f Filter) ([]models.Ad, error) {
	q := s.db.Model(&models.Ad{}).Order("created_at DESC, id DESC")
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.UserID != 0 {
		q = q.Where("author_id = ?", f.UserID)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	var ads []models.Ad
	if err := q.Find(&ads).Error; err != nil {
		return nil, fmt.Errorf("store: list ads: %w", err)
	}
	return ads, nil
}

// --- Finds ---

// CreateFind inserts a new find report and fills in its id.
func (s *Store) CreateFind(find *models.Find) error {
	if err := s.db.Create(find).Error; err != nil {
		return fmt.Errorf("store: create find: %w", err)
	}
	return nil
}

// GetFind fetches one find report by id.
func (s *Store) GetFind(id uint) (*models.Find, error) {
	var f models.Find
	if err := s.db.First(&f, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: get find %d: %w", id, err)
	}
	return &f, nil
}

// ListFinds returns find reports matching the filter, newest first.
func (s *Store) ListFinds(f Filter) ([]models.Find, error) {
	q := s.db.Model(&models.Find{}).Order("created_at DESC, id DESC")
	if f.FindKind != "" {
		q = q.Where("kind = ?", f.FindKind)
	}
	if f.UserID != 0 {
		q = q.Where("author_id = ?", f.UserID)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	var finds []models.Find
	if err := q.Find(&finds).Error; err != nil {
		return nil, fmt.Errorf("store: list finds: %w", err)
	}
	return finds, nil
}

// --- Comments ---

// CreateComment inserts a comment on an ad. The ad must exist.
func (s *Store) CreateComment(c *models.Comment) error {
	if _, err := s.GetAd(c.AdID); err != nil {
		return err
	}
	if err := s.db.Create(c).Error; err != nil {
		return fmt.Errorf("store: create comment: %w", err)
	}
	return nil
}

// ListComments returns an ad's comments, oldest first.
func (s *Store) ListComments(adID uint) ([]models.Comment, error) {
	var cs []models.Comment
	if err := s.db.Where("ad_id = ?", adID).Order("created_at ASC, id ASC").Find(&cs).Error; err != nil {
		return nil, fmt.Errorf("store: list comments for ad %d: %w", adID, err)
	}
	return cs, nil
}

// --- Generic surface consumed by the edit wizards and admin tools ---

// UpdateField updates a single column of a record. The field name is
// checked against a fixed per-kind allow-list before any query is built;
// unlisted names fail closed with ErrFieldNotAllowed.
func (s *Store) UpdateField(kind Kind, id uint, field string, value string) error {
	allowed, ok := updatableFields[kind]
	if !ok || !allowed[field] {
		return fmt.Errorf("%w: %s.%s", ErrFieldNotAllowed, kind, field)
	}

	var model interface{}
	switch kind {
	case KindAd:
		model = &models.Ad{}
	case KindFind:
		model = &models.Find{}
	}

	res := s.db.Model(model).Where("id = ?", id).Update(field, value)
	if res.Error != nil {
		return fmt.Errorf("store: update %s %d: %w", kind, id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a record by id. Deleting an ad cascades to its
// comments; users are never deleted.
func (s *Store) Delete(kind Kind, id uint) error {
	switch kind {
	case KindAd:
		return s.deleteAd(id)
	case KindFind:
		res := s.db.Delete(&models.Find{}, id)
		if res.Error != nil {
			return fmt.Errorf("store: delete find %d: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	case KindComment:
		res := s.db.Delete(&models.Comment{}, id)
		if res.Error != nil {
			return fmt.Errorf("store: delete comment %d: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	default:
		return fmt.Errorf("store: delete: unsupported kind %q", kind)
	}
}

// deleteAd removes an ad and its comments in one transaction.
func (s *Store) deleteAd(id uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.Ad{}, id)
		if res.Error != nil {
			return fmt.Errorf("store: delete ad %d: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		if err := tx.Where("ad_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return fmt.Errorf("store: delete comments for ad %d: %w", id, err)
		}
		return nil
	})
}

// --- Stats (digest, dashboard) ---

// Counts holds record totals for the digest and dashboard.
type Counts struct {
	Ads      int64
	Finds    int64
	Comments int64
	Users    int64
}

// CountAll returns totals across all kinds.
func (s *Store) CountAll() (Counts, error) {
	var c Counts
	if err := s.db.Model(&models.Ad{}).Count(&c.Ads).Error; err != nil {
		return c, fmt.Errorf("store: count ads: %w", err)
	}
	if err := s.db.Model(&models.Find{}).Count(&c.Finds).Error; err != nil {
		return c, fmt.Errorf("store: count finds: %w", err)
	}
	if err := s.db.Model(&models.Comment{}).Count(&c.Comments).Error; err != nil {
		return c, fmt.Errorf("store: count comments: %w", err)
	}
	if err := s.db.Model(&models.User{}).Count(&c.Users).Error; err != nil {
		return c, fmt.Errorf("store: count users: %w", err)
	}
	return c, nil
}

// CountSince returns how many ads and finds were created after the cutoff.
func (s *Store) CountSince(cutoff time.Time) (ads int64, finds int64, err error) {
	if err = s.db.Model(&models.Ad{}).Where("created_at > ?", cutoff).Count(&ads).Error; err != nil {
		return 0, 0, fmt.Errorf("store: count recent ads: %w", err)
	}
	if err = s.db.Model(&models.Find{}).Where("created_at > ?", cutoff).Count(&finds).Error; err != nil {
		return 0, 0, fmt.Errorf("store: count recent finds: %w", err)
	}
	return ads, finds, nil
}
