package dashboard

import (
	"time"

	"github.com/ogurtsov/gorodok/internal/models"
	"github.com/ogurtsov/gorodok/internal/store"
)

// summaryLimit caps dashboard listings.
const summaryLimit = 50

// AdRow holds ad data for display.
type AdRow struct {
	ID        uint      `json:"id"`
	Category  string    `json:"category"`
	Title     string    `json:"title"`
	Contact   string    `json:"contact"`
	Photos    int       `json:"photos"`
	CreatedAt time.Time `json:"created_at"`
}

// AdSummary returns the latest ads, optionally filtered by category.
func AdSummary(st *store.Store, category string) ([]AdRow, error) {
	ads, err := st.ListAds(store.Filter{Category: category, Limit: summaryLimit})
	if err != nil {
		return nil, err
	}
	rows := make([]AdRow, len(ads))
	for i := range ads {
		ad := &ads[i]
		rows[i] = AdRow{
			ID:        ad.ID,
			Category:  ad.Category,
			Title:     ad.Title,
			Contact:   ad.Contact,
			Photos:    len(ad.Photos()),
			CreatedAt: ad.CreatedAt,
		}
	}
	return rows, nil
}

// CommentRow holds comment data for the ad detail view.
type CommentRow struct {
	AuthorID  int64     `json:"author_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// AdDetailView is one ad with its body and comments.
type AdDetailView struct {
	AdRow
	Body     string       `json:"body"`
	Comments []CommentRow `json:"comments"`
}

// AdDetail returns one ad with its comments, oldest first.
func AdDetail(st *store.Store, id uint) (*AdDetailView, error) {
	ad, err := st.GetAd(id)
	if err != nil {
		return nil, err
	}
	comments, err := st.ListComments(id)
	if err != nil {
		return nil, err
	}

	view := &AdDetailView{
		AdRow: AdRow{
			ID:        ad.ID,
			Category:  ad.Category,
			Title:     ad.Title,
			Contact:   ad.Contact,
			Photos:    len(ad.Photos()),
			CreatedAt: ad.CreatedAt,
		},
		Body:     ad.Body,
		Comments: make([]CommentRow, len(comments)),
	}
	for i := range comments {
		view.Comments[i] = CommentRow{
			AuthorID:  comments[i].AuthorID,
			Text:      comments[i].Text,
			CreatedAt: comments[i].CreatedAt,
		}
	}
	return view, nil
}

// FindRow holds find data for display.
type FindRow struct {
	ID        uint      `json:"id"`
	Kind      string    `json:"kind"`
	Item      string    `json:"item"`
	Location  string    `json:"location"`
	CreatedAt time.Time `json:"created_at"`
}

// FindSummary returns the latest find reports, optionally filtered by kind.
func FindSummary(st *store.Store, kind string) ([]FindRow, error) {
	if kind != "" && kind != models.FindKindFound && kind != models.FindKindLost {
		return []FindRow{}, nil
	}
	finds, err := st.ListFinds(store.Filter{FindKind: kind, Limit: summaryLimit})
	if err != nil {
		return nil, err
	}
	rows := make([]FindRow, len(finds))
	for i := range finds {
		f := &finds[i]
		rows[i] = FindRow{
			ID:        f.ID,
			Kind:      f.Kind,
			Item:      f.Item,
			Location:  f.Location,
			CreatedAt: f.CreatedAt,
		}
	}
	return rows, nil
}
