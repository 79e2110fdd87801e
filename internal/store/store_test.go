package store

import (
	"errors"
	"testing"
	"time"

	"github.com/ogurtsov/gorodok/internal/config"
	"github.com/ogurtsov/gorodok/internal/db"
	"github.com/ogurtsov/gorodok/internal/models"
)

// newTestStore opens a migrated in-memory database.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	conn, err := db.Connect(config.StorageConfig{Driver: "sqlite", Path: ":memory:"})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := db.AutoMigrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	st, err := New(conn)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return st
}

func TestEnsureUser_Idempotent(t *testing.T) {
	st := newTestStore(t)

	if err := st.EnsureUser(10, "Ivan"); err != nil {
		t.Fatalf("first ensure: %v", err)
	}
	if err := st.EnsureUser(10, "Ivan"); err != nil {
		t.Fatalf("second ensure: %v", err)
	}

	ids, err := st.AllUserIDs()
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	if len(ids) != 1 || ids[0] != 10 {
		t.Fatalf("user ids = %v", ids)
	}
}

func TestEnsureUser_RefreshesDisplayName(t *testing.T) {
	st := newTestStore(t)

	st.EnsureUser(10, "Ivan")
	st.EnsureUser(10, "Ivan P.")

	var u models.User
	if err := st.DB().First(&u, "id = ?", int64(10)).Error; err != nil {
		t.Fatalf("load user: %v", err)
	}
	if u.DisplayName != "Ivan P." {
		t.Fatalf("display name = %q", u.DisplayName)
	}
}

func TestAds_CreateGetList(t *testing.T) {
	st := newTestStore(t)

	older := &models.Ad{AuthorID: 1, Category: "Вещи", Title: "Стол", Contact: "@a"}
	if err := st.CreateAd(older); err != nil {
		t.Fatalf("create ad: %v", err)
	}
	newer := &models.Ad{AuthorID: 2, Category: "Вещи", Title: "Стул", Contact: "@b"}
	if err := st.CreateAd(newer); err != nil {
		t.Fatalf("create ad: %v", err)
	}
	other := &models.Ad{AuthorID: 1, Category: "Транспорт", Title: "Велосипед", Contact: "@a"}
	if err := st.CreateAd(other); err != nil {
		t.Fatalf("create ad: %v", err)
	}

	got, err := st.GetAd(older.ID)
	if err != nil {
		t.Fatalf("get ad: %v", err)
	}
	if got.Title != "Стол" {
		t.Fatalf("title = %q", got.Title)
	}

	// Newest first; identical timestamps break ties by id.
	ads, err := st.ListAds(Filter{Category: "Вещи"})
	if err != nil {
		t.Fatalf("list ads: %v", err)
	}
	if len(ads) != 2 {
		t.Fatalf("got %d ads, want 2", len(ads))
	}
	if ads[0].ID != newer.ID || ads[1].ID != older.ID {
		t.Fatalf("order = [%d %d], want newest first", ads[0].ID, ads[1].ID)
	}

	byAuthor, err := st.ListAds(Filter{UserID: 1})
	if err != nil {
		t.Fatalf("list by author: %v", err)
	}
	if len(byAuthor) != 2 {
		t.Fatalf("got %d ads for author 1, want 2", len(byAuthor))
	}

	limited, err := st.ListAds(Filter{Limit: 1})
	if err != nil {
		t.Fatalf("list limited: %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("got %d ads with limit 1", len(limited))
	}
}

func TestGetAd_NotFound(t *testing.T) {
	st := newTestStore(t)
	if _, err := st.GetAd(99); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestAds_PhotoRoundTrip(t *testing.T) {
	st := newTestStore(t)

	ad := &models.Ad{AuthorID: 1, Category: "Вещи", Title: "Шкаф"}
	ad.SetPhotos([]string{"f1", "f2"})
	if err := st.CreateAd(ad); err != nil {
		t.Fatalf("create ad: %v", err)
	}

	got, _ := st.GetAd(ad.ID)
	photos := got.Photos()
	if len(photos) != 2 || photos[0] != "f1" || photos[1] != "f2" {
		t.Fatalf("photos = %v", photos)
	}
}

func TestFinds_CreateList(t *testing.T) {
	st := newTestStore(t)

	found := &models.Find{AuthorID: 1, Kind: models.FindKindFound, Item: "Ключи", Location: "Парк"}
	if err := st.CreateFind(found); err != nil {
		t.Fatalf("create find: %v", err)
	}
	lost := &models.Find{AuthorID: 2, Kind: models.FindKindLost, Item: "Перчатки"}
	if err := st.CreateFind(lost); err != nil {
		t.Fatalf("create find: %v", err)
	}

	onlyFound, err := st.ListFinds(Filter{FindKind: models.FindKindFound})
	if err != nil {
		t.Fatalf("list finds: %v", err)
	}
	if len(onlyFound) != 1 || onlyFound[0].Item != "Ключи" {
		t.Fatalf("found listing = %+v", onlyFound)
	}

	all, err := st.ListFinds(Filter{})
	if err != nil {
		t.Fatalf("list all finds: %v", err)
	}
	if len(all) != 2 || all[0].ID != lost.ID {
		t.Fatalf("want newest first, got %+v", all)
	}
}

func TestComments_RequireAd(t *testing.T) {
	st := newTestStore(t)

	err := st.CreateComment(&models.Comment{AdID: 99, AuthorID: 1, Text: "привет"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound for missing ad", err)
	}

	ad := &models.Ad{AuthorID: 1, Category: "Вещи", Title: "Стол"}
	st.CreateAd(ad)
	if err := st.CreateComment(&models.Comment{AdID: ad.ID, AuthorID: 2, Text: "первый"}); err != nil {
		t.Fatalf("create comment: %v", err)
	}
	if err := st.CreateComment(&models.Comment{AdID: ad.ID, AuthorID: 3, Text: "второй"}); err != nil {
		t.Fatalf("create comment: %v", err)
	}

	// Oldest first.
	cs, err := st.ListComments(ad.ID)
	if err != nil {
		t.Fatalf("list comments: %v", err)
	}
	if len(cs) != 2 || cs[0].Text != "первый" || cs[1].Text != "второй" {
		t.Fatalf("comments = %+v", cs)
	}
}

func TestUpdateField_AllowList(t *testing.T) {
	st := newTestStore(t)
	ad := &models.Ad{AuthorID: 1, Category: "Вещи", Title: "Стол", Contact: "@a"}
	st.CreateAd(ad)

	if err := st.UpdateField(KindAd, ad.ID, "title", "Новый стол"); err != nil {
		t.Fatalf("update title: %v", err)
	}
	got, _ := st.GetAd(ad.ID)
	if got.Title != "Новый стол" {
		t.Fatalf("title = %q", got.Title)
	}

	// Unlisted fields fail closed, nothing is written.
	for _, field := range []string{"author_id", "category", "id", "created_at", "photo_refs"} {
		if err := st.UpdateField(KindAd, ad.ID, field, "1"); !errors.Is(err, ErrFieldNotAllowed) {
			t.Fatalf("field %q: err = %v, want ErrFieldNotAllowed", field, err)
		}
	}
	got, _ = st.GetAd(ad.ID)
	if got.AuthorID != 1 || got.Category != "Вещи" {
		t.Fatalf("rejected updates must not write: %+v", got)
	}

	if err := st.UpdateField(KindAd, 99, "title", "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound for missing record", err)
	}

	if err := st.UpdateField(KindComment, 1, "text", "x"); !errors.Is(err, ErrFieldNotAllowed) {
		t.Fatalf("err = %v, want ErrFieldNotAllowed for kind without allow-list", err)
	}
}

func TestUpdateField_Find(t *testing.T) {
	st := newTestStore(t)
	f := &models.Find{AuthorID: 1, Kind: models.FindKindFound, Item: "Ключи"}
	st.CreateFind(f)

	if err := st.UpdateField(KindFind, f.ID, "location", "Остановка"); err != nil {
		t.Fatalf("update location: %v", err)
	}
	got, _ := st.GetFind(f.ID)
	if got.Location != "Остановка" {
		t.Fatalf("location = %q", got.Location)
	}

	if err := st.UpdateField(KindFind, f.ID, "kind", "lost"); !errors.Is(err, ErrFieldNotAllowed) {
		t.Fatalf("err = %v, want ErrFieldNotAllowed", err)
	}
}

func TestDeleteAd_CascadesComments(t *testing.T) {
	st := newTestStore(t)

	ad := &models.Ad{AuthorID: 1, Category: "Вещи", Title: "Стол"}
	st.CreateAd(ad)
	other := &models.Ad{AuthorID: 1, Category: "Вещи", Title: "Стул"}
	st.CreateAd(other)
	st.CreateComment(&models.Comment{AdID: ad.ID, AuthorID: 2, Text: "a"})
	st.CreateComment(&models.Comment{AdID: ad.ID, AuthorID: 3, Text: "b"})
	st.CreateComment(&models.Comment{AdID: other.ID, AuthorID: 2, Text: "c"})

	if err := st.Delete(KindAd, ad.ID); err != nil {
		t.Fatalf("delete ad: %v", err)
	}

	if _, err := st.GetAd(ad.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("ad still present: %v", err)
	}
	cs, _ := st.ListComments(ad.ID)
	if len(cs) != 0 {
		t.Fatalf("orphan comments = %+v", cs)
	}
	// Comments on other ads survive.
	cs, _ = st.ListComments(other.ID)
	if len(cs) != 1 {
		t.Fatalf("unrelated comments affected: %+v", cs)
	}
}

func TestDelete_NotFoundAndUnsupported(t *testing.T) {
	st := newTestStore(t)

	if err := st.Delete(KindFind, 99); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if err := st.Delete(KindUser, 1); err == nil {
		t.Fatal("users must not be deletable")
	}
}

func TestCounts(t *testing.T) {
	st := newTestStore(t)

	st.EnsureUser(1, "a")
	ad := &models.Ad{AuthorID: 1, Category: "Вещи", Title: "Стол"}
	st.CreateAd(ad)
	st.CreateFind(&models.Find{AuthorID: 1, Kind: models.FindKindLost, Item: "Зонт"})
	st.CreateComment(&models.Comment{AdID: ad.ID, AuthorID: 1, Text: "x"})

	c, err := st.CountAll()
	if err != nil {
		t.Fatalf("count all: %v", err)
	}
	if c.Ads != 1 || c.Finds != 1 || c.Comments != 1 || c.Users != 1 {
		t.Fatalf("counts = %+v", c)
	}

	ads, finds, err := st.CountSince(time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("count since: %v", err)
	}
	if ads != 1 || finds != 1 {
		t.Fatalf("recent = %d ads, %d finds", ads, finds)
	}

	ads, finds, _ = st.CountSince(time.Now().Add(time.Hour))
	if ads != 0 || finds != 0 {
		t.Fatalf("future cutoff must count nothing, got %d/%d", ads, finds)
	}
}
