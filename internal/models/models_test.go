package models

import (
	"reflect"
	"testing"
)

func TestValidCategory(t *testing.T) {
	for _, c := range Categories {
		if !ValidCategory(c) {
			t.Errorf("category %q rejected", c)
		}
	}
	for _, c := range []string{"", "недвижимость", "Прочее", "Недвижимость "} {
		if ValidCategory(c) {
			t.Errorf("category %q accepted", c)
		}
	}
}

func TestPhotoRefs_RoundTrip(t *testing.T) {
	refs := []string{"a", "b", "c"}
	joined := JoinPhotoRefs(refs)
	if got := SplitPhotoRefs(joined); !reflect.DeepEqual(got, refs) {
		t.Fatalf("round trip = %v", got)
	}

	if SplitPhotoRefs("") != nil {
		t.Fatal("empty column must split to nil")
	}
	if JoinPhotoRefs(nil) != "" {
		t.Fatal("nil refs must join to empty")
	}
}

func TestPhotoRefs_TruncatesToMax(t *testing.T) {
	refs := []string{"a", "b", "c", "d", "e"}
	got := SplitPhotoRefs(JoinPhotoRefs(refs))
	if len(got) != MaxPhotos {
		t.Fatalf("got %d refs, want %d", len(got), MaxPhotos)
	}
	if !reflect.DeepEqual(got, refs[:MaxPhotos]) {
		t.Fatalf("refs = %v", got)
	}
}

func TestAdPhotos(t *testing.T) {
	var ad Ad
	ad.SetPhotos([]string{"x", "y"})
	if got := ad.Photos(); len(got) != 2 || got[0] != "x" || got[1] != "y" {
		t.Fatalf("photos = %v", got)
	}
}

func TestFindPhotos(t *testing.T) {
	var f Find
	f.SetPhotos([]string{"x"})
	if got := f.Photos(); len(got) != 1 || got[0] != "x" {
		t.Fatalf("photos = %v", got)
	}
}
