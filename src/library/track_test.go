package library

import (
	"testing"
	"time"
)

func TestTrackAttr(t *testing.T) {
	track := Track{
		ID:       "c0ffee",
		Title:    "Test Title",
		Artist:   "Test Artist",
		AudioURL: "https://media.example/c0ffee.mp3",
		Duration: 95 * time.Second,
	}

	for attr, want := range map[string]interface{}{
		"id":       "c0ffee",
		"title":    "Test Title",
		"artist":   "Test Artist",
		"audiourl": "https://media.example/c0ffee.mp3",
		"duration": int64(95),
		"bogus":    nil,
	} {
		if got := track.Attr(attr); got != want {
			t.Errorf("Attr(%q) = %v, want %v", attr, got, want)
		}
	}
}

func TestTrackPlayable(t *testing.T) {
	if (Track{ID: "a"}).Playable() {
		t.Errorf("Track without audio URL should not be playable")
	}
	if !(Track{ID: "a", AudioURL: "https://media.example/a.mp3"}).Playable() {
		t.Errorf("Track with audio URL should be playable")
	}
}

func TestIndexOfTrack(t *testing.T) {
	tracks := []Track{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	if i := IndexOfTrack(tracks, "b"); i != 1 {
		t.Errorf("Unexpected index: %v", i)
	}
	if i := IndexOfTrack(tracks, "nope"); i != -1 {
		t.Errorf("Unexpected index for missing track: %v", i)
	}
	if i := IndexOfTrack(nil, "a"); i != -1 {
		t.Errorf("Unexpected index for empty list: %v", i)
	}
}
