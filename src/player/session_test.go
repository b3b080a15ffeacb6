package player

import (
	"math/rand"
	"testing"

	"heymelody/src/library"
	"heymelody/src/util"
)

func testTracks(ids ...string) []library.Track {
	tracks := make([]library.Track, len(ids))
	for i, id := range ids {
		tracks[i] = library.Track{
			ID:       id,
			Title:    "Title " + id,
			Artist:   "Artist " + id,
			AudioURL: "https://media.example/" + id + ".mp3",
		}
	}
	return tracks
}

func TestPlayNowReplacesQueue(t *testing.T) {
	s := NewSession()
	queue := testTracks("a", "b", "c")

	s.PlayNow(queue[1], queue)
	if cur := s.Current(); cur == nil || cur.ID != "b" {
		t.Fatalf("Unexpected current track: %v", cur)
	}
	if got := s.Queue(); len(got) != 3 {
		t.Fatalf("Unexpected queue length: %v", len(got))
	}
}

func TestPlayNowDoesNotDuplicate(t *testing.T) {
	s := NewSession()
	queue := testTracks("a", "b", "c")

	s.PlayNow(queue[0], queue)
	count := 0
	for _, track := range s.Queue() {
		if track.ID == "a" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("Track was duplicated in queue: count=%v", count)
	}
}

func TestPlayNowInsertsMissingTrackAtFront(t *testing.T) {
	s := NewSession()
	queue := testTracks("a", "b", "c")
	other := testTracks("x")[0]

	s.PlayNow(other, queue)
	got := s.Queue()
	if len(got) != 4 {
		t.Fatalf("Unexpected queue length: %v", len(got))
	}
	if got[0].ID != "x" {
		t.Fatalf("Track was not inserted at the front: %v", got[0].ID)
	}
}

func TestPlayNowSingletonQueue(t *testing.T) {
	s := NewSession()
	track := testTracks("a")[0]

	s.PlayNow(track, nil)
	got := s.Queue()
	if len(got) != 1 || got[0].ID != "a" {
		t.Fatalf("Expected singleton queue, got %v", got)
	}
}

func TestPlayNowKeepsExistingQueue(t *testing.T) {
	s := NewSession()
	queue := testTracks("a", "b", "c")
	s.PlayNow(queue[0], queue)

	s.PlayNow(queue[2], nil)
	if cur := s.Current(); cur.ID != "c" {
		t.Fatalf("Unexpected current track: %v", cur.ID)
	}
	if got := s.Queue(); len(got) != 3 {
		t.Fatalf("Queue should have been reused, got length %v", len(got))
	}
}

func TestPlayNextWrapsAround(t *testing.T) {
	s := NewSession()
	queue := testTracks("a", "b", "c")
	s.PlayNow(queue[1], queue)

	s.PlayNext()
	if cur := s.Current(); cur.ID != "c" {
		t.Fatalf("Expected c, got %v", cur.ID)
	}
	s.PlayNext()
	if cur := s.Current(); cur.ID != "a" {
		t.Fatalf("Expected wraparound to a, got %v", cur.ID)
	}
}

func TestPlayPrevWrapsAround(t *testing.T) {
	s := NewSession()
	queue := testTracks("a", "b", "c")
	s.PlayNow(queue[0], queue)

	s.PlayPrev()
	if cur := s.Current(); cur.ID != "c" {
		t.Fatalf("Expected wraparound to c, got %v", cur.ID)
	}
}

func TestNavigationCycle(t *testing.T) {
	s := NewSession()
	queue := testTracks("a", "b", "c", "d")
	s.PlayNow(queue[2], queue)

	for i := 0; i < len(queue); i++ {
		s.PlayNext()
	}
	if cur := s.Current(); cur.ID != "c" {
		t.Fatalf("Cycle property violated: ended at %v", cur.ID)
	}
}

func TestPrevIsInverseOfNext(t *testing.T) {
	s := NewSession()
	queue := testTracks("a", "b", "c")
	for _, start := range queue {
		s.PlayNow(start, queue)
		s.PlayNext()
		s.PlayPrev()
		if cur := s.Current(); cur.ID != start.ID {
			t.Fatalf("PlayPrev did not invert PlayNext: started at %v, ended at %v", start.ID, cur.ID)
		}
	}
}

func TestNavigationOnEmptyQueue(t *testing.T) {
	s := NewSession()
	s.PlayNext()
	s.PlayPrev()
	if cur := s.Current(); cur != nil {
		t.Fatalf("Navigation on empty queue should be a no-op, got %v", cur)
	}
}

func TestUnknownCurrentWrapsToFront(t *testing.T) {
	s := NewSession()
	queue := testTracks("a", "b", "c")
	s.PlayNow(queue[0], queue)
	s.ReplaceQueue(testTracks("x", "y"))

	// The current track was re-derived to the new first track. Navigating
	// from there behaves positionally again.
	if cur := s.Current(); cur.ID != "x" {
		t.Fatalf("Expected re-derived current x, got %v", cur.ID)
	}
	s.PlayNext()
	if cur := s.Current(); cur.ID != "y" {
		t.Fatalf("Expected y, got %v", cur.ID)
	}
}

func TestShuffleRandomizesPickOnly(t *testing.T) {
	s := NewSession()
	s.rng = rand.New(rand.NewSource(1))
	queue := testTracks("a", "b", "c", "d")
	s.PlayNow(queue[0], queue)
	s.ToggleShuffle()

	for i := 0; i < 20; i++ {
		before := s.Current().ID
		s.PlayNext()
		if cur := s.Current(); cur.ID == before {
			t.Fatalf("Shuffled PlayNext landed on the current track")
		}
	}

	// The queue order itself is untouched.
	got := s.Queue()
	for i, track := range queue {
		if got[i].ID != track.ID {
			t.Fatalf("Shuffle reordered the queue at index %v", i)
		}
	}
}

func TestReplaceQueueKeepsSurvivingCurrent(t *testing.T) {
	s := NewSession()
	queue := testTracks("a", "b", "c")
	s.PlayNow(queue[1], queue)

	s.ReplaceQueue(testTracks("b", "c"))
	if cur := s.Current(); cur.ID != "b" {
		t.Fatalf("Current track should have survived, got %v", cur.ID)
	}
}

func TestReplaceQueueAdvancesWhenCurrentRemoved(t *testing.T) {
	s := NewSession()
	queue := testTracks("a", "b", "c")
	s.PlayNow(queue[0], queue)

	s.ReplaceQueue(testTracks("b", "c"))
	if cur := s.Current(); cur.ID != "b" {
		t.Fatalf("Expected advance to new first track, got %v", cur.ID)
	}
}

func TestReplaceQueueEmptiedClearsCurrent(t *testing.T) {
	s := NewSession()
	queue := testTracks("a")
	s.PlayNow(queue[0], queue)

	s.ReplaceQueue(nil)
	if cur := s.Current(); cur != nil {
		t.Fatalf("Current track should have been cleared, got %v", cur)
	}
}

func TestPlayNowEmitsTrackEvent(t *testing.T) {
	s := NewSession()
	track := testTracks("a")[0]
	util.TestEventEmission(t, s, TrackEvent{Track: track}, func() {
		s.PlayNow(track, nil)
	})
}

func TestToggleShuffleEmitsEvent(t *testing.T) {
	s := NewSession()
	util.TestEventEmission(t, s, ShuffleEvent{Shuffle: true}, func() {
		s.ToggleShuffle()
	})
}
