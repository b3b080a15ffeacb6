package player

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"heymelody/src/library"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Condition was not met in time")
}

func newTestBinding(t *testing.T) (*Session, *StubElement, *Binding) {
	t.Helper()
	s := NewSession()
	el := NewStubElement()
	b, err := Bind(s, el, filepath.Join(t.TempDir(), "volume.json"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { b.Close() })
	return s, el, b
}

func TestBindingLoadsAndPlays(t *testing.T) {
	s, el, _ := newTestBinding(t)
	track := testTracks("a")[0]

	s.PlayNow(track, nil)
	waitFor(t, func() bool {
		return el.Source() == track.AudioURL && !el.Paused()
	})
	waitFor(t, func() bool { return s.Playing() })
}

func TestBindingUnplayableTrackPauses(t *testing.T) {
	s, el, _ := newTestBinding(t)
	playable := testTracks("a")[0]
	s.PlayNow(playable, nil)
	waitFor(t, func() bool { return !el.Paused() })

	s.PlayNow(library.Track{ID: "silent", Title: "No Audio"}, nil)
	waitFor(t, func() bool { return el.Paused() })
	waitFor(t, func() bool { return s.Status().Duration == 0 })
}

func TestBindingSwallowsAbortedPlays(t *testing.T) {
	s, el, _ := newTestBinding(t)
	el.PlayErr = ErrAborted

	s.PlayNow(testTracks("a")[0], nil)
	time.Sleep(50 * time.Millisecond)
	if s.Playing() {
		t.Fatalf("Aborted play should not mark the session as playing")
	}
}

func TestBindingLogsOtherPlayErrors(t *testing.T) {
	s, el, _ := newTestBinding(t)
	el.PlayErr = errors.New("decode failure")

	s.PlayNow(testTracks("a")[0], nil)
	time.Sleep(50 * time.Millisecond)
	if s.Playing() {
		t.Fatalf("Failed play should leave the session paused")
	}
	if cur := s.Current(); cur == nil {
		t.Fatalf("Playback errors must not reset the current track")
	}
}

func TestEndedAdvancesExactlyOnce(t *testing.T) {
	s, el, _ := newTestBinding(t)
	queue := testTracks("a", "b", "c")
	s.PlayNow(queue[0], queue)
	waitFor(t, func() bool { return el.Source() == queue[0].AudioURL })

	el.FinishTrack()
	waitFor(t, func() bool { return s.Current().ID == "b" })

	// Give a hypothetical second advancement a chance to happen.
	time.Sleep(50 * time.Millisecond)
	if cur := s.Current(); cur.ID != "b" {
		t.Fatalf("Ended advanced more than once, now at %v", cur.ID)
	}
}

func TestEndedWithRepeatOneDoesNotAdvance(t *testing.T) {
	s, el, _ := newTestBinding(t)
	queue := testTracks("a", "b")
	s.PlayNow(queue[0], queue)
	s.SetRepeatOne(true)
	waitFor(t, func() bool { return el.Looping() })

	el.FinishTrack()
	time.Sleep(50 * time.Millisecond)
	if cur := s.Current(); cur.ID != "a" {
		t.Fatalf("Repeat-one should loop the current track, now at %v", cur.ID)
	}
}

func TestTogglePlayPause(t *testing.T) {
	s, el, _ := newTestBinding(t)
	s.PlayNow(testTracks("a")[0], nil)
	waitFor(t, func() bool { return !el.Paused() })

	s.TogglePlayPause(context.Background())
	waitFor(t, func() bool { return el.Paused() })
	s.TogglePlayPause(context.Background())
	waitFor(t, func() bool { return !el.Paused() })
}

func TestVolumeIsPersisted(t *testing.T) {
	file := filepath.Join(t.TempDir(), "volume.json")

	s := NewSession()
	el := NewStubElement()
	b, err := Bind(s, el, file)
	if err != nil {
		t.Fatal(err)
	}
	b.SetVolume(80)
	if el.Volume() != 80 {
		t.Fatalf("Volume was not applied to the element: %v", el.Volume())
	}
	b.Close()

	el2 := NewStubElement()
	b2, err := Bind(NewSession(), el2, file)
	if err != nil {
		t.Fatal(err)
	}
	defer b2.Close()
	if el2.Volume() != 80 {
		t.Fatalf("Volume was not restored after rebinding: %v", el2.Volume())
	}
}

func TestMuteRestoresPreviousVolume(t *testing.T) {
	_, el, b := newTestBinding(t)

	b.SetVolume(63)
	b.ToggleMute()
	if el.Volume() != 0 {
		t.Fatalf("Mute did not zero the volume: %v", el.Volume())
	}
	b.ToggleMute()
	if el.Volume() != 63 {
		t.Fatalf("Unmute did not restore the pre-mute volume: %v", el.Volume())
	}
}

func TestSeekingSuppressesTimeUpdates(t *testing.T) {
	s, el, b := newTestBinding(t)
	s.PlayNow(testTracks("a")[0], nil)
	waitFor(t, func() bool { return !el.Paused() })

	el.EmitTime(10 * time.Second)
	waitFor(t, func() bool { return s.Status().Time == 10*time.Second })

	b.SetSeeking(true)
	el.EmitTime(20 * time.Second)
	time.Sleep(50 * time.Millisecond)
	if got := s.Status().Time; got != 10*time.Second {
		t.Fatalf("Time update was not suppressed while seeking: %v", got)
	}

	b.SetSeeking(false)
	el.EmitTime(30 * time.Second)
	waitFor(t, func() bool { return s.Status().Time == 30*time.Second })
}

func TestSeekToClampsToDuration(t *testing.T) {
	s, el, b := newTestBinding(t)
	el.Durations = map[string]time.Duration{
		"https://media.example/a.mp3": 60 * time.Second,
	}
	s.PlayNow(testTracks("a")[0], nil)
	waitFor(t, func() bool { return el.Duration() == 60*time.Second })

	b.SeekTo(2 * time.Minute)
	if got := el.Position(); got != 60*time.Second {
		t.Fatalf("Seek was not clamped: %v", got)
	}
	b.SeekTo(-5 * time.Second)
	if got := el.Position(); got != 0 {
		t.Fatalf("Seek was not clamped to zero: %v", got)
	}
}
