package player

import (
	"context"
	"math/rand"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"heymelody/src/library"
	"heymelody/src/util"
)

// Events emitted by a Session.
type (
	// TrackEvent is emitted when the current track changes. A zero track
	// means that nothing is loaded anymore.
	TrackEvent struct{ Track library.Track }
	// QueueEvent is emitted when the contents of the queue change.
	QueueEvent struct{}
	// PlayStateEvent mirrors the play/pause state of the live element.
	PlayStateEvent struct{ Playing bool }
	// TimeEvent mirrors the playback position of the live element.
	TimeEvent struct{ Time time.Duration }
	// DurationEvent mirrors the duration of the loaded source.
	DurationEvent struct{ Duration time.Duration }
	// VolumeEvent is emitted when the playback gain changes.
	VolumeEvent struct{ Volume int }
	// ShuffleEvent is emitted when the shuffle flag is toggled.
	ShuffleEvent struct{ Shuffle bool }
	// RepeatEvent is emitted when the repeat-one flag is toggled.
	RepeatEvent struct{ RepeatOne bool }
	// QueuePanelEvent is emitted when the queue panel is shown or hidden.
	QueuePanelEvent struct{ Open bool }
)

// Status is a snapshot of everything a client needs to render the player bar.
type Status struct {
	Track     *library.Track `json:"track"`
	Playing   bool           `json:"playing"`
	Time      time.Duration  `json:"time"`
	Duration  time.Duration  `json:"duration"`
	Volume    int            `json:"volume"`
	Shuffle   bool           `json:"shuffle"`
	RepeatOne bool           `json:"repeat_one"`
	QueueOpen bool           `json:"queue_open"`
}

// A Session is the single source of truth for what should be playing and in
// what order. There is exactly one session for the lifetime of the process,
// shared by every client.
//
// The session itself never talks to the network or the audio hardware. The
// Binding observes it and keeps the registered Element in sync.
type Session struct {
	util.Emitter

	mu        sync.Mutex
	current   *library.Track
	queue     []library.Track
	shuffle   bool
	repeatOne bool
	queueOpen bool
	element   Element

	// Ground truth mirrored from the element by the binding. Display
	// state only, never drives playback.
	playing  bool
	time     time.Duration
	duration time.Duration
	volume   int

	rng *rand.Rand
}

func NewSession() *Session {
	return &Session{
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// PlayNow makes the specified track the current track.
//
// If queue is non-empty it becomes the new play context. The track is
// inserted at the front if the queue does not already contain its ID, an
// existing entry is never duplicated. If queue is nil the existing queue is
// kept, unless it is empty in which case a singleton queue is created.
//
// PlayNow always succeeds, actual media loading is a side effect observed by
// the binding.
func (s *Session) PlayNow(track library.Track, queue []library.Track) {
	s.mu.Lock()
	if len(queue) > 0 {
		if library.IndexOfTrack(queue, track.ID) == -1 {
			queue = append([]library.Track{track}, queue...)
		}
		s.queue = append([]library.Track(nil), queue...)
	} else if len(s.queue) == 0 {
		s.queue = []library.Track{track}
	}
	t := track
	s.current = &t
	s.mu.Unlock()

	s.Emit(QueueEvent{})
	s.Emit(TrackEvent{Track: track})
}

// PlayNext advances to the next track in the queue.
//
// The position of the current track is recomputed from its ID on every call.
// Navigation wraps around unconditionally: past the last track play
// continues at the first, the queue behaves as a cycle. With shuffle enabled
// the successor is picked at random from the other queue entries instead.
//
// An empty queue makes this a no-op.
func (s *Session) PlayNext() {
	s.mu.Lock()
	if len(s.queue) == 0 {
		s.mu.Unlock()
		return
	}
	next := s.queue[s.nextIndex()]
	s.current = &next
	s.mu.Unlock()

	s.Emit(TrackEvent{Track: next})
}

// PlayPrev moves back one track, wrapping around to the last track when the
// current track is at the front. An empty queue makes this a no-op.
func (s *Session) PlayPrev() {
	s.mu.Lock()
	if len(s.queue) == 0 {
		s.mu.Unlock()
		return
	}
	index := s.currentIndex()
	if index > 0 {
		index--
	} else {
		index = len(s.queue) - 1
	}
	prev := s.queue[index]
	s.current = &prev
	s.mu.Unlock()

	s.Emit(TrackEvent{Track: prev})
}

func (s *Session) currentIndex() int {
	if s.current == nil {
		return -1
	}
	return library.IndexOfTrack(s.queue, s.current.ID)
}

func (s *Session) nextIndex() int {
	index := s.currentIndex()
	if s.shuffle && len(s.queue) > 1 {
		// Shuffle does not reorder the queue, it only randomizes the
		// pick. The current track is excluded so a skip always moves
		// somewhere.
		n := s.rng.Intn(len(s.queue) - 1)
		if index >= 0 && n >= index {
			n++
		}
		return n
	}
	if index >= 0 && index < len(s.queue)-1 {
		return index + 1
	}
	return 0
}

// TogglePlayPause delegates to the registered element. Play failures are
// swallowed, autoplay policies make them an expected outcome.
func (s *Session) TogglePlayPause(ctx context.Context) {
	s.mu.Lock()
	el := s.element
	s.mu.Unlock()
	if el == nil {
		return
	}
	if el.Paused() {
		if err := el.Play(ctx); err != nil {
			log.Debugf("Play request failed: %v", err)
		}
	} else {
		el.Pause()
	}
}

// ToggleShuffle flips the shuffle flag. The queue order is left untouched.
func (s *Session) ToggleShuffle() {
	s.mu.Lock()
	s.shuffle = !s.shuffle
	v := s.shuffle
	s.mu.Unlock()
	s.Emit(ShuffleEvent{Shuffle: v})
}

func (s *Session) SetRepeatOne(repeat bool) {
	s.mu.Lock()
	changed := s.repeatOne != repeat
	s.repeatOne = repeat
	s.mu.Unlock()
	if changed {
		s.Emit(RepeatEvent{RepeatOne: repeat})
	}
}

func (s *Session) RepeatOne() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repeatOne
}

func (s *Session) SetQueueOpen(open bool) {
	s.mu.Lock()
	changed := s.queueOpen != open
	s.queueOpen = open
	s.mu.Unlock()
	if changed {
		s.Emit(QueuePanelEvent{Open: open})
	}
}

func (s *Session) QueueOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queueOpen
}

// SetElement registers or unregisters the live element the session controls.
// Used exclusively by the binding.
func (s *Session) SetElement(el Element) {
	s.mu.Lock()
	s.element = el
	s.mu.Unlock()
}

// ReplaceQueue replaces the play context after an external mutation, such as
// a song being removed from the playlist that is currently playing.
//
// If the current track survives in the new queue it stays current. If it was
// removed, play moves to the first track of the new queue, or stops when the
// queue has become empty. This is the only path that ever clears the current
// track, the session's own navigation only replaces it.
func (s *Session) ReplaceQueue(tracks []library.Track) {
	s.mu.Lock()
	s.queue = append([]library.Track(nil), tracks...)
	var changed *TrackEvent
	if s.currentIndex() == -1 {
		if len(s.queue) > 0 {
			t := s.queue[0]
			s.current = &t
			changed = &TrackEvent{Track: t}
		} else if s.current != nil {
			s.current = nil
			changed = &TrackEvent{}
		}
	}
	s.mu.Unlock()

	s.Emit(QueueEvent{})
	if changed != nil {
		s.Emit(*changed)
	}
}

// Current returns a copy of the current track, or nil when nothing has been
// played yet.
func (s *Session) Current() *library.Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	t := *s.current
	return &t
}

// Queue returns a copy of the play queue.
func (s *Session) Queue() []library.Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]library.Track(nil), s.queue...)
}

func (s *Session) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	var track *library.Track
	if s.current != nil {
		t := *s.current
		track = &t
	}
	return Status{
		Track:     track,
		Playing:   s.playing,
		Time:      s.time,
		Duration:  s.duration,
		Volume:    s.volume,
		Shuffle:   s.shuffle,
		RepeatOne: s.repeatOne,
		QueueOpen: s.queueOpen,
	}
}

// The setters below mirror element ground truth into the session. They are
// only called by the binding.

func (s *Session) setPlaying(playing bool) {
	s.mu.Lock()
	changed := s.playing != playing
	s.playing = playing
	s.mu.Unlock()
	if changed {
		s.Emit(PlayStateEvent{Playing: playing})
	}
}

func (s *Session) setTime(t time.Duration) {
	s.mu.Lock()
	s.time = t
	s.mu.Unlock()
	s.Emit(TimeEvent{Time: t})
}

func (s *Session) setDuration(d time.Duration) {
	s.mu.Lock()
	changed := s.duration != d
	s.duration = d
	s.mu.Unlock()
	if changed {
		s.Emit(DurationEvent{Duration: d})
	}
}

func (s *Session) setVolume(v int) {
	s.mu.Lock()
	changed := s.volume != v
	s.volume = v
	s.mu.Unlock()
	if changed {
		s.Emit(VolumeEvent{Volume: v})
	}
}
