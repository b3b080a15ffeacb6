package player

import (
	"context"
	"sync"
	"time"

	"heymelody/src/util"
)

// StubElement is an in-memory Element implementation for use in tests. It
// behaves like an ideal media element: loads never fail unless PlayErr is
// set, and time only advances through EmitTime.
type StubElement struct {
	util.Emitter

	// PlayErr is returned by Play when set.
	PlayErr error
	// Durations maps source URLs to the duration reported after a Load.
	Durations map[string]time.Duration

	mu     sync.Mutex
	source string
	paused bool
	loop   bool
	pos    time.Duration
	dur    time.Duration
	volume int
	closed bool
}

var _ Element = &StubElement{}

func NewStubElement() *StubElement {
	return &StubElement{paused: true}
}

func (el *StubElement) Load(url string) {
	el.mu.Lock()
	el.source = url
	el.pos = 0
	el.dur = el.Durations[url]
	d := el.dur
	el.mu.Unlock()
	el.Emit(LoadedMetadataEvent{Duration: d})
}

func (el *StubElement) Source() string {
	el.mu.Lock()
	defer el.mu.Unlock()
	return el.source
}

func (el *StubElement) Play(ctx context.Context) error {
	if el.PlayErr != nil {
		return el.PlayErr
	}
	el.mu.Lock()
	el.paused = false
	el.mu.Unlock()
	el.Emit(PlayEvent{})
	return nil
}

func (el *StubElement) Pause() {
	el.mu.Lock()
	el.paused = true
	el.mu.Unlock()
	el.Emit(PauseEvent{})
}

func (el *StubElement) Paused() bool {
	el.mu.Lock()
	defer el.mu.Unlock()
	return el.paused
}

func (el *StubElement) SetLoop(loop bool) {
	el.mu.Lock()
	el.loop = loop
	el.mu.Unlock()
}

func (el *StubElement) Looping() bool {
	el.mu.Lock()
	defer el.mu.Unlock()
	return el.loop
}

func (el *StubElement) Seek(t time.Duration) {
	el.mu.Lock()
	el.pos = t
	el.mu.Unlock()
}

func (el *StubElement) Position() time.Duration {
	el.mu.Lock()
	defer el.mu.Unlock()
	return el.pos
}

func (el *StubElement) Duration() time.Duration {
	el.mu.Lock()
	defer el.mu.Unlock()
	return el.dur
}

func (el *StubElement) SetVolume(pct int) {
	el.mu.Lock()
	el.volume = pct
	el.mu.Unlock()
}

func (el *StubElement) Volume() int {
	el.mu.Lock()
	defer el.mu.Unlock()
	return el.volume
}

func (el *StubElement) Close() error {
	el.mu.Lock()
	el.closed = true
	el.mu.Unlock()
	return nil
}

// EmitTime simulates playback progress.
func (el *StubElement) EmitTime(t time.Duration) {
	el.mu.Lock()
	el.pos = t
	el.mu.Unlock()
	el.Emit(TimeUpdateEvent{Time: t})
}

// FinishTrack simulates the loaded source playing to completion. When
// looping, the element restarts from the beginning without an EndedEvent,
// matching media element semantics.
func (el *StubElement) FinishTrack() {
	el.mu.Lock()
	loop := el.loop
	el.pos = 0
	el.mu.Unlock()
	if loop {
		el.Emit(TimeUpdateEvent{Time: 0})
		return
	}
	el.Emit(EndedEvent{})
}
