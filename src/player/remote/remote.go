package remote

import (
	"context"
	"sync"
	"time"

	"heymelody/src/player"
	"heymelody/src/util"
)

// Commands published towards the controlling client.
type (
	LoadCommand   struct{ URL string }
	PlayCommand   struct{}
	PauseCommand  struct{}
	SeekCommand   struct{ Time time.Duration }
	VolumeCommand struct{ Volume int }
	LoopCommand   struct{ Loop bool }
)

// Element is a media output whose audio device is a connected client,
// typically the media element of a browser tab.
//
// Intents are broadcast as commands which the API layer forwards over the
// event stream. The client applies them to its media element and reports the
// element's ground truth back through Report, which is where the media
// events the binding listens for originate.
type Element struct {
	util.Emitter

	commands util.Emitter

	mu     sync.Mutex
	source string
	paused bool
	loop   bool
	pos    time.Duration
	dur    time.Duration
	volume int
}

var _ player.Element = &Element{}

func New() *Element {
	return &Element{paused: true}
}

// Commands returns the emitter over which client-bound commands are
// published.
func (el *Element) Commands() *util.Emitter {
	return &el.commands
}

func (el *Element) Load(url string) {
	el.mu.Lock()
	el.source = url
	el.pos = 0
	el.dur = 0
	el.mu.Unlock()
	el.commands.Emit(LoadCommand{URL: url})
}

func (el *Element) Source() string {
	el.mu.Lock()
	defer el.mu.Unlock()
	return el.source
}

// Play requests playback on the client. The request is optimistic: autoplay
// rejection on the client side surfaces later as a reported pause.
func (el *Element) Play(ctx context.Context) error {
	el.mu.Lock()
	el.paused = false
	el.mu.Unlock()
	el.commands.Emit(PlayCommand{})
	return nil
}

func (el *Element) Pause() {
	el.mu.Lock()
	el.paused = true
	el.mu.Unlock()
	el.commands.Emit(PauseCommand{})
}

func (el *Element) Paused() bool {
	el.mu.Lock()
	defer el.mu.Unlock()
	return el.paused
}

func (el *Element) SetLoop(loop bool) {
	el.mu.Lock()
	el.loop = loop
	el.mu.Unlock()
	el.commands.Emit(LoopCommand{Loop: loop})
}

func (el *Element) Looping() bool {
	el.mu.Lock()
	defer el.mu.Unlock()
	return el.loop
}

func (el *Element) Seek(t time.Duration) {
	el.mu.Lock()
	el.pos = t
	el.mu.Unlock()
	el.commands.Emit(SeekCommand{Time: t})
}

func (el *Element) Position() time.Duration {
	el.mu.Lock()
	defer el.mu.Unlock()
	return el.pos
}

func (el *Element) Duration() time.Duration {
	el.mu.Lock()
	defer el.mu.Unlock()
	return el.dur
}

func (el *Element) SetVolume(pct int) {
	el.mu.Lock()
	el.volume = pct
	el.mu.Unlock()
	el.commands.Emit(VolumeCommand{Volume: pct})
}

func (el *Element) Volume() int {
	el.mu.Lock()
	defer el.mu.Unlock()
	return el.volume
}

func (el *Element) Close() error {
	return nil
}

// Report feeds a media event observed by the client back into the element.
// The internal mirror is updated before the event is re-emitted for the
// binding.
func (el *Element) Report(event interface{}) {
	el.mu.Lock()
	switch t := event.(type) {
	case player.PlayEvent:
		el.paused = false
	case player.PauseEvent:
		el.paused = true
	case player.TimeUpdateEvent:
		el.pos = t.Time
	case player.LoadedMetadataEvent:
		el.dur = t.Duration
	case player.DurationChangeEvent:
		el.dur = t.Duration
	case player.EndedEvent:
		el.paused = true
		el.pos = 0
	}
	el.mu.Unlock()
	el.Emit(event)
}
