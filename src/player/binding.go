package player

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"heymelody/src/library"
	"heymelody/src/util"
)

const defaultVolume = 50

type volumeState struct {
	Volume int `json:"volume"`
}

// A Binding keeps exactly one live element synchronized with a session and
// surfaces the element's ground-truth playback metrics back into the session.
//
// Playback-domain errors never leave the binding. Decode errors, network
// errors and rejected autoplay all degrade to a paused session, they are
// logged and nothing more.
type Binding struct {
	session *Session
	element Element
	storage *util.PersistentStorage

	// Incremented for every track load. A play attempt that resolves
	// after a newer one has started is discarded, rapid track skipping
	// must not produce spurious state.
	generation uint64

	mu      sync.Mutex
	preMute int
	seeking bool

	cancel context.CancelFunc
}

// Bind attaches the element to the session and restores the persisted volume
// from volumeFile.
func Bind(session *Session, element Element, volumeFile string) (*Binding, error) {
	vol := volumeState{Volume: defaultVolume}
	storage, err := util.NewPersistentStorage(volumeFile, &vol)
	if err != nil {
		return nil, err
	}

	b := &Binding{
		session: session,
		element: element,
		storage: storage,
		preMute: defaultVolume,
	}

	v := storage.Value().(*volumeState).Volume
	if v < 0 || v > 100 {
		v = defaultVolume
	}
	element.SetVolume(v)
	session.setVolume(v)
	if v > 0 {
		b.preMute = v
	}
	element.SetLoop(session.RepeatOne())
	session.SetElement(element)

	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	go b.run(ctx)
	return b, nil
}

// Close detaches the element from the session. Attach and detach are
// symmetric, listeners registered by Bind are all released.
func (b *Binding) Close() error {
	b.cancel()
	b.session.SetElement(nil)
	return b.element.Close()
}

func (b *Binding) run(ctx context.Context) {
	sessionEvents := b.session.Events().Listen(ctx)
	elementEvents := b.element.Events().Listen(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-sessionEvents:
			if !ok {
				return
			}
			switch t := event.(type) {
			case TrackEvent:
				go b.loadTrack(ctx, t.Track)
			case RepeatEvent:
				b.element.SetLoop(t.RepeatOne)
			}
		case event, ok := <-elementEvents:
			if !ok {
				return
			}
			b.handleElementEvent(event)
		}
	}
}

func (b *Binding) loadTrack(ctx context.Context, track library.Track) {
	gen := atomic.AddUint64(&b.generation, 1)

	if !track.Playable() {
		// Also handles the queue having been emptied externally. The
		// duration is reset so no stale progress bar lingers.
		b.element.Pause()
		b.session.setPlaying(false)
		b.session.setTime(0)
		b.session.setDuration(0)
		return
	}

	if b.element.Source() != track.AudioURL {
		b.element.Load(track.AudioURL)
	}

	err := b.element.Play(ctx)
	if atomic.LoadUint64(&b.generation) != gen || errors.Is(err, ErrAborted) {
		// Superseded by a newer track load.
		return
	}
	if err != nil {
		log.WithField("track", track.ID).Errorf("Playback error: %v", err)
		b.session.setPlaying(false)
		return
	}
	b.session.setPlaying(true)
}

func (b *Binding) handleElementEvent(event interface{}) {
	switch t := event.(type) {
	case PlayEvent:
		b.session.setPlaying(true)
	case PauseEvent:
		b.session.setPlaying(false)
	case TimeUpdateEvent:
		b.mu.Lock()
		seeking := b.seeking
		b.mu.Unlock()
		if !seeking {
			b.session.setTime(t.Time)
		}
	case LoadedMetadataEvent:
		b.session.setDuration(t.Duration)
	case DurationChangeEvent:
		b.session.setDuration(t.Duration)
	case EndedEvent:
		if !b.element.Looping() {
			b.session.PlayNext()
		}
	}
}

// SetVolume applies the gain to the element and persists it so the chosen
// level survives restarts.
func (b *Binding) SetVolume(v int) {
	if v < 0 {
		v = 0
	} else if v > 100 {
		v = 100
	}
	b.mu.Lock()
	if v > 0 {
		b.preMute = v
	}
	b.mu.Unlock()

	b.element.SetVolume(v)
	b.session.setVolume(v)
	if err := b.storage.SetValue(&volumeState{Volume: v}); err != nil {
		log.Warnf("Unable to persist volume: %v", err)
	}
}

func (b *Binding) Volume() int {
	return b.element.Volume()
}

// ToggleMute switches between zero volume and the last non-zero level.
func (b *Binding) ToggleMute() {
	if b.element.Volume() == 0 {
		b.mu.Lock()
		restore := b.preMute
		b.mu.Unlock()
		if restore == 0 {
			restore = defaultVolume
		}
		b.SetVolume(restore)
		return
	}
	b.mu.Lock()
	b.preMute = b.element.Volume()
	b.mu.Unlock()
	b.SetVolume(0)
}

// SetSeeking marks the user as actively dragging the seek control.
// TimeUpdate events are suppressed while set so the progress display does not
// jump back to the real position mid drag.
func (b *Binding) SetSeeking(seeking bool) {
	b.mu.Lock()
	b.seeking = seeking
	b.mu.Unlock()
}

// SeekTo moves the playback position, clamped to the duration of the loaded
// source.
func (b *Binding) SeekTo(t time.Duration) {
	if t < 0 {
		t = 0
	}
	if d := b.element.Duration(); d > 0 && t > d {
		t = d
	}
	b.element.Seek(t)
	b.session.setTime(t)
}

// SeekBy moves the playback position relative to the current one.
func (b *Binding) SeekBy(delta time.Duration) {
	b.SeekTo(b.element.Position() + delta)
}
