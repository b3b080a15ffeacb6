package player

import (
	"context"
	"errors"
	"time"

	"heymelody/src/util"
)

// ErrAborted is returned from Element.Play when the play attempt was
// superseded by a newer one before it could complete. This is the expected
// outcome when tracks are skipped in rapid succession and must not be
// surfaced as an error.
var ErrAborted = errors.New("play attempt aborted by a newer request")

// Media events emitted by an Element. The binding mirrors these into the
// session, they are the ground truth for the playing state and progress.
type (
	// PlayEvent is emitted when playback starts or resumes.
	PlayEvent struct{}
	// PauseEvent is emitted when playback pauses.
	PauseEvent struct{}
	// TimeUpdateEvent is emitted periodically while the position advances.
	TimeUpdateEvent struct{ Time time.Duration }
	// LoadedMetadataEvent is emitted once the duration of a newly loaded
	// source is known.
	LoadedMetadataEvent struct{ Duration time.Duration }
	// DurationChangeEvent is emitted when the duration changes after the
	// initial metadata load.
	DurationChangeEvent struct{ Duration time.Duration }
	// EndedEvent is emitted when the current source plays to completion
	// while not looping.
	EndedEvent struct{}
)

// An Element is a live media output: a local speaker, a remote MPD instance
// or a browser tab reporting back over the API.
//
// Elements are exclusively owned by the Binding that drives them. No other
// component may touch the source, play state or volume directly; every
// mutation flows through the session so components cannot fight over
// playback state.
type Element interface {
	util.Eventer

	// Load assigns a new source and prepares it for playback. Loading
	// resets the playback position.
	Load(url string)

	// Source returns the currently loaded source URL, or "" if none.
	Source() string

	// Play starts or resumes playback of the loaded source. ErrAborted is
	// returned when the attempt was superseded before completing.
	Play(ctx context.Context) error

	Pause()
	Paused() bool

	// SetLoop makes the element restart the current source on completion
	// instead of emitting an EndedEvent.
	SetLoop(loop bool)
	Looping() bool

	Seek(t time.Duration)
	Position() time.Duration

	// Duration of the loaded source, or 0 when unknown.
	Duration() time.Duration

	// SetVolume sets the playback gain as a percentage in [0, 100].
	SetVolume(pct int)
	Volume() int

	Close() error
}
