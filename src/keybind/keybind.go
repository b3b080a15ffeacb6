// Package keybind maps keyboard input onto player operations so every client
// shares a single set of shortcuts.
package keybind

import "time"

// An Action is a player operation resolved from a key press.
type Action int

const (
	ActionNone Action = iota
	ActionTogglePlay
	ActionSeekBack
	ActionSeekForward
	ActionVolumeUp
	ActionVolumeDown
	ActionToggleMute
	ActionToggleQueue
)

const (
	// SeekStep is how far the arrow keys move the playback position.
	SeekStep = 5 * time.Second
	// VolumeStep is how much the arrow keys change the volume.
	VolumeStep = 5
)

var bindings = map[string]Action{
	"Space":      ActionTogglePlay,
	"ArrowLeft":  ActionSeekBack,
	"ArrowRight": ActionSeekForward,
	"ArrowUp":    ActionVolumeUp,
	"ArrowDown":  ActionVolumeDown,
	"m":          ActionToggleMute,
	"M":          ActionToggleMute,
	"q":          ActionToggleQueue,
	"Q":          ActionToggleQueue,
}

// Resolve maps a key code to its action. Keys pressed while the user is
// typing in a text input resolve to nothing, shortcuts must not fire mid
// sentence.
func Resolve(key string, typing bool) Action {
	if typing {
		return ActionNone
	}
	return bindings[key]
}
