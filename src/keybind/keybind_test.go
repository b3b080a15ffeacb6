package keybind

import "testing"

func TestResolve(t *testing.T) {
	for key, want := range map[string]Action{
		"Space":      ActionTogglePlay,
		"ArrowLeft":  ActionSeekBack,
		"ArrowRight": ActionSeekForward,
		"ArrowUp":    ActionVolumeUp,
		"ArrowDown":  ActionVolumeDown,
		"m":          ActionToggleMute,
		"M":          ActionToggleMute,
		"q":          ActionToggleQueue,
		"Q":          ActionToggleQueue,
		"x":          ActionNone,
		"":           ActionNone,
	} {
		if got := Resolve(key, false); got != want {
			t.Errorf("Resolve(%q) = %v, want %v", key, got, want)
		}
	}
}

func TestResolveWhileTyping(t *testing.T) {
	for key := range map[string]struct{}{"Space": {}, "m": {}, "q": {}} {
		if got := Resolve(key, true); got != ActionNone {
			t.Errorf("Resolve(%q, typing) = %v, want ActionNone", key, got)
		}
	}
}
