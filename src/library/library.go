package library

import (
	"context"
	"errors"
)

// ErrTrackNotFound is returned when a track ID cannot be resolved.
var ErrTrackNotFound = errors.New("track not found")

// A Library is a database that is able to recall tracks that can be played.
type Library interface {
	// Returns all available tracks in the library, newest first.
	Tracks(ctx context.Context) ([]Track, error)

	// Gets information about the specified tracks. If a track is not
	// found, a zero track is returned at that index.
	TrackInfo(ctx context.Context, ids ...string) ([]Track, error)
}

// IndexOfTrack returns the position of the track with the specified ID, or -1
// if it is not present.
//
// Positions are always recomputed from the track identity instead of being
// cached alongside the queue. The queue can be mutated by actions unrelated
// to playback, a cached index would go stale.
func IndexOfTrack(tracks []Track, id string) int {
	for i, t := range tracks {
		if t.ID == id {
			return i
		}
	}
	return -1
}
