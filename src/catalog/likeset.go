package catalog

import (
	"context"
	"sync"
)

// Liker is the part of the store a LikeSet needs.
type Liker interface {
	Like(ctx context.Context, userID, songID string) error
	Unlike(ctx context.Context, userID, songID string) error
	LikedSongIDs(ctx context.Context, userID string) (map[string]bool, error)
}

// A LikeSet is one user's liked songs with optimistic updates. Toggling
// flips the local set immediately so readers see the new state while the
// write is in flight. The flip is rolled back if the write fails and
// reconciled against the store if it succeeds.
type LikeSet struct {
	store  Liker
	userID string

	lock  sync.Mutex
	liked map[string]bool
}

func NewLikeSet(ctx context.Context, store Liker, userID string) (*LikeSet, error) {
	liked, err := store.LikedSongIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &LikeSet{store: store, userID: userID, liked: liked}, nil
}

func (set *LikeSet) IsLiked(songID string) bool {
	set.lock.Lock()
	defer set.lock.Unlock()
	return set.liked[songID]
}

// Toggle flips the like state of a song and returns the state it ended up
// in.
func (set *LikeSet) Toggle(ctx context.Context, songID string) (bool, error) {
	set.lock.Lock()
	liked := !set.liked[songID]
	set.liked[songID] = liked
	set.lock.Unlock()

	var err error
	if liked {
		err = set.store.Like(ctx, set.userID, songID)
	} else {
		err = set.store.Unlike(ctx, set.userID, songID)
	}
	if err != nil {
		set.lock.Lock()
		set.liked[songID] = !liked
		set.lock.Unlock()
		return !liked, err
	}

	if stored, err := set.store.LikedSongIDs(ctx, set.userID); err == nil {
		set.lock.Lock()
		set.liked = stored
		liked = stored[songID]
		set.lock.Unlock()
	}
	return liked, nil
}
