package catalog

import (
	"context"
	"errors"
	"testing"
)

type stubLiker struct {
	liked map[string]bool
	fail  error
}

func (s *stubLiker) Like(ctx context.Context, userID, songID string) error {
	if s.fail != nil {
		return s.fail
	}
	s.liked[songID] = true
	return nil
}

func (s *stubLiker) Unlike(ctx context.Context, userID, songID string) error {
	if s.fail != nil {
		return s.fail
	}
	delete(s.liked, songID)
	return nil
}

func (s *stubLiker) LikedSongIDs(ctx context.Context, userID string) (map[string]bool, error) {
	set := map[string]bool{}
	for id := range s.liked {
		set[id] = true
	}
	return set, nil
}

func TestLikeSetToggle(t *testing.T) {
	ctx := context.Background()
	liker := &stubLiker{liked: map[string]bool{"a": true}}
	set, err := NewLikeSet(ctx, liker, "user")
	if err != nil {
		t.Fatal(err)
	}

	if !set.IsLiked("a") || set.IsLiked("b") {
		t.Fatalf("unexpected initial state")
	}
	liked, err := set.Toggle(ctx, "b")
	if err != nil {
		t.Fatal(err)
	}
	if !liked || !set.IsLiked("b") {
		t.Errorf("expected b to be liked")
	}
	if !liker.liked["b"] {
		t.Errorf("expected the like to be persisted")
	}
	liked, err = set.Toggle(ctx, "a")
	if err != nil {
		t.Fatal(err)
	}
	if liked || set.IsLiked("a") {
		t.Errorf("expected a to be unliked")
	}
}

func TestLikeSetRollback(t *testing.T) {
	ctx := context.Background()
	liker := &stubLiker{liked: map[string]bool{}, fail: errors.New("store down")}
	set, err := NewLikeSet(ctx, liker, "user")
	if err != nil {
		t.Fatal(err)
	}

	liked, err := set.Toggle(ctx, "a")
	if err == nil {
		t.Fatalf("expected the store error to propagate")
	}
	if liked || set.IsLiked("a") {
		t.Errorf("expected the optimistic like to be rolled back")
	}
}
