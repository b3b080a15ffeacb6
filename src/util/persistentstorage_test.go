package util

import (
	"path/filepath"
	"testing"
)

func TestPersistentStorageRoundTrip(t *testing.T) {
	file := filepath.Join(t.TempDir(), "volume.json")

	initial := 50
	store, err := NewPersistentStorage(file, &initial)
	if err != nil {
		t.Fatal(err)
	}
	v := 80
	if err := store.SetValue(&v); err != nil {
		t.Fatal(err)
	}

	reload := 0
	store2, err := NewPersistentStorage(file, &reload)
	if err != nil {
		t.Fatal(err)
	}
	if got := *store2.Value().(*int); got != 80 {
		t.Fatalf("Stored value was not restored: %v", got)
	}
}

func TestPersistentStorageInitialValue(t *testing.T) {
	file := filepath.Join(t.TempDir(), "state.json")

	initial := 42
	if _, err := NewPersistentStorage(file, &initial); err != nil {
		t.Fatal(err)
	}

	reload := 0
	store, err := NewPersistentStorage(file, &reload)
	if err != nil {
		t.Fatal(err)
	}
	if got := *store.Value().(*int); got != 42 {
		t.Fatalf("Initial value was not persisted: %v", got)
	}
}
