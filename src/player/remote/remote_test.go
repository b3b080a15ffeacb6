package remote

import (
	"context"
	"testing"
	"time"

	"heymelody/src/player"
)

func TestLoadEmitsCommand(t *testing.T) {
	el := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	commands := el.Commands().Listen(ctx)

	el.Load("https://media.example/a.mp3")
	select {
	case cmd := <-commands:
		if c, ok := cmd.(LoadCommand); !ok || c.URL != "https://media.example/a.mp3" {
			t.Fatalf("Unexpected command: %#v", cmd)
		}
	case <-time.After(time.Second):
		t.Fatalf("No command was emitted")
	}
	if el.Source() != "https://media.example/a.mp3" {
		t.Fatalf("Source was not recorded")
	}
}

func TestReportMirrorsGroundTruth(t *testing.T) {
	el := New()

	el.Report(player.LoadedMetadataEvent{Duration: 3 * time.Minute})
	if el.Duration() != 3*time.Minute {
		t.Fatalf("Duration was not mirrored: %v", el.Duration())
	}

	el.Report(player.TimeUpdateEvent{Time: 42 * time.Second})
	if el.Position() != 42*time.Second {
		t.Fatalf("Position was not mirrored: %v", el.Position())
	}

	if err := el.Play(context.Background()); err != nil {
		t.Fatal(err)
	}
	el.Report(player.PauseEvent{})
	if !el.Paused() {
		t.Fatalf("Reported pause was not mirrored")
	}
}

func TestReportForwardsToListeners(t *testing.T) {
	el := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := el.Events().Listen(ctx)

	el.Report(player.EndedEvent{})
	select {
	case event := <-events:
		if _, ok := event.(player.EndedEvent); !ok {
			t.Fatalf("Unexpected event: %#v", event)
		}
	case <-time.After(time.Second):
		t.Fatalf("Reported event was not forwarded")
	}
}
