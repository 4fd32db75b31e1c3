package events

import (
	"context"
	"errors"
	"testing"
)

// An advisory (non-required) handler's failure must not propagate to the
// publisher, and must not stop later handlers for the same event.
func TestPublish_AdvisoryHandlerFailureDoesNotPropagate(t *testing.T) {
	bus := NewBus()
	var secondRan bool

	bus.Subscribe(KindModelUploaded, false, func(ctx context.Context, event any) error {
		return errors.New("thumbnail enqueue unavailable")
	})
	bus.Subscribe(KindModelUploaded, false, func(ctx context.Context, event any) error {
		secondRan = true
		return nil
	})

	err := bus.Publish(context.Background(), KindModelUploaded, ModelUploaded{ModelID: 1, VersionID: 1})
	if err != nil {
		t.Fatalf("advisory handler failure must not propagate, got %v", err)
	}
	if !secondRan {
		t.Fatal("a failing advisory handler must not prevent subsequent handlers from running")
	}
}

// A required handler's error must propagate to the publisher.
func TestPublish_RequiredHandlerFailurePropagates(t *testing.T) {
	bus := NewBus()
	wantErr := errors.New("durable write failed")
	bus.Subscribe(KindActiveVersionChanged, true, func(ctx context.Context, event any) error {
		return wantErr
	})

	err := bus.Publish(context.Background(), KindActiveVersionChanged, ActiveVersionChanged{ModelID: 1, NewVersionID: 2})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected required handler's error to propagate, got %v", err)
	}
}

// Publishing a kind with no subscribers is a no-op, not an error.
func TestPublish_NoSubscribersIsNoop(t *testing.T) {
	bus := NewBus()
	if err := bus.Publish(context.Background(), KindSoundUploaded, SoundUploaded{SoundID: 1}); err != nil {
		t.Fatalf("expected no error publishing to an unsubscribed kind, got %v", err)
	}
}

// Handlers for one kind never see events published under another kind.
func TestPublish_HandlersAreScopedByKind(t *testing.T) {
	bus := NewBus()
	var uploadedCalls, textureCalls int
	bus.Subscribe(KindModelUploaded, false, func(ctx context.Context, event any) error {
		uploadedCalls++
		return nil
	})
	bus.Subscribe(KindTextureSetChanged, false, func(ctx context.Context, event any) error {
		textureCalls++
		return nil
	})

	_ = bus.Publish(context.Background(), KindModelUploaded, ModelUploaded{ModelID: 1})
	if uploadedCalls != 1 || textureCalls != 0 {
		t.Fatalf("expected only the ModelUploaded handler to run, got uploaded=%d texture=%d", uploadedCalls, textureCalls)
	}
}
