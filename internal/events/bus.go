// Package events implements the in-process domain event bus. Events are
// published synchronously, after the triggering write has already been
// persisted, so a handler can never observe a side effect (like an enqueued
// thumbnail job) before the upload it derives from is durable.
package events

import (
	"context"
	"log/slog"
	"sync"
)

// Kind names a domain event.
type Kind string

const (
	KindModelUploaded        Kind = "ModelUploaded"
	KindSoundUploaded        Kind = "SoundUploaded"
	KindTextureSetChanged    Kind = "TextureSetChanged"
	KindActiveVersionChanged Kind = "ActiveVersionChanged"
)

// Handler reacts to a published event. Returning an error only matters for
// Required handlers (see Publish); advisory handler errors are logged, not
// propagated.
type Handler func(ctx context.Context, event any) error

type subscription struct {
	handler  Handler
	required bool
}

// Bus is a synchronous pub/sub dispatcher keyed by event Kind.
type Bus struct {
	mu   sync.RWMutex
	subs map[Kind][]subscription
}

// NewBus constructs an empty Bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[Kind][]subscription)}
}

// Subscribe registers handler for kind. If required is true, a handler error
// is returned to the publisher instead of merely logged — use this only for
// handlers whose effect the caller cannot proceed without.
func (b *Bus) Subscribe(kind Kind, required bool, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[kind] = append(b.subs[kind], subscription{handler: handler, required: required})
}

// Publish synchronously invokes every handler subscribed to kind, in
// registration order. Advisory handler failures are warn-logged and do not
// stop subsequent handlers or return an error; a required handler's error is
// returned immediately.
func (b *Bus) Publish(ctx context.Context, kind Kind, event any) error {
	b.mu.RLock()
	handlers := append([]subscription(nil), b.subs[kind]...)
	b.mu.RUnlock()

	for _, sub := range handlers {
		if err := sub.handler(ctx, event); err != nil {
			if sub.required {
				return err
			}
			slog.Warn("domain event handler failed", "kind", kind, "error", err)
		}
	}
	return nil
}
