// Package events is the per-modal, per-event-type lifecycle listener
// registry. Handlers run sequentially; only beforeClose handlers may
// cancel, every other type is notification-only.
package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Type names a lifecycle event.
type Type string

const (
	// BeforeClose is the sole cancelable event; a handler returning false
	// aborts the close.
	BeforeClose Type = "beforeClose"
	Close       Type = "close"
	Success     Type = "success"
	Blur        Type = "blur"
	Focus       Type = "focus"
)

// Handler observes a lifecycle event. The boolean only matters for
// BeforeClose, where false cancels; elsewhere it is ignored. Handlers may
// block; they receive the caller's context.
type Handler func(ctx context.Context) (bool, error)

// Subscription identifies one registered handler for removal. Go functions
// are not comparable, so AddEventListener hands out a token instead of
// matching on handler identity.
type Subscription int64

type key struct {
	modalID int64
	typ     Type
}

type entry struct {
	sub     Subscription
	handler Handler
}

// Registry holds listeners keyed by (modal id, event type).
type Registry struct {
	mu      sync.Mutex
	nextSub Subscription
	entries map[key][]entry
	log     zerolog.Logger
}

func NewRegistry(log zerolog.Logger) *Registry {
	return &Registry{entries: make(map[key][]entry), log: log}
}

// AddEventListener registers a handler and returns its removal token.
func (r *Registry) AddEventListener(modalID int64, typ Type, h Handler) Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextSub++
	k := key{modalID: modalID, typ: typ}
	r.entries[k] = append(r.entries[k], entry{sub: r.nextSub, handler: h})
	return r.nextSub
}

// RemoveEventListener unregisters a previously added handler. Unknown
// tokens are ignored.
func (r *Registry) RemoveEventListener(modalID int64, typ Type, sub Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key{modalID: modalID, typ: typ}
	list := r.entries[k]
	for i, e := range list {
		if e.sub == sub {
			r.entries[k] = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(r.entries[k]) == 0 {
		delete(r.entries, k)
	}
}

// Drop removes every listener for a modal. Called after the instance has
// been popped so tokens from closed modals do not accumulate.
func (r *Registry) Drop(modalID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k := range r.entries {
		if k.modalID == modalID {
			delete(r.entries, k)
		}
	}
}

// Emit runs all handlers for (modalID, typ) strictly sequentially, awaiting
// each, so later handlers observe earlier side effects. For BeforeClose a
// false return short-circuits and Emit reports false; the caller must not
// proceed with the close. A handler that fails or panics is logged and
// treated as a non-cancelling true so one broken handler cannot wedge the
// close flow.
func (r *Registry) Emit(ctx context.Context, modalID int64, typ Type) bool {
	r.mu.Lock()
	list := r.entries[key{modalID: modalID, typ: typ}]
	handlers := make([]Handler, len(list))
	for i, e := range list {
		handlers[i] = e.handler
	}
	r.mu.Unlock()

	for _, h := range handlers {
		proceed, err := r.invoke(ctx, h)
		if err != nil {
			r.log.Error().Err(err).Int64("modal_id", modalID).Str("event", string(typ)).
				Msg("event handler failed")
			continue
		}
		if typ == BeforeClose && !proceed {
			return false
		}
	}
	return true
}

func (r *Registry) invoke(ctx context.Context, h Handler) (proceed bool, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			proceed, err = true, fmt.Errorf("handler panic: %v", rec)
		}
	}()
	return h(ctx)
}
