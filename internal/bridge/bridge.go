// Package bridge keeps the modal stack and the browser history consistent:
// it pushes a history entry when a modal opens in-document, restores the
// pre-modal URL on close, and reacts to the host router's navigation
// lifecycle so bridge-driven URL writes never race a real navigation.
package bridge

import (
	"sync"

	"github.com/rs/zerolog"

	"modalnav/internal/router"
	"modalnav/pkg/types"
)

// Callbacks are the engine entry points the bridge drives on router
// navigations.
type Callbacks struct {
	// OpenModal opens (or updates to) the modal a navigated page carries.
	// returnURL is the exact URL the user was on before the navigation,
	// for restoring on close.
	OpenModal func(data types.ModalData, page types.Page, returnURL string)
	// ClearStack removes every open modal without close callbacks; the
	// backdrop itself is gone.
	ClearStack func()
}

// Bridge synchronizes the stack with browser history.
type Bridge struct {
	mu         sync.Mutex
	history    router.History
	navigating bool
	// URLs whose modal payload has already been turned into a stack
	// instance; prevents re-opening the same modal on repeated navigate
	// signals.
	handled map[string]struct{}
	cb      Callbacks
	log     zerolog.Logger
}

func New(history router.History, log zerolog.Logger) *Bridge {
	return &Bridge{history: history, handled: make(map[string]struct{}), log: log}
}

// Attach subscribes the bridge to the host router's lifecycle signals.
func (b *Bridge) Attach(r router.Router, cb Callbacks) {
	b.mu.Lock()
	b.cb = cb
	b.mu.Unlock()
	r.OnStart(b.handleStart)
	r.OnFinish(b.handleFinish)
	r.OnNavigate(b.HandleNavigate)
}

func (b *Bridge) handleStart(string) {
	b.mu.Lock()
	b.navigating = true
	b.mu.Unlock()
}

func (b *Bridge) handleFinish(string) {
	b.mu.Lock()
	b.navigating = false
	b.mu.Unlock()
}

// Navigating reports whether a real router navigation is in flight;
// bridge-driven URL writes are suppressed while it is.
func (b *Bridge) Navigating() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.navigating
}

// HandleNavigate inspects a committed page for the modal marker. Without
// one the whole stack is cleared and URL tracking reset; with one the
// modal opens unless it is already tracked.
func (b *Bridge) HandleNavigate(page types.Page) {
	b.mu.Lock()
	cb := b.cb
	b.mu.Unlock()

	// Keep the address bar in step with what the router committed; the
	// previous location is the modal's return URL.
	returnURL := b.history.Location()
	if returnURL != page.URL {
		b.history.Push(page.URL)
	}

	data, ok := page.Modal()
	if !ok {
		b.mu.Lock()
		b.handled = make(map[string]struct{})
		b.mu.Unlock()
		if cb.ClearStack != nil {
			cb.ClearStack()
		}
		return
	}

	b.mu.Lock()
	if _, seen := b.handled[data.URL]; seen {
		b.mu.Unlock()
		return
	}
	b.handled[data.URL] = struct{}{}
	b.mu.Unlock()

	b.log.Debug().Str("url", data.URL).Str("component", data.Component).Msg("bridge open from navigate")
	if cb.OpenModal != nil {
		cb.OpenModal(data, page, returnURL)
	}
}

// ModalOpened records a modal open that did not come through a router
// navigation (cache hit or direct push) and writes its URL as a new
// history entry, unless a real navigation is in flight.
func (b *Bridge) ModalOpened(modalURL string) {
	b.mu.Lock()
	b.handled[modalURL] = struct{}{}
	navigating := b.navigating
	b.mu.Unlock()
	if navigating {
		return
	}
	if b.history.Location() != modalURL {
		b.history.Push(modalURL)
	}
}

// ModalClosed restores the pre-modal URL via history replacement, so the
// back-button stack gains no redundant entry. The write is skipped when a
// navigation is in flight or the browser has already moved elsewhere.
func (b *Bridge) ModalClosed(modalURL, returnURL, baseURL string) {
	b.mu.Lock()
	delete(b.handled, modalURL)
	navigating := b.navigating
	b.mu.Unlock()
	if navigating {
		return
	}
	if b.history.Location() != modalURL {
		return
	}
	target := returnURL
	if target == "" {
		target = baseURL
	}
	if target == "" {
		return
	}
	b.history.Replace(target)
}

// Reset forgets every tracked URL; used when the stack is cleared wholesale
// outside a navigation.
func (b *Bridge) Reset() {
	b.mu.Lock()
	b.handled = make(map[string]struct{})
	b.mu.Unlock()
}

// Release forgets a tracked URL so a failed open can be retried.
func (b *Bridge) Release(url string) {
	b.mu.Lock()
	delete(b.handled, url)
	b.mu.Unlock()
}

// Handled reports whether the modal at url is already tracked.
func (b *Bridge) Handled(url string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.handled[url]
	return ok
}
