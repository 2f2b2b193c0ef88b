// Package link is the click/hover/mount entry point for opening modals.
// A controller per trigger element decides between an instant cache-hit
// open and a loading visit, and drives the three prefetch triggers.
package link

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"modalnav/internal/engine"
)

// DefaultHoverDelay is the debounce before a hover starts a prefetch;
// leaving the element within the window cancels it.
const DefaultHoverDelay = 75 * time.Millisecond

// Modifiers mirrors the modifier keys held during a click. Any held
// modifier means the user wants browser-native behavior (new tab and the
// like), so the controller stays out of the way.
type Modifiers struct {
	Ctrl  bool
	Shift bool
	Alt   bool
	Meta  bool
}

func (m Modifiers) any() bool { return m.Ctrl || m.Shift || m.Alt || m.Meta }

// Config customizes one controller.
type Config struct {
	// Method of the eventual request; prefetch triggers only arm for GET,
	// since prefetching a mutating request is unsafe.
	Method string
	// HoverDelay overrides DefaultHoverDelay.
	HoverDelay time.Duration
	// Open carries the per-modal onClose binding and loading override.
	Open engine.OpenOptions
}

// Controller is the state machine for a single modal link.
type Controller struct {
	engine *engine.Engine
	href   string
	method string
	delay  time.Duration
	open   engine.OpenOptions
	log    zerolog.Logger

	mu         sync.Mutex
	hoverTimer *time.Timer
}

func New(e *engine.Engine, href string, cfg Config, log zerolog.Logger) *Controller {
	method := cfg.Method
	if method == "" {
		method = http.MethodGet
	}
	delay := cfg.HoverDelay
	if delay <= 0 {
		delay = DefaultHoverDelay
	}
	return &Controller{
		engine: e,
		href:   href,
		method: method,
		delay:  delay,
		open:   cfg.Open,
		log:    log,
	}
}

// Click activates the link. It reports false when the click should fall
// through to the browser (modifier keys held); everything else is handled
// here, including the already-open no-op.
func (c *Controller) Click(ctx context.Context, mod Modifiers) bool {
	if mod.any() {
		return false
	}
	c.CancelHover()

	// Secondary duplicate guard: short-circuit before any fetch; the stack
	// store's push guard backs this up.
	if _, open := c.engine.GetByURL(c.href); open {
		return true
	}

	returnURL := c.engine.Location()
	if entry, hit := c.engine.GetPrefetchedModal(c.href); hit {
		c.engine.OpenFromEntry(entry, returnURL, c.open)
		return true
	}
	if _, err := c.engine.OpenLoading(ctx, c.href, returnURL, c.open); err != nil {
		// Degraded to "no modal shown"; the URL was released for retry.
		c.log.Debug().Err(err).Str("url", c.href).Msg("modal open failed")
	}
	return true
}

// Mount prefetches as soon as the trigger appears, for links whose use is
// near-certain.
func (c *Controller) Mount(ctx context.Context) {
	c.prefetch(ctx)
}

// HoverStart arms the debounced hover prefetch.
func (c *Controller) HoverStart(ctx context.Context) {
	if !c.prefetchable() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hoverTimer != nil {
		c.hoverTimer.Stop()
	}
	c.hoverTimer = time.AfterFunc(c.delay, func() {
		c.prefetch(ctx)
	})
}

// CancelHover stops a pending hover prefetch; called on mouse-leave.
func (c *Controller) CancelHover() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hoverTimer != nil {
		c.hoverTimer.Stop()
		c.hoverTimer = nil
	}
}

// PointerDown prefetches immediately; the click is a breath away.
func (c *Controller) PointerDown(ctx context.Context) {
	c.prefetch(ctx)
}

func (c *Controller) prefetchable() bool { return c.method == http.MethodGet }

func (c *Controller) prefetch(ctx context.Context) {
	if !c.prefetchable() {
		return
	}
	if err := c.engine.Prefetch(ctx, c.href); err != nil {
		c.log.Debug().Err(err).Str("url", c.href).Msg("prefetch failed")
	}
}
