// Package engine is the top-level provider of the modal navigation core.
// It owns the stack store and the prefetch cache as private state and
// exposes only their public operation set; every other component mutates
// shared state through it.
package engine

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"modalnav/internal/bridge"
	"modalnav/internal/components"
	"modalnav/internal/events"
	"modalnav/internal/prefetch"
	"modalnav/internal/router"
	"modalnav/internal/stack"
	"modalnav/pkg/types"
)

// Options tune engine construction; zero values fall back to defaults.
type Options struct {
	// CacheTTL bounds prefetch entry lifetime; prefetch.DefaultTTL if zero.
	CacheTTL time.Duration
	// Clock is the cache time source; time.Now if nil.
	Clock func() time.Time
	// Publisher receives engine lifecycle events; dropped if nil.
	Publisher EventPublisher
}

// OpenOptions customize a modal opened through the engine.
type OpenOptions struct {
	// OnClose runs exactly once after the instance leaves the stack.
	OnClose func()
	// LoadingComponent overrides the placeholder UI while loading.
	LoadingComponent components.Component
}

// Engine wires the stack, cache, event registry and navigation bridge to a
// host router.
type Engine struct {
	store     *stack.Store
	cache     *prefetch.Cache
	registry  *events.Registry
	bridge    *bridge.Bridge
	router    router.Router
	history   router.History
	resolver  components.Resolver
	publisher EventPublisher
	log       zerolog.Logger
}

// New builds the engine and attaches it to the host router's lifecycle
// signals.
func New(r router.Router, history router.History, resolver components.Resolver, log zerolog.Logger, opts Options) *Engine {
	pub := opts.Publisher
	if pub == nil {
		pub = noopPublisher{}
	}
	store := stack.New(log)
	store.SetObserver(func(snap []stack.Instance) {
		stackDepth.Set(float64(len(snap)))
	})

	cacheOpts := []prefetch.Option{}
	if opts.CacheTTL > 0 {
		cacheOpts = append(cacheOpts, prefetch.WithTTL(opts.CacheTTL))
	}
	if opts.Clock != nil {
		cacheOpts = append(cacheOpts, prefetch.WithClock(opts.Clock))
	}
	fetch := func(ctx context.Context, url string) (types.Page, error) {
		return r.Prefetch(ctx, url)
	}
	cache := prefetch.New(resolver, fetch, log, cacheOpts...)

	e := &Engine{
		store:     store,
		cache:     cache,
		registry:  events.NewRegistry(log),
		bridge:    bridge.New(history, log),
		router:    r,
		history:   history,
		resolver:  resolver,
		publisher: pub,
		log:       log,
	}
	e.bridge.Attach(r, bridge.Callbacks{
		OpenModal:  e.openFromNavigate,
		ClearStack: e.clearOnNavigateAway,
	})
	// Passive cache ingestion from the router's own prefetch signal.
	r.OnPrefetched(func(page types.Page) {
		cache.Ingest(context.Background(), page)
	})
	// A redirect response marked close-then-follow closes the focused
	// modal with success semantics before the router follows it.
	r.OnModalRedirect(func(string) {
		if top, ok := store.Top(); ok {
			e.closeWith(context.Background(), top.ID, events.Success, "redirect")
		}
	})
	return e
}

// SetStackObserver registers the UI-facing stack observer, layered over the
// engine's own metrics observer.
func (e *Engine) SetStackObserver(fn func([]stack.Instance)) {
	e.store.SetObserver(func(snap []stack.Instance) {
		stackDepth.Set(float64(len(snap)))
		if fn != nil {
			fn(snap)
		}
	})
}

// Push adds a modal directly. Returns 0 when an instance with the same URL
// is already open.
func (e *Engine) Push(d stack.Data) int64 {
	d.Config = types.MergeConfig(types.DefaultConfig(), d.Config)
	id := e.store.Push(d)
	if id != 0 {
		opensTotal.WithLabelValues("direct").Inc()
		e.publisher.Publish(Event{Name: "modal_open", URL: d.URL, Fields: map[string]any{"source": "direct", "id": id}})
	}
	return id
}

// Pop removes a modal without lifecycle events; its onClose still runs and
// the pre-modal URL is restored. Close is the event-aware path.
func (e *Engine) Pop(id int64) {
	inst, ok := e.store.Get(id)
	if !ok {
		return
	}
	e.store.Pop(id)
	e.registry.Drop(id)
	e.bridge.ModalClosed(inst.URL, inst.ReturnURL, inst.BaseURL)
}

// Update performs a partial merge on an open instance.
func (e *Engine) Update(id int64, u stack.Update) bool {
	return e.store.Update(id, u)
}

// Get returns a copy of the instance.
func (e *Engine) Get(id int64) (stack.Instance, bool) { return e.store.Get(id) }

// GetByURL returns a copy of the instance holding url.
func (e *Engine) GetByURL(url string) (stack.Instance, bool) { return e.store.GetByURL(url) }

// Top returns the focused modal.
func (e *Engine) Top() (stack.Instance, bool) { return e.store.Top() }

// Len reports the number of open or loading modals.
func (e *Engine) Len() int { return e.store.Len() }

// Snapshot returns the stack in z-order.
func (e *Engine) Snapshot() []stack.Instance { return e.store.Snapshot() }

// Clear removes all instances without onClose callbacks and drops their
// listeners; used when the backdrop itself is gone.
func (e *Engine) Clear() {
	for _, inst := range e.store.Snapshot() {
		e.registry.Drop(inst.ID)
	}
	e.store.Clear()
	e.bridge.Reset()
	e.publisher.Publish(Event{Name: "stack_clear"})
}

// AddEventListener registers a lifecycle handler for a modal.
func (e *Engine) AddEventListener(id int64, typ events.Type, h events.Handler) events.Subscription {
	return e.registry.AddEventListener(id, typ, h)
}

// RemoveEventListener unregisters a lifecycle handler.
func (e *Engine) RemoveEventListener(id int64, typ events.Type, sub events.Subscription) {
	e.registry.RemoveEventListener(id, typ, sub)
}

// Emit runs the handlers for (id, typ); false means a beforeClose handler
// canceled.
func (e *Engine) Emit(ctx context.Context, id int64, typ events.Type) bool {
	return e.registry.Emit(ctx, id, typ)
}

// Close runs the close sequence for a modal: beforeClose is emitted and
// checked first; only if it allows proceeding is the close event emitted,
// the instance popped, and the pre-modal URL restored. Reports whether the
// modal actually closed.
func (e *Engine) Close(ctx context.Context, id int64) bool {
	return e.closeWith(ctx, id, events.Close, "close")
}

// CloseWithSuccess is Close with the success terminal event, used after a
// modal's purpose completed (form submission and the like).
func (e *Engine) CloseWithSuccess(ctx context.Context, id int64) bool {
	return e.closeWith(ctx, id, events.Success, "success")
}

// CloseTop closes the focused modal; ESC, backdrop clicks and the browser
// back button all converge here.
func (e *Engine) CloseTop(ctx context.Context) bool {
	top, ok := e.store.Top()
	if !ok {
		return false
	}
	return e.closeWith(ctx, top.ID, events.Close, "close")
}

func (e *Engine) closeWith(ctx context.Context, id int64, terminal events.Type, reason string) bool {
	inst, ok := e.store.Get(id)
	if !ok {
		return false
	}
	if !e.registry.Emit(ctx, id, events.BeforeClose) {
		closeCanceledTotal.Inc()
		e.publisher.Publish(Event{Name: "modal_close_canceled", URL: inst.URL, Fields: map[string]any{"id": id}})
		return false
	}
	e.registry.Emit(ctx, id, terminal)
	e.store.Pop(id)
	e.registry.Drop(id)
	e.bridge.ModalClosed(inst.URL, inst.ReturnURL, inst.BaseURL)
	closesTotal.WithLabelValues(reason).Inc()
	e.publisher.Publish(Event{Name: "modal_close", URL: inst.URL, Fields: map[string]any{"id": id, "reason": reason}})
	return true
}

// Prefetch warms the cache for url.
func (e *Engine) Prefetch(ctx context.Context, url string) error {
	err := e.cache.Prefetch(ctx, url)
	switch {
	case err == nil:
		prefetchTotal.WithLabelValues("ok").Inc()
	case prefetch.IsNotModalPage(err):
		prefetchTotal.WithLabelValues("not_modal").Inc()
	default:
		prefetchTotal.WithLabelValues("error").Inc()
	}
	return err
}

// GetPrefetchedModal returns the live cache entry for url.
func (e *Engine) GetPrefetchedModal(url string) (prefetch.Entry, bool) {
	return e.cache.Get(url)
}

// OpenFromEntry opens a fully-resolved modal from a cache entry: no loading
// flash, no network, and the address bar is written directly.
func (e *Engine) OpenFromEntry(entry prefetch.Entry, returnURL string, opts OpenOptions) int64 {
	id := e.store.Push(stack.Data{
		Component:     entry.Component,
		ComponentName: entry.Data.Component,
		Props:         entry.Data.Props,
		URL:           entry.Data.URL,
		BaseURL:       entry.Data.BaseURL,
		ReturnURL:     returnURL,
		Config:        types.MergeConfig(types.DefaultConfig(), entry.Data.Config),
		OnClose:       opts.OnClose,
	})
	if id == 0 {
		return 0
	}
	e.bridge.ModalOpened(entry.Data.URL)
	opensTotal.WithLabelValues("cache").Inc()
	e.publisher.Publish(Event{Name: "modal_open", URL: entry.Data.URL, Fields: map[string]any{"source": "cache", "id": id}})
	return id
}

// OpenLoading pushes a loading placeholder and asks the router to visit
// url; the navigate signal upgrades the placeholder in place. On a failed
// visit the placeholder is abandoned and the URL released for retry.
func (e *Engine) OpenLoading(ctx context.Context, url, returnURL string, opts OpenOptions) (int64, error) {
	id := e.store.Push(stack.Data{
		URL:              url,
		ReturnURL:        returnURL,
		Config:           types.DefaultConfig(),
		Loading:          true,
		LoadingComponent: opts.LoadingComponent,
		OnClose:          opts.OnClose,
	})
	if id == 0 {
		return 0, nil
	}
	opensTotal.WithLabelValues("network").Inc()
	e.publisher.Publish(Event{Name: "modal_open", URL: url, Fields: map[string]any{"source": "network", "id": id, "loading": true}})

	if err := e.router.Visit(ctx, url, router.VisitOptions{Modal: true}); err != nil {
		e.abandon(id, url, err)
		return 0, err
	}
	return id, nil
}

// abandon removes a loading placeholder that will never resolve and frees
// its URL so a retry can start clean.
func (e *Engine) abandon(id int64, url string, cause error) {
	e.log.Error().Err(cause).Str("url", url).Msg("abandoning loading modal")
	e.store.Pop(id)
	e.registry.Drop(id)
	e.bridge.Release(url)
	e.publisher.Publish(Event{Name: "modal_abandon", URL: url, Fields: map[string]any{"id": id}})
}

// openFromNavigate handles a modal payload committed by the host router:
// it upgrades a matching loading placeholder in place, refreshes an already
// open instance, or opens a fresh ready modal.
func (e *Engine) openFromNavigate(data types.ModalData, page types.Page, returnURL string) {
	cfg := types.MergeConfig(types.DefaultConfig(), data.Config)

	if existing, ok := e.store.GetByURL(data.URL); ok {
		if !existing.Loading {
			// Same modal re-rendered: refresh props and config only.
			e.store.Update(existing.ID, stack.Update{Props: data.Props, Config: &cfg, BaseURL: data.BaseURL})
			return
		}
		comp, err := e.resolver.Resolve(context.Background(), data.Component)
		if err != nil {
			e.log.Error().Err(err).Str("component", data.Component).Msg("component resolution failed")
			e.abandon(existing.ID, data.URL, err)
			return
		}
		// The user may have closed the placeholder mid-flight; discard the
		// resolved result if it is gone or already upgraded.
		cur, ok := e.store.Get(existing.ID)
		if !ok || !cur.Loading {
			return
		}
		ready := false
		e.store.Update(existing.ID, stack.Update{
			Component:     comp,
			ComponentName: data.Component,
			Props:         data.Props,
			BaseURL:       data.BaseURL,
			Config:        &cfg,
			Loading:       &ready,
		})
		e.publisher.Publish(Event{Name: "modal_upgrade", URL: data.URL, Fields: map[string]any{"id": existing.ID}})
		return
	}

	comp, err := e.resolver.Resolve(context.Background(), data.Component)
	if err != nil {
		e.log.Error().Err(err).Str("component", data.Component).Msg("component resolution failed")
		e.bridge.Release(data.URL)
		return
	}
	id := e.store.Push(stack.Data{
		Component:     comp,
		ComponentName: data.Component,
		Props:         data.Props,
		URL:           data.URL,
		BaseURL:       data.BaseURL,
		ReturnURL:     returnURL,
		Config:        cfg,
	})
	if id == 0 {
		return
	}
	opensTotal.WithLabelValues("navigation").Inc()
	e.publisher.Publish(Event{Name: "modal_open", URL: data.URL, Fields: map[string]any{"source": "navigation", "id": id}})
}

func (e *Engine) clearOnNavigateAway() {
	if e.store.Len() == 0 {
		return
	}
	e.log.Debug().Msg("non-modal navigation, clearing stack")
	e.Clear()
}

// Location returns the current address bar value.
func (e *Engine) Location() string { return e.history.Location() }

// Status reports engine state for the HTTP status endpoint.
func (e *Engine) Status() types.StatusResponse {
	return types.StatusResponse{
		OpenModals:   e.store.Len(),
		CurrentURL:   e.history.Location(),
		CacheEntries: e.cache.Len(),
	}
}
