// Package router defines the boundary to the host single-page-app
// navigation library the modal engine layers on top of, plus a reference
// HTTP implementation and a scripted fake for tests.
package router

import (
	"context"

	"modalnav/pkg/types"
)

// VisitOptions controls a single router visit.
type VisitOptions struct {
	// Method defaults to GET.
	Method string
	// Modal asks the server to render the target as a modal payload.
	Modal bool
	// Only limits the response to the named props of the current
	// component (partial reload).
	Only []string
}

// Router is the host-router surface the engine consumes. Implementations
// fire start/finish around every visit, navigate after the new page
// committed, prefetched after a prefetch response resolved, and
// modal-redirect when a redirect response carries the close-then-follow
// marker.
type Router interface {
	Visit(ctx context.Context, url string, opts VisitOptions) error
	// Prefetch fetches url speculatively without committing it as the
	// current page; it returns the decoded payload and fires the
	// prefetched hooks.
	Prefetch(ctx context.Context, url string) (types.Page, error)
	// Page returns the page currently committed.
	Page() types.Page
	// Location returns the URL the router currently tracks.
	Location() string

	OnStart(fn func(url string))
	OnFinish(fn func(url string))
	OnNavigate(fn func(page types.Page))
	OnPrefetched(fn func(page types.Page))
	OnModalRedirect(fn func(location string))
}

// History abstracts the browser address bar. The navigation bridge writes
// through it; implementations must be safe for concurrent use.
type History interface {
	Push(url string)
	Replace(url string)
	Location() string
}
