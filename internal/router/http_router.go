package router

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"modalnav/pkg/types"
)

// maxRedirectHops bounds the close-then-follow redirect chain.
const maxRedirectHops = 5

// HTTPRouter is the reference host router: it exchanges types.Page
// envelopes with the server over HTTP and fires the lifecycle hooks the
// engine subscribes to. The response interceptor is expected to be
// installed on the client's transport.
type HTTPRouter struct {
	mu       sync.Mutex
	client   *http.Client
	origin   string
	page     types.Page
	location string
	version  string

	onStart         []func(string)
	onFinish        []func(string)
	onNavigate      []func(types.Page)
	onPrefetched    []func(types.Page)
	onModalRedirect []func(string)

	log zerolog.Logger
}

// NewHTTPRouter builds a router against origin (scheme://host). The client
// is configured to surface redirect responses instead of following them;
// the router itself decides how a redirect is followed.
func NewHTTPRouter(client *http.Client, origin string, log zerolog.Logger) *HTTPRouter {
	if client == nil {
		client = &http.Client{}
	}
	client.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return &HTTPRouter{client: client, origin: origin, log: log}
}

// SetPage seeds the initial page, the way a browser boots from the page
// object embedded in the first full-page render.
func (r *HTTPRouter) SetPage(page types.Page) {
	r.mu.Lock()
	r.page = page
	r.location = page.URL
	r.version = page.Version
	r.mu.Unlock()
}

func (r *HTTPRouter) Page() types.Page {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.page
}

func (r *HTTPRouter) Location() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.location
}

func (r *HTTPRouter) OnStart(fn func(string))            { r.mu.Lock(); r.onStart = append(r.onStart, fn); r.mu.Unlock() }
func (r *HTTPRouter) OnFinish(fn func(string))           { r.mu.Lock(); r.onFinish = append(r.onFinish, fn); r.mu.Unlock() }
func (r *HTTPRouter) OnNavigate(fn func(types.Page))     { r.mu.Lock(); r.onNavigate = append(r.onNavigate, fn); r.mu.Unlock() }
func (r *HTTPRouter) OnPrefetched(fn func(types.Page))   { r.mu.Lock(); r.onPrefetched = append(r.onPrefetched, fn); r.mu.Unlock() }
func (r *HTTPRouter) OnModalRedirect(fn func(string))    { r.mu.Lock(); r.onModalRedirect = append(r.onModalRedirect, fn); r.mu.Unlock() }

// Visit performs a navigation and commits the resulting page. Hooks fire in
// order: start, then (after the response) either navigate or a follow-up
// visit for redirects, then finish.
func (r *HTTPRouter) Visit(ctx context.Context, target string, opts VisitOptions) error {
	return r.visit(ctx, target, opts, 0)
}

func (r *HTTPRouter) visit(ctx context.Context, target string, opts VisitOptions, hop int) error {
	if hop > maxRedirectHops {
		return ErrTooManyRedirects(target)
	}
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	for _, fn := range r.hooksStart() {
		fn(target)
	}
	finished := false
	finish := func() {
		if finished {
			return
		}
		finished = true
		for _, fn := range r.hooksFinish() {
			fn(target)
		}
	}
	defer finish()

	resp, err := r.do(ctx, method, target, opts.Modal, opts.Only)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 && resp.StatusCode < 400 {
		loc := r.relative(resp.Header.Get("Location"))
		if loc == "" {
			return ErrBadResponse(target, resp.StatusCode)
		}
		io.Copy(io.Discard, resp.Body)
		if resp.Header.Get(types.HeaderModalRedirect) == "true" {
			// Close the modal, then follow the redirect rather than
			// opening a new modal at the target.
			for _, fn := range r.hooksModalRedirect() {
				fn(loc)
			}
		}
		finish()
		return r.visit(ctx, loc, VisitOptions{}, hop+1)
	}
	if resp.StatusCode != http.StatusOK {
		return ErrBadResponse(target, resp.StatusCode)
	}

	var page types.Page
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return err
	}
	r.mu.Lock()
	r.page = page
	r.location = page.URL
	if page.Version != "" {
		r.version = page.Version
	}
	r.mu.Unlock()

	r.log.Debug().Str("url", page.URL).Str("component", page.Component).Msg("router navigate")
	for _, fn := range r.hooksNavigate() {
		fn(page)
	}
	return nil
}

// Prefetch fetches target speculatively without committing it as the
// current page, then fires the prefetched hooks with the decoded payload.
func (r *HTTPRouter) Prefetch(ctx context.Context, target string) (types.Page, error) {
	resp, err := r.do(ctx, http.MethodGet, target, true, nil)
	if err != nil {
		return types.Page{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return types.Page{}, ErrBadResponse(target, resp.StatusCode)
	}
	var page types.Page
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return types.Page{}, err
	}
	for _, fn := range r.hooksPrefetched() {
		fn(page)
	}
	return page, nil
}

func (r *HTTPRouter) do(ctx context.Context, method, target string, modal bool, only []string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, r.origin+target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set(types.HeaderInertia, "true")
	r.mu.Lock()
	if r.version != "" {
		req.Header.Set(types.HeaderInertiaVersion, r.version)
	}
	component := r.page.Component
	r.mu.Unlock()
	if modal {
		req.Header.Set(types.HeaderModalRequest, "true")
	}
	if len(only) > 0 && component != "" {
		req.Header.Set(types.HeaderInertiaPartialComponent, component)
		req.Header.Set(types.HeaderInertiaPartialData, strings.Join(only, ","))
	}
	return r.client.Do(req)
}

// relative reduces an absolute Location header to a path+query the router
// can re-visit.
func (r *HTTPRouter) relative(loc string) string {
	if loc == "" {
		return ""
	}
	u, err := url.Parse(loc)
	if err != nil {
		return ""
	}
	out := u.Path
	if u.RawQuery != "" {
		out += "?" + u.RawQuery
	}
	return out
}

func (r *HTTPRouter) hooksStart() []func(string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]func(string){}, r.onStart...)
}

func (r *HTTPRouter) hooksFinish() []func(string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]func(string){}, r.onFinish...)
}

func (r *HTTPRouter) hooksNavigate() []func(types.Page) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]func(types.Page){}, r.onNavigate...)
}

func (r *HTTPRouter) hooksPrefetched() []func(types.Page) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]func(types.Page){}, r.onPrefetched...)
}

func (r *HTTPRouter) hooksModalRedirect() []func(string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]func(string){}, r.onModalRedirect...)
}
