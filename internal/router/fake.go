package router

import (
	"context"
	"sync"

	"modalnav/pkg/types"
)

// Fake is a scripted Router for tests: visits and prefetches resolve from
// a URL-keyed page table and every hook fires synchronously, so tests can
// count network activity and drive lifecycle signals by hand.
type Fake struct {
	mu       sync.Mutex
	pages    map[string]types.Page
	fail     map[string]error
	page     types.Page
	location string

	visits     []string
	prefetches []string

	onStart         []func(string)
	onFinish        []func(string)
	onNavigate      []func(types.Page)
	onPrefetched    []func(types.Page)
	onModalRedirect []func(string)
}

func NewFake() *Fake {
	return &Fake{pages: make(map[string]types.Page), fail: make(map[string]error)}
}

// Script registers the page a visit or prefetch of url resolves to,
// superseding any failure scripted for the same url.
func (f *Fake) Script(url string, page types.Page) {
	f.mu.Lock()
	f.pages[url] = page
	delete(f.fail, url)
	f.mu.Unlock()
}

// FailWith makes any visit or prefetch of url return err.
func (f *Fake) FailWith(url string, err error) {
	f.mu.Lock()
	f.fail[url] = err
	f.mu.Unlock()
}

// SetPage seeds the current page without firing hooks.
func (f *Fake) SetPage(page types.Page) {
	f.mu.Lock()
	f.page = page
	f.location = page.URL
	f.mu.Unlock()
}

func (f *Fake) Page() types.Page {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.page
}

func (f *Fake) Location() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.location
}

// Visits returns the URLs visited so far.
func (f *Fake) Visits() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.visits...)
}

// Prefetches returns the URLs prefetched so far.
func (f *Fake) Prefetches() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.prefetches...)
}

func (f *Fake) Visit(ctx context.Context, url string, opts VisitOptions) error {
	f.mu.Lock()
	f.visits = append(f.visits, url)
	err := f.fail[url]
	page, ok := f.pages[url]
	starts := append([]func(string){}, f.onStart...)
	finishes := append([]func(string){}, f.onFinish...)
	navigates := append([]func(types.Page){}, f.onNavigate...)
	f.mu.Unlock()

	for _, fn := range starts {
		fn(url)
	}
	defer func() {
		for _, fn := range finishes {
			fn(url)
		}
	}()
	if err != nil {
		return err
	}
	if !ok {
		return ErrBadResponse(url, 404)
	}
	f.mu.Lock()
	f.page = page
	f.location = page.URL
	f.mu.Unlock()
	for _, fn := range navigates {
		fn(page)
	}
	return nil
}

func (f *Fake) Prefetch(ctx context.Context, url string) (types.Page, error) {
	f.mu.Lock()
	f.prefetches = append(f.prefetches, url)
	err := f.fail[url]
	page, ok := f.pages[url]
	prefetched := append([]func(types.Page){}, f.onPrefetched...)
	f.mu.Unlock()

	if err != nil {
		return types.Page{}, err
	}
	if !ok {
		return types.Page{}, ErrBadResponse(url, 404)
	}
	for _, fn := range prefetched {
		fn(page)
	}
	return page, nil
}

// FireNavigate simulates a router-driven navigation committing page, the
// way a popstate or server push would.
func (f *Fake) FireNavigate(page types.Page) {
	f.mu.Lock()
	f.page = page
	f.location = page.URL
	navigates := append([]func(types.Page){}, f.onNavigate...)
	f.mu.Unlock()
	for _, fn := range navigates {
		fn(page)
	}
}

// FireModalRedirect simulates a close-then-follow redirect response.
func (f *Fake) FireModalRedirect(location string) {
	f.mu.Lock()
	hooks := append([]func(string){}, f.onModalRedirect...)
	f.mu.Unlock()
	for _, fn := range hooks {
		fn(location)
	}
}

func (f *Fake) OnStart(fn func(string))          { f.mu.Lock(); f.onStart = append(f.onStart, fn); f.mu.Unlock() }
func (f *Fake) OnFinish(fn func(string))         { f.mu.Lock(); f.onFinish = append(f.onFinish, fn); f.mu.Unlock() }
func (f *Fake) OnNavigate(fn func(types.Page))   { f.mu.Lock(); f.onNavigate = append(f.onNavigate, fn); f.mu.Unlock() }
func (f *Fake) OnPrefetched(fn func(types.Page)) { f.mu.Lock(); f.onPrefetched = append(f.onPrefetched, fn); f.mu.Unlock() }
func (f *Fake) OnModalRedirect(fn func(string))  { f.mu.Lock(); f.onModalRedirect = append(f.onModalRedirect, fn); f.mu.Unlock() }
