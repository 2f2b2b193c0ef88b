package engine

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"modalnav/internal/components"
	"modalnav/internal/events"
	"modalnav/internal/prefetch"
	"modalnav/internal/router"
	"modalnav/pkg/types"
)

type fixture struct {
	engine  *Engine
	router  *router.Fake
	history *router.MemoryHistory
	pub     *MemoryPublisher
}

func newFixture(t *testing.T, initialURL string) *fixture {
	t.Helper()
	reg := components.NewRegistry()
	reg.Register("Users/Show", func() components.Component { return "users-show-view" })
	reg.Register("Users/Edit", func() components.Component { return "users-edit-view" })
	fake := router.NewFake()
	hist := router.NewMemoryHistory(initialURL)
	pub := NewMemoryPublisher()
	e := New(fake, hist, reg, zerolog.Nop(), Options{Publisher: pub})
	return &fixture{engine: e, router: fake, history: hist, pub: pub}
}

func modalPage(component, url, baseURL string, props types.Props) types.Page {
	return types.Page{
		Component: "Backdrop",
		Props: types.Props{
			types.ModalPropsKey: types.ModalData{Component: component, Props: props, URL: url, BaseURL: baseURL},
		},
		URL: url,
	}
}

func (f *fixture) eventNames() []string {
	var names []string
	for _, ev := range f.pub.Events() {
		names = append(names, ev.Name)
	}
	return names
}

func TestOpenLoadingUpgradesInPlace(t *testing.T) {
	f := newFixture(t, "/users")
	f.router.Script("/users/2", modalPage("Users/Show", "/users/2", "/users", types.Props{"id": 2}))

	id, err := f.engine.OpenLoading(context.Background(), "/users/2", "/users", OpenOptions{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	inst, ok := f.engine.Get(id)
	if !ok {
		t.Fatalf("instance missing after open")
	}
	if inst.Loading {
		t.Fatalf("instance not upgraded after visit")
	}
	if inst.URL != "/users/2" || inst.ComponentName != "Users/Show" || inst.Component != "users-show-view" {
		t.Fatalf("upgrade wrong: %+v", inst)
	}
	if inst.ReturnURL != "/users" {
		t.Fatalf("returnUrl lost in upgrade: %q", inst.ReturnURL)
	}
	if inst.BaseURL != "/users" {
		t.Fatalf("baseUrl lost in upgrade: %q", inst.BaseURL)
	}
	if got := inst.Props["id"]; got != 2 && got != float64(2) {
		t.Fatalf("props not applied: %v", inst.Props)
	}
}

func TestOpenLoadingDuplicateIsNoop(t *testing.T) {
	f := newFixture(t, "/users")
	f.router.Script("/users/2", modalPage("Users/Show", "/users/2", "/users", nil))
	if _, err := f.engine.OpenLoading(context.Background(), "/users/2", "/users", OpenOptions{}); err != nil {
		t.Fatalf("open: %v", err)
	}
	visits := len(f.router.Visits())
	id, err := f.engine.OpenLoading(context.Background(), "/users/2", "/users", OpenOptions{})
	if err != nil || id != 0 {
		t.Fatalf("duplicate open not rejected: id=%d err=%v", id, err)
	}
	if len(f.router.Visits()) != visits {
		t.Fatalf("duplicate open hit the network")
	}
	if f.engine.Len() != 1 {
		t.Fatalf("stack grew on duplicate open")
	}
}

func TestOpenLoadingVisitFailureAbandons(t *testing.T) {
	f := newFixture(t, "/users")
	f.router.FailWith("/broken", router.ErrBadResponse("/broken", 500))
	if _, err := f.engine.OpenLoading(context.Background(), "/broken", "/users", OpenOptions{}); err == nil {
		t.Fatalf("expected visit error")
	}
	if f.engine.Len() != 0 {
		t.Fatalf("loading instance left stuck")
	}
	// URL released: a retry reaches the network again.
	f.router.Script("/broken", modalPage("Users/Show", "/broken", "/users", nil))
	id, err := f.engine.OpenLoading(context.Background(), "/broken", "/users", OpenOptions{})
	if err != nil || id == 0 {
		t.Fatalf("retry blocked: id=%d err=%v", id, err)
	}
}

func TestPopRestoresAddressBarAndReleasesURL(t *testing.T) {
	f := newFixture(t, "/users")
	f.router.Script("/users/1", modalPage("Users/Show", "/users/1", "/users", nil))
	id, _ := f.engine.OpenLoading(context.Background(), "/users/1", "/users", OpenOptions{})
	f.engine.Pop(id)
	if f.engine.Len() != 0 {
		t.Fatalf("instance not removed")
	}
	if f.history.Location() != "/users" {
		t.Fatalf("address bar not restored after pop: %q", f.history.Location())
	}
	// URL released: reopening resolves instead of sticking in loading.
	id, err := f.engine.OpenLoading(context.Background(), "/users/1", "/users", OpenOptions{})
	if err != nil || id == 0 {
		t.Fatalf("reopen blocked: id=%d err=%v", id, err)
	}
	inst, ok := f.engine.Get(id)
	if !ok || inst.Loading {
		t.Fatalf("reopened modal stuck in loading: %+v", inst)
	}
}

func TestClearResetsURLTracking(t *testing.T) {
	f := newFixture(t, "/users")
	f.router.FireNavigate(modalPage("Users/Edit", "/users/1/edit", "/users", nil))
	if f.engine.Len() != 1 {
		t.Fatalf("modal not opened")
	}
	f.engine.Clear()
	if f.engine.Len() != 0 {
		t.Fatalf("stack not cleared")
	}
	f.router.FireNavigate(modalPage("Users/Edit", "/users/1/edit", "/users", nil))
	inst, ok := f.engine.Top()
	if !ok || inst.Loading {
		t.Fatalf("modal did not reopen after clear: %+v", inst)
	}
}

func TestResolutionFailureAbandonsLoadingInstance(t *testing.T) {
	f := newFixture(t, "/users")
	f.router.Script("/mystery", modalPage("Unknown/View", "/mystery", "/users", nil))
	if _, err := f.engine.OpenLoading(context.Background(), "/mystery", "/users", OpenOptions{}); err != nil {
		t.Fatalf("visit itself should succeed: %v", err)
	}
	if f.engine.Len() != 0 {
		t.Fatalf("unresolvable modal left in stack")
	}
}

func TestCloseSequencing(t *testing.T) {
	f := newFixture(t, "/users?page=2")
	f.router.Script("/users/1", modalPage("Users/Show", "/users/1", "/users", nil))
	id, _ := f.engine.OpenLoading(context.Background(), "/users/1", "/users?page=2", OpenOptions{})

	var order []string
	f.engine.AddEventListener(id, events.BeforeClose, func(ctx context.Context) (bool, error) {
		order = append(order, "beforeClose")
		return true, nil
	})
	f.engine.AddEventListener(id, events.Close, func(ctx context.Context) (bool, error) {
		order = append(order, "close")
		if _, ok := f.engine.Get(id); !ok {
			t.Errorf("close event emitted after pop")
		}
		return true, nil
	})

	if !f.engine.Close(context.Background(), id) {
		t.Fatalf("close reported failure")
	}
	if len(order) != 2 || order[0] != "beforeClose" || order[1] != "close" {
		t.Fatalf("close events out of order: %v", order)
	}
	if f.engine.Len() != 0 {
		t.Fatalf("instance not removed")
	}
	if f.history.Location() != "/users?page=2" {
		t.Fatalf("returnUrl not restored: %q", f.history.Location())
	}
}

func TestBeforeCloseCancelKeepsInstance(t *testing.T) {
	f := newFixture(t, "/users")
	f.router.Script("/users/1", modalPage("Users/Show", "/users/1", "/users", nil))
	id, _ := f.engine.OpenLoading(context.Background(), "/users/1", "/users", OpenOptions{})

	f.engine.AddEventListener(id, events.BeforeClose, func(ctx context.Context) (bool, error) {
		return false, nil
	})
	var closed bool
	f.engine.AddEventListener(id, events.Close, func(ctx context.Context) (bool, error) {
		closed = true
		return true, nil
	})
	if f.engine.Close(context.Background(), id) {
		t.Fatalf("close should have been canceled")
	}
	if closed {
		t.Fatalf("terminal event emitted despite cancel")
	}
	inst, ok := f.engine.Get(id)
	if !ok || inst.URL != "/users/1" {
		t.Fatalf("instance changed by canceled close")
	}
}

func TestOnCloseFiresExactlyOnceAfterRemoval(t *testing.T) {
	f := newFixture(t, "/users")
	f.router.Script("/users/1", modalPage("Users/Show", "/users/1", "/users", nil))
	var calls, lenAtClose int
	id, _ := f.engine.OpenLoading(context.Background(), "/users/1", "/users", OpenOptions{
		OnClose: func() { calls++; lenAtClose = f.engine.Len() },
	})
	f.engine.Close(context.Background(), id)
	f.engine.Close(context.Background(), id)
	if calls != 1 {
		t.Fatalf("onClose fired %d times", calls)
	}
	if lenAtClose != 0 {
		t.Fatalf("onClose ran before removal committed")
	}
}

func TestNonModalNavigationClearsWithoutOnClose(t *testing.T) {
	f := newFixture(t, "/users")
	f.router.Script("/users/1", modalPage("Users/Show", "/users/1", "/users", nil))
	f.router.Script("/users/1/edit", modalPage("Users/Edit", "/users/1/edit", "/users", nil))
	var closes int
	f.engine.OpenLoading(context.Background(), "/users/1", "/users", OpenOptions{OnClose: func() { closes++ }})
	f.engine.OpenLoading(context.Background(), "/users/1/edit", "/users/1", OpenOptions{OnClose: func() { closes++ }})
	if f.engine.Len() != 2 {
		t.Fatalf("expected 2 open modals, got %d", f.engine.Len())
	}

	f.router.FireNavigate(types.Page{Component: "Posts/Index", URL: "/posts"})
	if f.engine.Len() != 0 {
		t.Fatalf("stack not cleared on non-modal navigation")
	}
	if closes != 0 {
		t.Fatalf("clear fired %d onClose callbacks", closes)
	}
}

func TestNavigateDrivenOpen(t *testing.T) {
	f := newFixture(t, "/users")
	f.router.FireNavigate(modalPage("Users/Edit", "/users/1/edit", "/users", types.Props{"id": 1}))
	inst, ok := f.engine.Top()
	if !ok {
		t.Fatalf("navigate did not open modal")
	}
	if inst.ComponentName != "Users/Edit" || inst.Loading {
		t.Fatalf("unexpected instance: %+v", inst)
	}
	if inst.ReturnURL != "/users" {
		t.Fatalf("returnUrl not captured from pre-navigation location: %q", inst.ReturnURL)
	}
	if f.history.Location() != "/users/1/edit" {
		t.Fatalf("address bar not updated: %q", f.history.Location())
	}
}

func TestModalRedirectClosesWithSuccessThenFollows(t *testing.T) {
	f := newFixture(t, "/users")
	f.router.Script("/users/1/edit", modalPage("Users/Edit", "/users/1/edit", "/users", nil))
	id, _ := f.engine.OpenLoading(context.Background(), "/users/1/edit", "/users", OpenOptions{})

	var succeeded bool
	f.engine.AddEventListener(id, events.Success, func(ctx context.Context) (bool, error) {
		succeeded = true
		return true, nil
	})
	f.router.FireModalRedirect("/users")
	if !succeeded {
		t.Fatalf("success event not emitted on modal redirect")
	}
	if f.engine.Len() != 0 {
		t.Fatalf("modal not closed on redirect")
	}
}

func TestOpenFromEntryBypassesNetwork(t *testing.T) {
	f := newFixture(t, "/users?page=2")
	entry := prefetch.Entry{
		Data:      types.ModalData{Component: "Users/Show", Props: types.Props{"id": 1}, URL: "/users/1", BaseURL: "/users"},
		Component: "users-show-view",
	}
	id := f.engine.OpenFromEntry(entry, "/users?page=2", OpenOptions{})
	if id == 0 {
		t.Fatalf("open rejected")
	}
	if len(f.router.Visits()) != 0 {
		t.Fatalf("cache-hit open issued a network visit")
	}
	inst, _ := f.engine.Get(id)
	if inst.Loading || inst.Component != "users-show-view" {
		t.Fatalf("cache-hit open not ready: %+v", inst)
	}
	if f.history.Location() != "/users/1" {
		t.Fatalf("address bar not written directly: %q", f.history.Location())
	}
}

func TestPassivePrefetchIngestion(t *testing.T) {
	f := newFixture(t, "/users")
	f.router.Script("/users/1", modalPage("Users/Show", "/users/1", "/users", types.Props{"id": 1}))
	if _, err := f.router.Prefetch(context.Background(), "/users/1"); err != nil {
		t.Fatalf("prefetch: %v", err)
	}
	entry, ok := f.engine.GetPrefetchedModal("/users/1")
	if !ok {
		t.Fatalf("prefetched page not ingested")
	}
	if entry.Data.Component != "Users/Show" || entry.Component != "users-show-view" {
		t.Fatalf("bad cache entry: %+v", entry)
	}
}

func TestNavigateRefreshesOpenModalProps(t *testing.T) {
	f := newFixture(t, "/users")
	f.router.FireNavigate(modalPage("Users/Edit", "/users/1/edit", "/users", types.Props{"v": 1}))
	first, _ := f.engine.Top()

	// Same URL committed again (e.g. validation errors re-render): props
	// refresh, identity stays.
	f.engine.bridge.Release("/users/1/edit")
	f.router.FireNavigate(modalPage("Users/Edit", "/users/1/edit", "/users", types.Props{"v": 2}))
	second, _ := f.engine.Top()
	if second.ID != first.ID {
		t.Fatalf("refresh replaced the instance")
	}
	if second.Props["v"] != 2 {
		t.Fatalf("props not refreshed: %v", second.Props)
	}
}

func TestStatusReflectsState(t *testing.T) {
	f := newFixture(t, "/users")
	f.router.FireNavigate(modalPage("Users/Edit", "/users/1/edit", "/users", nil))
	st := f.engine.Status()
	if st.OpenModals != 1 || st.CurrentURL != "/users/1/edit" {
		t.Fatalf("unexpected status: %+v", st)
	}
}

func TestLifecycleEventsPublished(t *testing.T) {
	f := newFixture(t, "/users")
	f.router.Script("/users/1", modalPage("Users/Show", "/users/1", "/users", nil))
	id, _ := f.engine.OpenLoading(context.Background(), "/users/1", "/users", OpenOptions{})
	f.engine.Close(context.Background(), id)

	names := f.eventNames()
	var sawOpen, sawUpgrade, sawClose bool
	for _, n := range names {
		switch n {
		case "modal_open":
			sawOpen = true
		case "modal_upgrade":
			sawUpgrade = true
		case "modal_close":
			sawClose = true
		}
	}
	if !sawOpen || !sawUpgrade || !sawClose {
		t.Fatalf("missing lifecycle events: %v", names)
	}
}
