package main

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"modalnav/internal/config"
	"modalnav/internal/httpapi"
	"modalnav/internal/link"
	"modalnav/internal/prefetch"
	"modalnav/pkg/types"
)

// demoApp is a small in-memory users app exercising the full wire contract:
// a backdrop index page, two modal routes stacked on top of it, and a
// submit route answering with a close-then-follow redirect.
type demoApp struct {
	mu       sync.RWMutex
	users    map[int]demoUser
	modalCfg types.ModalConfig
	// Client engine tuning shared with every index render, so clients
	// boot their prefetch cache and hover debounce from server config.
	settings types.Props
}

type demoUser struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func newDemoApp(cfg config.Config) *demoApp {
	mc := types.ModalConfig{Size: cfg.DefaultModal.Size, Position: cfg.DefaultModal.Position}
	if cfg.DefaultModal.Slideover {
		v := true
		mc.Slideover = &v
	}
	cacheTTLSec := int(prefetch.DefaultTTL / time.Second)
	if cfg.CacheTTLSec > 0 {
		cacheTTLSec = cfg.CacheTTLSec
	}
	hoverDelayMS := int(link.DefaultHoverDelay / time.Millisecond)
	if cfg.HoverDelayMS > 0 {
		hoverDelayMS = cfg.HoverDelayMS
	}
	return &demoApp{
		users: map[int]demoUser{
			1: {ID: 1, Name: "Ada Lovelace", Email: "ada@example.com"},
			2: {ID: 2, Name: "Alan Turing", Email: "alan@example.com"},
			3: {ID: 3, Name: "Grace Hopper", Email: "grace@example.com"},
		},
		modalCfg: mc,
		settings: types.Props{
			"prefetchCacheTtlSec":  cacheTTLSec,
			"prefetchHoverDelayMs": hoverDelayMS,
		},
	}
}

func (a *demoApp) Status() types.StatusResponse {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return types.StatusResponse{CurrentURL: "/users", CacheEntries: len(a.users)}
}

func (a *demoApp) Ready() bool { return true }

func (a *demoApp) mount(mux *httpapi.Mux) {
	mux.HandlePage("/users", a.usersIndex)
	mux.HandleModal("/users/{id}", a.userShow)
	mux.HandleModal("/users/{id}/edit", a.userEdit)
	mux.HandleSubmit("/users/{id}", a.userUpdate)
}

func (a *demoApp) usersIndex(r *http.Request) (types.Page, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	list := make([]demoUser, 0, len(a.users))
	for _, u := range a.users {
		list = append(list, u)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return types.Page{
		Component: "Users/Index",
		Props:     types.Props{"users": list, "settings": a.settings},
	}, nil
}

func (a *demoApp) userShow(r *http.Request) (types.ModalData, error) {
	u, err := a.lookup(r)
	if err != nil {
		return types.ModalData{}, err
	}
	return types.ModalData{
		Component: "Users/Show",
		Props:     types.Props{"user": u},
		BaseURL:   "/users",
		Config:    a.modalCfg,
	}, nil
}

func (a *demoApp) userEdit(r *http.Request) (types.ModalData, error) {
	u, err := a.lookup(r)
	if err != nil {
		return types.ModalData{}, err
	}
	cfg := a.modalCfg
	cfg.Size = "lg"
	return types.ModalData{
		Component: "Users/Edit",
		Props:     types.Props{"user": u},
		BaseURL:   "/users",
		Config:    cfg,
	}, nil
}

func (a *demoApp) userUpdate(r *http.Request) (string, error) {
	u, err := a.lookup(r)
	if err != nil {
		return "", err
	}
	var body struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return "", err
	}
	a.mu.Lock()
	if body.Name != "" {
		u.Name = body.Name
	}
	if body.Email != "" {
		u.Email = body.Email
	}
	a.users[u.ID] = u
	a.mu.Unlock()
	return "/users", nil
}

func (a *demoApp) lookup(r *http.Request) (demoUser, error) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		return demoUser{}, httpapi.NotFound("unknown user")
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	u, ok := a.users[id]
	if !ok {
		return demoUser{}, httpapi.NotFound("unknown user")
	}
	return u, nil
}
