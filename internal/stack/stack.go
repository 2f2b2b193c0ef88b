// Package stack owns the ordered collection of open modals. It is the
// single source of truth other components read and mutate through; no
// caller reaches into its internal slice.
package stack

import (
	"sync"

	"github.com/rs/zerolog"
)

// Store holds the modal stack. All operations are safe for concurrent use
// and notify the registered observer with a snapshot after each commit.
type Store struct {
	mu       sync.Mutex
	nextID   int64
	items    []*Instance
	onChange func([]Instance)
	log      zerolog.Logger
}

func New(log zerolog.Logger) *Store {
	return &Store{log: log}
}

// SetObserver registers the stack-change observer. The observer is invoked
// outside the store lock with a snapshot copy, so it may call back into the
// store.
func (s *Store) SetObserver(fn func([]Instance)) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// Push appends a new instance and returns its id. It returns 0 without any
// state change when an instance with the same URL already exists; callers
// must treat 0 as "already open, no-op".
func (s *Store) Push(d Data) int64 {
	s.mu.Lock()
	for _, inst := range s.items {
		if inst.URL == d.URL {
			s.mu.Unlock()
			s.log.Debug().Str("url", d.URL).Msg("stack push rejected: duplicate url")
			return 0
		}
	}
	s.nextID++
	inst := &Instance{
		ID:               s.nextID,
		ComponentName:    d.ComponentName,
		Props:            d.Props,
		URL:              d.URL,
		BaseURL:          d.BaseURL,
		ReturnURL:        d.ReturnURL,
		Config:           d.Config,
		Loading:          d.Loading,
		LoadingComponent: d.LoadingComponent,
		onClose:          d.OnClose,
	}
	// A loading instance never carries a resolved component.
	if !d.Loading {
		inst.Component = d.Component
	}
	s.items = append(s.items, inst)
	id := inst.ID
	snap, fn := s.snapshotLocked()
	s.mu.Unlock()

	s.log.Debug().Int64("id", id).Str("url", d.URL).Bool("loading", d.Loading).Msg("stack push")
	notify(fn, snap)
	return id
}

// Pop removes the instance and runs its onClose callback strictly after the
// removal has been committed, never more than once.
func (s *Store) Pop(id int64) {
	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return
	}
	inst := s.items[idx]
	s.items = append(s.items[:idx], s.items[idx+1:]...)
	onClose := inst.onClose
	inst.onClose = nil
	snap, fn := s.snapshotLocked()
	s.mu.Unlock()

	s.log.Debug().Int64("id", id).Str("url", inst.URL).Msg("stack pop")
	notify(fn, snap)
	if onClose != nil {
		onClose()
	}
}

// Update performs a partial merge on the instance; it is the only way a
// loading instance becomes ready. It reports false when the instance no
// longer exists, so late resolutions are discarded by the caller.
func (s *Store) Update(id int64, u Update) bool {
	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	inst := s.items[idx]
	if u.Component != nil {
		inst.Component = u.Component
	}
	if u.ComponentName != "" {
		inst.ComponentName = u.ComponentName
	}
	if u.Props != nil {
		inst.Props = u.Props
	}
	if u.BaseURL != "" {
		inst.BaseURL = u.BaseURL
	}
	if u.Config != nil {
		inst.Config = *u.Config
	}
	if u.Loading != nil {
		inst.Loading = *u.Loading
	}
	if inst.Loading {
		// Invariant: loading instances render no resolved component.
		inst.Component = nil
	}
	snap, fn := s.snapshotLocked()
	s.mu.Unlock()

	notify(fn, snap)
	return true
}

// Get returns a copy of the instance.
func (s *Store) Get(id int64) (Instance, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexLocked(id)
	if idx < 0 {
		return Instance{}, false
	}
	return *s.items[idx], true
}

// GetByURL returns a copy of the instance holding the given URL.
func (s *Store) GetByURL(url string) (Instance, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, inst := range s.items {
		if inst.URL == url {
			return *inst, true
		}
	}
	return Instance{}, false
}

// Clear removes all instances without invoking onClose callbacks. It is
// used only when the host router has already navigated away and the
// backdrop itself is gone, so closing semantics do not apply.
func (s *Store) Clear() {
	s.mu.Lock()
	if len(s.items) == 0 {
		s.mu.Unlock()
		return
	}
	n := len(s.items)
	s.items = nil
	snap, fn := s.snapshotLocked()
	s.mu.Unlock()

	s.log.Debug().Int("removed", n).Msg("stack clear")
	notify(fn, snap)
}

// Len reports the number of open or loading instances.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Top returns a copy of the focused (last) modal.
func (s *Store) Top() (Instance, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.items) == 0 {
		return Instance{}, false
	}
	return *s.items[len(s.items)-1], true
}

// Snapshot returns a copy of the stack in z-order.
func (s *Store) Snapshot() []Instance {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, _ := s.snapshotLocked()
	return snap
}

func (s *Store) indexLocked(id int64) int {
	for i, inst := range s.items {
		if inst.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) snapshotLocked() ([]Instance, func([]Instance)) {
	snap := make([]Instance, len(s.items))
	for i, inst := range s.items {
		snap[i] = *inst
	}
	return snap, s.onChange
}

func notify(fn func([]Instance), snap []Instance) {
	if fn != nil {
		fn(snap)
	}
}
