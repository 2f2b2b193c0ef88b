package router

import "sync"

// MemoryHistory is an in-process History with a back stack, standing in
// for the browser history API.
type MemoryHistory struct {
	mu      sync.Mutex
	entries []string
}

func NewMemoryHistory(initial string) *MemoryHistory {
	return &MemoryHistory{entries: []string{initial}}
}

func (h *MemoryHistory) Push(url string) {
	h.mu.Lock()
	h.entries = append(h.entries, url)
	h.mu.Unlock()
}

// Replace swaps the current entry without growing the back stack.
func (h *MemoryHistory) Replace(url string) {
	h.mu.Lock()
	if len(h.entries) == 0 {
		h.entries = []string{url}
	} else {
		h.entries[len(h.entries)-1] = url
	}
	h.mu.Unlock()
}

func (h *MemoryHistory) Location() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.entries) == 0 {
		return ""
	}
	return h.entries[len(h.entries)-1]
}

// Back pops the current entry and returns the new location, mimicking the
// browser back button. The first entry is never popped.
func (h *MemoryHistory) Back() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.entries) > 1 {
		h.entries = h.entries[:len(h.entries)-1]
	}
	return h.entries[len(h.entries)-1]
}

// Depth reports the number of history entries; tests use it to check that
// close uses replace, not push.
func (h *MemoryHistory) Depth() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}
