package server

import (
	"sort"
	"sync"
)

// -----------------------------------------------------------------------------
// Hub keeps track of every live connection pipeline so that health checks can
// count them and shutdown can stop them.
// -----------------------------------------------------------------------------

type Hub struct {
	pipelines map[string]*Pipeline
	closed    bool
	mu        sync.RWMutex
}

// -----------------------------------------------------------------------------

func NewHub() *Hub {
	return &Hub{pipelines: make(map[string]*Pipeline)}
}

// -----------------------------------------------------------------------------

// Register adds a pipeline. It returns false once the hub has been stopped.
func (h *Hub) Register(p *Pipeline) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}
	h.pipelines[p.ID] = p
	return true
}

// -----------------------------------------------------------------------------

func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.pipelines, id)
}

// -----------------------------------------------------------------------------

// Count returns the number of open stream connections
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.pipelines)
}

// -----------------------------------------------------------------------------

// Instruments returns the union of instruments streamed right now, sorted
func (h *Hub) Instruments() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	seen := make(map[string]bool)
	for _, p := range h.pipelines {
		for _, inst := range p.Instruments {
			seen[inst] = true
		}
	}

	out := make([]string, 0, len(seen))
	for inst := range seen {
		out = append(out, inst)
	}
	sort.Strings(out)
	return out
}

// -----------------------------------------------------------------------------

// StopAll stops every pipeline and refuses new ones.
func (h *Hub) StopAll() {
	h.mu.Lock()
	h.closed = true
	list := make([]*Pipeline, 0, len(h.pipelines))
	for _, p := range h.pipelines {
		list = append(list, p)
	}
	h.pipelines = make(map[string]*Pipeline)
	h.mu.Unlock()

	for _, p := range list {
		p.Stop()
	}
}
