package dashboard

import "sync"

// Registry tracks live connections by id.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*Connection
}

// -----------------------------------------------------------------------------

func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]*Connection)}
}

// -----------------------------------------------------------------------------

func (r *Registry) Add(c *Connection) {
	r.mu.Lock()
	r.conns[c.ID] = c
	r.mu.Unlock()
}

// -----------------------------------------------------------------------------

// Remove reports whether id was registered.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conns[id]; !ok {
		return false
	}
	delete(r.conns, id)
	return true
}

// -----------------------------------------------------------------------------

// Snapshot returns the connections live right now.
func (r *Registry) Snapshot() []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Connection, 0, len(r.conns))
	for _, c := range r.conns {
		out = append(out, c)
	}
	return out
}

// -----------------------------------------------------------------------------

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
