package watcher

import "sync"

// HashTracker remembers the content hash of the last config document that
// was announced. Every change source shares one tracker so a change is
// announced once no matter who noticed it first.
type HashTracker struct {
	gate sync.Mutex // held across a file write or a file read plus Observe

	mu   sync.Mutex
	last string
}

// -----------------------------------------------------------------------------

// Exclusive runs fn while no other writer or poller touches the file.
func (h *HashTracker) Exclusive(fn func()) {
	h.gate.Lock()
	defer h.gate.Unlock()
	fn()
}

// -----------------------------------------------------------------------------

// Observe records hash and reports whether it differs from the previous one.
func (h *HashTracker) Observe(hash string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if hash == h.last {
		return false
	}
	h.last = hash
	return true
}

// -----------------------------------------------------------------------------

// Record stores hash unconditionally.
func (h *HashTracker) Record(hash string) {
	h.mu.Lock()
	h.last = hash
	h.mu.Unlock()
}

// -----------------------------------------------------------------------------

func (h *HashTracker) Last() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.last
}
