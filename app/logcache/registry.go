package logcache

import (
	"slices"
	"sync"
)

// Registry owns all stream caches, keyed by stream id. It is the only way to
// create a Stream. Caches are never evicted, the registry lives as long as the process.
type Registry struct {
	mu      sync.RWMutex
	streams map[string]*Stream
}

// NewRegistry makes an empty registry
func NewRegistry() *Registry {
	return &Registry{streams: make(map[string]*Stream)}
}

// GetOrCreate returns the cache for id, registering an empty one on first use
func (r *Registry) GetOrCreate(id string) *Stream {
	r.mu.RLock()
	s, ok := r.streams[id]
	r.mu.RUnlock()
	if ok {
		return s
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok = r.streams[id]; ok { // created between the locks
		return s
	}
	s = newStream(id)
	r.streams[id] = s
	return s
}

// Get looks up the cache for id without creating it. Unknown id is reported
// with ok=false and is a normal state, not an error.
func (r *Registry) Get(id string) (s *Stream, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok = r.streams[id]
	return s, ok
}

// IDs returns ids of all registered streams, sorted
func (r *Registry) IDs() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.streams))
	for id := range r.streams {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	slices.Sort(ids)
	return ids
}

// Len returns the number of registered streams
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.streams)
}
