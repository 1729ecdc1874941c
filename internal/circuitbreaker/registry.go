package circuitbreaker

import (
	"strings"
	"sync"
	"time"
)

// Snapshot is a point-in-time view of one breaker, used by the health
// checker and the status endpoint.
type Snapshot struct {
	State    State `json:"state"`
	Failures int   `json:"failures"`
}

// Registry holds one breaker per key. The upstream manager keys breakers
// by "<api>|<endpoint URL>" and creates them at registration time, so
// every registered endpoint has exactly one breaker.
type Registry struct {
	mutex    sync.RWMutex
	breakers map[string]*Breaker
}

func NewRegistry() *Registry {
	return &Registry{
		breakers: make(map[string]*Breaker),
	}
}

// Register creates a fresh closed breaker for key, replacing any
// existing one.
func (r *Registry) Register(key string, threshold int, timeout time.Duration) *Breaker {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	b := New(threshold, timeout)
	r.breakers[key] = b
	return b
}

// Get returns the breaker for key, or nil if none was registered.
func (r *Registry) Get(key string) *Breaker {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return r.breakers[key]
}

// DropPrefix removes every breaker whose key starts with prefix.
// Used when an API is re-registered with a new endpoint list.
func (r *Registry) DropPrefix(prefix string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for key := range r.breakers {
		if strings.HasPrefix(key, prefix) {
			delete(r.breakers, key)
		}
	}
}

func (r *Registry) Reset() {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.breakers = make(map[string]*Breaker)
}

func (r *Registry) Stats() map[string]Snapshot {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	stats := make(map[string]Snapshot, len(r.breakers))
	for key, b := range r.breakers {
		stats[key] = Snapshot{State: b.State(), Failures: b.Failures()}
	}
	return stats
}
