// Package registry tracks the live connection of every open bot number.
package registry

import (
	"sort"
	"sync"
	"time"

	"github.com/gdbrns/go-whatsapp-session-bot/internal/session"
	"github.com/gdbrns/go-whatsapp-session-bot/pkg/log"
)

type entry struct {
	conn      session.Conn
	createdAt time.Time
}

// Registry maps a sanitized number to its open connection. An entry exists
// only while the connection is open and usable.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

func New() *Registry {
	return &Registry{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Set registers conn for number. A number must be deregistered before it is
// registered again, so an overwrite is logged.
func (r *Registry) Set(number string, conn session.Conn) {
	r.mu.Lock()
	_, exists := r.entries[number]
	r.entries[number] = entry{conn: conn, createdAt: r.now()}
	r.mu.Unlock()

	if exists {
		log.Session(number, "registry.set").Warn("Overwriting a live registry entry without deregistering it first")
	}
}

func (r *Registry) Get(number string) (session.Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[number]
	return e.conn, ok
}

// Delete removes the entry for number.
func (r *Registry) Delete(number string) {
	r.mu.Lock()
	delete(r.entries, number)
	r.mu.Unlock()
}

// DeleteIf removes the entry only when it still holds conn, so a stale close
// event cannot evict a newer connection.
func (r *Registry) DeleteIf(number string, conn session.Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[number]; ok && e.conn == conn {
		delete(r.entries, number)
		return true
	}
	return false
}

// List returns the registered numbers in ascending order.
func (r *Registry) List() []string {
	r.mu.RLock()
	numbers := make([]string, 0, len(r.entries))
	for n := range r.entries {
		numbers = append(numbers, n)
	}
	r.mu.RUnlock()
	sort.Strings(numbers)
	return numbers
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Uptime is the time since number was registered.
func (r *Registry) Uptime(number string) (time.Duration, bool) {
	r.mu.RLock()
	e, ok := r.entries[number]
	r.mu.RUnlock()
	if !ok {
		return 0, false
	}
	return r.now().Sub(e.createdAt), true
}

// Range calls fn for every entry until fn returns false.
func (r *Registry) Range(fn func(number string, conn session.Conn) bool) {
	r.mu.RLock()
	snapshot := make(map[string]session.Conn, len(r.entries))
	for n, e := range r.entries {
		snapshot[n] = e.conn
	}
	r.mu.RUnlock()

	for n, c := range snapshot {
		if !fn(n, c) {
			return
		}
	}
}
