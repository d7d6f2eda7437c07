package calendar

import "sync"

// Guard serializes every access to a Store. The HTTP handlers, the CSV
// service and the snapshot job all go through the same Guard.
type Guard struct {
	mu    sync.Mutex
	store *Store
}

func NewGuard(store *Store) *Guard {
	return &Guard{store: store}
}

// Do runs fn with exclusive access to the store.
func (g *Guard) Do(fn func(store *Store) error) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return fn(g.store)
}
