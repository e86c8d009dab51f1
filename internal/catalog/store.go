package catalog

import "sync/atomic"

// Store holds the current catalog for one provider. Rebuilds replace the
// whole catalog in a single assignment so concurrent readers never observe
// a half-built one; readers take a snapshot and need no further locking.
type Store struct {
	v atomic.Pointer[Catalog]
}

func NewStore() *Store {
	s := &Store{}
	s.v.Store(New())
	return s
}

// Current returns the catalog snapshot. Never nil.
func (s *Store) Current() *Catalog {
	return s.v.Load()
}

// Replace swaps in a freshly built catalog.
func (s *Store) Replace(c *Catalog) {
	if c == nil {
		c = New()
	}
	s.v.Store(c)
}
