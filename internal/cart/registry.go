package cart

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// CookieName carries the visitor's cart id
const CookieName = "hannu_cart"

type entry struct {
	cart    *Cart
	touched time.Time
}

// Registry holds one cart per visitor, keyed by a random uuid
type Registry struct {
	mu    sync.Mutex
	carts map[uuid.UUID]*entry
	now   func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{carts: make(map[uuid.UUID]*entry), now: time.Now}
}

// Get returns the cart for id when it exists
func (r *Registry) Get(id string) (*Cart, bool) {
	key, err := uuid.Parse(id)
	if err != nil {
		return nil, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.carts[key]
	if !ok {
		return nil, false
	}
	e.touched = r.now()
	return e.cart, true
}

// GetOrCreate returns the cart for id, or a fresh cart under a new id when
// id is unknown or malformed.
func (r *Registry) GetOrCreate(id string) (string, *Cart) {
	if c, ok := r.Get(id); ok {
		return id, c
	}

	key := uuid.New()
	c := New()

	r.mu.Lock()
	r.carts[key] = &entry{cart: c, touched: r.now()}
	r.mu.Unlock()

	return key.String(), c
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.carts)
}

// Prune drops carts untouched for longer than maxAge and reports how many
// were dropped.
func (r *Registry) Prune(maxAge time.Duration) int {
	cutoff := r.now().Add(-maxAge)

	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, e := range r.carts {
		if e.touched.Before(cutoff) {
			delete(r.carts, id)
			n++
		}
	}
	return n
}
