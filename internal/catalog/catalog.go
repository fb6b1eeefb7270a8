package catalog

import (
	"strings"
	"sync"

	"hannu-storefront/internal/domain"
)

// Catalog is the shared in-memory product list. Renderers read it; only the
// admin service writes to it. Writes to different products race with
// last-write-wins semantics.
type Catalog struct {
	mu       sync.RWMutex
	products []domain.Product
}

func New() *Catalog {
	return &Catalog{}
}

// Replace swaps the whole list, as after a full re-fetch
func (c *Catalog) Replace(products []domain.Product) {
	cp := make([]domain.Product, len(products))
	copy(cp, products)

	c.mu.Lock()
	c.products = cp
	c.mu.Unlock()
}

func (c *Catalog) Append(p domain.Product) {
	c.mu.Lock()
	c.products = append(c.products, p)
	c.mu.Unlock()
}

// ReplaceByID overwrites the product with p.ID. It reports false when the
// product is no longer present, in which case nothing changes.
func (c *Catalog) ReplaceByID(p domain.Product) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.products {
		if c.products[i].ID == p.ID {
			c.products[i] = p
			return true
		}
	}
	return false
}

// Remove drops the product with id and returns it
func (c *Catalog) Remove(id string) (domain.Product, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.products {
		if c.products[i].ID == id {
			removed := c.products[i]
			c.products = append(c.products[:i:i], c.products[i+1:]...)
			return removed, true
		}
	}
	return domain.Product{}, false
}

func (c *Catalog) Get(id string) (domain.Product, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, p := range c.products {
		if p.ID == id {
			return p, true
		}
	}
	return domain.Product{}, false
}

// All returns a snapshot of the list in server order
func (c *Catalog) All() []domain.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.Product, len(c.products))
	copy(out, c.products)
	return out
}

func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.products)
}

// Filter returns the products in category whose name, description or any
// color contains term, ignoring case. CategoryAll and an empty term match
// everything.
func (c *Catalog) Filter(category domain.Category, term string) []domain.Product {
	term = strings.ToLower(strings.TrimSpace(term))

	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]domain.Product, 0, len(c.products))
	for _, p := range c.products {
		if category != "" && category != domain.CategoryAll && p.Category != category {
			continue
		}
		if term != "" && !matches(p, term) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func matches(p domain.Product, term string) bool {
	if strings.Contains(strings.ToLower(p.Name), term) ||
		strings.Contains(strings.ToLower(p.Description), term) {
		return true
	}
	for _, color := range p.Colors {
		if strings.Contains(strings.ToLower(color), term) {
			return true
		}
	}
	return false
}

// CountByCategory returns how many products each sellable category holds
func (c *Catalog) CountByCategory() map[domain.Category]int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	counts := make(map[domain.Category]int, len(domain.Categories()))
	for _, cat := range domain.Categories() {
		counts[cat] = 0
	}
	for _, p := range c.products {
		if p.Category.Valid() {
			counts[p.Category]++
		}
	}
	return counts
}
