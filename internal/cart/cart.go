package cart

import (
	"errors"
	"sync"

	"hannu-storefront/internal/domain"
)

const (
	// FreeShippingThreshold is the subtotal from which shipping is free
	FreeShippingThreshold = 150000
	// ShippingFee is charged below the threshold
	ShippingFee = 15000
)

var (
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	ErrSizeRequired    = errors.New("size is required for this product")
	ErrUnknownSize     = errors.New("size is not offered for this product")
	ErrLineNotFound    = errors.New("cart line not found")
)

// Cart holds one visitor's lines, keyed by (product id, size)
type Cart struct {
	mu    sync.Mutex
	lines []domain.CartLine
}

func New() *Cart {
	return &Cart{}
}

// Add puts qty units of product in the given size into the cart, merging
// with an existing line for the same product and size.
func (c *Cart) Add(p domain.Product, size string, qty int) error {
	if qty < 1 {
		return ErrInvalidQuantity
	}
	if len(p.Sizes) > 0 {
		if size == "" {
			return ErrSizeRequired
		}
		if !p.HasSize(size) {
			return ErrUnknownSize
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if i := c.find(p.ID, size); i >= 0 {
		c.lines[i].Quantity += qty
		c.lines[i].UnitPrice = p.RetailPrice
		return nil
	}

	var image string
	if imgs := p.DisplayImages(); len(imgs) > 0 {
		image = imgs[0]
	}
	c.lines = append(c.lines, domain.CartLine{
		ProductID: p.ID,
		Name:      p.Name,
		Image:     image,
		Size:      size,
		UnitPrice: p.RetailPrice,
		Quantity:  qty,
	})
	return nil
}

// SetQuantity overwrites a line's quantity; qty <= 0 removes the line
func (c *Cart) SetQuantity(productID, size string, qty int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.find(productID, size)
	if i < 0 {
		return ErrLineNotFound
	}
	if qty <= 0 {
		c.removeAt(i)
		return nil
	}
	c.lines[i].Quantity = qty
	return nil
}

func (c *Cart) Remove(productID, size string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.find(productID, size)
	if i < 0 {
		return ErrLineNotFound
	}
	c.removeAt(i)
	return nil
}

func (c *Cart) Clear() {
	c.mu.Lock()
	c.lines = nil
	c.mu.Unlock()
}

func (c *Cart) Lines() []domain.CartLine {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}

// Count is the total number of units across lines
func (c *Cart) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

func (c *Cart) Subtotal() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subtotal()
}

func (c *Cart) Shipping() int {
	return ShippingFor(c.Subtotal())
}

func (c *Cart) Total() int {
	sub := c.Subtotal()
	return sub + ShippingFor(sub)
}

// ShippingFor returns the shipping charge for a subtotal. An empty cart
// ships nothing and is charged nothing.
func ShippingFor(subtotal int) int {
	if subtotal <= 0 || subtotal >= FreeShippingThreshold {
		return 0
	}
	return ShippingFee
}

// Summary is a consistent snapshot of the cart and its totals
type Summary struct {
	Lines    []domain.CartLine `json:"lines"`
	Count    int               `json:"count"`
	Subtotal int               `json:"subtotal"`
	Shipping int               `json:"shipping"`
	Total    int               `json:"total"`
}

func (c *Cart) Summary() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Summary{Lines: make([]domain.CartLine, len(c.lines))}
	copy(s.Lines, c.lines)
	for _, l := range c.lines {
		s.Count += l.Quantity
	}
	s.Subtotal = c.subtotal()
	s.Shipping = ShippingFor(s.Subtotal)
	s.Total = s.Subtotal + s.Shipping
	return s
}

func (c *Cart) subtotal() int {
	sum := 0
	for _, l := range c.lines {
		sum += l.LineTotal()
	}
	return sum
}

func (c *Cart) find(productID, size string) int {
	for i, l := range c.lines {
		if l.ProductID == productID && l.Size == size {
			return i
		}
	}
	return -1
}

func (c *Cart) removeAt(i int) {
	c.lines = append(c.lines[:i:i], c.lines[i+1:]...)
}
