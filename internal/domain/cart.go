package domain

// CartLine is one product/size pairing in a cart
type CartLine struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Image     string `json:"image"`
	Size      string `json:"size"`
	UnitPrice int    `json:"unit_price"`
	Quantity  int    `json:"quantity"`
}

// LineTotal is the unit price times quantity
func (l CartLine) LineTotal() int {
	return l.UnitPrice * l.Quantity
}
