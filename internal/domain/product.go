package domain

import (
	"errors"
	"strings"
	"time"
)

var ErrUnknownCategory = errors.New("unknown category")

// Category is one of the fixed catalog sections
type Category string

const (
	CategoryDresses   Category = "dresses"
	CategoryJumpsuits Category = "jumpsuits"
	CategorySets      Category = "sets"
	CategoryTops      Category = "tops"
	CategoryBottoms   Category = "bottoms"

	// CategoryAll is the pseudo-category that selects every section
	CategoryAll Category = "todos"
)

var categoryLabels = map[Category]string{
	CategoryDresses:   "Vestidos",
	CategoryJumpsuits: "Enterizos",
	CategorySets:      "Conjuntos",
	CategoryTops:      "Blusas",
	CategoryBottoms:   "Pantalones",
	CategoryAll:       "Todos",
}

// Categories returns the sellable categories in menu order
func Categories() []Category {
	return []Category{CategoryDresses, CategoryJumpsuits, CategorySets, CategoryTops, CategoryBottoms}
}

// Label returns the display name of the category
func (c Category) Label() string {
	return categoryLabels[c]
}

// Valid reports whether c is a sellable category
func (c Category) Valid() bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCategory accepts a sellable category or the "todos" pseudo-category.
// An empty value is treated as "todos".
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if c == "" || c == CategoryAll || c == "all" {
		return CategoryAll, nil
	}
	if !c.Valid() {
		return "", ErrUnknownCategory
	}
	return c, nil
}

// Product represents a catalog item as served by the backend API
type Product struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Description    string         `json:"description"`
	Composition    string         `json:"composition,omitempty"`
	Specifications string         `json:"specifications,omitempty"`
	Care           string         `json:"care,omitempty"`
	ShippingPolicy string         `json:"shipping_policy,omitempty"`
	ExchangePolicy string         `json:"exchange_policy,omitempty"`
	RetailPrice    int            `json:"retail_price"`
	WholesalePrice int            `json:"wholesale_price"`
	Category       Category       `json:"category"`
	Images         []string       `json:"images"`
	Image          string         `json:"image,omitempty"`
	Colors         []string       `json:"colors"`
	Sizes          []string       `json:"sizes"`
	Stock          map[string]int `json:"stock,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// DisplayImages returns the image candidates in display order, falling back
// to the legacy single image field when the list is empty.
func (p *Product) DisplayImages() []string {
	var out []string
	for _, img := range p.Images {
		if strings.TrimSpace(img) != "" {
			out = append(out, img)
		}
	}
	if len(out) == 0 && strings.TrimSpace(p.Image) != "" {
		out = append(out, p.Image)
	}
	return out
}

// HasSize reports whether size is one of the product's offered sizes
func (p *Product) HasSize(size string) bool {
	for _, s := range p.Sizes {
		if s == size {
			return true
		}
	}
	return false
}

// ProductDraft is the raw admin form input before validation and normalization.
// List fields hold delimited text (comma or newline separated).
type ProductDraft struct {
	Name           string `json:"name" validate:"required"`
	Description    string `json:"description" validate:"required"`
	Composition    string `json:"composition"`
	Specifications string `json:"specifications"`
	Care           string `json:"care"`
	ShippingPolicy string `json:"shipping_policy"`
	ExchangePolicy string `json:"exchange_policy"`
	RetailPrice    string `json:"retail_price" validate:"required,number"`
	WholesalePrice string `json:"wholesale_price" validate:"required,number"`
	Category       string `json:"category" validate:"omitempty,oneof=dresses jumpsuits sets tops bottoms"`
	Images         string `json:"images"`
	Colors         string `json:"colors"`
	Sizes          string `json:"sizes"`
}
