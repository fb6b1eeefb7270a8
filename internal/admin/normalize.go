package admin

import (
	"errors"
	"net/url"
	"strconv"
	"strings"

	"hannu-storefront/internal/domain"

	"github.com/go-playground/validator/v10"
)

// SplitList turns delimited admin input into a list. Entries are separated
// by commas or newlines; blanks are trimmed and dropped.
func SplitList(raw string) []string {
	out := []string{}
	for _, part := range strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == '\n' || r == '\r'
	}) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// SplitImages splits image input like SplitList, except that a comma inside
// a URL is kept. Delivery URLs such as
// https://res.cloudinary.com/x/image/upload/w_400,h_600,c_fill/a.jpg carry
// commas in their transformation segment; a piece that directly follows a
// URL, is not one itself and has no leading space belongs to that URL.
func SplitImages(raw string) []string {
	out := []string{}
	for _, line := range strings.FieldsFunc(raw, func(r rune) bool { return r == '\n' || r == '\r' }) {
		joinable := false
		for _, piece := range strings.Split(line, ",") {
			trimmed := strings.TrimSpace(piece)
			switch {
			case trimmed == "":
				joinable = false
			case joinable && piece == trimmed && !isAbsoluteURL(trimmed):
				out[len(out)-1] += "," + piece
			default:
				out = append(out, trimmed)
				joinable = isAbsoluteURL(trimmed)
			}
		}
	}
	return out
}

func isAbsoluteURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && u.Scheme != "" && u.Host != ""
}

// Normalize validates a draft and turns it into the product shape the API
// expects. An empty image list becomes a single brandPlaceholder entry.
func Normalize(v *validator.Validate, d domain.ProductDraft, brandPlaceholder string) (domain.Product, error) {
	d = trimDraft(d)

	if err := v.Struct(d); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return domain.Product{}, err
		}
		ve := &ValidationError{}
		for _, fe := range verrs {
			ve.Fields = append(ve.Fields, FieldError{Field: fe.Field(), Message: fieldMessage(fe)})
		}
		return domain.Product{}, ve
	}

	retail, err := strconv.Atoi(d.RetailPrice)
	if err != nil {
		return domain.Product{}, &ValidationError{Fields: []FieldError{{Field: "retail_price", Message: "Value is too large"}}}
	}
	wholesale, err := strconv.Atoi(d.WholesalePrice)
	if err != nil {
		return domain.Product{}, &ValidationError{Fields: []FieldError{{Field: "wholesale_price", Message: "Value is too large"}}}
	}

	category := domain.Category(d.Category)
	if category == "" {
		category = domain.CategoryDresses
	}

	images := SplitImages(d.Images)
	if len(images) == 0 {
		images = []string{brandPlaceholder}
	}

	return domain.Product{
		Name:           d.Name,
		Description:    d.Description,
		Composition:    d.Composition,
		Specifications: d.Specifications,
		Care:           d.Care,
		ShippingPolicy: d.ShippingPolicy,
		ExchangePolicy: d.ExchangePolicy,
		RetailPrice:    retail,
		WholesalePrice: wholesale,
		Category:       category,
		Images:         images,
		Image:          images[0],
		Colors:         SplitList(d.Colors),
		Sizes:          SplitList(d.Sizes),
	}, nil
}

func trimDraft(d domain.ProductDraft) domain.ProductDraft {
	d.Name = strings.TrimSpace(d.Name)
	d.Description = strings.TrimSpace(d.Description)
	d.Composition = strings.TrimSpace(d.Composition)
	d.Specifications = strings.TrimSpace(d.Specifications)
	d.Care = strings.TrimSpace(d.Care)
	d.ShippingPolicy = strings.TrimSpace(d.ShippingPolicy)
	d.ExchangePolicy = strings.TrimSpace(d.ExchangePolicy)
	d.RetailPrice = strings.TrimSpace(d.RetailPrice)
	d.WholesalePrice = strings.TrimSpace(d.WholesalePrice)
	d.Category = strings.ToLower(strings.TrimSpace(d.Category))
	return d
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "number":
		return "Must be a whole non-negative number"
	case "oneof":
		return "Must be one of: " + fe.Param()
	default:
		return "Invalid value"
	}
}
