package transport

import (
	"errors"
	"net/http"
	"time"

	"hannu-storefront/internal/cart"
	"hannu-storefront/internal/catalog"
	"hannu-storefront/internal/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const cartCookieMaxAge = 30 * 24 * time.Hour

// CartItemRequest adds or updates a cart line
type CartItemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Size      string `json:"size"`
	Quantity  int    `json:"quantity" validate:"gte=0,lte=99"`
}

// CartHandler serves the visitor cart identified by the cart cookie
type CartHandler struct {
	registry     *cart.Registry
	catalog      *catalog.Catalog
	secureCookie bool
	logger       *zap.Logger
}

func NewCartHandler(registry *cart.Registry, cat *catalog.Catalog, secureCookie bool, logger *zap.Logger) *CartHandler {
	return &CartHandler{
		registry:     registry,
		catalog:      cat,
		secureCookie: secureCookie,
		logger:       logger,
	}
}

func (h *CartHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/cart", func(r chi.Router) {
		r.Get("/", h.GetCart)
		r.Delete("/", h.ClearCart)
		r.Post("/items", h.AddItem)
		r.Put("/items", h.UpdateItem)
		r.Delete("/items", h.RemoveItem)
	})
}

// existing returns the visitor's cart without creating one
func (h *CartHandler) existing(r *http.Request) (*cart.Cart, bool) {
	cookie, err := r.Cookie(cart.CookieName)
	if err != nil {
		return nil, false
	}
	return h.registry.Get(cookie.Value)
}

// ensure returns the visitor's cart, creating it and setting the cookie
// when needed.
func (h *CartHandler) ensure(w http.ResponseWriter, r *http.Request) *cart.Cart {
	var current string
	if cookie, err := r.Cookie(cart.CookieName); err == nil {
		current = cookie.Value
	}

	id, c := h.registry.GetOrCreate(current)
	if id != current {
		http.SetCookie(w, &http.Cookie{
			Name:     cart.CookieName,
			Value:    id,
			Path:     "/",
			MaxAge:   int(cartCookieMaxAge.Seconds()),
			HttpOnly: true,
			Secure:   h.secureCookie,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return c
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	c, ok := h.existing(r)
	if !ok {
		c = cart.New()
	}
	middleware.RespondWithJSON(w, http.StatusOK, c.Summary())
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	c, ok := h.existing(r)
	if !ok {
		c = cart.New()
	}
	c.Clear()
	middleware.RespondWithJSON(w, http.StatusOK, c.Summary())
}

// AddItem adds quantity units (default 1) of a catalog product
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req CartItemRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	p, ok := h.catalog.Get(req.ProductID)
	if !ok {
		middleware.RespondWithError(w, http.StatusNotFound, "product not found")
		return
	}

	c := h.ensure(w, r)
	if err := c.Add(p, req.Size, req.Quantity); err != nil {
		h.respondCartError(w, err)
		return
	}

	h.logger.Debug("Cart item added",
		zap.String("product_id", p.ID),
		zap.String("size", req.Size),
		zap.Int("quantity", req.Quantity),
	)
	middleware.RespondWithJSON(w, http.StatusOK, c.Summary())
}

// UpdateItem overwrites a line's quantity; zero removes the line
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var req CartItemRequest
	if !h.decode(w, r, &req) {
		return
	}

	c, ok := h.existing(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusNotFound, "cart line not found")
		return
	}
	if err := c.SetQuantity(req.ProductID, req.Size, req.Quantity); err != nil {
		h.respondCartError(w, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, c.Summary())
}

// RemoveItem drops the line given by ?product_id= and ?size=
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	productID := r.URL.Query().Get("product_id")
	if productID == "" {
		middleware.RespondWithError(w, http.StatusBadRequest, "product_id is required")
		return
	}

	c, ok := h.existing(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusNotFound, "cart line not found")
		return
	}
	if err := c.Remove(productID, r.URL.Query().Get("size")); err != nil {
		h.respondCartError(w, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, c.Summary())
}

func (h *CartHandler) decode(w http.ResponseWriter, r *http.Request, req *CartItemRequest) bool {
	if err := middleware.DecodeAndValidate(r, req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return false
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func (h *CartHandler) respondCartError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, cart.ErrLineNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, cart.ErrSizeRequired), errors.Is(err, cart.ErrUnknownSize), errors.Is(err, cart.ErrInvalidQuantity):
		middleware.RespondWithError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.logger.Error("Cart operation failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "cart operation failed")
	}
}
