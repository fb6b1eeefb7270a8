package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"hannu-storefront/internal/catalog"
	"hannu-storefront/internal/domain"
	"hannu-storefront/internal/imageresolve"
	"hannu-storefront/internal/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ImageResolver picks a displayable source for a product image, or opens it
// so the bytes can be relayed
type ImageResolver interface {
	Resolve(ctx context.Context, candidates []string, label string, index int) (imageresolve.Result, error)
	Open(ctx context.Context, candidates []string, label string, index int) (*imageresolve.Image, imageresolve.Result, error)
}

// CategoryInfo is one entry of the category menu
type CategoryInfo struct {
	Slug  domain.Category `json:"slug"`
	Label string          `json:"label"`
	Count int             `json:"count"`
}

// ProductListResponse wraps a filtered product list
type ProductListResponse struct {
	Products []domain.Product `json:"products"`
	Total    int              `json:"total"`
	Category domain.Category  `json:"category"`
	Query    string           `json:"query,omitempty"`
}

// CatalogHandler serves the public catalog views
type CatalogHandler struct {
	catalog *catalog.Catalog
	images  ImageResolver
	logger  *zap.Logger
}

func NewCatalogHandler(cat *catalog.Catalog, images ImageResolver, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{
		catalog: cat,
		images:  images,
		logger:  logger,
	}
}

func (h *CatalogHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/categories", h.ListCategories)
	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", h.ListProducts)
		r.Get("/{id}", h.GetProduct)
		r.Get("/{id}/image", h.ProductImage)
		r.Get("/{id}/image/raw", h.ProductImageRaw)
	})
}

// ListCategories returns "todos" followed by the sellable categories, each
// with its product count.
func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	counts := h.catalog.CountByCategory()

	out := []CategoryInfo{{
		Slug:  domain.CategoryAll,
		Label: domain.CategoryAll.Label(),
		Count: h.catalog.Len(),
	}}
	for _, c := range domain.Categories() {
		out = append(out, CategoryInfo{Slug: c, Label: c.Label(), Count: counts[c]})
	}

	middleware.RespondWithJSON(w, http.StatusOK, out)
}

// ListProducts filters the catalog by ?category= and ?q=
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	category, err := domain.ParseCategory(r.URL.Query().Get("category"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "unknown category")
		return
	}
	query := r.URL.Query().Get("q")

	products := h.catalog.Filter(category, query)
	if products == nil {
		products = []domain.Product{}
	}

	middleware.RespondWithJSON(w, http.StatusOK, ProductListResponse{
		Products: products,
		Total:    len(products),
		Category: category,
		Query:    query,
	})
}

func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, ok := h.catalog.Get(chi.URLParam(r, "id"))
	if !ok {
		middleware.RespondWithError(w, http.StatusNotFound, "product not found")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, p)
}

// ProductImage resolves image ?index= of a product and redirects to the
// first source that loads, or to the placeholder.
func (h *CatalogHandler) ProductImage(w http.ResponseWriter, r *http.Request) {
	p, index, ok := h.imageTarget(w, r)
	if !ok {
		return
	}

	result, err := h.images.Resolve(r.Context(), p.DisplayImages(), p.Name, index)
	if err != nil {
		h.imageError(w, p, err)
		return
	}

	setImageHeaders(w, result)
	http.Redirect(w, r, result.Source, http.StatusFound)
}

// ProductImageRaw relays the bytes of the source ProductImage would redirect
// to, for clients whose browser cannot load the image host directly.
func (h *CatalogHandler) ProductImageRaw(w http.ResponseWriter, r *http.Request) {
	p, index, ok := h.imageTarget(w, r)
	if !ok {
		return
	}

	img, result, err := h.images.Open(r.Context(), p.DisplayImages(), p.Name, index)
	if err != nil {
		h.imageError(w, p, err)
		return
	}
	defer img.Body.Close()

	setImageHeaders(w, result)
	w.Header().Set("Content-Type", img.ContentType)
	if img.ContentLength > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(img.ContentLength, 10))
	}
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, img.Body); err != nil {
		h.logger.Debug("Image relay interrupted", zap.String("product_id", p.ID), zap.Error(err))
	}
}

func (h *CatalogHandler) imageTarget(w http.ResponseWriter, r *http.Request) (domain.Product, int, bool) {
	p, ok := h.catalog.Get(chi.URLParam(r, "id"))
	if !ok {
		middleware.RespondWithError(w, http.StatusNotFound, "product not found")
		return domain.Product{}, 0, false
	}

	index := 0
	if raw := r.URL.Query().Get("index"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid image index")
			return domain.Product{}, 0, false
		}
		index = n
	}
	return p, index, true
}

func (h *CatalogHandler) imageError(w http.ResponseWriter, p domain.Product, err error) {
	switch {
	case errors.Is(err, imageresolve.ErrIndexOutOfRange):
		middleware.RespondWithError(w, http.StatusNotFound, "image not found")
	case errors.Is(err, imageresolve.ErrPlaceholderOffline):
		h.logger.Warn("Placeholder image unavailable", zap.String("product_id", p.ID), zap.Error(err))
		middleware.RespondWithError(w, http.StatusBadGateway, "image unavailable")
	default:
		h.logger.Debug("Image resolution aborted", zap.String("product_id", p.ID), zap.Error(err))
		middleware.RespondWithError(w, http.StatusServiceUnavailable, "image resolution aborted")
	}
}

func setImageHeaders(w http.ResponseWriter, result imageresolve.Result) {
	w.Header().Set("X-Image-State", result.State)
	w.Header().Set("X-Image-Attempts", strconv.Itoa(result.Attempts))
}
