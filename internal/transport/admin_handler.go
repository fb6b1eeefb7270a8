package transport

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"

	"hannu-storefront/internal/admin"
	"hannu-storefront/internal/domain"
	"hannu-storefront/internal/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// maxUploadMemory is held in memory per upload request; larger parts spill to disk
const maxUploadMemory = 32 << 20

// AdminService is the persistence workflow behind the admin panel
type AdminService interface {
	CreateProduct(ctx context.Context, draft domain.ProductDraft) (*domain.Product, error)
	UpdateProduct(ctx context.Context, id string, draft domain.ProductDraft) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id string) error
	MassUploadImages(ctx context.Context, files []domain.UploadFile) (*domain.UploadReport, error)
	Refresh(ctx context.Context) error
}

// AdminResponse carries the outcome notification of an admin write
type AdminResponse struct {
	Notification admin.Notification   `json:"notification"`
	Product      *domain.Product      `json:"product,omitempty"`
	Report       *domain.UploadReport `json:"report,omitempty"`
}

// AdminHandler exposes product writes to an unlocked manager
type AdminHandler struct {
	admin  AdminService
	logger *zap.Logger
}

func NewAdminHandler(svc AdminService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		admin:  svc,
		logger: logger,
	}
}

// RegisterRoutes registers the admin routes behind guard, which must
// authenticate the manager.
func (h *AdminHandler) RegisterRoutes(r chi.Router, guard ...func(http.Handler) http.Handler) {
	r.Route("/api/admin", func(r chi.Router) {
		r.Use(guard...)
		r.Post("/products", h.CreateProduct)
		r.Put("/products/{id}", h.UpdateProduct)
		r.Delete("/products/{id}", h.DeleteProduct)
		r.Post("/upload-images", h.UploadImages)
		r.Post("/refresh", h.Refresh)
	})
}

func (h *AdminHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var draft domain.ProductDraft
	if err := decodeJSON(r, &draft); err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, err := h.admin.CreateProduct(r.Context(), draft)
	note := admin.NotificationFor(admin.OpCreate, err)
	if err != nil {
		h.respondAdminError(w, note, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, AdminResponse{Notification: note, Product: p})
}

func (h *AdminHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var draft domain.ProductDraft
	if err := decodeJSON(r, &draft); err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, err := h.admin.UpdateProduct(r.Context(), chi.URLParam(r, "id"), draft)
	note := admin.NotificationFor(admin.OpUpdate, err)
	if err != nil {
		h.respondAdminError(w, note, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, AdminResponse{Notification: note, Product: p})
}

func (h *AdminHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	err := h.admin.DeleteProduct(r.Context(), chi.URLParam(r, "id"))
	note := admin.NotificationFor(admin.OpDelete, err)
	if err != nil {
		h.respondAdminError(w, note, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, AdminResponse{Notification: note})
}

// UploadImages accepts a multipart form with repeated "files" parts and a
// "product_names" value per file, in the same order.
func (h *AdminHandler) UploadImages(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files"]
	names := r.MultipartForm.Value["product_names"]
	if len(headers) == 0 {
		middleware.RespondWithError(w, http.StatusBadRequest, "no files to upload")
		return
	}
	if len(names) != len(headers) {
		middleware.RespondWithErrorDetails(w, http.StatusBadRequest, "each file needs a product name", map[string]interface{}{
			"files":         len(headers),
			"product_names": len(names),
		})
		return
	}

	files, closeAll, err := openUploads(headers, names)
	defer closeAll()
	if err != nil {
		h.logger.Error("Failed to open uploaded file", zap.Error(err))
		middleware.RespondWithError(w, http.StatusBadRequest, "unreadable upload")
		return
	}

	report, err := h.admin.MassUploadImages(r.Context(), files)
	note := admin.UploadNotification(report, err)
	if err != nil {
		h.respondAdminError(w, note, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, AdminResponse{Notification: note, Report: report})
}

// Refresh re-fetches the catalog from the API
func (h *AdminHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.admin.Refresh(r.Context()); err != nil {
		h.logger.Error("Manual refresh failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusBadGateway, "failed to refresh catalog")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "catalog refreshed"})
}

func openUploads(headers []*multipart.FileHeader, names []string) ([]domain.UploadFile, func(), error) {
	var opened []multipart.File
	closeAll := func() {
		for _, f := range opened {
			f.Close()
		}
	}

	files := make([]domain.UploadFile, 0, len(headers))
	for i, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, closeAll, err
		}
		opened = append(opened, f)
		files = append(files, domain.UploadFile{
			Filename:    fh.Filename,
			ProductName: names[i],
			Content:     f,
		})
	}
	return files, closeAll, nil
}

// respondAdminError maps the admin error taxonomy onto HTTP statuses. The
// body message is the notification text.
func (h *AdminHandler) respondAdminError(w http.ResponseWriter, note admin.Notification, err error) {
	details := map[string]interface{}{"op": note.Op}

	var (
		ve *admin.ValidationError
		se *admin.ServerError
	)
	switch {
	case errors.As(err, &ve):
		details["validation_errors"] = ve.Fields
		middleware.RespondWithErrorDetails(w, http.StatusBadRequest, note.Message, details)
	case errors.Is(err, admin.ErrAuth):
		h.logger.Warn("Admin API rejected credentials", zap.String("op", string(note.Op)), zap.Error(err))
		middleware.RespondWithErrorDetails(w, http.StatusBadGateway, note.Message, details)
	case errors.As(err, &se):
		details["upstream_status"] = se.Status
		status := http.StatusBadGateway
		if se.Status == http.StatusNotFound {
			status = http.StatusNotFound
		}
		middleware.RespondWithErrorDetails(w, status, note.Message, details)
	default:
		h.logger.Error("Admin operation failed", zap.String("op", string(note.Op)), zap.Error(err))
		middleware.RespondWithErrorDetails(w, http.StatusBadGateway, note.Message, details)
	}
}
