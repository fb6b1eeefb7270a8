package admin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hannu-storefront/internal/backend"
	"hannu-storefront/internal/catalog"
	"hannu-storefront/internal/domain"
	"hannu-storefront/internal/middleware"
	"hannu-storefront/internal/session"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Backend is the subset of the product API the admin workflow needs
type Backend interface {
	ListProducts(ctx context.Context, limit int) ([]domain.Product, error)
	Login(ctx context.Context, username, password string) (string, error)
	CreateProduct(ctx context.Context, token string, p domain.Product) (*domain.Product, error)
	UpdateProduct(ctx context.Context, token, id string, p domain.Product) (*domain.Product, error)
	DeleteProduct(ctx context.Context, token, id string) error
	UploadImages(ctx context.Context, token string, files []domain.UploadFile) (*domain.UploadReport, error)
}

// Credentials are posted to the API's admin login
type Credentials struct {
	Username string
	Password string
}

// Scheduler runs f after d without blocking the caller
type Scheduler func(d time.Duration, f func())

func afterFunc(d time.Duration, f func()) { time.AfterFunc(d, f) }

type Options struct {
	Credentials      Credentials
	BrandPlaceholder string
	FetchLimit       int
	ReconcileDelay   time.Duration
	// Scheduler defaults to time.AfterFunc
	Scheduler Scheduler
}

// Service gates product writes behind the admin token and keeps the shared
// catalog consistent with the API. It is the only writer of both.
type Service struct {
	backend  Backend
	session  *session.Session
	catalog  *catalog.Catalog
	notifier Notifier
	validate *validator.Validate
	opts     Options
	logger   *zap.Logger
}

func NewService(b Backend, sess *session.Session, cat *catalog.Catalog, notifier Notifier, opts Options, logger *zap.Logger) *Service {
	if opts.Scheduler == nil {
		opts.Scheduler = afterFunc
	}
	if opts.FetchLimit <= 0 {
		opts.FetchLimit = 1000
	}
	if opts.ReconcileDelay <= 0 {
		opts.ReconcileDelay = time.Second
	}
	return &Service{
		backend:  b,
		session:  sess,
		catalog:  cat,
		notifier: notifier,
		validate: middleware.NewValidator(),
		opts:     opts,
		logger:   logger,
	}
}

// Login posts the configured credentials and stores the token. On failure
// the session stays unauthenticated.
func (s *Service) Login(ctx context.Context) (string, error) {
	token, err := s.login(ctx)
	s.notifier.Notify(ctx, NotificationFor(OpLogin, err))
	return token, err
}

func (s *Service) login(ctx context.Context) (string, error) {
	creds := s.opts.Credentials
	if creds.Username == "" || creds.Password == "" {
		return "", fmt.Errorf("%w: %w", ErrAuth, ErrNoCredentials)
	}

	token, err := s.backend.Login(ctx, creds.Username, creds.Password)
	if err != nil {
		s.logger.Warn("Admin login failed", zap.Error(err))
		return "", fmt.Errorf("%w: %w", ErrAuth, serverError(OpLogin, err))
	}
	if err := s.session.SetToken(ctx, token); err != nil {
		return "", fmt.Errorf("failed to store admin token: %w", err)
	}
	s.logger.Info("Admin session established")
	return token, nil
}

// EnsureAuthenticated returns the stored token, or performs exactly one login
func (s *Service) EnsureAuthenticated(ctx context.Context) (string, error) {
	token, err := s.session.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read admin token: %w", err)
	}
	if token != "" {
		return token, nil
	}
	return s.login(ctx)
}

// Logout forgets the stored token
func (s *Service) Logout(ctx context.Context) error {
	return s.session.ClearToken(ctx)
}

// authorized runs call with a valid token. A 401 clears the stored token and
// is returned as a *ServerError.
func (s *Service) authorized(ctx context.Context, op Op, call func(token string) error) error {
	token, err := s.EnsureAuthenticated(ctx)
	if err != nil {
		return err
	}

	err = call(token)
	if err == nil {
		return nil
	}

	se := serverError(op, err)
	if se.Unauthorized() {
		if cerr := s.session.ClearToken(ctx); cerr != nil {
			s.logger.Error("Failed to clear admin token", zap.Error(cerr))
		}
	}
	return se
}

// CreateProduct validates and normalizes draft, then creates the product.
// The server's echo is what gets appended to the catalog.
func (s *Service) CreateProduct(ctx context.Context, draft domain.ProductDraft) (*domain.Product, error) {
	product, err := Normalize(s.validate, draft, s.opts.BrandPlaceholder)
	if err != nil {
		s.notifier.Notify(ctx, NotificationFor(OpCreate, err))
		return nil, err
	}

	var created *domain.Product
	err = s.authorized(ctx, OpCreate, func(token string) error {
		var cerr error
		created, cerr = s.backend.CreateProduct(ctx, token, product)
		return cerr
	})
	s.notifier.Notify(ctx, NotificationFor(OpCreate, err))
	if err != nil {
		return nil, err
	}

	s.catalog.Append(*created)
	s.logger.Info("Product created", zap.String("id", created.ID), zap.String("name", created.Name))
	return created, nil
}

// UpdateProduct applies draft to the product with id and replaces the
// catalog entry with the server's echo.
func (s *Service) UpdateProduct(ctx context.Context, id string, draft domain.ProductDraft) (*domain.Product, error) {
	product, err := Normalize(s.validate, draft, s.opts.BrandPlaceholder)
	if err != nil {
		s.notifier.Notify(ctx, NotificationFor(OpUpdate, err))
		return nil, err
	}
	product.ID = id

	var updated *domain.Product
	err = s.authorized(ctx, OpUpdate, func(token string) error {
		var uerr error
		updated, uerr = s.backend.UpdateProduct(ctx, token, id, product)
		return uerr
	})
	s.notifier.Notify(ctx, NotificationFor(OpUpdate, err))
	if err != nil {
		return nil, err
	}

	if updated.ID == "" {
		updated.ID = id
	}
	if !s.catalog.ReplaceByID(*updated) {
		s.logger.Warn("Updated product is not in the catalog", zap.String("id", id))
	}
	return updated, nil
}

// DeleteProduct removes the product locally first, then deletes it on the
// server. A 401 from the delete itself triggers one re-login and one retry; a
// rejected login is final. A reconciliation fetch
// is scheduled whatever the outcome, which also restores the product if the
// server kept it.
func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	s.catalog.Remove(id)
	defer s.scheduleReconcile()

	del := func(token string) error { return s.backend.DeleteProduct(ctx, token, id) }

	err := s.authorized(ctx, OpDelete, del)
	var se *ServerError
	if errors.As(err, &se) && se.Op == OpDelete && se.Unauthorized() {
		s.logger.Info("Admin token rejected, retrying delete once", zap.String("id", id))
		err = s.authorized(ctx, OpDelete, del)
	}

	s.notifier.Notify(ctx, NotificationFor(OpDelete, err))
	if err != nil {
		s.logger.Warn("Product delete failed", zap.String("id", id), zap.Error(err))
		return err
	}
	s.logger.Info("Product deleted", zap.String("id", id))
	return nil
}

// MassUploadImages uploads files, each tied to a product name, and always
// schedules a reconciliation fetch since partial success is common.
func (s *Service) MassUploadImages(ctx context.Context, files []domain.UploadFile) (*domain.UploadReport, error) {
	defer s.scheduleReconcile()

	var report *domain.UploadReport
	err := s.authorized(ctx, OpUpload, func(token string) error {
		var uerr error
		report, uerr = s.backend.UploadImages(ctx, token, files)
		return uerr
	})

	s.notifier.Notify(ctx, UploadNotification(report, err))
	if err != nil {
		return nil, err
	}
	return report, nil
}

// Refresh re-fetches the whole catalog and replaces the local copy
func (s *Service) Refresh(ctx context.Context) error {
	products, err := s.backend.ListProducts(ctx, s.opts.FetchLimit)
	if err != nil {
		return fmt.Errorf("failed to refresh catalog: %w", err)
	}
	s.catalog.Replace(products)
	s.logger.Debug("Catalog refreshed", zap.Int("products", len(products)))
	return nil
}

func (s *Service) scheduleReconcile() {
	s.opts.Scheduler(s.opts.ReconcileDelay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.Refresh(ctx); err != nil {
			s.logger.Error("Reconciliation fetch failed", zap.Error(err))
		}
	})
}

var _ Backend = (*backend.Client)(nil)
