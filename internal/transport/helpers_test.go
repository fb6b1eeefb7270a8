package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"hannu-storefront/internal/backend"
	"hannu-storefront/internal/catalog"
	"hannu-storefront/internal/domain"
	"hannu-storefront/internal/imageresolve"

	"github.com/go-chi/chi/v5"
)

func sampleCatalog() *catalog.Catalog {
	c := catalog.New()
	c.Replace([]domain.Product{
		{
			ID: "p1", Name: "Vestido Lino", Description: "Vestido largo de lino",
			RetailPrice: 90000, WholesalePrice: 60000, Category: domain.CategoryDresses,
			Images: []string{"https://i.postimg.cc/a.jpg", "https://i.postimg.cc/b.jpg"},
			Colors: []string{"Beige"}, Sizes: []string{"S", "M"},
		},
		{
			ID: "p2", Name: "Conjunto Rosa", Description: "Conjunto de dos piezas",
			RetailPrice: 120000, WholesalePrice: 80000, Category: domain.CategorySets,
			Colors: []string{"Rosa"},
		},
		{
			ID: "p3", Name: "Blusa Seda", Description: "Blusa manga larga",
			RetailPrice: 45000, WholesalePrice: 30000, Category: domain.CategoryTops,
			Image: "https://ibb.co/x.png", Colors: []string{"Negro", "Rosa"}, Sizes: []string{"Única"},
		},
	})
	return c
}

func jsonRequest(t *testing.T, method, target string, body interface{}) *http.Request {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, r)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

type stubResolver struct {
	result imageresolve.Result
	image  *imageresolve.Image
	err    error

	gotCandidates []string
	gotLabel      string
	gotIndex      int
}

func (s *stubResolver) Resolve(_ context.Context, candidates []string, label string, index int) (imageresolve.Result, error) {
	s.gotCandidates, s.gotLabel, s.gotIndex = candidates, label, index
	return s.result, s.err
}

func (s *stubResolver) Open(_ context.Context, candidates []string, label string, index int) (*imageresolve.Image, imageresolve.Result, error) {
	s.gotCandidates, s.gotLabel, s.gotIndex = candidates, label, index
	if s.err != nil {
		return nil, imageresolve.Result{}, s.err
	}
	return s.image, s.result, nil
}

// fakeAPI implements admin.Backend in memory
type fakeAPI struct {
	mu        sync.Mutex
	products  []domain.Product
	nextID    int
	deleteErr error
	uploads   []domain.UploadFile
	uploadErr error
}

func (f *fakeAPI) ListProducts(context.Context, int) ([]domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Product(nil), f.products...), nil
}

func (f *fakeAPI) Login(context.Context, string, string) (string, error) { return "tok", nil }

func (f *fakeAPI) CreateProduct(_ context.Context, _ string, p domain.Product) (*domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	p.ID = "new-" + string(rune('0'+f.nextID))
	f.products = append(f.products, p)
	return &p, nil
}

func (f *fakeAPI) UpdateProduct(_ context.Context, _ string, id string, p domain.Product) (*domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.products {
		if f.products[i].ID == id {
			p.ID = id
			f.products[i] = p
			return &p, nil
		}
	}
	return nil, &backend.APIError{Status: http.StatusNotFound, Detail: "Product not found"}
}

func (f *fakeAPI) DeleteProduct(_ context.Context, _ string, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	for i := range f.products {
		if f.products[i].ID == id {
			f.products = append(f.products[:i], f.products[i+1:]...)
			return nil
		}
	}
	return &backend.APIError{Status: http.StatusNotFound, Detail: "Product not found"}
}

func (f *fakeAPI) UploadImages(_ context.Context, _ string, files []domain.UploadFile) (*domain.UploadReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	report := &domain.UploadReport{TotalFiles: len(files)}
	for _, file := range files {
		body, _ := io.ReadAll(file.Content)
		ok := len(body) > 0
		if ok {
			report.SuccessfulUploads++
		} else {
			report.FailedUploads++
		}
		report.Results = append(report.Results, domain.UploadResult{
			Filename: file.Filename, ProductName: file.ProductName, Success: ok,
		})
		f.uploads = append(f.uploads, file)
	}
	return report, nil
}

func newRouter(register func(chi.Router)) http.Handler {
	r := chi.NewRouter()
	register(r)
	return r
}
