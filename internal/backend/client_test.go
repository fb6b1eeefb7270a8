package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"hannu-storefront/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", time.Second, zap.NewNop())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestListProducts(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/products", r.URL.Path)
		assert.Equal(t, "1000", r.URL.Query().Get("limit"))
		writeJSON(w, http.StatusOK, []map[string]any{
			{"id": "p1", "name": "Vestido Lino", "retail_price": 120000, "wholesale_price": 90000,
				"category": "dresses", "images": []string{"https://i.ibb.co/a.jpg"}, "colors": []string{"Rosa"}},
		})
	}))

	products, err := c.ListProducts(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Vestido Lino", products[0].Name)
	assert.Equal(t, 120000, products[0].RetailPrice)
	assert.Equal(t, domain.CategoryDresses, products[0].Category)
}

func TestListProducts_NullBodyIsEmpty(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("null"))
	}))

	products, err := c.ListProducts(context.Background(), 10)
	require.NoError(t, err)
	assert.NotNil(t, products)
	assert.Empty(t, products)
}

func TestLogin(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/admin/login", r.URL.Path)

		var body loginRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body.Username != "admin" || body.Password != "s3cret" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Invalid credentials"})
			return
		}
		writeJSON(w, http.StatusOK, loginResponse{AccessToken: "tok-1", TokenType: "bearer"})
	}))

	token, err := c.Login(context.Background(), "admin", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", token)

	_, err = c.Login(context.Background(), "admin", "wrong")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnauthorized))

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Invalid credentials", apiErr.Detail)
}

func TestWritesSendBearerToken(t *testing.T) {
	var seen []string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Method+" "+r.URL.Path+" "+r.Header.Get("Authorization"))
		switch r.Method {
		case http.MethodPost, http.MethodPut:
			var p domain.Product
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&p))
			p.ID = "srv-1"
			writeJSON(w, http.StatusOK, p)
		case http.MethodDelete:
			writeJSON(w, http.StatusOK, map[string]string{"message": "Product deleted successfully"})
		}
	}))
	ctx := context.Background()

	created, err := c.CreateProduct(ctx, "tok", domain.Product{Name: "Top"})
	require.NoError(t, err)
	assert.Equal(t, "srv-1", created.ID)

	updated, err := c.UpdateProduct(ctx, "tok", "srv-1", domain.Product{Name: "Top v2"})
	require.NoError(t, err)
	assert.Equal(t, "Top v2", updated.Name)

	require.NoError(t, c.DeleteProduct(ctx, "tok", "srv-1"))

	assert.Equal(t, []string{
		"POST /api/products Bearer tok",
		"PUT /api/products/srv-1 Bearer tok",
		"DELETE /api/products/srv-1 Bearer tok",
	}, seen)
}

func TestErrorDetailParsing(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantDetail string
		wantIs     error
	}{
		{"string detail", 404, `{"detail":"Product not found"}`, "Product not found", ErrNotFound},
		{"validation list", 422, `{"detail":[{"msg":"field required"},{"msg":"value is not a valid integer"}]}`,
			"field required; value is not a valid integer", nil},
		{"plain text", 500, "Internal Server Error", "Internal Server Error", nil},
		{"expired token", 401, `{"detail":"Token expired"}`, "Token expired", ErrUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))

			err := c.DeleteProduct(context.Background(), "tok", "x")
			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.wantDetail, apiErr.Detail)
			if tt.wantIs != nil {
				assert.True(t, errors.Is(err, tt.wantIs))
			}
		})
	}
}

func TestUploadImages(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/admin/upload-images", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		files := r.MultipartForm.File["files"]
		names := r.MultipartForm.Value["product_names"]
		if !assert.Len(t, files, 2) || !assert.Equal(t, []string{"Vestido Rosa", "Blusa Seda"}, names) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		report := domain.UploadReport{TotalFiles: len(files)}
		for i, fh := range files {
			res := domain.UploadResult{Filename: fh.Filename, ProductName: names[i], Success: i == 0}
			if res.Success {
				report.SuccessfulUploads++
				res.URL = "https://i.ibb.co/" + fh.Filename
			} else {
				report.FailedUploads++
				res.Error = "Product not found"
			}
			report.Results = append(report.Results, res)
		}
		writeJSON(w, http.StatusOK, report)
	}))

	report, err := c.UploadImages(context.Background(), "tok", []domain.UploadFile{
		{Filename: "rosa.jpg", ProductName: "Vestido Rosa", Content: strings.NewReader("jpeg-bytes")},
		{Filename: "seda.jpg", ProductName: "Blusa Seda", Content: strings.NewReader("jpeg-bytes")},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, report.TotalFiles)
	assert.Equal(t, 1, report.SuccessfulUploads)
	assert.Equal(t, 1, report.FailedUploads)
	assert.Equal(t, "Product not found", report.Results[1].Error)

	_, err = c.UploadImages(context.Background(), "tok", nil)
	assert.ErrorIs(t, err, ErrNoFiles)
}
