package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"hannu-storefront/internal/config"
	"hannu-storefront/internal/middleware"
	"hannu-storefront/internal/session"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret-key"

func newTestManager(t *testing.T, password string) (*managerService, *session.Session) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	sess := session.New(session.NewMemoryStore())
	svc := NewManagerService(
		config.ManagerConfig{Username: "manager", PasswordHash: string(hash)},
		config.JWTConfig{Secret: testSecret, AccessExpiry: 60},
		sess,
	).(*managerService)
	return svc, sess
}

func TestManagerLogin_SetsFlagAndIssuesToken(t *testing.T) {
	svc, sess := newTestManager(t, "hannu-2024")
	ctx := context.Background()

	token, expiresAt, err := svc.Login(ctx, "manager", "hannu-2024")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if time.Until(expiresAt) < 59*time.Minute {
		t.Errorf("expiry too short: %v", expiresAt)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.Subject != "manager" || claims.Role != middleware.RoleManager {
		t.Errorf("unexpected claims %+v", claims)
	}
	if claims.IssuedAt == nil || claims.ExpiresAt == nil {
		t.Error("token missing iat/exp")
	}

	if ok, _ := sess.ManagerAuthenticated(ctx); !ok {
		t.Error("manager flag not raised")
	}

	if err := svc.Logout(ctx); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if ok, _ := sess.ManagerAuthenticated(ctx); ok {
		t.Error("manager flag still raised after logout")
	}
}

func TestManagerLogin_Rejections(t *testing.T) {
	svc, sess := newTestManager(t, "hannu-2024")
	ctx := context.Background()

	tests := []struct {
		name, user, pass string
	}{
		{"wrong password", "manager", "nope"},
		{"wrong username", "admin", "hannu-2024"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := svc.Login(ctx, tt.user, tt.pass); !errors.Is(err, ErrInvalidCredentials) {
				t.Errorf("expected ErrInvalidCredentials, got %v", err)
			}
		})
	}

	if ok, _ := sess.ManagerAuthenticated(ctx); ok {
		t.Error("failed logins must not raise the manager flag")
	}
}

func TestManagerLogin_NotConfigured(t *testing.T) {
	svc := NewManagerService(config.ManagerConfig{Username: "manager"}, config.JWTConfig{Secret: testSecret},
		session.New(session.NewMemoryStore()))
	if _, _, err := svc.Login(context.Background(), "manager", ""); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}

func TestValidateToken_Expired(t *testing.T) {
	svc, _ := newTestManager(t, "pw")
	issued := time.Now().Add(-2 * time.Hour)
	svc.now = func() time.Time { return issued }

	token, _, err := svc.Login(context.Background(), "manager", "pw")
	if err != nil {
		t.Fatal(err)
	}

	svc.now = time.Now
	if _, err := svc.ValidateToken(token); err == nil {
		t.Error("expected expired token to fail validation")
	}
}

// Tokens issued by the service pass the HTTP auth middleware and the
// manager role check.
func TestManagerToken_PassesMiddleware(t *testing.T) {
	svc, _ := newTestManager(t, "pw")
	token, _, err := svc.Login(context.Background(), "manager", "pw")
	if err != nil {
		t.Fatal(err)
	}

	h := middleware.AuthMiddleware(testSecret, zap.NewNop())(
		middleware.RequireManager(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})),
	)

	req := httptest.NewRequest("POST", "/api/admin/refresh", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d: %s", w.Code, w.Body.String())
	}
}

func TestProperty_HashPasswordVerifies(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 5
	properties := gopter.NewProperties(parameters)

	properties.Property("hashed passwords verify and differ from plaintext", prop.ForAll(
		func(password string) bool {
			hash, err := HashPassword(password)
			if err != nil {
				return false
			}
			if hash == password {
				return false
			}
			return verifyPassword(hash, password) == nil && verifyPassword(hash, password+"x") != nil
		},
		gen.RegexMatch(`[A-Za-z0-9!@#$%]{8,20}`),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
