package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"hannu-storefront/internal/config"
	"hannu-storefront/internal/middleware"
	"hannu-storefront/internal/session"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// BcryptCost is the cost factor used by HashPassword
const BcryptCost = 10

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrNotConfigured      = errors.New("manager password hash not configured")
	ErrInvalidToken       = errors.New("invalid token")
)

// ManagerService unlocks the storefront admin mode
type ManagerService interface {
	Login(ctx context.Context, username, password string) (token string, expiresAt time.Time, err error)
	Logout(ctx context.Context) error
	ValidateToken(tokenString string) (*Claims, error)
}

// Claims are the manager JWT claims. The subject is the manager username.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type managerService struct {
	username     string
	passwordHash string
	jwtSecret    string
	expiry       time.Duration
	session      *session.Session
	now          func() time.Time
}

// NewManagerService creates a ManagerService from the manager and JWT settings
func NewManagerService(manager config.ManagerConfig, jwtCfg config.JWTConfig, sess *session.Session) ManagerService {
	expiry := time.Duration(jwtCfg.AccessExpiry) * time.Minute
	if expiry <= 0 {
		expiry = 8 * time.Hour
	}
	return &managerService{
		username:     manager.Username,
		passwordHash: manager.PasswordHash,
		jwtSecret:    jwtCfg.Secret,
		expiry:       expiry,
		session:      sess,
		now:          time.Now,
	}
}

// Login checks the credentials against the configured bcrypt hash, issues
// a manager token and raises the session's manager flag.
func (s *managerService) Login(ctx context.Context, username, password string) (string, time.Time, error) {
	if s.passwordHash == "" {
		return "", time.Time{}, ErrNotConfigured
	}

	// Always run bcrypt so an unknown username costs the same as a bad password
	passErr := verifyPassword(s.passwordHash, password)
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.username)) == 1
	if passErr != nil || !userOK {
		return "", time.Time{}, ErrInvalidCredentials
	}

	token, expiresAt, err := s.generateAccessToken()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate access token: %w", err)
	}

	if err := s.session.SetManagerAuthenticated(ctx, true); err != nil {
		return "", time.Time{}, fmt.Errorf("failed to store manager flag: %w", err)
	}

	return token, expiresAt, nil
}

// Logout lowers the manager flag. Issued tokens stay valid until they expire.
func (s *managerService) Logout(ctx context.Context) error {
	if err := s.session.SetManagerAuthenticated(ctx, false); err != nil {
		return fmt.Errorf("failed to clear manager flag: %w", err)
	}
	return nil
}

// ValidateToken validates a JWT token and returns the claims
func (s *managerService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	}, jwt.WithTimeFunc(s.now))

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

func (s *managerService) generateAccessToken() (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.expiry)
	claims := &Claims{
		Role: middleware.RoleManager,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.username,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// HashPassword produces a value suitable for MANAGER_PASSWORD_HASH
func HashPassword(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

func verifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}
