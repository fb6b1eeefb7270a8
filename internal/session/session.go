package session

import (
	"context"
	"strconv"
)

// Keys under which the admin session lives in a Store
const (
	TokenKey   = "adminToken"
	ManagerKey = "managerAuthenticated"
)

// Session is the admin session view over a Store. The token has no tracked
// expiry; it is dropped when the backend answers 401.
type Session struct {
	store Store
}

func New(store Store) *Session {
	return &Session{store: store}
}

// Token returns the stored bearer token, or "" when unauthenticated
func (s *Session) Token(ctx context.Context) (string, error) {
	token, _, err := s.store.Get(ctx, TokenKey)
	return token, err
}

func (s *Session) SetToken(ctx context.Context, token string) error {
	return s.store.Set(ctx, TokenKey, token)
}

func (s *Session) ClearToken(ctx context.Context) error {
	return s.store.Delete(ctx, TokenKey)
}

// ManagerAuthenticated reports whether admin mode was unlocked. Unparseable
// values count as false.
func (s *Session) ManagerAuthenticated(ctx context.Context) (bool, error) {
	raw, ok, err := s.store.Get(ctx, ManagerKey)
	if err != nil || !ok {
		return false, err
	}
	v, _ := strconv.ParseBool(raw)
	return v, nil
}

func (s *Session) SetManagerAuthenticated(ctx context.Context, on bool) error {
	if !on {
		return s.store.Delete(ctx, ManagerKey)
	}
	return s.store.Set(ctx, ManagerKey, "true")
}
