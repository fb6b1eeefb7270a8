package session

import (
	"context"
	"path/filepath"
	"testing"

	"hannu-storefront/internal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client, "hannu"), mr
}

func storesUnderTest(t *testing.T) map[string]Store {
	redisStore, _ := newRedisStore(t)

	cfg := &config.Config{Session: config.SessionConfig{
		Store:      "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "state.db"),
	}}
	sqliteStore, closer, err := Open(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { closer.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(),
		"redis":  redisStore,
		"sqlite": sqliteStore,
	}
}

func TestSession_TokenLifecycle(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := New(store)

			token, err := s.Token(ctx)
			require.NoError(t, err)
			assert.Empty(t, token, "fresh session must be unauthenticated")

			require.NoError(t, s.SetToken(ctx, "tok-1"))
			token, err = s.Token(ctx)
			require.NoError(t, err)
			assert.Equal(t, "tok-1", token)

			require.NoError(t, s.ClearToken(ctx))
			token, err = s.Token(ctx)
			require.NoError(t, err)
			assert.Empty(t, token)
		})
	}
}

func TestSession_ManagerFlag(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := New(store)

			on, err := s.ManagerAuthenticated(ctx)
			require.NoError(t, err)
			assert.False(t, on)

			require.NoError(t, s.SetManagerAuthenticated(ctx, true))
			on, err = s.ManagerAuthenticated(ctx)
			require.NoError(t, err)
			assert.True(t, on)

			require.NoError(t, s.SetManagerAuthenticated(ctx, false))
			on, err = s.ManagerAuthenticated(ctx)
			require.NoError(t, err)
			assert.False(t, on)
		})
	}
}

func TestSession_GarbageManagerFlagIsFalse(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Set(context.Background(), ManagerKey, "yes please"))

	on, err := New(store).ManagerAuthenticated(context.Background())
	require.NoError(t, err)
	assert.False(t, on)
}

func TestRedisStore_UsesNamespacedKeys(t *testing.T) {
	store, mr := newRedisStore(t)
	require.NoError(t, store.Set(context.Background(), TokenKey, "abc"))

	got, err := mr.Get("hannu:state:adminToken")
	require.NoError(t, err)
	assert.Equal(t, "abc", got)
	assert.False(t, mr.Exists(TokenKey))
}

func TestRedisStore_UnavailableReturnsError(t *testing.T) {
	store, mr := newRedisStore(t)
	mr.Close()

	_, _, err := store.Get(context.Background(), TokenKey)
	assert.Error(t, err)
}

func TestOpen_UnknownStore(t *testing.T) {
	cfg := &config.Config{Session: config.SessionConfig{Store: "etcd"}}
	_, _, err := Open(context.Background(), cfg, zap.NewNop())
	assert.ErrorIs(t, err, ErrUnknownStore)
}

func TestOpen_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &config.Config{
		Session: config.SessionConfig{Store: "redis", KeyPrefix: "test"},
		Redis:   config.RedisConfig{Host: mr.Host(), Port: mr.Port()},
	}

	store, closer, err := Open(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer closer.Close()

	require.NoError(t, New(store).SetToken(context.Background(), "tok"))
	assert.True(t, mr.Exists("test:state:adminToken"))
}

// Whatever was stored last is what the session reports
func TestProperty_MemoryStoreLastWriteWins(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("token reads back the last write", prop.ForAll(
		func(tokens []string) bool {
			s := New(NewMemoryStore())
			ctx := context.Background()
			for _, tok := range tokens {
				if err := s.SetToken(ctx, tok); err != nil {
					return false
				}
			}
			got, err := s.Token(ctx)
			return err == nil && got == tokens[len(tokens)-1]
		},
		gen.SliceOfN(4, gen.AlphaString()),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
