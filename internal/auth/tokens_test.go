package auth

import (
	"context"
	"testing"
	"time"

	"github.com/Build-Your-Web-2025/SafeCity/internal/models"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTokenStore поднимает miniredis и хранилище токенов поверх него
func setupTokenStore(t *testing.T, ttl time.Duration) (*TokenStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewTokenStore(client, ttl), mr
}

func TestTokenStore_SaveAndLookup(t *testing.T) {
	// Подготовка
	store, _ := setupTokenStore(t, time.Hour)
	ctx := context.Background()
	principal := &models.Principal{UID: "user-123", Email: "user@example.com"}

	// Действие
	err := store.Save(ctx, "token-1", principal)
	require.NoError(t, err)

	got, err := store.Lookup(ctx, "token-1")

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, principal, got)
}

func TestTokenStore_Lookup_Expired(t *testing.T) {
	// Подготовка
	store, mr := setupTokenStore(t, time.Minute)
	ctx := context.Background()
	principal := &models.Principal{UID: "user-123", Email: "user@example.com"}
	require.NoError(t, store.Save(ctx, "token-1", principal))

	// Действие: перематываем время за границу TTL
	mr.FastForward(2 * time.Minute)
	got, err := store.Lookup(ctx, "token-1")

	// Проверки
	require.Error(t, err)
	assert.Nil(t, got)
	assert.ErrorIs(t, err, ErrSessionExpired)
}

func TestTokenStore_Lookup_Unknown(t *testing.T) {
	// Подготовка
	store, _ := setupTokenStore(t, time.Hour)

	// Действие
	got, err := store.Lookup(context.Background(), "no-such-token")

	// Проверки
	require.Error(t, err)
	assert.Nil(t, got)
	assert.ErrorIs(t, err, ErrSessionExpired)
}

func TestTokenStore_Revoke(t *testing.T) {
	// Подготовка
	store, _ := setupTokenStore(t, time.Hour)
	ctx := context.Background()
	principal := &models.Principal{UID: "user-123", Email: "user@example.com"}
	require.NoError(t, store.Save(ctx, "token-1", principal))

	// Действие
	require.NoError(t, store.Revoke(ctx, "token-1"))

	// Проверки
	_, err := store.Lookup(ctx, "token-1")
	assert.ErrorIs(t, err, ErrSessionExpired)

	// Повторный отзыв - no-op
	assert.NoError(t, store.Revoke(ctx, "token-1"))
}
